package report

import (
	"fmt"

	"github.com/a3tai/inspection-report/internal/form"
	"github.com/a3tai/inspection-report/internal/schema"
)

// row is one table row. Header rows span both columns.
type row struct {
	Label  string
	Value  string
	Header bool
}

const (
	missingValue = "-"
	notApplies   = "N/A"
)

// generalRows are the six rows of the general-data table. Missing values
// print as empty cells.
func generalRows(snap form.Snapshot) []row {
	get := func(field string) string {
		return snap.Get("general", field)
	}
	return []row{
		{Label: "Nombre de la Obra", Value: get("obra")},
		{Label: "Nº Pedido / Equipo", Value: get("pedido")},
		{Label: "Fecha Visita", Value: get("fecha")},
		{Label: "Técnico Verificador", Value: get("tecnico")},
		{Label: "Jefe de Montaje", Value: get("jefe")},
		{Label: "Estado del Hueco", Value: get("estado_hueco")},
	}
}

// technicalRows groups the answers of sections 2 to 7 under their header
// rows. Absent values print as "-"; measurements carry their unit.
func technicalRows(sch *schema.Schema, snap form.Snapshot) []row {
	orDash := func(section, field string) string {
		if v := snap.Get(section, field); v != "" {
			return v
		}
		return missingValue
	}
	withUnit := func(section, field, unit string) string {
		if v := snap.Get(section, field); v != "" {
			return v + " " + unit
		}
		return missingValue
	}

	return []row{
		{Label: "2. CUARTO DE MÁQUINAS", Header: true},
		{Label: "Ganchos Instalados", Value: orDash("maquinas", "ganchos")},
		{Label: "Material Viga", Value: orDash("maquinas", "material_viga")},
		{Label: "Carga Máxima", Value: withUnit("maquinas", "carga_max", "kg")},

		{Label: "3. HUECO Y VENTILACIÓN", Header: true},
		{Label: "R.L.S. (Huida)", Value: withUnit("superior", "rls", "mm")},
		{Label: "Ventilación", Value: orDash("superior", "ventilacion")},
		{Label: "Dimensiones Vent.", Value: ventilationSize(sch, snap, orDash)},

		{Label: "4. RECORRIDO", Header: true},
		{Label: "Recorrido Total", Value: withUnit("recorrido", "travel", "mm")},
		{Label: "Nº Paradas", Value: orDash("recorrido", "paradas")},
		{Label: "Desplomes", Value: orDash("recorrido", "desplomes")},

		{Label: "5. PUERTAS", Header: true},
		{Label: "Ancho Hueco Obra", Value: withUnit("puertas", "ancho_obra", "mm")},
		{Label: "Rebaje Suelo", Value: withUnit("puertas", "rebaje", "mm")},

		{Label: "6. FOSO (PIT)", Header: true},
		{Label: "Dimensiones (SxAxF)", Value: fmt.Sprintf("%s x %s x %s mm",
			orDash("foso", "profundidad"), orDash("foso", "ancho_foso"), orDash("foso", "largo_foso"))},
		{Label: "Agua / Humedad", Value: orDash("foso", "agua")},

		{Label: "7. ELÉCTRICA", Header: true},
		{Label: "Cuadro de Obra", Value: orDash("electrica", "cuadro_obra")},
		{Label: "Distancia Hueco", Value: withUnit("electrica", "distancia", "m")},
	}
}

// ventilationSize composes "<ancho>x<alto> mm" while the ventilation
// dimensions are visible, that is while superior.ventilacion holds the value
// their dependency asks for.
func ventilationSize(sch *schema.Schema, snap form.Snapshot, orDash func(section, field string) string) string {
	f, ok := sch.Field(schema.Key{Section: "superior", Field: "vent_ancho"})
	if !ok || !f.Visible("superior", snap) {
		return notApplies
	}
	return orDash("superior", "vent_ancho") + "x" + orDash("superior", "vent_alto") + " mm"
}
