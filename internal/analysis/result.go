package analysis

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/a3tai/inspection-report/internal/form"
	"github.com/a3tai/inspection-report/internal/schema"
)

// Fallback markers set when the model text holds no usable object.
const (
	MarkerNoJSON     = "No JSON found"
	MarkerParseError = "JSON Parse Error"
)

//go:embed shape.json
var shapeJSON string

const shapeURL = "inspection://analysis/shape.json"

var (
	shapeOnce   sync.Once
	shapeSchema *jsonschema.Schema
	shapeErr    error
)

func compiledShape() (*jsonschema.Schema, error) {
	shapeOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(shapeURL, strings.NewReader(shapeJSON)); err != nil {
			shapeErr = fmt.Errorf("failed to add result schema: %w", err)
			return
		}
		shapeSchema, shapeErr = c.Compile(shapeURL)
	})
	return shapeSchema, shapeErr
}

// General holds the nameplate data the model read, when visible.
type General struct {
	NumAparato string `json:"num_aparato,omitempty"`
	CargaKg    string `json:"carga_kg,omitempty"`
	Personas   string `json:"personas,omitempty"`
	Velocidad  string `json:"velocidad,omitempty"`
}

// Item is the state of one inspected element.
type Item struct {
	ID            string `json:"id"`
	Estado        string `json:"estado"`
	Observaciones string `json:"observaciones,omitempty"`
}

// Result is the best-effort reading of a model response. Data is the parsed
// object as returned, or the fallback {raw_text, error} object. Typed fields
// are filled from Data where they could be read; Conforms records whether
// Data matched the documented shape.
type Result struct {
	Data     map[string]any `json:"data"`
	RawText  string         `json:"raw_text,omitempty"`
	Marker   string         `json:"error,omitempty"`
	Conforms bool           `json:"conforms"`
	Problems []string       `json:"problems,omitempty"`

	General General `json:"general"`
	Items   []Item  `json:"items,omitempty"`
	Summary string  `json:"summary,omitempty"`
}

// Fallback reports whether the response carried no parsable object.
func (r *Result) Fallback() bool { return r.Marker != "" }

// ParseText extracts the span from the first "{" to the last "}" of text and
// parses it. Missing or malformed objects yield a fallback result, never an
// error.
func ParseText(text string) *Result {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return fallback(text, MarkerNoJSON)
	}

	dec := json.NewDecoder(strings.NewReader(text[start : end+1]))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return fallback(text, MarkerParseError)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fallback(text, MarkerParseError)
	}

	r := &Result{Data: data}
	r.check()
	r.fill()
	return r
}

func fallback(text, marker string) *Result {
	return &Result{
		Data:    map[string]any{"raw_text": text, "error": marker},
		RawText: text,
		Marker:  marker,
	}
}

func (r *Result) check() {
	sch, err := compiledShape()
	if err != nil {
		r.Problems = []string{err.Error()}
		return
	}
	if err := sch.Validate(r.Data); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			for _, e := range ve.BasicOutput().Errors {
				if e.Error != "" {
					r.Problems = append(r.Problems, fmt.Sprintf("%s: %s", e.InstanceLocation, e.Error))
				}
			}
		} else {
			r.Problems = []string{err.Error()}
		}
		return
	}
	r.Conforms = true
}

// fill copies whatever typed values can be read, shape match or not.
func (r *Result) fill() {
	if g, ok := r.Data["general"].(map[string]any); ok {
		r.General = General{
			NumAparato: scalar(g["num_aparato"]),
			CargaKg:    scalar(g["carga_kg"]),
			Personas:   scalar(g["personas"]),
			Velocidad:  scalar(g["velocidad"]),
		}
	}
	if items, ok := r.Data["items"].([]any); ok {
		for _, raw := range items {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			r.Items = append(r.Items, Item{
				ID:            scalar(m["id"]),
				Estado:        scalar(m["estado"]),
				Observaciones: scalar(m["observaciones"]),
			})
		}
	}
	r.Summary = scalar(r.Data["summary"])
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

var observationsKey = schema.Key{Section: "cierre", Field: "observaciones_finales"}

// Apply copies the model summary into the technician's observations when
// that field is still empty, and returns the keys it wrote.
func (r *Result) Apply(s *form.Session) ([]schema.Key, error) {
	if r.Fallback() || r.Summary == "" {
		return nil, nil
	}
	if v, ok := s.Value(observationsKey); ok && v != "" {
		return nil, nil
	}
	if err := s.SetField(observationsKey, r.Summary); err != nil {
		return nil, err
	}
	return []schema.Key{observationsKey}, nil
}
