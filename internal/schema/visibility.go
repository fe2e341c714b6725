package schema

// Visible reports whether f, a field of section sectionID, is shown for the
// given values. Fields without a dependency are always visible.
func (f Field) Visible(sectionID string, values Values) bool {
	if f.DependsOn == nil {
		return true
	}
	if values == nil {
		return false
	}
	current, ok := values.Value(Key{Section: sectionID, Field: f.DependsOn.Field})
	return ok && current == f.DependsOn.Value
}

// VisibleFields returns the fields of the section currently shown, in order.
func (sec Section) VisibleFields(values Values) []Field {
	visible := make([]Field, 0, len(sec.Fields))
	for _, f := range sec.Fields {
		if f.Visible(sec.ID, values) {
			visible = append(visible, f)
		}
	}
	return visible
}

// VisibleFields returns the visible fields of section id, or nil for an
// unknown section.
func (s *Schema) VisibleFields(id string, values Values) []Field {
	sec, ok := s.Section(id)
	if !ok {
		return nil
	}
	return sec.VisibleFields(values)
}

// Present returns the value stored for k when its field is visible. Hidden
// fields keep their stored value but read as absent.
func (s *Schema) Present(k Key, values Values) (string, bool) {
	f, ok := s.Field(k)
	if !ok || values == nil || !f.Visible(k.Section, values) {
		return "", false
	}
	return values.Value(k)
}

// MapValues adapts a plain map to Values.
type MapValues map[Key]string

// Value implements Values.
func (m MapValues) Value(k Key) (string, bool) {
	v, ok := m[k]
	return v, ok
}
