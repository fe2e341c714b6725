package form

import (
	"errors"
	"fmt"
	"html"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/a3tai/inspection-report/internal/schema"
)

// ErrGenerating is returned when an export is requested while another one
// is still running for the same session.
var ErrGenerating = errors.New("report generation already in progress")

// Decision is the outcome of an export request.
type Decision int

const (
	// DecisionProceed: every required value is present.
	DecisionProceed Decision = iota
	// DecisionDraft: values are missing and the user accepted an incomplete draft.
	DecisionDraft
	// DecisionConfirm: values are missing and the user must confirm or cancel.
	DecisionConfirm
)

func (d Decision) String() string {
	switch d {
	case DecisionProceed:
		return "proceed"
	case DecisionDraft:
		return "draft"
	case DecisionConfirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// Session is the UI state of one inspection form: values and photos, the
// expanded section, the current validation errors and the export flag.
// All changes go through its methods. It is not safe for concurrent use.
type Session struct {
	schema     *schema.Schema
	state      *State
	expanded   string
	errors     ValidationResult
	generating bool
	policy     *bluemonday.Policy
}

// NewSession starts an empty session with the first section expanded.
func NewSession(sch *schema.Schema) *Session {
	s := &Session{
		schema: sch,
		policy: bluemonday.StrictPolicy(),
	}
	s.Reset()
	return s
}

// Reset discards every value, photo and error.
func (s *Session) Reset() {
	s.state = NewState()
	s.errors = ValidationResult{}
	s.generating = false
	s.expanded = ""
	if len(s.schema.Sections) > 0 {
		s.expanded = s.schema.Sections[0].ID
	}
}

// Schema returns the form definition.
func (s *Session) Schema() *schema.Schema { return s.schema }

// SetField stores a value and clears the validation error of that key.
// Invalid UTF-8 is replaced. Free-text values are stripped of markup; select values must be one of the
// options or empty.
func (s *Session) SetField(k schema.Key, value string) error {
	f, ok := s.schema.Field(k)
	if !ok {
		return fmt.Errorf("unknown field %s", k)
	}
	value = strings.ToValidUTF8(value, string(utf8.RuneError))

	switch f.Type {
	case schema.FieldText, schema.FieldTextarea:
		value = s.stripMarkup(value)
	case schema.FieldSelect:
		if value != "" && !slices.Contains(f.Options, value) {
			return fmt.Errorf("field %s: %q is not one of its options", k, value)
		}
	case schema.FieldNumber, schema.FieldDate:
		value = strings.TrimSpace(value)
	}

	s.state.Set(k, value)
	s.errors = s.errors.without(k)
	return nil
}

// ClearField removes a stored value.
func (s *Session) ClearField(k schema.Key) {
	s.state.Clear(k)
}

// Value returns the stored value of k.
func (s *Session) Value(k schema.Key) (string, bool) {
	return s.state.Value(k)
}

// SetPhoto stores the photo of a section that asks for one.
func (s *Session) SetPhoto(section string, p Photo) error {
	sec, ok := s.schema.Section(section)
	if !ok {
		return fmt.Errorf("unknown section %s", section)
	}
	if !sec.PhotoRequired {
		return fmt.Errorf("section %s takes no photo", section)
	}
	if p.Empty() {
		return fmt.Errorf("section %s: empty photo", section)
	}
	s.state.SetPhoto(section, p)
	return nil
}

// Photo returns the photo of a section.
func (s *Session) Photo(section string) (Photo, bool) {
	return s.state.Photo(section)
}

// ToggleSection expands a section, or collapses it if it is the expanded one.
func (s *Session) ToggleSection(id string) {
	if s.expanded == id {
		s.expanded = ""
		return
	}
	if _, ok := s.schema.Section(id); ok {
		s.expanded = id
	}
}

// Expanded returns the id of the expanded section, "" when all are collapsed.
func (s *Session) Expanded() string { return s.expanded }

// Errors returns the result of the last validation pass.
func (s *Session) Errors() ValidationResult { return s.errors }

// Validate recomputes and stores the validation errors.
func (s *Session) Validate() ValidationResult {
	s.errors = Validate(s.schema, s.state)
	return s.errors
}

// RequestGenerate validates the form and decides whether an export may start.
// With values missing and no draft confirmation, nothing else changes.
func (s *Session) RequestGenerate(confirmDraft bool) Decision {
	if s.Validate().OK() {
		return DecisionProceed
	}
	if confirmDraft {
		return DecisionDraft
	}
	return DecisionConfirm
}

// BeginGenerate marks an export as running and returns the snapshot to compose.
func (s *Session) BeginGenerate() (Snapshot, error) {
	if s.generating {
		return Snapshot{}, ErrGenerating
	}
	s.generating = true
	return s.state.Snapshot(), nil
}

// EndGenerate clears the running flag whatever the export outcome.
func (s *Session) EndGenerate() { s.generating = false }

// Generating reports whether an export is running.
func (s *Session) Generating() bool { return s.generating }

// Snapshot copies the current values and photos.
func (s *Session) Snapshot() Snapshot { return s.state.Snapshot() }

// Progress estimates completion in percent: stored values plus photos over
// the number of inputs the form offers, capped at 100.
func (s *Session) Progress() int {
	total := s.schema.TotalInputs()
	if total == 0 {
		return 0
	}
	filled := s.state.Len() + s.state.PhotoCount()
	pct := int(math.Round(float64(filled) / float64(total) * 100))
	return min(100, pct)
}

func (s *Session) stripMarkup(v string) string {
	if !strings.ContainsAny(v, "<>") {
		return v
	}
	return html.UnescapeString(s.policy.Sanitize(v))
}
