// Package form holds the in-memory state of one inspection: entered values,
// section photos and the validation applied before export.
package form

import (
	"fmt"
	"maps"
	"sort"

	"github.com/a3tai/inspection-report/internal/schema"
)

// Photo references the image uploaded for a section: either an in-memory
// blob or a URL the report composer fetches. Data is never mutated after the
// photo is stored.
type Photo struct {
	Filename string `json:"filename,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"-"`
	URL      string `json:"url,omitempty"`
}

// Empty reports whether the photo references nothing.
func (p Photo) Empty() bool {
	return len(p.Data) == 0 && p.URL == ""
}

// State is the mutable store of one form session. It is not safe for
// concurrent use; the owner serialises access.
type State struct {
	values map[schema.Key]string
	photos map[string]Photo
}

// NewState returns an empty store.
func NewState() *State {
	return &State{
		values: make(map[schema.Key]string),
		photos: make(map[string]Photo),
	}
}

// Set stores or overwrites the value of k.
func (s *State) Set(k schema.Key, value string) {
	s.values[k] = value
}

// Clear removes the value of k.
func (s *State) Clear(k schema.Key) {
	delete(s.values, k)
}

// Value implements schema.Values.
func (s *State) Value(k schema.Key) (string, bool) {
	v, ok := s.values[k]
	return v, ok
}

// SetPhoto stores the photo of a section, replacing any previous one.
func (s *State) SetPhoto(section string, p Photo) {
	s.photos[section] = p
}

// RemovePhoto drops the photo of a section.
func (s *State) RemovePhoto(section string) {
	delete(s.photos, section)
}

// Photo returns the photo of a section.
func (s *State) Photo(section string) (Photo, bool) {
	p, ok := s.photos[section]
	return p, ok
}

// Len is the number of stored values.
func (s *State) Len() int { return len(s.values) }

// PhotoCount is the number of stored photos.
func (s *State) PhotoCount() int { return len(s.photos) }

// Snapshot copies the current state. Later mutations do not affect it.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Values: maps.Clone(s.values),
		Photos: maps.Clone(s.photos),
	}
}

// Snapshot is an immutable copy of a form state, the input of validation and
// report composition.
type Snapshot struct {
	Values map[schema.Key]string
	Photos map[string]Photo
}

// Value implements schema.Values.
func (s Snapshot) Value(k schema.Key) (string, bool) {
	v, ok := s.Values[k]
	return v, ok
}

// Get returns the stored value of section.field, or "".
func (s Snapshot) Get(section, field string) string {
	return s.Values[schema.Key{Section: section, Field: field}]
}

// Photo returns the photo of a section when it references something.
func (s Snapshot) Photo(section string) (Photo, bool) {
	p, ok := s.Photos[section]
	if !ok || p.Empty() {
		return Photo{}, false
	}
	return p, true
}

// Flatten renders the values with "section.field" keys.
func (s Snapshot) Flatten() map[string]string {
	out := make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		out[k.String()] = v
	}
	return out
}

// SnapshotFromFlat builds a snapshot from "section.field" keyed values, as
// received from tool calls and JSON clients.
func SnapshotFromFlat(values map[string]string, photos map[string]Photo) (Snapshot, error) {
	snap := Snapshot{
		Values: make(map[schema.Key]string, len(values)),
		Photos: make(map[string]Photo, len(photos)),
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, raw := range keys {
		k, err := schema.ParseKey(raw)
		if err != nil {
			return Snapshot{}, fmt.Errorf("values: %w", err)
		}
		snap.Values[k] = values[raw]
	}
	maps.Copy(snap.Photos, photos)
	return snap, nil
}
