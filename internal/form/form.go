// Package form submits admin forms to the API: it builds a JSON or
// multipart payload from the form's fields, attaches the bearer token and
// maps the outcome onto a View (busy state, inline field errors, switch
// from create to edit).
package form

import (
	"strings"
	"sync"
)

// Mode says whether a form creates a new entity or edits one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// FieldKind is the input type of a field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldCheckbox
	FieldFile
	FieldHidden
)

// FileInput is the content chosen for a file field.
type FileInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Field is one named form input. Names ending in "[]" collect every field
// with that name into an array.
type Field struct {
	Name    string
	Kind    FieldKind
	Value   string
	Checked bool
	File    *FileInput
}

// IsArray reports whether the field contributes to an array value.
func (f Field) IsArray() bool {
	return strings.HasSuffix(f.Name, "[]")
}

// BaseName is the name without the array suffix.
func (f Field) BaseName() string {
	return strings.TrimSuffix(f.Name, "[]")
}

func (f Field) hasFile() bool {
	return f.Kind == FieldFile && f.File != nil && len(f.File.Data) > 0
}

// State is the lifecycle of one submission.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Form is an entity form bound to an API endpoint such as "/users".
// Method overrides the default verb (POST for create, PUT for edit).
type Form struct {
	Endpoint string
	Method   string
	Mode     Mode
	EntityID string
	Fields   []Field

	mu    sync.Mutex
	state State
}

// State returns where the form is in its submission lifecycle.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// begin moves the form to Submitting unless a submission is in flight.
func (f *Form) begin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return false
	}
	f.state = StateSubmitting
	return true
}

func (f *Form) finish(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

// fieldFor returns the form field a server error key refers to.
// Keys like "roles.0" match the array field "roles[]".
func (f *Form) fieldFor(key string) (string, bool) {
	for _, field := range f.Fields {
		base := field.BaseName()
		if key == field.Name || key == base || strings.HasPrefix(key, base+".") {
			return field.Name, true
		}
	}
	return "", false
}
