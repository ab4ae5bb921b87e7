package authz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Role is either a StructuredRole or a LegacyRole. Both may appear in the
// same Roles slice; evaluation never needs to know which form is present.
type Role interface {
	// RoleName is the name HasRole matches against.
	RoleName() string
	isRole()
}

// StructuredRole carries an explicit permission list.
type StructuredRole struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// RoleName implements Role.
func (r StructuredRole) RoleName() string { return r.Name }

func (StructuredRole) isRole() {}

// LegacyRole is a bare role name whose permissions come from a
// hard-coded table.
type LegacyRole string

// RoleName implements Role.
func (r LegacyRole) RoleName() string { return string(r) }

func (LegacyRole) isRole() {}

// ID is an identifier the server may send as either a number or a string.
type ID string

// UnmarshalJSON accepts `12`, `"12"` and `null`.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as numbers so snapshots keep the server's shape.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Roles is a role list that decodes mixed JSON arrays such as
// `["admin", {"id": 3, "name": "auditor", "permissions": ["audit.view"]}]`.
type Roles []Role

// UnmarshalJSON implements json.Unmarshaler.
func (r *Roles) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = nil
		return nil
	}

	// A single role (string or object) is accepted where a list is expected.
	if len(data) > 0 && data[0] != '[' {
		role, err := decodeRole(data)
		if err != nil {
			return err
		}
		*r = Roles{role}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode roles: %w", err)
	}

	out := make(Roles, 0, len(raw))
	for i, item := range raw {
		role, err := decodeRole(item)
		if err != nil {
			return fmt.Errorf("decode role %d: %w", i, err)
		}
		if role != nil {
			out = append(out, role)
		}
	}
	*r = out
	return nil
}

// MarshalJSON writes each role in its own shape.
func (r Roles) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(r))
	for _, role := range r {
		switch v := role.(type) {
		case StructuredRole:
			if v.Permissions == nil {
				v.Permissions = []string{}
			}
			out = append(out, v)
		case LegacyRole:
			out = append(out, string(v))
		}
	}
	return json.Marshal(out)
}

func decodeRole(data []byte) (Role, error) {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		return nil, nil
	case data[0] == '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return nil, err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, nil
		}
		return LegacyRole(name), nil
	case data[0] == '{':
		var structured StructuredRole
		if err := json.Unmarshal(data, &structured); err != nil {
			return nil, err
		}
		return structured, nil
	default:
		return nil, fmt.Errorf("unsupported role value %s", string(data))
	}
}

// NormalizeRoles guarantees a non-empty role list: a user the server sent
// without any role gets the synthetic DefaultRoleName role with no
// permissions.
func NormalizeRoles(roles Roles) Roles {
	out := make(Roles, 0, len(roles))
	for _, role := range roles {
		if role != nil {
			out = append(out, role)
		}
	}
	if len(out) == 0 {
		return Roles{StructuredRole{Name: DefaultRoleName, Permissions: []string{}}}
	}
	return out
}
