package jwtverify

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Tenant is the company a principal acts for. A principal without a
// company is represented explicitly rather than by an empty string.
type Tenant struct {
	id  string
	set bool
}

func WithTenant(id string) Tenant {
	if id == "" {
		return NoTenant()
	}
	return Tenant{id: id, set: true}
}

func NoTenant() Tenant {
	return Tenant{}
}

func TenantFromPtr(id *string) Tenant {
	if id == nil {
		return NoTenant()
	}
	return WithTenant(*id)
}

func (t Tenant) ID() (string, bool) {
	return t.id, t.set
}

func (t Tenant) Present() bool {
	return t.set
}

// Ptr returns nil for NoTenant, matching the nullable companyId in API bodies.
func (t Tenant) Ptr() *string {
	if !t.set {
		return nil
	}
	id := t.id
	return &id
}

func (t Tenant) String() string {
	if !t.set {
		return "<none>"
	}
	return t.id
}

func (t Tenant) MarshalJSON() ([]byte, error) {
	if !t.set {
		return []byte("null"), nil
	}
	return json.Marshal(t.id)
}

func (t *Tenant) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = NoTenant()
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return errors.New("companyId must be a string or null")
	}
	*t = WithTenant(id)
	return nil
}
