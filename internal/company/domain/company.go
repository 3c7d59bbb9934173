package domain

import "time"

type EntityType string

const (
	EntitySoleProprietor EntityType = "SOLE_PROPRIETOR"
	EntityPartnership    EntityType = "PARTNERSHIP"
	EntityPvtLtd         EntityType = "PVT_LTD"
	EntityNGO            EntityType = "NGO"
	EntityOther          EntityType = "OTHER"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntitySoleProprietor, EntityPartnership, EntityPvtLtd, EntityNGO, EntityOther:
		return true
	}
	return false
}

type Company struct {
	ID         string
	UserID     string
	Name       string
	EntityType EntityType
	PanVat     string
	Address    string
	Phone      string
	Email      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Patch holds the optional fields of an update; nil means unchanged.
type Patch struct {
	Name       *string
	EntityType *EntityType
	PanVat     *string
	Address    *string
	Phone      *string
	Email      *string
}

func (c *Company) Apply(p Patch) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.EntityType != nil {
		c.EntityType = *p.EntityType
	}
	if p.PanVat != nil {
		c.PanVat = *p.PanVat
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Email != nil {
		c.Email = p.Email
	}
}
