package directory

import (
	"github.com/google/uuid"

	"memberd/internal/resource"
	dErrors "memberd/pkg/domain-errors"
)

// Memory twins of the SQL stores, built on the generic map store with the
// same uniqueness rules the schema enforces.

func NewMemoryCountries() *resource.MemoryStore[*Country] {
	return resource.NewMemoryStore(
		func(c *Country) uuid.UUID { return c.ID },
		func(c *Country, field, value string) bool {
			switch field {
			case "name":
				return c.Name == value
			case "code":
				return c.Code == value
			}
			return false
		},
		func(existing, candidate *Country) error {
			if existing.Name == candidate.Name || existing.Code == candidate.Code {
				return dErrors.New(dErrors.CodeConflict, "insert country: constraint violated")
			}
			return nil
		},
	)
}

func NewMemoryAddresses() *resource.MemoryStore[*Address] {
	return resource.NewMemoryStore(
		func(a *Address) uuid.UUID { return a.ID },
		func(a *Address, field, value string) bool {
			switch field {
			case "city":
				return a.City == value
			case "postal_code":
				return a.PostalCode == value
			}
			return false
		},
		nil,
	)
}

func NewMemoryInstitutions() *resource.MemoryStore[*Institution] {
	return resource.NewMemoryStore(
		func(i *Institution) uuid.UUID { return i.ID },
		func(i *Institution, field, value string) bool {
			switch field {
			case "name":
				return i.Name == value
			case "short_name":
				return i.ShortName == value
			}
			return false
		},
		nil,
	)
}

func NewMemoryPlacesOfStudy() *resource.MemoryStore[*PlaceOfStudy] {
	return resource.NewMemoryStore(
		func(p *PlaceOfStudy) uuid.UUID { return p.ID },
		func(p *PlaceOfStudy, field, value string) bool {
			return field == "institution_id" && p.InstitutionID.String() == value
		},
		nil,
	)
}

func NewMemoryGroups() *resource.MemoryStore[*Group] {
	return resource.NewMemoryStore(
		func(g *Group) uuid.UUID { return g.ID },
		func(g *Group, field, value string) bool {
			switch field {
			case "name":
				return g.Name == value
			case "posix_name":
				return g.PosixName == value
			}
			return false
		},
		func(existing, candidate *Group) error {
			if existing.PosixName == candidate.PosixName {
				return dErrors.New(dErrors.CodeConflict, "insert group: constraint violated")
			}
			return nil
		},
	)
}
