// Package directory holds the reference entities members point at:
// countries, addresses, institutions, places of study and groups. They are
// plain records served through the generic resource layer.
package directory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"memberd/internal/resource"
	"memberd/pkg/domain"
	dErrors "memberd/pkg/domain-errors"
)

// Country is an ISO country entry. Name and Code are unique.
type Country struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Address is a postal address referencing a country.
type Address struct {
	ID            uuid.UUID `json:"id"`
	StreetAddress string    `json:"street_address"`
	City          string    `json:"city"`
	PostalCode    string    `json:"postal_code"`
	CountryID     uuid.UUID `json:"country_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Institution is a school or university.
type Institution struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlaceOfStudy ties an institution to the date a member started there.
type PlaceOfStudy struct {
	ID            uuid.UUID   `json:"id"`
	FromDate      domain.Date `json:"from_date"`
	InstitutionID uuid.UUID   `json:"institution_id"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Group is an organizational unit with a unique posix name.
type Group struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	PosixName string    `json:"posix_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CountryDescriptor declares the country resource.
func CountryDescriptor() resource.Descriptor[*Country] {
	return resource.Descriptor[*Country]{
		Name:       "country",
		Operations: resource.ReadCreate,
		Filterable: []string{"name", "code"},
		New: func(_ context.Context, body json.RawMessage, now time.Time) (*Country, error) {
			var in struct {
				Name string `json:"name"`
				Code string `json:"code"`
			}
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
			}
			if in.Name == "" || in.Code == "" {
				return nil, dErrors.New(dErrors.CodeBadRequest, "country requires name and code")
			}
			return &Country{ID: uuid.New(), Name: in.Name, Code: in.Code, CreatedAt: now, UpdatedAt: now}, nil
		},
	}
}

// AddressDescriptor declares the address resource.
func AddressDescriptor() resource.Descriptor[*Address] {
	return resource.Descriptor[*Address]{
		Name:       "address",
		Operations: resource.ReadWrite,
		Filterable: []string{"city", "postal_code"},
		New: func(_ context.Context, body json.RawMessage, now time.Time) (*Address, error) {
			var in struct {
				StreetAddress string    `json:"street_address"`
				City          string    `json:"city"`
				PostalCode    string    `json:"postal_code"`
				CountryID     uuid.UUID `json:"country_id"`
			}
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
			}
			if in.StreetAddress == "" || in.City == "" || in.PostalCode == "" {
				return nil, dErrors.New(dErrors.CodeBadRequest, "address requires street_address, city and postal_code")
			}
			if in.CountryID == uuid.Nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "address requires a country")
			}
			return &Address{
				ID:            uuid.New(),
				StreetAddress: in.StreetAddress,
				City:          in.City,
				PostalCode:    in.PostalCode,
				CountryID:     in.CountryID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}, nil
		},
		Apply: func(_ context.Context, existing *Address, body json.RawMessage, now time.Time) (*Address, error) {
			var in struct {
				StreetAddress *string    `json:"street_address"`
				City          *string    `json:"city"`
				PostalCode    *string    `json:"postal_code"`
				CountryID     *uuid.UUID `json:"country_id"`
			}
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
			}
			if in.StreetAddress != nil {
				existing.StreetAddress = *in.StreetAddress
			}
			if in.City != nil {
				existing.City = *in.City
			}
			if in.PostalCode != nil {
				existing.PostalCode = *in.PostalCode
			}
			if in.CountryID != nil {
				existing.CountryID = *in.CountryID
			}
			existing.UpdatedAt = now
			return existing, nil
		},
	}
}

// InstitutionDescriptor declares the institution resource.
func InstitutionDescriptor() resource.Descriptor[*Institution] {
	return resource.Descriptor[*Institution]{
		Name:       "institution",
		Operations: resource.ReadCreate,
		Filterable: []string{"name", "short_name"},
		New: func(_ context.Context, body json.RawMessage, now time.Time) (*Institution, error) {
			var in struct {
				Name      string `json:"name"`
				ShortName string `json:"short_name"`
			}
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
			}
			if in.Name == "" {
				return nil, dErrors.New(dErrors.CodeBadRequest, "institution requires a name")
			}
			return &Institution{ID: uuid.New(), Name: in.Name, ShortName: in.ShortName, CreatedAt: now, UpdatedAt: now}, nil
		},
	}
}

// PlaceOfStudyDescriptor declares the place-of-study resource.
func PlaceOfStudyDescriptor() resource.Descriptor[*PlaceOfStudy] {
	return resource.Descriptor[*PlaceOfStudy]{
		Name:       "placeofstudy",
		Operations: resource.ReadCreate,
		Filterable: []string{"institution_id"},
		New: func(_ context.Context, body json.RawMessage, now time.Time) (*PlaceOfStudy, error) {
			var in struct {
				FromDate      domain.Date `json:"from_date"`
				InstitutionID uuid.UUID   `json:"institution_id"`
			}
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
			}
			if in.InstitutionID == uuid.Nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "place of study requires an institution")
			}
			if in.FromDate.IsZero() {
				in.FromDate = domain.DateOf(now)
			}
			return &PlaceOfStudy{
				ID:            uuid.New(),
				FromDate:      in.FromDate,
				InstitutionID: in.InstitutionID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}, nil
		},
	}
}

// GroupDescriptor declares the group resource.
func GroupDescriptor() resource.Descriptor[*Group] {
	return resource.Descriptor[*Group]{
		Name:       "group",
		Operations: resource.ReadCreate,
		Filterable: []string{"name", "posix_name"},
		New: func(_ context.Context, body json.RawMessage, now time.Time) (*Group, error) {
			var in struct {
				Name      string `json:"name"`
				PosixName string `json:"posix_name"`
			}
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
			}
			if in.Name == "" || in.PosixName == "" {
				return nil, dErrors.New(dErrors.CodeBadRequest, "group requires name and posix_name")
			}
			return &Group{ID: uuid.New(), Name: in.Name, PosixName: in.PosixName, CreatedAt: now, UpdatedAt: now}, nil
		},
	}
}
