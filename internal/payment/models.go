// Package payment holds payment types and payments. Payments are recorded by
// the payment gateway callback and referenced by memberships; value is stored
// in the currency's minor unit.
package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"memberd/internal/resource"
	dErrors "memberd/pkg/domain-errors"
)

// PaymentType names a way of paying (card, mobile, cash register).
type PaymentType struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Payment is one received payment. TransactionID is the gateway's reference
// and is unique when present; cash payments have none.
type Payment struct {
	ID            uuid.UUID `json:"id"`
	PaymentTypeID uuid.UUID `json:"payment_type_id"`
	Value         int64     `json:"value"`
	TransactionID *string   `json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TypeDescriptor declares the payment-type resource.
func TypeDescriptor() resource.Descriptor[*PaymentType] {
	return resource.Descriptor[*PaymentType]{
		Name:       "paymenttype",
		Operations: resource.ReadWrite,
		Filterable: []string{"name"},
		New: func(_ context.Context, body json.RawMessage, now time.Time) (*PaymentType, error) {
			var in struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
			}
			if in.Name == "" {
				return nil, dErrors.New(dErrors.CodeBadRequest, "payment type requires a name")
			}
			return &PaymentType{ID: uuid.New(), Name: in.Name, IsActive: true, CreatedAt: now, UpdatedAt: now}, nil
		},
		Apply: func(_ context.Context, existing *PaymentType, body json.RawMessage, now time.Time) (*PaymentType, error) {
			var in struct {
				Name     *string `json:"name"`
				IsActive *bool   `json:"is_active"`
			}
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
			}
			if in.Name != nil {
				if *in.Name == "" {
					return nil, dErrors.New(dErrors.CodeBadRequest, "payment type requires a name")
				}
				existing.Name = *in.Name
			}
			if in.IsActive != nil {
				existing.IsActive = *in.IsActive
			}
			existing.UpdatedAt = now
			return existing, nil
		},
	}
}

// Descriptor declares the payment resource. Payments are append-only through
// the API.
func Descriptor() resource.Descriptor[*Payment] {
	return resource.Descriptor[*Payment]{
		Name:       "payment",
		Operations: resource.ReadCreate,
		Filterable: []string{"transaction_id", "payment_type_id"},
		New: func(_ context.Context, body json.RawMessage, now time.Time) (*Payment, error) {
			var in struct {
				PaymentTypeID uuid.UUID `json:"payment_type_id"`
				Value         int64     `json:"value"`
				TransactionID *string   `json:"transaction_id"`
			}
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
			}
			if in.PaymentTypeID == uuid.Nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "payment requires a payment type")
			}
			if in.Value < 0 {
				return nil, dErrors.New(dErrors.CodeBadRequest, "payment value cannot be negative")
			}
			if in.TransactionID != nil && *in.TransactionID == "" {
				in.TransactionID = nil
			}
			return &Payment{
				ID:            uuid.New(),
				PaymentTypeID: in.PaymentTypeID,
				Value:         in.Value,
				TransactionID: in.TransactionID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}, nil
		},
	}
}
