package payment

import (
	"github.com/google/uuid"

	"memberd/internal/resource"
	dErrors "memberd/pkg/domain-errors"
)

func NewMemoryTypes() *resource.MemoryStore[*PaymentType] {
	return resource.NewMemoryStore(
		func(t *PaymentType) uuid.UUID { return t.ID },
		func(t *PaymentType, field, value string) bool {
			return field == "name" && t.Name == value
		},
		nil,
	)
}

func NewMemory() *resource.MemoryStore[*Payment] {
	return resource.NewMemoryStore(
		func(p *Payment) uuid.UUID { return p.ID },
		func(p *Payment, field, value string) bool {
			switch field {
			case "transaction_id":
				return p.TransactionID != nil && *p.TransactionID == value
			case "payment_type_id":
				return p.PaymentTypeID.String() == value
			}
			return false
		},
		func(existing, candidate *Payment) error {
			if existing.TransactionID != nil && candidate.TransactionID != nil &&
				*existing.TransactionID == *candidate.TransactionID {
				return dErrors.New(dErrors.CodeConflict, "transaction already recorded")
			}
			return nil
		},
	)
}
