package payment

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"memberd/internal/platform/postgres"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/platform/tx"
)

type row interface {
	Scan(dest ...any) error
}

// PostgresTypes is the SQL-backed payment-type store.
type PostgresTypes struct {
	db *sql.DB
}

func NewPostgresTypes(db *sql.DB) *PostgresTypes {
	return &PostgresTypes{db: db}
}

func (s *PostgresTypes) Insert(ctx context.Context, t *PaymentType) error {
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		INSERT INTO payment_types (id, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.Name, t.IsActive, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "insert payment type")
	}
	return nil
}

func (s *PostgresTypes) Get(ctx context.Context, id uuid.UUID) (*PaymentType, error) {
	t, err := scanPaymentType(tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, name, is_active, created_at, updated_at FROM payment_types WHERE id = $1`, id))
	if err != nil {
		return nil, postgres.MapError(err, "payment type not found")
	}
	return t, nil
}

func (s *PostgresTypes) List(ctx context.Context, filters map[string]string) ([]*PaymentType, error) {
	query := `SELECT id, name, is_active, created_at, updated_at FROM payment_types`
	var args []any
	if name, ok := filters["name"]; ok {
		query += ` WHERE name = $1`
		args = append(args, name)
	} else if len(filters) > 0 {
		for field := range filters {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "cannot filter by %q", field)
		}
	}
	query += ` ORDER BY name`

	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "list payment types")
	}
	defer rows.Close()

	var out []*PaymentType
	for rows.Next() {
		t, err := scanPaymentType(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan payment type")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresTypes) Update(ctx context.Context, t *PaymentType) error {
	result, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		UPDATE payment_types SET name = $2, is_active = $3, updated_at = $4 WHERE id = $1
	`, t.ID, t.Name, t.IsActive, t.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "update payment type")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return postgres.MapError(err, "update payment type")
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "payment type not found")
	}
	return nil
}

func scanPaymentType(r row) (*PaymentType, error) {
	var t PaymentType
	if err := r.Scan(&t.ID, &t.Name, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Postgres is the SQL-backed payment store. The unique index on
// transaction_id rejects gateway callback replays.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Insert(ctx context.Context, p *Payment) error {
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		INSERT INTO payments (id, payment_type_id, value, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.PaymentTypeID, p.Value, p.TransactionID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "payments_transaction_id_key") {
			return dErrors.Wrap(err, dErrors.CodeConflict, "transaction already recorded")
		}
		return postgres.MapError(err, "insert payment")
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := scanPayment(tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, payment_type_id, value, transaction_id, created_at, updated_at FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, postgres.MapError(err, "payment not found")
	}
	return p, nil
}

func (s *Postgres) List(ctx context.Context, filters map[string]string) ([]*Payment, error) {
	columns := map[string]string{
		"transaction_id":  "transaction_id",
		"payment_type_id": "payment_type_id",
	}
	query := `SELECT id, payment_type_id, value, transaction_id, created_at, updated_at FROM payments`
	var args []any
	if len(filters) > 0 {
		clauses := make([]string, 0, len(filters))
		i := 1
		for field, value := range filters {
			column, ok := columns[field]
			if !ok {
				return nil, dErrors.Newf(dErrors.CodeBadRequest, "cannot filter by %q", field)
			}
			clauses = append(clauses, fmt.Sprintf("%s = $%d", column, i))
			args = append(args, value)
			i++
		}
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "list payments")
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan payment")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update exists to satisfy the resource store contract; payments are
// append-only through the API.
func (s *Postgres) Update(ctx context.Context, p *Payment) error {
	result, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		UPDATE payments SET payment_type_id = $2, value = $3, transaction_id = $4, updated_at = $5 WHERE id = $1
	`, p.ID, p.PaymentTypeID, p.Value, p.TransactionID, p.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "update payment")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return postgres.MapError(err, "update payment")
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "payment not found")
	}
	return nil
}

func scanPayment(r row) (*Payment, error) {
	var (
		p             Payment
		transactionID sql.NullString
	)
	if err := r.Scan(&p.ID, &p.PaymentTypeID, &p.Value, &transactionID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if transactionID.Valid {
		p.TransactionID = &transactionID.String
	}
	return &p, nil
}
