// Package store persists membership types and memberships.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"memberd/internal/membership"
	"memberd/internal/platform/postgres"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/platform/tx"
)

// PostgresTypes is the SQL-backed membership-type store.
type PostgresTypes struct {
	db *sql.DB
}

func NewPostgresTypes(db *sql.DB) *PostgresTypes {
	return &PostgresTypes{db: db}
}

func (s *PostgresTypes) Insert(ctx context.Context, t *membership.MembershipType) error {
	query := `
		INSERT INTO membership_types (id, name, duration_months, cutoff_day, cutoff_month,
			is_active, does_not_expire, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query,
		t.ID, t.Name, t.DurationMonths, t.CutoffDay, int(t.CutoffMonth),
		t.IsActive, t.DoesNotExpire, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return postgres.MapError(err, "insert membership type")
	}
	return nil
}

func (s *PostgresTypes) Get(ctx context.Context, id uuid.UUID) (*membership.MembershipType, error) {
	query := selectMembershipTypes + ` WHERE id = $1`
	t, err := scanMembershipType(tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, postgres.MapError(err, "membership type not found")
	}
	return t, nil
}

func (s *PostgresTypes) List(ctx context.Context) ([]*membership.MembershipType, error) {
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, selectMembershipTypes+` ORDER BY name`)
	if err != nil {
		return nil, postgres.MapError(err, "list membership types")
	}
	defer rows.Close()

	var types []*membership.MembershipType
	for rows.Next() {
		t, err := scanMembershipType(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan membership type")
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "list membership types")
	}
	return types, nil
}

func (s *PostgresTypes) Update(ctx context.Context, t *membership.MembershipType) error {
	query := `
		UPDATE membership_types
		SET name = $2, duration_months = $3, cutoff_day = $4, cutoff_month = $5,
			is_active = $6, does_not_expire = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query,
		t.ID, t.Name, t.DurationMonths, t.CutoffDay, int(t.CutoffMonth),
		t.IsActive, t.DoesNotExpire, t.UpdatedAt,
	)
	if err != nil {
		return postgres.MapError(err, "update membership type")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return postgres.MapError(err, "update membership type")
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "membership type not found")
	}
	return nil
}

const selectMembershipTypes = `
	SELECT id, name, duration_months, cutoff_day, cutoff_month,
		is_active, does_not_expire, created_at, updated_at
	FROM membership_types
`

type row interface {
	Scan(dest ...any) error
}

func scanMembershipType(r row) (*membership.MembershipType, error) {
	var (
		t     membership.MembershipType
		month int
	)
	err := r.Scan(&t.ID, &t.Name, &t.DurationMonths, &t.CutoffDay, &month,
		&t.IsActive, &t.DoesNotExpire, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.CutoffMonth = time.Month(month)
	return &t, nil
}

// PostgresMemberships is the SQL-backed membership store. The unique index on
// payment_id turns payment reuse into a conflict.
type PostgresMemberships struct {
	db *sql.DB
}

func NewPostgresMemberships(db *sql.DB) *PostgresMemberships {
	return &PostgresMemberships{db: db}
}

func (s *PostgresMemberships) Insert(ctx context.Context, m *membership.Membership) error {
	query := `
		INSERT INTO memberships (id, start_date, membership_type_id, payment_id, member_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query,
		m.ID, m.StartDate, m.MembershipTypeID, m.PaymentID, m.MemberID, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "memberships_payment_id_key") {
			return dErrors.Wrap(err, dErrors.CodeConflict, "payment already backs a membership")
		}
		return postgres.MapError(err, "insert membership")
	}
	return nil
}

func (s *PostgresMemberships) Get(ctx context.Context, id uuid.UUID) (*membership.Membership, error) {
	query := selectMemberships + ` WHERE id = $1`
	m, err := scanMembership(tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, postgres.MapError(err, "membership not found")
	}
	return m, nil
}

func (s *PostgresMemberships) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*membership.Membership, error) {
	query := selectMemberships + ` WHERE member_id = $1 ORDER BY start_date DESC`
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, postgres.MapError(err, "list memberships")
	}
	defer rows.Close()

	var memberships []*membership.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan membership")
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "list memberships")
	}
	return memberships, nil
}

const selectMemberships = `
	SELECT id, start_date, membership_type_id, payment_id, member_id, created_at, updated_at
	FROM memberships
`

func scanMembership(r row) (*membership.Membership, error) {
	var (
		m         membership.Membership
		paymentID sql.NullString
	)
	err := r.Scan(&m.ID, &m.StartDate, &m.MembershipTypeID, &paymentID, &m.MemberID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paymentID.Valid {
		parsed, err := uuid.Parse(paymentID.String)
		if err != nil {
			return nil, err
		}
		m.PaymentID = &parsed
	}
	return &m, nil
}
