// Package store persists the member aggregate. The account base and the
// member extension live in separate tables; each list method pushes filters
// for its own side only, preserving the two-pass filter contract.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"memberd/internal/member"
	"memberd/internal/platform/postgres"
	"memberd/pkg/domain"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/platform/tx"
)

// accountColumns maps filter fields to account-side columns. Doubles as the
// injection whitelist: only mapped fields ever reach the SQL text.
var accountColumns = map[string]string{
	"username":   "a.username",
	"email":      "a.email",
	"first_name": "a.first_name",
	"last_name":  "a.last_name",
}

// extensionColumns maps filter fields to member-extension columns.
var extensionColumns = map[string]string{
	"phone_number": "m.phone_number",
}

// Postgres is the SQL-backed member store.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Create inserts the account base, the member extension and the study links.
// Callers wrap this in a transaction together with credential issuance.
func (s *Postgres) Create(ctx context.Context, m *member.Member) error {
	q := tx.Resolve(ctx, s.db)

	_, err := q.ExecContext(ctx, `
		INSERT INTO accounts (id, username, email, first_name, last_name, password_hash,
			is_active, is_staff, is_superuser, last_login, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		m.ID, m.Username, m.Email, m.FirstName, m.LastName, m.PasswordHash,
		m.IsActive, m.IsStaff, m.IsSuperuser, m.LastLogin, m.DateJoined,
	)
	if err != nil {
		return postgres.MapError(err, "create account")
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO members (account_id, phone_number, date_of_birth, legacy_id, address_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		m.ID, m.PhoneNumber, m.DateOfBirth, m.LegacyID, m.AddressID, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return postgres.MapError(err, "create member")
	}

	return s.replacePlacesOfStudy(ctx, q, m.ID, m.PlacesOfStudy)
}

// Get loads one member with its study links.
func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	rows, err := s.list(ctx, "a.id = $1", []any{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
	}
	return rows[0], nil
}

// GetByUsername loads one member by its immutable username.
func (s *Postgres) GetByUsername(ctx context.Context, username string) (*member.Member, error) {
	rows, err := s.list(ctx, "a.username = $1", []any{username})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
	}
	return rows[0], nil
}

// Update overwrites the mutable account and extension fields and replaces the
// study links. The username column is deliberately absent from the statement.
func (s *Postgres) Update(ctx context.Context, m *member.Member) error {
	q := tx.Resolve(ctx, s.db)

	result, err := q.ExecContext(ctx, `
		UPDATE accounts
		SET email = $2, first_name = $3, last_name = $4, password_hash = $5,
			is_active = $6, last_login = $7
		WHERE id = $1
	`,
		m.ID, m.Email, m.FirstName, m.LastName, m.PasswordHash, m.IsActive, m.LastLogin,
	)
	if err != nil {
		return postgres.MapError(err, "update account")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return postgres.MapError(err, "update account")
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "member not found")
	}

	_, err = q.ExecContext(ctx, `
		UPDATE members
		SET phone_number = $2, date_of_birth = $3, legacy_id = $4, address_id = $5, updated_at = $6
		WHERE account_id = $1
	`,
		m.ID, m.PhoneNumber, m.DateOfBirth, m.LegacyID, m.AddressID, m.UpdatedAt,
	)
	if err != nil {
		return postgres.MapError(err, "update member")
	}

	return s.replacePlacesOfStudy(ctx, q, m.ID, m.PlacesOfStudy)
}

// ListByAccountFields lists members filtered on account-side fields only.
func (s *Postgres) ListByAccountFields(ctx context.Context, filters map[string]string) ([]*member.Member, error) {
	where, args, err := buildEqualityWhere(filters, accountColumns)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, where, args)
}

// ListByExtensionFields lists members filtered on extension-side fields only.
func (s *Postgres) ListByExtensionFields(ctx context.Context, filters map[string]string) ([]*member.Member, error) {
	where, args, err := buildEqualityWhere(filters, extensionColumns)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, where, args)
}

// UpdateLastLogin stamps a successful authentication.
func (s *Postgres) UpdateLastLogin(ctx context.Context, id uuid.UUID, at sql.NullTime) error {
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx,
		`UPDATE accounts SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return postgres.MapError(err, "update last login")
	}
	return nil
}

func (s *Postgres) replacePlacesOfStudy(ctx context.Context, q tx.Querier, memberID uuid.UUID, placeIDs []uuid.UUID) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM member_places_of_study WHERE member_id = $1`, memberID); err != nil {
		return postgres.MapError(err, "replace places of study")
	}
	if len(placeIDs) == 0 {
		return nil
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO member_places_of_study (member_id, place_of_study_id)
		SELECT $1, unnest($2::uuid[])
	`, memberID, pq.Array(uuidStrings(placeIDs)))
	if err != nil {
		return postgres.MapError(err, "replace places of study")
	}
	return nil
}

const selectMembers = `
	SELECT a.id, a.username, a.email, a.first_name, a.last_name, a.password_hash,
		a.is_active, a.is_staff, a.is_superuser, a.last_login, a.date_joined,
		m.phone_number, m.date_of_birth, m.legacy_id, m.address_id, m.created_at, m.updated_at,
		COALESCE(array_agg(ps.place_of_study_id::text)
			FILTER (WHERE ps.place_of_study_id IS NOT NULL), '{}')
	FROM accounts a
	JOIN members m ON m.account_id = a.id
	LEFT JOIN member_places_of_study ps ON ps.member_id = m.account_id
`

func (s *Postgres) list(ctx context.Context, where string, args []any) ([]*member.Member, error) {
	query := selectMembers
	if where != "" {
		query += " WHERE " + where
	}
	query += " GROUP BY a.id, m.account_id ORDER BY a.username"

	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "list members")
	}
	defer rows.Close()

	var members []*member.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan member")
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "list members")
	}
	return members, nil
}

// buildEqualityWhere renders exact-match predicates from a whitelisted
// field->column map.
func buildEqualityWhere(filters map[string]string, columns map[string]string) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	i := 1
	for field, value := range filters {
		column, ok := columns[field]
		if !ok {
			return "", nil, dErrors.Newf(dErrors.CodeBadRequest, "cannot filter member by %q", field)
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}
	return strings.Join(clauses, " AND "), args, nil
}

func scanMember(rows *sql.Rows) (*member.Member, error) {
	var (
		m           member.Member
		phoneNumber sql.NullString
		dateOfBirth domain.Date
		legacyID    sql.NullInt64
		addressID   sql.NullString
		lastLogin   sql.NullTime
		placeIDs    pq.StringArray
	)
	err := rows.Scan(
		&m.ID, &m.Username, &m.Email, &m.FirstName, &m.LastName, &m.PasswordHash,
		&m.IsActive, &m.IsStaff, &m.IsSuperuser, &lastLogin, &m.DateJoined,
		&phoneNumber, &dateOfBirth, &legacyID, &addressID, &m.CreatedAt, &m.UpdatedAt,
		&placeIDs,
	)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		m.LastLogin = &lastLogin.Time
	}
	if phoneNumber.Valid {
		m.PhoneNumber = &phoneNumber.String
	}
	if !dateOfBirth.IsZero() {
		m.DateOfBirth = &dateOfBirth
	}
	if legacyID.Valid {
		m.LegacyID = &legacyID.Int64
	}
	if addressID.Valid {
		parsed, err := uuid.Parse(addressID.String)
		if err != nil {
			return nil, fmt.Errorf("parse address id: %w", err)
		}
		m.AddressID = &parsed
	}
	for _, raw := range placeIDs {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse place of study id: %w", err)
		}
		m.PlacesOfStudy = append(m.PlacesOfStudy, parsed)
	}
	return &m, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
