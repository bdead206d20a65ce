package provider

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

// Postgres is the SQL-backed provider-token store. The two composite unique
// constraints keep provider accounts and members 1:1.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Insert(ctx context.Context, t *Token) error {
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		INSERT INTO provider_tokens (id, provider, token, token_expires, member_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, string(t.Provider), t.Token, t.TokenExpires, t.MemberID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "insert provider token")
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (*Token, error) {
	t, err := scanToken(tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		selectTokens+` WHERE id = $1`, id))
	if err != nil {
		return nil, postgres.MapError(err, "provider token not found")
	}
	return t, nil
}

func (s *Postgres) List(ctx context.Context, filters map[string]string) ([]*Token, error) {
	columns := map[string]string{
		"provider":  "provider",
		"member_id": "member_id",
	}
	query := selectTokens
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
		return nil, postgres.MapError(err, "list provider tokens")
	}
	defer rows.Close()

	var out []*Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan provider token")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, t *Token) error {
	result, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		UPDATE provider_tokens SET token = $2, token_expires = $3, member_id = $4, updated_at = $5 WHERE id = $1
	`, t.ID, t.Token, t.TokenExpires, t.MemberID, t.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "update provider token")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return postgres.MapError(err, "update provider token")
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "provider token not found")
	}
	return nil
}

const selectTokens = `
	SELECT id, provider, token, token_expires, member_id, created_at, updated_at
	FROM provider_tokens
`

type row interface {
	Scan(dest ...any) error
}

func scanToken(r row) (*Token, error) {
	var (
		t        Token
		token    sql.NullString
		expires  sql.NullTime
		memberID sql.NullString
		provider string
	)
	if err := r.Scan(&t.ID, &provider, &token, &expires, &memberID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Provider = Provider(provider)
	if token.Valid {
		t.Token = &token.String
	}
	if expires.Valid {
		t.TokenExpires = &expires.Time
	}
	if memberID.Valid {
		parsed, err := uuid.Parse(memberID.String)
		if err != nil {
			return nil, err
		}
		t.MemberID = &parsed
	}
	return &t, nil
}
