package credential

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"memberd/internal/platform/postgres"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/platform/tx"
)

// PostgresStore persists credentials in PostgreSQL. Pure I/O; issuance rules
// live in the service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, cred *Credential) error {
	query := `
		INSERT INTO credentials (member_id, key_digest, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query, cred.MemberID, cred.KeyDigest, cred.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "credentials_pkey") {
			return dErrors.Wrap(err, dErrors.CodeDuplicateCredential, "member already has a credential")
		}
		return postgres.MapError(err, "insert credential")
	}
	return nil
}

func (s *PostgresStore) FindByDigest(ctx context.Context, digest string) (*Credential, error) {
	query := `
		SELECT member_id, key_digest, created_at
		FROM credentials
		WHERE key_digest = $1
	`
	cred, err := scanCredential(tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, digest))
	if err != nil {
		return nil, postgres.MapError(err, "credential not found")
	}
	return cred, nil
}

func (s *PostgresStore) FindByMember(ctx context.Context, memberID uuid.UUID) (*Credential, error) {
	query := `
		SELECT member_id, key_digest, created_at
		FROM credentials
		WHERE member_id = $1
	`
	cred, err := scanCredential(tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, memberID))
	if err != nil {
		return nil, postgres.MapError(err, "credential not found")
	}
	return cred, nil
}

func (s *PostgresStore) ReplaceDigest(ctx context.Context, memberID uuid.UUID, digest string) error {
	result, err := tx.Resolve(ctx, s.db).ExecContext(ctx,
		`UPDATE credentials SET key_digest = $2 WHERE member_id = $1`, memberID, digest)
	if err != nil {
		return postgres.MapError(err, "replace credential digest")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return postgres.MapError(err, "replace credential digest")
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	return nil
}

type credentialRow interface {
	Scan(dest ...any) error
}

func scanCredential(row credentialRow) (*Credential, error) {
	var cred Credential
	if err := row.Scan(&cred.MemberID, &cred.KeyDigest, &cred.CreatedAt); err != nil {
		return nil, err
	}
	return &cred, nil
}
