package credential

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/secrets"
)

// Store persists credentials. Insert must fail with duplicate_credential when
// the member already holds one; the table's primary key on member_id is the
// backstop for retried creations.
type Store interface {
	Insert(ctx context.Context, cred *Credential) error
	FindByDigest(ctx context.Context, digest string) (*Credential, error)
	FindByMember(ctx context.Context, memberID uuid.UUID) (*Credential, error)
	ReplaceDigest(ctx context.Context, memberID uuid.UUID, digest string) error
}

// RevocationList blocks known-compromised keys. Entries carry a TTL because
// revocation is an incident-response hold: the durable fix is rotation, which
// replaces the stored digest, so entries only need to outlive the rotation
// window.
type RevocationList interface {
	Revoke(ctx context.Context, digest string, ttl time.Duration) error
	IsRevoked(ctx context.Context, digest string) (bool, error)
}

// defaultRevocationTTL keeps a revoked digest blocked long after any sane
// rotation has happened.
const defaultRevocationTTL = 30 * 24 * time.Hour

// Service issues, verifies, rotates and revokes API keys.
type Service struct {
	store       Store
	revocations RevocationList
	logger      *slog.Logger
}

func NewService(store Store, revocations RevocationList, logger *slog.Logger) *Service {
	return &Service{store: store, revocations: revocations, logger: logger}
}

// Issue creates the credential for a newly created member and returns the raw
// key. Called inside the member-creation transaction so a member is never
// visible without its credential.
func (s *Service) Issue(ctx context.Context, memberID uuid.UUID, now time.Time) (string, error) {
	rawKey, err := secrets.Generate()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate API key")
	}
	cred := &Credential{
		MemberID:  memberID,
		KeyDigest: secrets.Digest(rawKey),
		CreatedAt: now,
	}
	if err := s.store.Insert(ctx, cred); err != nil {
		return "", err
	}
	return rawKey, nil
}

// VerifyKey resolves a raw API key to its owning member. Implements the auth
// middleware's CredentialVerifier.
func (s *Service) VerifyKey(ctx context.Context, key string) (uuid.UUID, error) {
	digest := secrets.Digest(key)

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, digest)
		if err != nil {
			return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInternal, "revocation check failed")
		}
		if revoked {
			return uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "credential has been revoked")
		}
	}

	cred, err := s.store.FindByDigest(ctx, digest)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "unknown credential")
		}
		return uuid.Nil, err
	}
	return cred.MemberID, nil
}

// Rotate replaces a member's key and blocks the old digest. Returns the new
// raw key.
func (s *Service) Rotate(ctx context.Context, memberID uuid.UUID) (string, error) {
	existing, err := s.store.FindByMember(ctx, memberID)
	if err != nil {
		return "", err
	}

	rawKey, err := secrets.Generate()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate API key")
	}
	if err := s.store.ReplaceDigest(ctx, memberID, secrets.Digest(rawKey)); err != nil {
		return "", err
	}

	if s.revocations != nil {
		if err := s.revocations.Revoke(ctx, existing.KeyDigest, defaultRevocationTTL); err != nil {
			// The digest is already gone from the store, so the old key is
			// dead either way; log and move on.
			s.logger.WarnContext(ctx, "failed to record revocation for rotated key",
				"member_id", memberID,
				"error", err,
			)
		}
	}
	return rawKey, nil
}
