//go:build integration

package credential_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberd/internal/credential"
	"memberd/pkg/testutil/containers"
)

func TestRedisRevocationList(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	list := credential.NewRedisRevocationList(rc.Client)

	t.Run("unknown digest is not revoked", func(t *testing.T) {
		revoked, err := list.IsRevoked(ctx, "no-such-digest")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("revoked digest is reported until the TTL passes", func(t *testing.T) {
		require.NoError(t, list.Revoke(ctx, "digest-1", time.Second))

		revoked, err := list.IsRevoked(ctx, "digest-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		time.Sleep(1500 * time.Millisecond)

		revoked, err = list.IsRevoked(ctx, "digest-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("revocations are independent per digest", func(t *testing.T) {
		require.NoError(t, list.Revoke(ctx, "digest-a", time.Hour))

		revoked, err := list.IsRevoked(ctx, "digest-b")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}
