package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "memberd/pkg/domain-errors"
)

func TestGenerateIsRandomAndURLSafe(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "/")
	assert.NotContains(t, a, "+")
	assert.GreaterOrEqual(t, len(a), 43) // 32 bytes base64 raw
}

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	require.NoError(t, Verify("hunter2", hash))

	err = Verify("wrong", hash)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestHashRejectsEmptySecret(t *testing.T) {
	_, err := Hash("")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
}

func TestDigestIsDeterministic(t *testing.T) {
	assert.Equal(t, Digest("key"), Digest("key"))
	assert.NotEqual(t, Digest("key"), Digest("other"))
	assert.Len(t, Digest("key"), 64)
}
