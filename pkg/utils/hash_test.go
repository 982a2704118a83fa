package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, CheckPassword("s3cret-pass", hash))
	assert.False(t, CheckPassword("wrong-pass", hash))
	assert.False(t, CheckPassword("s3cret-pass", "not-a-bcrypt-hash"))
}

func TestHashPasswordWorkFactor(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, hashCost, cost)
}

func TestGenerateTempPassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		pw, err := GenerateTempPassword(12)
		require.NoError(t, err)
		assert.Len(t, pw, 12)
		for _, c := range pw {
			assert.NotContains(t, "0O1lI", string(c))
		}
		assert.False(t, seen[pw], "temp passwords should not repeat")
		seen[pw] = true
	}
}
