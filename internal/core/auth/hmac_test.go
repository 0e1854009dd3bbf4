package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretID = "0123456789abcdef0123456789abcdef"

func TestParseAPIKey(t *testing.T) {
	random := strings.Repeat("ab", 32)

	secretID, randomData, err := ParseAPIKey(FormatAPIKey(testSecretID, random))
	require.NoError(t, err)
	assert.Equal(t, testSecretID, secretID)
	assert.Equal(t, random, randomData)

	for name, key := range map[string]string{
		"empty":            "",
		"wrong prefix":     "tk-v1-" + testSecretID + "-" + random,
		"wrong version":    "pc-v2-" + testSecretID + "-" + random,
		"short secret id":  "pc-v1-0123-" + random,
		"short random":     "pc-v1-" + testSecretID + "-abcd",
		"uppercase hex":    "pc-v1-" + strings.ToUpper(testSecretID) + "-" + random,
		"extra separators": "pc-v1-" + testSecretID + "-" + random + "-x",
		"non-hex random":   "pc-v1-" + testSecretID + "-" + strings.Repeat("zz", 32),
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseAPIKey(key)
			assert.ErrorIs(t, err, ErrInvalidKeyFormat)
		})
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key1, err := GenerateAPIKey(testSecretID)
	require.NoError(t, err)
	key2, err := GenerateAPIKey(testSecretID)
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2)
	assert.True(t, strings.HasPrefix(key1, "pc-v1-"+testSecretID+"-"))
	assert.Len(t, key1, len("pc-v1-")+32+1+64)

	secretID, _, err := ParseAPIKey(key1)
	require.NoError(t, err)
	assert.Equal(t, testSecretID, secretID)

	_, err = GenerateAPIKey("not-hex")
	assert.Error(t, err)
}

func TestComputeHMAC(t *testing.T) {
	secret := []byte(strings.Repeat("s", 32))
	key := FormatAPIKey(testSecretID, strings.Repeat("0", 64))

	a := ComputeHMAC(secret, key)
	b := ComputeHMAC(secret, key)
	assert.Len(t, a, 32)
	assert.True(t, VerifyHMAC(a, b))

	other := ComputeHMAC([]byte(strings.Repeat("t", 32)), key)
	assert.False(t, VerifyHMAC(a, other))
}

func TestGenerateSecret(t *testing.T) {
	s1, err := GenerateSecret()
	require.NoError(t, err)
	s2, err := GenerateSecret()
	require.NoError(t, err)
	assert.Len(t, s1, 32)
	assert.NotEqual(t, s1, s2)
}
