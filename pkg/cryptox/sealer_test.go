package cryptox_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/relayworks/jirabot/pkg/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	sealer, err := cryptox.NewSealer([]byte("test-key-material"))
	require.NoError(t, err)

	sealed, err := sealer.SealString("atlassian-access-token-value")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "atlassian") // never plaintext at rest

	opened, err := sealer.OpenString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "atlassian-access-token-value", opened)
}

func TestSealIsNonDeterministic(t *testing.T) {
	sealer, err := cryptox.NewSealer([]byte("test-key-material"))
	require.NoError(t, err)

	a, err := sealer.SealString("same-secret")
	require.NoError(t, err)
	b, err := sealer.SealString("same-secret")
	require.NoError(t, err)

	// Random nonce per seal.
	assert.NotEqual(t, a, b)
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	sealer, err := cryptox.NewSealer([]byte("key-one"))
	require.NoError(t, err)
	other, err := cryptox.NewSealer([]byte("key-two"))
	require.NoError(t, err)

	sealed, err := sealer.SealString("secret")
	require.NoError(t, err)

	_, err = other.OpenString(sealed)
	assert.ErrorIs(t, err, cryptox.ErrDecrypt)
}

func TestOpenRejectsCorruptInput(t *testing.T) {
	sealer, err := cryptox.NewSealer([]byte("key"))
	require.NoError(t, err)

	for _, input := range []string{"!!not-base64!!", "c2hvcnQ=", ""} {
		opened, err := sealer.OpenString(input)
		if input == "" {
			// Empty column means no secret stored.
			require.NoError(t, err)
			assert.Empty(t, opened)
			continue
		}
		assert.ErrorIs(t, err, cryptox.ErrDecrypt, "input %q", input)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	sealer, err := cryptox.NewSealer([]byte("key"))
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("secret"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xFF

	_, err = sealer.Open(sealed)
	assert.ErrorIs(t, err, cryptox.ErrDecrypt)
}

func TestNewSealerFromFileGeneratesAndReusesKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.key")

	first, err := cryptox.NewSealerFromFile(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	sealed, err := first.SealString("secret")
	require.NoError(t, err)

	// A second process loading the same file can open what the first sealed.
	second, err := cryptox.NewSealerFromFile(path)
	require.NoError(t, err)

	opened, err := second.OpenString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "secret", opened)
}

func TestStateSecretDiffersFromSealKeyUse(t *testing.T) {
	a, err := cryptox.NewSealer([]byte("material"))
	require.NoError(t, err)
	b, err := cryptox.NewSealer([]byte("material"))
	require.NoError(t, err)

	require.NotEmpty(t, a.StateSecret())
	assert.Equal(t, a.StateSecret(), b.StateSecret())
}
