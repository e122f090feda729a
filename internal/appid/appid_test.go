package appid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/crx-packager/internal/keys"
)

// TestDerive_KnownKey pins the identifier of the fixture key.
func TestDerive_KnownKey(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile(filepath.Join("..", "extension", "testdata", "key.pem"))
	require.NoError(t, err)

	m := keys.NewManager(keys.WithPrivateKey(data))
	require.NoError(t, m.Resolve())

	public, err := m.PublicKeyBytes()
	require.NoError(t, err)

	require.Equal(t, "dloiadjadghfhimookgmbpcacpppcagg", Derive(public))
}

// TestDerive_Pure checks stability, length and alphabet across inputs.
func TestDerive_Pure(t *testing.T) {
	t.Parallel()

	inputs := [][]byte{nil, {}, []byte("a"), []byte("another public key")}
	for _, input := range inputs {
		first := Derive(input)
		require.Equal(t, first, Derive(input))
		require.Len(t, first, Length)
		require.True(t, Valid(first), first)
	}

	require.NotEqual(t, Derive([]byte("a")), Derive([]byte("b")))
}

// TestValid rejects identifiers of the wrong length or alphabet.
func TestValid(t *testing.T) {
	t.Parallel()

	require.False(t, Valid(""))
	require.False(t, Valid("abc"))
	require.False(t, Valid("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"))
	require.True(t, Valid("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
}
