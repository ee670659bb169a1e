package security

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protocolCodec(t *testing.T) *CBCCodec {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString("WWcmdGMlREV1aDYlWmNeOA==")
	require.NoError(t, err)
	iv, err := base64.StdEncoding.DecodeString("Nm95WkRyMjJFM3ljaGpNJQ==")
	require.NoError(t, err)

	codec, err := NewCBCCodec(key, iv)
	require.NoError(t, err)
	return codec
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestEncrypt_GoldenValues(t *testing.T) {
	codec := protocolCodec(t)

	cases := []struct {
		name      string
		plaintext []byte
		want      string
	}{
		{"empty", nil, "1a725b2c56ec52ba7d09623454c0a003"},
		{"short", []byte("hello"), "63e402d1900e8914babb194f5e6dfce6"},
		{"aligned adds full block", []byte("0123456789abcdef"), "ac106115719ec58727660ed895bac802e73dbc09fe579b3a7368d0b50df7b5d1"},
		{"account request", mustHex(t, "0884fd89d90f1007"), "3b25abec29454c21d9303e01c15c3bda"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, hex.EncodeToString(codec.Encrypt(tc.plaintext)))
		})
	}
}

func TestEncrypt_Deterministic(t *testing.T) {
	codec := protocolCodec(t)
	assert.Equal(t, codec.Encrypt([]byte("same")), codec.Encrypt([]byte("same")))
}

func TestDecrypt_RoundTrip(t *testing.T) {
	codec := protocolCodec(t)
	for _, s := range []string{"", "a", "0123456789abcdef", "a longer payload spanning blocks"} {
		got, err := codec.Decrypt(codec.Encrypt([]byte(s)))
		require.NoError(t, err)
		assert.Equal(t, s, string(got))
	}
}

func TestDecrypt_Rejects(t *testing.T) {
	codec := protocolCodec(t)

	_, err := codec.Decrypt([]byte("short"))
	require.Error(t, err)

	// The first block alone decrypts to the unpadded plaintext, ending in 'f'.
	bad := codec.Encrypt([]byte("0123456789abcdef"))[:16]
	_, err = codec.Decrypt(bad)
	assert.ErrorIs(t, err, ErrInvalidPadding)
}

func TestNewCBCCodec_Validation(t *testing.T) {
	_, err := NewCBCCodec(make([]byte, 15), make([]byte, 16))
	require.Error(t, err)

	_, err = NewCBCCodec(make([]byte, 16), make([]byte, 8))
	require.Error(t, err)

	_, err = NewCBCCodec(make([]byte, 32), make([]byte, 16))
	require.NoError(t, err)
}
