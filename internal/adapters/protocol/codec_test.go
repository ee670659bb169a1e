package protocol

import (
	"encoding/hex"
	"testing"

	app_errors "github.com/spounge-ai/ffproxy/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRequest_Golden(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	payload, err := codec.EncodeRequest("4213341828", "7")
	require.NoError(t, err)
	assert.Equal(t, "0884fd89d90f1007", hex.EncodeToString(payload))
}

func TestEncodeRequest_RejectsNonNumeric(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	_, err = codec.EncodeRequest("abc", "7")
	assert.ErrorIs(t, err, app_errors.ErrInvalidInput)

	_, err = codec.EncodeRequest("123", "x")
	assert.ErrorIs(t, err, app_errors.ErrInvalidInput)
}

func TestDecodeAccount(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	body, err := codec.EncodeAccount(AccountFixture{
		AccountID: 4213341828,
		Nickname:  "Saeed",
		Region:    "IND",
		Level:     71,
		ClanID:    3012345678,
		ClanName:  "Wolves",
	})
	require.NoError(t, err)

	record, err := codec.DecodeAccount(body)
	require.NoError(t, err)

	assert.Equal(t, "Saeed", record.Nickname())
	assert.Equal(t, "IND", record.Region())

	basic := record.BasicInfo()
	require.NotNil(t, basic)
	// 64-bit integers are projected as strings, 32-bit as numbers.
	assert.Equal(t, "4213341828", basic["accountId"])
	assert.Equal(t, float64(71), basic["level"])

	clan := record.Section("clanBasicInfo")
	require.NotNil(t, clan)
	assert.Equal(t, "3012345678", clan["clanId"])
	assert.Equal(t, "Wolves", clan["clanName"])
}

func TestDecodeAccount_Empty(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	record, err := codec.DecodeAccount(nil)
	require.NoError(t, err)
	assert.Nil(t, record.BasicInfo())
}

func TestDecodeAccount_Malformed(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	// basic_info declares five bytes but only one follows.
	_, err = codec.DecodeAccount([]byte{0x0a, 0x05, 0x01})
	require.Error(t, err)
}
