package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Region string `validate:"region"`
	Key    string `validate:"aeskey"`
	IV     string `validate:"aesiv"`
}

func TestCustomValidators(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterCustomValidators(v))

	ok := sample{Region: "IND", Key: "WWcmdGMlREV1aDYlWmNeOA==", IV: "Nm95WkRyMjJFM3ljaGpNJQ=="}
	assert.NoError(t, v.Struct(ok))

	cases := map[string]sample{
		"lower region": {Region: "ind", Key: ok.Key, IV: ok.IV},
		"long region":  {Region: "ABCDE", Key: ok.Key, IV: ok.IV},
		"short key":    {Region: "PK", Key: "c2hvcnQ=", IV: ok.IV},
		"bad base64":   {Region: "PK", Key: "!!!", IV: ok.IV},
		"key as iv":    {Region: "PK", Key: ok.Key, IV: "c2hvcnQ="},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, v.Struct(s))
		})
	}
}
