package validator

import (
	"encoding/base64"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var regionRegex = regexp.MustCompile(`^[A-Z]{2,4}$`)

// isRegion checks for an upper-case region code such as PK or IND.
func isRegion(fl validator.FieldLevel) bool {
	return regionRegex.MatchString(fl.Field().String())
}

func decodedLen(fl validator.FieldLevel) int {
	b, err := base64.StdEncoding.DecodeString(fl.Field().String())
	if err != nil {
		return -1
	}
	return len(b)
}

// isAESKey checks for a base64 AES-128, AES-192 or AES-256 key.
func isAESKey(fl validator.FieldLevel) bool {
	switch decodedLen(fl) {
	case 16, 24, 32:
		return true
	}
	return false
}

// isAESIV checks for a base64 16-byte IV.
func isAESIV(fl validator.FieldLevel) bool {
	return decodedLen(fl) == 16
}

// RegisterCustomValidators registers custom validation functions with the validator.
func RegisterCustomValidators(validate *validator.Validate) error {
	for tag, fn := range map[string]validator.Func{
		"region": isRegion,
		"aeskey": isAESKey,
		"aesiv":  isAESIV,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
