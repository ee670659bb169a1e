package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// AES-CBC with PKCS#7 padding under a fixed key and IV. The IV is a protocol
// constant of the game backend, so identical plaintexts encrypt identically.

var ErrInvalidPadding = errors.New("invalid PKCS#7 padding")

func validateKey(key []byte) error {
	switch len(key) {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("key length must be 16, 24 or 32 bytes, got %d bytes", len(key))
	}
}

// CBCCodec wraps outgoing payloads for the account service.
type CBCCodec struct {
	block cipher.Block
	iv    []byte
}

func NewCBCCodec(key, iv []byte) (*CBCCodec, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv length must be %d bytes, got %d bytes", aes.BlockSize, len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	return &CBCCodec{block: block, iv: bytes.Clone(iv)}, nil
}

// Encrypt pads plaintext to the block size and encrypts it. A full block of
// padding is appended when the input is already aligned.
func (c *CBCCodec) Encrypt(plaintext []byte) []byte {
	padded := pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return out
}

// Decrypt reverses Encrypt.
func (c *CBCCodec) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a positive multiple of %d", len(ciphertext), aes.BlockSize)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, ciphertext)
	return unpad(out, aes.BlockSize)
}

func pad(text []byte, blockSize int) []byte {
	n := blockSize - len(text)%blockSize
	out := make([]byte, len(text), len(text)+n)
	copy(out, text)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(text []byte, blockSize int) ([]byte, error) {
	n := int(text[len(text)-1])
	if n == 0 || n > blockSize || n > len(text) {
		return nil, ErrInvalidPadding
	}
	for _, b := range text[len(text)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return text[:len(text)-n], nil
}
