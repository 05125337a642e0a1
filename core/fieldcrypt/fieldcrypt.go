// Package fieldcrypt makes sensitive entity fields opaque at rest: values are
// encrypted before persistence and decrypted after retrieval, without call
// sites having to remember either step. Encrypted values carry a marker
// prefix so legacy plaintext rows pass through unchanged.
package fieldcrypt

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"

	"github.com/shuleos/shule/core"
)

// Marker prefixes every encrypted field value.
const Marker = "ENC:"

// ErrEncrypt is returned when a field cannot be encrypted on the write path.
// Unlike decryption failures it must propagate: a failed write may never
// silently persist plaintext.
var ErrEncrypt = errors.New("field encryption failed")

// Codec encrypts and decrypts individual string fields.
type Codec struct {
	cipher SymmetricCipher
	logger core.Logger
}

func NewCodec(key []byte, logger core.Logger) (*Codec, error) {
	cipher, err := NewSymmetric(key)
	if err != nil {
		return nil, errors.Wrap(err, "creating field cipher")
	}
	return &Codec{cipher: cipher, logger: logger}, nil
}

// EncryptField returns the marked ciphertext for value. Empty values are
// returned as-is.
func (c *Codec) EncryptField(value string) (string, error) {
	if value == "" {
		return value, nil
	}
	packed, err := c.cipher.Encrypt([]byte(value))
	if err != nil {
		return "", errors.Wrap(ErrEncrypt, err.Error())
	}
	return Marker + base64.RawStdEncoding.EncodeToString(packed), nil
}

// DecryptField returns the plaintext for a marked value. Unmarked values
// (legacy plaintext rows, or values already decrypted) pass through
// unchanged. A decryption failure is logged and the original value is
// returned: reads favor availability over a hard failure.
func (c *Codec) DecryptField(value string) string {
	if !strings.HasPrefix(value, Marker) {
		return value
	}
	packed, err := base64.RawStdEncoding.DecodeString(value[len(Marker):])
	if err != nil {
		c.logger.Warn("undecodable encrypted field, returning raw value", err)
		return value
	}
	plain, err := c.cipher.Decrypt(packed)
	if err != nil {
		c.logger.Warn("undecryptable encrypted field, returning raw value", err)
		return value
	}
	return string(plain)
}
