package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
)

const (
	ivSize  = 12
	tagSize = aes.BlockSize
)

// versionMagic prefixes every packed ciphertext so the format can evolve.
const versionMagic = byte('S')

// SymmetricCipher encrypts and decrypts packed byte blobs with AES-256-GCM.
type SymmetricCipher interface {
	Encrypt(plainText []byte) ([]byte, error)
	Decrypt(packedText []byte) ([]byte, error)
}

type symmetric struct {
	aesgcm cipher.AEAD
}

func NewSymmetric(key []byte) (SymmetricCipher, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "creating AES cipher")
	}
	aesgcm, err := cipher.NewGCM(c)
	if err != nil {
		return nil, errors.Wrap(err, "creating GCM")
	}
	return &symmetric{aesgcm: aesgcm}, nil
}

func (s symmetric) Encrypt(plainText []byte) ([]byte, error) {
	nonce, err := randomNonce()
	if err != nil {
		return nil, err
	}
	cipherTextWithTag := s.aesgcm.Seal(nil, nonce, plainText, nil)
	return packCipherData(cipherTextWithTag, nonce), nil
}

func (s symmetric) Decrypt(packedText []byte) ([]byte, error) {
	if len(packedText) < 1+tagSize+ivSize {
		return nil, errors.New("ciphertext block size is too short")
	}
	if packedText[0] != versionMagic {
		return nil, errors.New("unknown ciphertext version")
	}
	cipherText, iv := unpackCipherData(packedText)
	return s.aesgcm.Open(nil, iv, cipherText, nil)
}

// randomNonce never reuses more than 2^32 random nonces with a given key
// because of the risk of a repeat.
func randomNonce() ([]byte, error) {
	nonce := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}

// packed format: version | tag | iv | ctext
func packCipherData(cipherTextWithTag, iv []byte) []byte {
	tagStartIndex := len(cipherTextWithTag) - tagSize
	tag := cipherTextWithTag[tagStartIndex:]
	cipherText := cipherTextWithTag[:tagStartIndex]

	data := make([]byte, 0, 1+tagSize+ivSize+len(cipherText))
	data = append(data, versionMagic)
	data = append(data, tag...)
	data = append(data, iv[:ivSize]...)
	data = append(data, cipherText...)
	return data
}

func unpackCipherData(packedText []byte) (cipherText, iv []byte) {
	index := 1
	tag := packedText[index : index+tagSize]
	index += tagSize
	iv = packedText[index : index+ivSize]
	index += ivSize
	cipherText = append(append([]byte{}, packedText[index:]...), tag...)
	return cipherText, iv
}
