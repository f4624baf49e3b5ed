package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

var (
	// ErrInvalidPadding is returned when a decrypted payload does not end
	// with well-formed PKCS#7 padding.
	ErrInvalidPadding = errors.New("crypto: invalid PKCS#7 padding")
	// ErrInvalidLength is returned when a ciphertext is empty or not a
	// multiple of the block size.
	ErrInvalidLength = errors.New("crypto: ciphertext length is not a block multiple")
)

// EncryptCBC encrypts plain with AES in CBC mode. The plaintext is padded
// with PKCS#7; iv must be one block long.
func EncryptCBC(key, iv, plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("crypto: iv must be %d bytes, got %d", block.BlockSize(), len(iv))
	}
	padded := pkcs7Pad(plain, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// DecryptCBC decrypts an AES-CBC ciphertext produced by EncryptCBC and
// strips the PKCS#7 padding.
func DecryptCBC(key, iv, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("crypto: iv must be %d bytes, got %d", block.BlockSize(), len(iv))
	}
	if len(data) == 0 || len(data)%block.BlockSize() != 0 {
		return nil, ErrInvalidLength
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return pkcs7Unpad(out, block.BlockSize())
}

// EncryptECB encrypts plain with AES in ECB mode, padding with PKCS#7. ECB
// leaks block-level structure; it exists for interoperability with legacy
// payloads, prefer GCM for new data.
func EncryptECB(key, plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	padded := pkcs7Pad(plain, bs)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += bs {
		block.Encrypt(out[i:i+bs], padded[i:i+bs])
	}
	return out, nil
}

// DecryptECB decrypts an AES-ECB ciphertext produced by EncryptECB.
func DecryptECB(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	if len(data) == 0 || len(data)%bs != 0 {
		return nil, ErrInvalidLength
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += bs {
		block.Decrypt(out[i:i+bs], data[i:i+bs])
	}
	return pkcs7Unpad(out, bs)
}

// EncryptGCM encrypts plain with AES-GCM and returns ciphertext with the
// authentication tag appended. The nonce may be any non-zero length, 12
// bytes is standard. aad is optional additional authenticated data.
func EncryptGCM(key, nonce, plain, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key, len(nonce))
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, nonce, plain, aad), nil
}

// DecryptGCM authenticates and decrypts a payload produced by EncryptGCM.
func DecryptGCM(key, nonce, data, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key, len(nonce))
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, data, aad)
}

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

func pkcs7Pad(data []byte, bs int) []byte {
	n := bs - len(data)%bs
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, bs int) ([]byte, error) {
	if len(data) == 0 || len(data)%bs != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > bs || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
