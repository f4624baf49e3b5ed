// Package crypto provides the digest and AES helpers used around lock tokens
// and cached payloads: hex-encoded hashes, HMACs, and PKCS#7-padded block
// cipher modes plus AES-GCM.
package crypto

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// MD5 returns the hex-encoded MD5 digest of data.
func MD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// SHA1 returns the hex-encoded SHA-1 digest of data.
func SHA1(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// SHA256 returns the hex-encoded SHA-256 digest of data.
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Sum returns the hex-encoded digest of data under an arbitrary hash
// constructor, e.g. sha512.New.
func Sum(h func() hash.Hash, data []byte) string {
	hh := h()
	hh.Write(data)
	return hex.EncodeToString(hh.Sum(nil))
}

// HMACSHA1 returns the hex-encoded HMAC-SHA1 of data under key.
func HMACSHA1(key, data []byte) string {
	return HMAC(sha1.New, key, data)
}

// HMACSHA256 returns the hex-encoded HMAC-SHA256 of data under key.
func HMACSHA256(key, data []byte) string {
	return HMAC(sha256.New, key, data)
}

// HMAC returns the hex-encoded HMAC of data under key for an arbitrary hash
// constructor.
func HMAC(h func() hash.Hash, key, data []byte) string {
	mac := hmac.New(h, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}
