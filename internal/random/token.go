// Package random generates the short opaque alphanumeric tokens the
// gateway hands out: multipart upload ids and operator credentials.
package random

import (
	"crypto/rand"
	"math/big"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// String returns a random alphanumeric string of the given length.
func String(n int) string {
	return stringFrom(alphanumeric, n)
}

// UploadID returns a 12-char alphanumeric multipart upload identifier.
func UploadID() string {
	return String(12)
}

// AccessKey returns an 8-char upper-case alphanumeric access key.
func AccessKey() string {
	return upper(String(8))
}

// SecretKey returns a 16-char upper-case alphanumeric secret key.
func SecretKey() string {
	return upper(String(16))
}

func stringFrom(alphabet string, n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err) // crypto/rand failure is unrecoverable
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
