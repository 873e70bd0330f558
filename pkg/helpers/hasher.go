package helpers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
)

// saltSize matches the HMAC-SHA-512 block size so the key is never re-hashed.
const saltSize = 128

// HashPassword computes HMAC-SHA-512 over the password using a fresh random key.
// The key is returned as the salt and must be stored next to the hash.
func HashPassword(plain string) (hash, salt []byte, err error) {
	salt = make([]byte, saltSize)
	if _, err = rand.Read(salt); err != nil {
		return nil, nil, err
	}
	return computeHash(plain, salt), salt, nil
}

// VerifyPassword recomputes the keyed hash with the stored salt and compares in constant time.
func VerifyPassword(plain string, hash, salt []byte) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	return hmac.Equal(computeHash(plain, salt), hash)
}

func computeHash(plain string, salt []byte) []byte {
	mac := hmac.New(sha512.New, salt)
	mac.Write([]byte(plain))
	return mac.Sum(nil)
}
