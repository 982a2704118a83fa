package utils

import (
	"crypto/rand"
	"math/big"
)

const tempPasswordChars = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"

// GenerateTempPassword returns a random alphanumeric password of the given
// length, used for the forgot-password flow. Ambiguous characters (0/O, 1/l)
// are excluded.
func GenerateTempPassword(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(tempPasswordChars)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tempPasswordChars[n.Int64()]
	}
	return string(out), nil
}
