package utils

import (
	"crypto/rand"
	"math/big"
)

// GenerateOTP returns a cryptographically random 6-digit code in
// [100000, 999999].
func GenerateOTP() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, err
	}
	return n.Int64() + 100000, nil
}
