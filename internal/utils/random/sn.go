package random

import (
	"crypto/rand"
	"math/big"
)

const snAlphabet = "0123456789"

// SerialNumber generates a numeric serial of the given length using
// crypto/rand. Used for the human-facing lottery number, not for draws.
func SerialNumber(length int) (string, error) {
	max := big.NewInt(int64(len(snAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = snAlphabet[n.Int64()]
	}
	return string(buf), nil
}
