// Package idgen generates the collision-resistant alphanumeric
// identifiers a collection assigns as primary keys on insert.
package idgen

import (
	"crypto/rand"
	"math/big"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// New returns a random alphanumeric string of the requested length, drawn
// from crypto/rand so that repeated calls are collision-resistant enough
// to serve as a primary key.
func New(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))

	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// DefaultLength is the identifier length used when assigning an `_id` on
// insert.
const DefaultLength = 16
