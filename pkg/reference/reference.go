// Package reference generates transaction references, account numbers and
// redeemable codes.
package reference

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// codeAlphabet omits characters that are easy to misread (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var ErrInvalidLength = errors.New("invalid length")

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a unique, time-ordered reference like "TRF-01J9Z...".
func New(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	if prefix == "" {
		return id.String()
	}
	return prefix + "-" + id.String()
}

// AccountNumber returns prefix followed by random digits, length digits in
// total.
func AccountNumber(prefix string, length int) (string, error) {
	if length <= len(prefix) {
		return "", ErrInvalidLength
	}
	digits, err := Digits(length - len(prefix))
	if err != nil {
		return "", err
	}
	return prefix + digits, nil
}

// Digits returns n random decimal digits.
func Digits(n int) (string, error) {
	return random("0123456789", n)
}

// Code returns a random upper-case alphanumeric code of the given length.
func Code(length int) (string, error) {
	return random(codeAlphabet, length)
}

func random(alphabet string, n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidLength
	}
	limit := big.NewInt(int64(len(alphabet)))
	var sb strings.Builder
	sb.Grow(n)
	for range n {
		i, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[i.Int64()])
	}
	return sb.String(), nil
}
