package utils

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// RemoteIDDigits is the length of a remote-control identifier.
const RemoteIDDigits = 8

// NewConnID returns a unique connection identifier.
func NewConnID() string {
	return uuid.NewString()
}

// NewRemoteID returns a random numeric identifier of RemoteIDDigits digits
// without a leading zero.
func NewRemoteID() string {
	var b strings.Builder
	b.Grow(RemoteIDDigits)
	b.WriteByte(byte('1' + randDigit(9)))
	for i := 1; i < RemoteIDDigits; i++ {
		b.WriteByte(byte('0' + randDigit(10)))
	}
	return b.String()
}

// ValidRemoteID reports whether id has the remote-control identifier shape.
func ValidRemoteID(id string) bool {
	if len(id) != RemoteIDDigits {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

func randDigit(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return v.Int64()
}
