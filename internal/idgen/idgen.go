// Package idgen allocates issue ID tails: either sequential decimal numbers
// or short random base36 strings, per the store's configured scheme.
//
// The hashed scheme uses an adaptive-length table and crypto/rand as its
// entropy source (true randomness, not a derived content hash), retrying
// on collision and widening the tail length as the issue count grows.
package idgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	MinLength = 3
	MaxLength = 8
)

// ErrIDSpaceExhausted is returned when no unique id could be generated at
// any length up to MaxLength.
var ErrIDSpaceExhausted = errors.New("idgen: id space exhausted")

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// AdaptiveLength returns the minimum base36 tail length to use given the
// number of existing issues in the store, per the fixed range table:
//
//	n < 10       -> 3
//	n < 100      -> 4
//	n < 1000     -> 5
//	n < 10000    -> 6
//	n < 100000   -> 7
//	otherwise    -> 8
func AdaptiveLength(existingCount int) int {
	switch {
	case existingCount < 10:
		return 3
	case existingCount < 100:
		return 4
	case existingCount < 1000:
		return 5
	case existingCount < 10000:
		return 6
	case existingCount < 100000:
		return 7
	default:
		return 8
	}
}

// entropyBytes gives the number of random bytes consumed per tail length.
var entropyBytes = map[int]int{
	3: 2,
	4: 3,
	5: 4,
	6: 4,
	7: 5,
	8: 5,
}

// bytesForLength returns the number of entropy bytes for length, clamping
// to the table's bounds.
func bytesForLength(length int) int {
	if length < MinLength {
		length = MinLength
	}
	if length > MaxLength {
		length = MaxLength
	}
	return entropyBytes[length]
}

// randomBase36Tail draws bytesForLength(length) random bytes and encodes
// them as exactly length base36 characters: zero-padded on the left if the
// encoding is short, truncated from the left (keeping the least-significant,
// rightmost digits) if it is long.
func randomBase36Tail(length int) (string, error) {
	buf := make([]byte, bytesForLength(length))
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("idgen: reading entropy: %w", err)
	}

	n := new(big.Int).SetBytes(buf)
	encoded := n.Text(36)

	for len(encoded) < length {
		encoded = "0" + encoded
	}
	if len(encoded) > length {
		encoded = encoded[len(encoded)-length:]
	}
	return encoded, nil
}

// GenerateHashedTail produces a collision-free random tail for prefix.
// exists reports whether a candidate id (prefix+tail) is already taken.
// It tries MaxAttemptsPerLength random draws at the starting length before
// widening by one character, up to MaxLength; it fails with
// ErrIDSpaceExhausted if every length is exhausted.
const MaxAttemptsPerLength = 16

func GenerateHashedTail(prefix string, startLength int, exists func(candidate string) bool) (string, error) {
	if startLength < MinLength {
		startLength = MinLength
	}
	for length := startLength; length <= MaxLength; length++ {
		for attempt := 0; attempt < MaxAttemptsPerLength; attempt++ {
			tail, err := randomBase36Tail(length)
			if err != nil {
				return "", err
			}
			if !exists(prefix + tail) {
				return tail, nil
			}
		}
	}
	return "", ErrIDSpaceExhausted
}

// NextSequential returns 1 + the maximum of existing, or 1 if existing is empty.
func NextSequential(existing []uint64) uint64 {
	var max uint64
	for _, n := range existing {
		if n > max {
			max = n
		}
	}
	return max + 1
}

// ValidBase36Tail reports whether s consists only of lowercase base36
// characters within [MinLength, MaxLength].
func ValidBase36Tail(s string) bool {
	if len(s) < MinLength || len(s) > MaxLength {
		return false
	}
	for _, r := range s {
		if !isBase36(byte(r)) {
			return false
		}
	}
	return true
}

func isBase36(b byte) bool {
	for i := 0; i < len(base36Alphabet); i++ {
		if base36Alphabet[i] == b {
			return true
		}
	}
	return false
}
