/**
 * @description
 * Transaction code generation. Every transaction carries a 6-character
 * public reference code that agents read over the phone and print on
 * receipts, so the alphabet excludes the easily confused characters
 * 0/O, 1/I and L.
 */

package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// CodeAlphabet is the character set for generated transaction codes.
const CodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of a transaction code.
const CodeLength = 6

// maxCodeAttempts bounds the collision retry loop. With a 31^6 code space
// this only trips when the store is effectively full or the existence check
// is broken, and that must surface as an error rather than spin forever.
const maxCodeAttempts = 25

// ErrCodeSpaceExhausted is returned when no non-colliding code could be
// generated within the attempt budget.
var ErrCodeSpaceExhausted = errors.New("could not generate a unique transaction code")

// ValidCode reports whether code is exactly CodeLength characters drawn from
// CodeAlphabet (case-insensitive).
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range strings.ToUpper(code) {
		if !strings.ContainsRune(CodeAlphabet, r) {
			return false
		}
	}
	return true
}

func randomCode() (string, error) {
	var sb strings.Builder
	sb.Grow(CodeLength)
	max := big.NewInt(int64(len(CodeAlphabet)))
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw random code character: %w", err)
		}
		sb.WriteByte(CodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// GenerateCode produces a fresh code that the exists check does not know,
// retrying up to maxCodeAttempts times before giving up with
// ErrCodeSpaceExhausted.
func GenerateCode(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
