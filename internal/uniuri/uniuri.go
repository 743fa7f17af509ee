package uniuri

import (
	"crypto/rand"
	"errors"
)

const (
	// StdLen is the length of a short identifier (~95 bits of entropy).
	StdLen = 16

	// TokenLen is the length used for correlation values, nonces and
	// session identifiers (~256 bits of entropy).
	TokenLen = 43
)

// StdChars is the URL and cookie safe alphabet used by default.
var StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

// ErrCharsetLength is returned when the alphabet has fewer than 2 or more than 256 characters.
var ErrCharsetLength = errors.New("uniuri: charset length must be between 2 and 256")

// New returns a random string of StdLen standard characters.
func New() (string, error) {
	return NewLenChars(StdLen, StdChars)
}

// Token returns a random string of TokenLen standard characters.
func Token() (string, error) {
	return NewLenChars(TokenLen, StdChars)
}

// NewLen returns a random string of the given length using StdChars.
func NewLen(length int) (string, error) {
	return NewLenChars(length, StdChars)
}

// NewLenChars returns a random string of the given length drawn from chars.
// Bytes above the largest multiple of len(chars) are rejected so every
// character is equally likely.
func NewLenChars(length int, chars []byte) (string, error) {
	if length <= 0 {
		return "", nil
	}

	clen := len(chars)
	if clen < 2 || clen > 256 { //nolint:mnd
		return "", ErrCharsetLength
	}

	limit := 256 - (256 % clen) //nolint:mnd
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2+8) //nolint:mnd

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, chars[int(b)%clen])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
