package utility

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	alphaChars   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numericChars = "0123456789"
	symbolChars  = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// ErrNoCharacterClasses is returned when a generator is built with every
// character class disabled.
var ErrNoCharacterClasses = errors.New("at least one character class must be included")

// CharacterClasses selects which character sets a RandomStringGenerator
// draws from.
type CharacterClasses struct {
	Alpha   bool
	Numeric bool
	Symbols bool
}

// RandomStringGenerator produces cryptographically secure random strings.
// Generated values gate secret retrieval and email verification, so the
// source must be crypto/rand, never math/rand.
type RandomStringGenerator struct {
	length     int
	characters string
}

// NewRandomStringGenerator builds a generator for strings of the given
// length over the selected character classes.
func NewRandomStringGenerator(length int, classes CharacterClasses) (*RandomStringGenerator, error) {
	var characters string
	if classes.Alpha {
		characters += alphaChars
	}
	if classes.Numeric {
		characters += numericChars
	}
	if classes.Symbols {
		characters += symbolChars
	}
	if characters == "" {
		return nil, ErrNoCharacterClasses
	}
	return &RandomStringGenerator{length: length, characters: characters}, nil
}

// Generate returns a fresh random string.
func (g *RandomStringGenerator) Generate() (string, error) {
	out := make([]byte, g.length)
	max := big.NewInt(int64(len(g.characters)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = g.characters[n.Int64()]
	}
	return string(out), nil
}
