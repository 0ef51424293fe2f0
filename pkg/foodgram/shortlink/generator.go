package shortlink

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	minTokenLength      = 3
	maxTokenLength      = 16
	collisionsPerLength = 10
)

// ErrExhausted means no free token was found at any allowed length
var ErrExhausted = errors.New("short link space exhausted")

// Source returns a random token of the given length
type Source func(length int) string

// UUIDSource takes a prefix of a random UUID's hex digits
func UUIDSource(length int) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return hex[:length]
}

// Generator hands out candidate tokens, growing the token length after
// repeated collisions at the current one
type Generator struct {
	source     Source
	length     int
	collisions int
}

func NewGenerator(source Source) *Generator {
	if source == nil {
		source = UUIDSource
	}
	return &Generator{source: source, length: minTokenLength}
}

// Next returns the next candidate token
func (g *Generator) Next() (string, error) {
	if g.length > maxTokenLength {
		return "", ErrExhausted
	}
	return g.source(g.length), nil
}

// Collided records that the last candidate was already taken
func (g *Generator) Collided() {
	g.collisions++
	if g.collisions >= collisionsPerLength {
		g.length++
		g.collisions = 0
	}
}

func (g *Generator) Length() int {
	return g.length
}
