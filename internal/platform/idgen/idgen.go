// Package idgen provides the identifier generators injected into stores and
// services. Identifiers are never derived from wall-clock readings.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generator produces unique identifiers.
type Generator interface {
	NewID() string
}

// UUID generates random v4 UUIDs.
type UUID struct{}

func (UUID) NewID() string {
	return uuid.NewString()
}

const nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NanoID generates URL-safe random identifiers of a fixed size.
type NanoID struct {
	Size int
}

func (n NanoID) NewID() string {
	size := n.Size
	if size == 0 {
		size = 21
	}
	return gonanoid.MustGenerate(nanoidAlphabet, size)
}

// Sequence generates deterministic, monotonically increasing identifiers
// ("prefix-1", "prefix-2", ...). Intended for tests and fixtures.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1))
}

// FromStrategy returns the generator named by strategy ("uuid" or "nanoid").
func FromStrategy(strategy string) (Generator, error) {
	switch strategy {
	case "", "uuid":
		return UUID{}, nil
	case "nanoid":
		return NanoID{}, nil
	default:
		return nil, fmt.Errorf("unknown id strategy %q", strategy)
	}
}
