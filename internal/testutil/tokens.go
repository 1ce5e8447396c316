package testutil

import (
	"fmt"
	"sync"
)

// SequentialTokens generates tx tokens "<prefix>-0001", "<prefix>-0002", ...
//
// Deterministic, so the same scenario produces byte-identical event logs and
// golden traces. Unlike engine.FixedGenerator it never runs out.
//
// Safe for concurrent use.
type SequentialTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTokens creates a generator. An empty prefix becomes "tx".
func NewSequentialTokens(prefix string) *SequentialTokens {
	if prefix == "" {
		prefix = "tx"
	}
	return &SequentialTokens{prefix: prefix}
}

// Generate returns the next token.
func (g *SequentialTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequentialTokens) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
