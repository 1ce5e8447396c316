package engine

import (
	"sync"

	"github.com/google/uuid"
)

// TxTokenGenerator produces the tx token shared by every event of one
// committed operation.
type TxTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator issues UUIDv7 tokens. Their time prefix keeps tokens
// ordered by submission in event listings.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator replays a fixed token list for deterministic tests and
// scenarios. It panics when the list runs out.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	next   int
}

func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.next == len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	tok := g.tokens[g.next]
	g.next++
	return tok
}
