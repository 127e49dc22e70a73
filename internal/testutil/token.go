// Package testutil provides deterministic substitutes for the runtime's
// random pieces, keeping test output stable across runs.
package testutil

import "sync"

// FixedTokenGenerator returns run tokens from a predetermined list. It
// implements the harness TokenGenerator interface.
//
// Generate panics when the list is exhausted: running out of tokens means
// the test executed more runs than it planned for, which should fail fast
// rather than silently reuse identities.
type FixedTokenGenerator struct {
	mu     sync.Mutex
	tokens []string
	next   int
}

// NewFixedTokenGenerator creates a generator yielding the given tokens in
// order. With no tokens it yields "test-run-default" forever.
func NewFixedTokenGenerator(tokens ...string) *FixedTokenGenerator {
	return &FixedTokenGenerator{tokens: tokens}
}

// Generate returns the next token.
func (g *FixedTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.tokens) == 0 {
		return "test-run-default"
	}
	if g.next >= len(g.tokens) {
		panic("FixedTokenGenerator: all tokens exhausted")
	}

	token := g.tokens[g.next]
	g.next++
	return token
}
