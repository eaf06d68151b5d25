package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// CodeWrap is the largest order sequence number before it wraps to 1.
const CodeWrap = 9999

// CodeGenerator issues human-readable order codes from a shared counter.
//
// Codes repeat after CodeWrap orders. Orders are keyed by ID, so a repeated
// code only collides within the display space, never in storage.
type CodeGenerator struct {
	store SequenceStore
}

// NewCodeGenerator creates a CodeGenerator backed by store.
func NewCodeGenerator(store SequenceStore) *CodeGenerator {
	return &CodeGenerator{store: store}
}

// Next returns the next order code, e.g. "Order#0007".
func (g *CodeGenerator) Next(ctx context.Context) (string, error) {
	n, err := g.store.NextSequence(ctx, CodeWrap)
	if err != nil {
		return "", errors.Wrap(err, "next order sequence")
	}
	return FormatCode(n), nil
}

// FormatCode renders a sequence number as an order code.
func FormatCode(n int) string {
	return fmt.Sprintf("Order#%04d", n)
}
