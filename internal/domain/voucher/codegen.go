package voucher

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

const (
	// CodeLength is the length of generated coupon codes.
	CodeLength = 8
	// codeAlphabet skips 0/O and 1/I so codes read back unambiguously.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxGenerateAttempts = 32
	bloomCapacity       = 1_000_000
	bloomFPR            = 0.001
)

// ErrCodeSpaceExhausted is returned when no free code was found in time.
var ErrCodeSpaceExhausted = errors.New("could not generate a unique coupon code")

// CodeGenerator produces random coupon codes that do not collide with
// outstanding ones. Codes it has seen are kept in a bloom filter so most
// collisions are rejected without a store round trip.
type CodeGenerator struct {
	mu     sync.Mutex
	seen   *bloom.BloomFilter
	random func() (string, error)
}

// NewCodeGenerator creates a CodeGenerator with an empty filter.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{
		seen:   bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		random: randomCode,
	}
}

// Remember records an outstanding code.
func (g *CodeGenerator) Remember(code string) {
	g.mu.Lock()
	g.seen.AddString(code)
	g.mu.Unlock()
}

func (g *CodeGenerator) probablySeen(code string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen.TestString(code)
}

// Generate returns a fresh code, re-rolling until exists reports it free.
// The filter can give false positives, which only cost an extra roll.
func (g *CodeGenerator) Generate(ctx context.Context, exists func(ctx context.Context, code string) (bool, error)) (string, error) {
	for range maxGenerateAttempts {
		code, err := g.random()
		if err != nil {
			return "", errors.Wrap(err, "random code")
		}
		if g.probablySeen(code) {
			continue
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", errors.Wrap(err, "check code")
		}
		if taken {
			g.Remember(code)
			continue
		}
		return code, nil
	}
	return "", ErrCodeSpaceExhausted
}

func randomCode() (string, error) {
	buf := make([]byte, CodeLength)
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
