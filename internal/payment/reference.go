package payment

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ReferenceGenerator mints transaction references: a millisecond timestamp,
// a process-local sequence number and a random suffix. The sequence number
// keeps references distinct even when two are minted in the same millisecond,
// the random suffix keeps them distinct across processes.
type ReferenceGenerator struct {
	seq atomic.Uint64
}

// NewReferenceGenerator returns a ready-to-use generator.
func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{}
}

// Next returns a fresh reference. It never fails: if the randomness source
// errors out, the suffix degrades to a clock-derived value and the sequence
// number still guarantees in-process uniqueness.
func (g *ReferenceGenerator) Next() string {
	seq := g.seq.Add(1)
	suffix := fmt.Sprintf("%x", time.Now().UnixNano()&0xffffffff)
	if u, err := uuid.NewRandom(); err == nil {
		suffix = u.String()[:8]
	}
	return fmt.Sprintf("pay-%d-%d-%s", time.Now().UnixMilli(), seq, suffix)
}
