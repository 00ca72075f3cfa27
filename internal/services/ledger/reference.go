package ledger

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ReferencePrefix starts every transaction reference.
const ReferencePrefix = "TXN-"

// ReferenceGenerator issues transaction references: the prefix followed
// by a ULID. References from one generator sort by creation time and never
// repeat within a millisecond.
type ReferenceGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Next returns a new reference.
func (g *ReferenceGenerator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
	if err != nil {
		return "", err
	}
	return ReferencePrefix + id.String(), nil
}
