package sim

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator produces debug identifiers for tasks and subscriptions. It
// exists purely for logging and tracing; it never participates in
// scheduling decisions.
type IDGenerator interface {
	Generate() string
}

var (
	idGeneratorMu   sync.Mutex
	idGeneratorOnce IDGenerator
)

// UseSequentialIDGenerator configures deterministic, reproducible debug IDs.
// This is the default, and the right choice whenever a scenario run must be
// replayed bit-for-bit.
func UseSequentialIDGenerator() {
	idGeneratorMu.Lock()
	defer idGeneratorMu.Unlock()
	idGeneratorOnce = &sequentialIDGenerator{}
}

// UseRandomIDGenerator switches to xid-based globally unique IDs. Useful
// when correlating logs across multiple independent scheduler runs, at the
// cost of losing deterministic IDs across runs.
func UseRandomIDGenerator() {
	idGeneratorMu.Lock()
	defer idGeneratorMu.Unlock()
	idGeneratorOnce = &randomIDGenerator{}
}

// GetIDGenerator returns the ID generator in effect, defaulting to the
// sequential generator on first use.
func GetIDGenerator() IDGenerator {
	idGeneratorMu.Lock()
	defer idGeneratorMu.Unlock()
	if idGeneratorOnce == nil {
		idGeneratorOnce = &sequentialIDGenerator{}
	}
	return idGeneratorOnce
}

type sequentialIDGenerator struct {
	next uint64
}

func (g *sequentialIDGenerator) Generate() string {
	n := atomic.AddUint64(&g.next, 1)
	return strconv.FormatUint(n, 10)
}

type randomIDGenerator struct{}

func (randomIDGenerator) Generate() string {
	return xid.New().String()
}
