// Package ids mints the external identifiers given to extracted records.
//
// An id is an entity prefix followed by 8 hex characters, e.g. "B1f3a09c2".
// Source ids never leave the extractor.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Entity prefixes.
const (
	PrefixBiblio  = "B"
	PrefixPatron  = "P"
	PrefixHolding = "H"
)

const tokenBytes = 4

// Generator mints one external id per source record.
type Generator interface {
	Mint(prefix, sourceID string) (string, error)
}

// Random mints a fresh random token per call, so ids differ between runs.
// Tokens are unique within one generator.
type Random struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewRandom() *Random {
	return &Random{seen: make(map[string]struct{})}
}

func (g *Random) Mint(prefix, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		bytes := make([]byte, tokenBytes)
		if _, err := rand.Read(bytes); err != nil {
			return "", fmt.Errorf("failed to generate id: %w", err)
		}
		id := prefix + hex.EncodeToString(bytes)
		if _, dup := g.seen[id]; dup {
			continue
		}
		g.seen[id] = struct{}{}
		return id, nil
	}
}

// Stable derives ids from the source id with a name-based UUID, so the same
// export produces the same ids on every run.
type Stable struct {
	namespace uuid.UUID

	mu   sync.Mutex
	seen map[string]struct{}
}

// DefaultNamespace scopes stable ids when no namespace is configured.
var DefaultNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("apollo-indexer"))

// NewStable creates a generator scoped to namespace (e.g. the library name).
func NewStable(namespace string) *Stable {
	ns := DefaultNamespace
	if namespace != "" {
		ns = uuid.NewSHA1(DefaultNamespace, []byte(namespace))
	}
	return &Stable{namespace: ns, seen: make(map[string]struct{})}
}

// Mint hashes prefix+sourceID. On the rare truncation collision it walks
// further along the hash, which keeps the result deterministic for a given
// document order.
func (g *Stable) Mint(prefix, sourceID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	u := uuid.NewSHA1(g.namespace, []byte(prefix+":"+sourceID))
	digest := hex.EncodeToString(u[:])

	for i := 0; i+tokenBytes*2 <= len(digest); i++ {
		id := prefix + digest[i:i+tokenBytes*2]
		if _, dup := g.seen[id]; dup {
			continue
		}
		g.seen[id] = struct{}{}
		return id, nil
	}
	return "", fmt.Errorf("no free stable id for %s%s", prefix, sourceID)
}

var (
	_ Generator = (*Random)(nil)
	_ Generator = (*Stable)(nil)
)
