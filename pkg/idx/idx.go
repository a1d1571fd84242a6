// Package idx generates and recognises the identifiers used across the
// signing service.
//
// Two families exist. Entity identifiers (signature requests, signers,
// preview grants) are UUIDv7 values so they travel cleanly through external
// systems that expect UUIDs. Internal correlation identifiers (request ids,
// outbox jobs) are ULIDs from a monotonic source so they sort by creation.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type ID string

// Zero represents the zero value ID, don't use this unless its a placeholder.
const Zero ID = ""

// ErrInvalid reports a malformed identifier string.
var ErrInvalid = errors.New("idx: invalid identifier")

var (
	globalOnce sync.Once
	global     *generator
)

// generator is a tool to safely generate ULIDs concurrently using a monotonic
// source.
type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *generator) NewAt(t time.Time) ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	u := ulid.MustNew(ulid.Timestamp(t), g.entropy)
	return ID(u.String())
}

func initGlobal() {
	global = &generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a new lexicographically sortable ULID using the current time in
// UTC.
func New() ID {
	return NewAt(time.Now().UTC())
}

// NewAt generates a ULID at the provided time (UTC), useful for tests.
func NewAt(t time.Time) ID {
	globalOnce.Do(initGlobal)
	return global.NewAt(t)
}

// NewEntity returns a new UUIDv7 entity identifier in canonical form.
func NewEntity() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source fails; fall back to v4
		// which panics under the same condition.
		return uuid.NewString()
	}
	return id.String()
}

// ParseEntity validates a canonical (hyphenated) UUID and returns it in
// lower case.
func ParseEntity(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != 36 {
		return "", ErrInvalid
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", ErrInvalid
	}
	return id.String(), nil
}

// Parse parses a ULID string into an ID and validates its form.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return Zero, ErrInvalid
	}
	return ID(s), nil
}

// MustParse parses or panics. Useful for hard-coded IDs in tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsStructured reports whether s is an identifier minted by this service:
// a canonical UUID or a ULID. Opaque capability tokens never match either
// shape.
func IsStructured(s string) bool {
	if _, err := ParseEntity(s); err == nil {
		return true
	}
	_, err := Parse(s)
	return err == nil
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == Zero }

// String returns the canonical string form.
func (id ID) String() string { return string(id) }

// Time extracts the embedded UTC timestamp from the ID.
// If the ID is invalid or zero, it returns the zero time.
func (id ID) Time() time.Time {
	if id.IsZero() {
		return time.Time{}
	}
	u, err := ulid.ParseStrict(id.String())
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}

// Compare reports the lexical ordering between a and b.
// Returns -1 if a<b, 0 if a==b, +1 if a>b.
func Compare(a, b ID) int {
	return strings.Compare(a.String(), b.String())
}
