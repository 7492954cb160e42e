package clock

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock fuente de tiempo inyectable; permite tests deterministas.
type Clock interface {
	Now() time.Time
}

// IDGenerator fuente de identificadores únicos inyectable.
type IDGenerator interface {
	NewID() string
}

// System implementación real: time.Now y UUID v4.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }
func (System) NewID() string  { return uuid.New().String() }

// Fixed reloj controlable para tests: arranca en un instante y avanza solo
// cuando se le pide.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed crea un reloj fijo en t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance mueve el reloj hacia adelante.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set fija el instante actual.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// SequentialIDs generador determinista para tests: id-1, id-2, ...
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs crea el generador con un prefijo.
func NewSequentialIDs(prefix string) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + "-" + itoa(g.n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}
