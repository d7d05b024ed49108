package id

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// sessionAlphabet excludes '/' and other key separators so a session id can
// be embedded in a storage key verbatim.
const sessionAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const sessionLen = 12

// Generator produces record and session identifiers.
type Generator struct {
	mu sync.Mutex
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NewRecord returns a time-ordered record id (UUIDv7, canonical string form).
// Ids generated by one process sort in creation order.
func (g *Generator) NewRecord() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

// NewSession returns a short lowercase session uid.
func (g *Generator) NewSession() string {
	s, err := gonanoid.Generate(sessionAlphabet, sessionLen)
	if err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:sessionLen]
	}
	return s
}

var defaultGen = NewGenerator()

// NewRecord returns a record id from the package generator.
func NewRecord() string { return defaultGen.NewRecord() }

// NewSession returns a session uid from the package generator.
func NewSession() string { return defaultGen.NewSession() }
