// Package corpus supplies reference paragraphs for typing tests.
package corpus

import (
	"math/rand"
	"sync"
)

// Supplier provides a reference paragraph for a new session
type Supplier interface {
	Paragraph() string
}

// defaultParagraphs is the built-in practice corpus
var defaultParagraphs = []string{
	"The quick brown fox jumps over the lazy dog. This sentence contains every letter of the alphabet and is commonly used for typing practice.",
	"Technology has revolutionized the way we communicate and work. From smartphones to artificial intelligence, our daily lives are increasingly connected.",
	"Climate change represents one of the most significant challenges of our time. Rising temperatures and extreme weather patterns affect communities worldwide.",
	"The art of cooking combines creativity with science. Understanding heat, timing, and flavor combinations creates memorable culinary experiences.",
	"Space exploration continues to capture human imagination. Missions to Mars and beyond push the boundaries of what we thought possible.",
	"Reading books opens doors to new worlds and perspectives. Literature has the power to educate, inspire, and transform our understanding.",
	"Exercise and physical activity contribute significantly to mental and physical well-being. Regular movement improves mood and cognitive function.",
	"Music transcends cultural boundaries and connects people across different backgrounds. It has the unique ability to evoke emotions and memories.",
}

// StaticSupplier picks a random paragraph from a fixed set
type StaticSupplier struct {
	mu         sync.Mutex
	paragraphs []string
	rng        *rand.Rand
}

// NewStaticSupplier creates a supplier over the built-in corpus
func NewStaticSupplier(seed int64) *StaticSupplier {
	return &StaticSupplier{
		paragraphs: defaultParagraphs,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Paragraph returns a randomly chosen paragraph
func (s *StaticSupplier) Paragraph() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paragraphs[s.rng.Intn(len(s.paragraphs))]
}

// Paragraphs returns the full corpus (used by tests and seeding)
func (s *StaticSupplier) Paragraphs() []string {
	out := make([]string, len(s.paragraphs))
	copy(out, s.paragraphs)
	return out
}
