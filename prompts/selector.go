package prompts

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
)

var (
	// ErrEmptyCatalog is returned when a selector is built without prompts.
	ErrEmptyCatalog = errors.New("prompt catalog is empty")
	// ErrBlankPrompt is returned when a catalog entry has no text.
	ErrBlankPrompt = errors.New("prompt catalog contains a blank entry")
)

// DefaultCatalog is the prompt bank used when configuration does not supply one.
var DefaultCatalog = []string{
	"What's one thing you're looking forward to today?",
	"How are you feeling going into today?",
	"What's something you accomplished yesterday that you're proud of?",
	"What's your main focus for today?",
	"Is there anything on your mind that you'd like to clear before starting?",
	"What would make today feel like a success?",
	"How's your energy level right now?",
	"What's one small win you can aim for today?",
	"Is there anything you need support with today?",
	"What intention do you want to set for today?",
	"How did yesterday go, and what would you do differently?",
	"What are you grateful for this morning?",
	"What's one challenge you're anticipating today?",
	"How are you taking care of yourself today?",
	"What's something you've been putting off that you could tackle today?",
}

// Source is the randomness a Selector draws from. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Selector picks check-in prompts uniformly from a fixed catalog.
type Selector struct {
	catalog []string
	mu      sync.Mutex
	rng     Source
}

// NewSelector copies catalog and returns a selector over it. A nil rng uses the process-wide source.
func NewSelector(catalog []string, rng Source) (*Selector, error) {
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	items := make([]string, 0, len(catalog))
	for _, p := range catalog {
		if strings.TrimSpace(p) == "" {
			return nil, ErrBlankPrompt
		}
		items = append(items, p)
	}
	if rng == nil {
		rng = globalSource{}
	}
	return &Selector{catalog: items, rng: rng}, nil
}

// MustDefault returns a selector over DefaultCatalog.
func MustDefault() *Selector {
	s, err := NewSelector(DefaultCatalog, nil)
	if err != nil {
		panic(err)
	}
	return s
}

// Pick returns a random prompt. When excluding is non-empty, entries equal to it are skipped
// unless that would leave nothing to choose from.
func (s *Selector) Pick(excluding string) string {
	pool := s.catalog
	if excluding != "" {
		filtered := make([]string, 0, len(s.catalog))
		for _, p := range s.catalog {
			if p != excluding {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}

	s.mu.Lock()
	idx := s.rng.IntN(len(pool))
	s.mu.Unlock()
	return pool[idx]
}

// Catalog returns a copy of the prompts the selector draws from.
func (s *Selector) Catalog() []string {
	out := make([]string, len(s.catalog))
	copy(out, s.catalog)
	return out
}
