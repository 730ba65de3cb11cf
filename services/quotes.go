package services

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
)

// Quote categories. Rank 1 on the monthly leaderboard gets a winner quote,
// everyone else a general motivational one.
const (
	QuoteCategoryWinner       = "winner_quotes"
	QuoteCategoryMotivational = "motivational_quotes"
)

// QuoteProvider hands out a quote for a category. Injected into the
// leaderboard service so tests can pin the content.
type QuoteProvider interface {
	Quote(category string) (string, error)
}

// FileQuoteProvider serves quotes from a static JSON file shaped as
// {"winner_quotes": [...], "motivational_quotes": [...]}.
type FileQuoteProvider struct {
	Path string
	Rand *rand.Rand

	once   sync.Once
	quotes map[string][]string
	err    error
}

func NewFileQuoteProvider(path string, rnd *rand.Rand) *FileQuoteProvider {
	return &FileQuoteProvider{Path: path, Rand: rnd}
}

func (p *FileQuoteProvider) load() {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		p.err = fmt.Errorf("failed to read quotes file %s: %w", p.Path, err)
		return
	}
	if err := json.Unmarshal(raw, &p.quotes); err != nil {
		p.err = fmt.Errorf("failed to parse quotes file %s: %w", p.Path, err)
	}
}

func (p *FileQuoteProvider) Quote(category string) (string, error) {
	p.once.Do(p.load)
	if p.err != nil {
		return "", p.err
	}
	list := p.quotes[category]
	if len(list) == 0 {
		return "", fmt.Errorf("no quotes for category %q", category)
	}
	return list[p.Rand.Intn(len(list))], nil
}
