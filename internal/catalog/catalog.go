// internal/catalog/catalog.go
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Snapshot is an immutable set of tokens. Lookups are case-insensitive.
type Snapshot struct {
	tokens []types.Token
	index  map[string]int
}

// NewSnapshot validates tokens and builds a snapshot.
func NewSnapshot(tokens []types.Token) (*Snapshot, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", types.ErrInvalidInput)
	}
	s := &Snapshot{
		tokens: make([]types.Token, 0, len(tokens)),
		index:  make(map[string]int, len(tokens)),
	}
	for _, t := range tokens {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToUpper(t.Symbol)
		if _, dup := s.index[key]; dup {
			return nil, fmt.Errorf("%w: duplicate token symbol %s", types.ErrInvalidInput, t.Symbol)
		}
		s.index[key] = len(s.tokens)
		s.tokens = append(s.tokens, t)
	}
	return s, nil
}

// Lookup finds a token by symbol.
func (s *Snapshot) Lookup(symbol string) (types.Token, bool) {
	i, ok := s.index[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return types.Token{}, false
	}
	return s.tokens[i], true
}

// Tokens returns the tokens in catalog order.
func (s *Snapshot) Tokens() []types.Token {
	return append([]types.Token(nil), s.tokens...)
}

// Symbols returns symbols sorted alphabetically.
func (s *Snapshot) Symbols() []string {
	out := make([]string, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, t.Symbol)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of tokens.
func (s *Snapshot) Len() int { return len(s.tokens) }

// Catalog holds the current snapshot; readers never block writers.
type Catalog struct {
	current atomic.Pointer[Snapshot]
	path    string
}

// New wraps an initial snapshot.
func New(snapshot *Snapshot) *Catalog {
	c := &Catalog{}
	c.current.Store(snapshot)
	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	s, err := NewSnapshot(DefaultTokens())
	if err != nil {
		panic(err)
	}
	return New(s)
}

// Snapshot returns the current snapshot.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Lookup resolves a symbol against the current snapshot.
func (c *Catalog) Lookup(symbol string) (types.Token, bool) {
	return c.Snapshot().Lookup(symbol)
}

// Replace swaps in a new snapshot.
func (c *Catalog) Replace(snapshot *Snapshot) {
	c.current.Store(snapshot)
}

// Path returns the file the catalog was loaded from, if any.
func (c *Catalog) Path() string { return c.path }

// DefaultTokens is the reference catalog shipped with the app.
func DefaultTokens() []types.Token {
	return []types.Token{
		{Symbol: "ETH", Name: "Ethereum", Price: decimal.RequireFromString("2340.50"), Change24h: decimal.RequireFromString("2.5")},
		{Symbol: "DATA1", Name: "Climate Dataset", Price: decimal.RequireFromString("45.20"), Change24h: decimal.RequireFromString("-1.2")},
		{Symbol: "DATA2", Name: "Market Research", Price: decimal.RequireFromString("78.90"), Change24h: decimal.RequireFromString("5.8")},
		{Symbol: "DATA3", Name: "Medical Records", Price: decimal.RequireFromString("156.00"), Change24h: decimal.RequireFromString("3.2")},
	}
}

type fileToken struct {
	Symbol    string `yaml:"symbol"`
	Name      string `yaml:"name"`
	Price     string `yaml:"price"`
	Change24h string `yaml:"change_24h"`
}

type fileCatalog struct {
	Tokens []fileToken `yaml:"tokens"`
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Snapshot, error) {
	var doc fileCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	tokens := make([]types.Token, 0, len(doc.Tokens))
	for _, ft := range doc.Tokens {
		price, err := decimal.NewFromString(ft.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: token %s price %q: %v", types.ErrInvalidInput, ft.Symbol, ft.Price, err)
		}
		change := decimal.Zero
		if ft.Change24h != "" {
			change, err = decimal.NewFromString(ft.Change24h)
			if err != nil {
				return nil, fmt.Errorf("%w: token %s change_24h %q: %v", types.ErrInvalidInput, ft.Symbol, ft.Change24h, err)
			}
		}
		tokens = append(tokens, types.Token{
			Symbol:    strings.TrimSpace(ft.Symbol),
			Name:      ft.Name,
			Price:     price,
			Change24h: change,
		})
	}
	return NewSnapshot(tokens)
}

// LoadFile reads a catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	s, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}
	c := New(s)
	c.path = path
	return c, nil
}

func readSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Reload re-reads the backing file. On error the current snapshot is kept.
func (c *Catalog) Reload() (*Snapshot, error) {
	if c.path == "" {
		return nil, fmt.Errorf("catalog has no backing file")
	}
	s, err := readSnapshot(c.path)
	if err != nil {
		return nil, err
	}
	c.current.Store(s)
	return s, nil
}
