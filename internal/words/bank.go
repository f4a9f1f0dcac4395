// Package words holds the categorized word lists a round draws its secret
// word from.
package words

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed words.yaml
var defaultWords []byte

// DefaultCategory is used when a game starts without an explicit category.
const DefaultCategory = "Animales"

var ErrUnknownCategory = errors.New("unknown category")

type Category struct {
	Name  string   `yaml:"name" json:"name"`
	Words []string `yaml:"words" json:"words"`
}

type bankFile struct {
	Categories []Category `yaml:"categories"`
}

// Bank is an immutable set of categories. It is safe for concurrent use.
type Bank struct {
	categories []Category
	byName     map[string]int
}

// Parse decodes a YAML word list.
func Parse(data []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal word list: %w", err)
	}
	b := &Bank{byName: make(map[string]int, len(f.Categories))}
	for _, c := range f.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, errors.New("category without a name")
		}
		ws := dedupe(c.Words)
		if len(ws) == 0 {
			return nil, fmt.Errorf("category %q has no words", name)
		}
		key := strings.ToLower(name)
		if _, dup := b.byName[key]; dup {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		b.byName[key] = len(b.categories)
		b.categories = append(b.categories, Category{Name: name, Words: ws})
	}
	if len(b.categories) == 0 {
		return nil, errors.New("word list has no categories")
	}
	return b, nil
}

// Default returns the bank compiled into the binary.
func Default() *Bank {
	b, err := Parse(defaultWords)
	if err != nil {
		panic(fmt.Sprintf("embedded word list: %v", err))
	}
	return b
}

// LoadFile reads a YAML word list from disk.
func LoadFile(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read word list: %w", err)
	}
	return Parse(data)
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, w := range in {
		w = strings.TrimSpace(w)
		if w == "" || slices.Contains(out, w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Categories returns the category names in file order.
func (b *Bank) Categories() []string {
	names := make([]string, len(b.categories))
	for i, c := range b.categories {
		names[i] = c.Name
	}
	return names
}

// Resolve maps a case-insensitive category name to its canonical spelling.
func (b *Bank) Resolve(category string) (string, bool) {
	i, ok := b.byName[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return "", false
	}
	return b.categories[i].Name, true
}

func (b *Bank) Words(category string) []string {
	i, ok := b.byName[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return nil
	}
	return slices.Clone(b.categories[i].Words)
}

// PickWeighted draws uniformly among the words of category that are not in
// used. Once every word has been used it draws among the whole category, so a
// known category always yields a word. intn must return a value in [0, n).
func (b *Bank) PickWeighted(intn func(n int) int, category string, used []string) (string, error) {
	all := b.Words(category)
	if len(all) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	fresh := make([]string, 0, len(all))
	for _, w := range all {
		if !slices.Contains(used, w) {
			fresh = append(fresh, w)
		}
	}
	if len(fresh) == 0 {
		fresh = all
	}
	return fresh[intn(len(fresh))], nil
}
