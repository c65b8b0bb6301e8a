package leadlist

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/wolfman30/muvance-crm/internal/leads"
)

// MaxSuggestions caps the suggestion list.
const MaxSuggestions = 5

// SuggestionKind says which field a suggestion came from.
type SuggestionKind string

const (
	KindName    SuggestionKind = "name"
	KindPhone   SuggestionKind = "phone"
	KindWebsite SuggestionKind = "website"
)

// Suggestion is one search completion.
type Suggestion struct {
	Kind  SuggestionKind `json:"kind"`
	Value string         `json:"value"`
}

// Suggestions concatenates name, phone and website matches for query, each
// sub-list filtered independently, sorts the result by display value and
// keeps at most MaxSuggestions. Values shared by several leads are listed once
// per lead.
func Suggestions(all []leads.Lead, query string) []Suggestion {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	var out []Suggestion
	add := func(kind SuggestionKind, value string) {
		if value == "" || !strings.Contains(strings.ToLower(value), needle) {
			return
		}
		out = append(out, Suggestion{Kind: kind, Value: value})
	}
	for _, l := range all {
		add(KindName, l.FullName)
	}
	for _, l := range all {
		add(KindPhone, l.PhoneNumber)
	}
	for _, l := range all {
		add(KindWebsite, l.WebsiteLink)
	}

	col := collate.New(language.English)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].Value, out[j].Value) < 0
	})
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

// Keys understood by Cursor.HandleKey.
const (
	KeyDown  = "ArrowDown"
	KeyUp    = "ArrowUp"
	KeyEnter = "Enter"
)

// Cursor tracks keyboard highlight over a suggestion list. The index starts
// at -1 (nothing highlighted); moving always lands on an item.
type Cursor struct {
	items []Suggestion
	index int
}

func NewCursor(items []Suggestion) *Cursor {
	return &Cursor{items: items, index: -1}
}

func (c *Cursor) Index() int { return c.index }
func (c *Cursor) Items() []Suggestion { return c.items }
func (c *Cursor) Reset(items []Suggestion) { c.items, c.index = items, -1 }

// Down moves the highlight forward, wrapping from the last item to the first.
func (c *Cursor) Down() {
	if len(c.items) == 0 {
		c.index = -1
		return
	}
	if c.index < len(c.items)-1 {
		c.index++
		return
	}
	c.index = 0
}

// Up moves the highlight back, wrapping from the first item (or no highlight)
// to the last.
func (c *Cursor) Up() {
	if len(c.items) == 0 {
		c.index = -1
		return
	}
	if c.index > 0 {
		c.index--
		return
	}
	c.index = len(c.items) - 1
}

// Enter commits the highlighted suggestion and clears the list. ok is false
// when nothing is highlighted.
func (c *Cursor) Enter() (Suggestion, bool) {
	if c.index < 0 || c.index >= len(c.items) {
		return Suggestion{}, false
	}
	s := c.items[c.index]
	c.items, c.index = nil, -1
	return s, true
}

// HandleKey dispatches a key name. It returns the committed search query when
// Enter selects a suggestion.
func (c *Cursor) HandleKey(key string) (string, bool) {
	switch key {
	case KeyDown:
		c.Down()
	case KeyUp:
		c.Up()
	case KeyEnter:
		if s, ok := c.Enter(); ok {
			return s.Value, true
		}
	}
	return "", false
}
