package ccd

import (
	"fmt"
	"strings"
)

// A Card is one header entry. HISTORY and COMMENT cards may repeat;
// every other key appears at most once.
type Card struct {
	Key     string
	Value   interface{}
	Comment string
}

// Header is the ordered key/value metadata that travels with a Frame.
type Header struct {
	Cards []Card
}

func isRepeatable(key string) bool { return key == "HISTORY" || key == "COMMENT" }

func NewHeader() Header { return Header{Cards: []Card{}} }

func (h Header) Copy() Header {
	c := Header{Cards: make([]Card, len(h.Cards))}
	copy(c.Cards, h.Cards)
	return c
}

func (h Header) index(key string) int {
	for i, c := range h.Cards {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value of the first card with the key.
func (h Header) Get(key string) (interface{}, bool) {
	if i := h.index(key); i >= 0 {
		return h.Cards[i].Value, true
	}
	return nil, false
}

func (h Header) Has(key string) bool { return h.index(key) >= 0 }

// GetString formats the value as text; "" when missing.
func (h Header) GetString(key string) string {
	v, exists := h.Get(key)
	if !exists || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprintf("%v", v)
}

// Set replaces the value of an existing card, or appends a new one.
// For HISTORY and COMMENT it always appends.
func (h *Header) Set(key string, value interface{}, comment string) {
	if !isRepeatable(key) {
		if i := h.index(key); i >= 0 {
			h.Cards[i].Value = value
			h.Cards[i].Comment = comment
			return
		}
	}
	h.Cards = append(h.Cards, Card{Key: key, Value: value, Comment: comment})
}

func (h *Header) AddHistory(format string, args ...interface{}) {
	h.Set("HISTORY", fmt.Sprintf(format, args...), "")
}

// History returns all HISTORY lines, in order.
func (h Header) History() []string {
	lines := []string{}
	for _, c := range h.Cards {
		if c.Key == "HISTORY" {
			lines = append(lines, fmt.Sprintf("%v", c.Value))
		}
	}
	return lines
}

func (h *Header) Delete(key string) {
	cards := h.Cards[:0]
	for _, c := range h.Cards {
		if c.Key != key {
			cards = append(cards, c)
		}
	}
	h.Cards = cards
}

// CleanASCII rewrites every text value and comment so that it holds
// printable ASCII only; anything else becomes '?'.
func (h *Header) CleanASCII() {
	for i := range h.Cards {
		if s, ok := h.Cards[i].Value.(string); ok {
			h.Cards[i].Value = asciiOnly(s)
		}
		h.Cards[i].Comment = asciiOnly(h.Cards[i].Comment)
	}
}

func asciiOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, s)
}

func (h Header) String() string {
	str := ""
	for _, c := range h.Cards {
		if c.Comment == "" {
			str += fmt.Sprintf("%8s: %v\n", c.Key, c.Value)
		} else {
			str += fmt.Sprintf("%8s: %v (%s)\n", c.Key, c.Value, c.Comment)
		}
	}
	return str
}
