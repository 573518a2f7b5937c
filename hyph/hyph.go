// Package hyph finds hyphenation points with Liang's pattern method and
// inserts discretionary breaks into a paragraph in place.
package hyph

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/ByLCY/quire/node"
)

// Word is a run of letters handed over by the line breaker. Letters holds
// the lower-case codes, Chars the character nodes they came from.
type Word struct {
	Font     int
	Letters  []rune
	Chars    []*node.Char
	LeftMin  int
	RightMin int
}

// Engine inserts discretionaries into the list that holds w.Chars.
type Engine interface {
	Hyphenate(w *Word)
}

// HyphenFunc returns the character node placed before a hyphenation break
// in the given font, or nil when the font has no hyphen character.
type HyphenFunc func(font int) *node.Char

// Liang is a pattern and exception based hyphenator.
type Liang struct {
	patterns   map[string][]int
	exceptions map[string][]int
	maxLen     int
	hyphen     HyphenFunc
	fold       cases.Caser
}

// NewLiang builds a hyphenator from patterns such as "hy3ph" and
// exceptions such as "ta-ble".
func NewLiang(patterns, exceptions []string, hyphen HyphenFunc) (*Liang, error) {
	l := &Liang{
		patterns:   map[string][]int{},
		exceptions: map[string][]int{},
		hyphen:     hyphen,
		fold:       cases.Fold(),
	}
	for _, p := range patterns {
		if err := l.AddPattern(p); err != nil {
			return nil, err
		}
	}
	for _, e := range exceptions {
		l.AddException(e)
	}
	return l, nil
}

// Load reads whitespace separated patterns; lines starting with '%' are
// comments and a line "exceptions" switches to exception words.
func Load(r io.Reader, hyphen HyphenFunc) (*Liang, error) {
	l, err := NewLiang(nil, nil, hyphen)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(r)
	inExceptions := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		if line == "exceptions" {
			inExceptions = true
			continue
		}
		for _, f := range strings.Fields(line) {
			if inExceptions {
				l.AddException(f)
				continue
			}
			if err := l.AddPattern(f); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("hyph: read patterns: %w", err)
	}
	return l, nil
}

// AddPattern adds one pattern. Digits give the inter-letter values.
func (l *Liang) AddPattern(p string) error {
	var letters []rune
	var values []int
	pending := 0
	for _, r := range p {
		if r >= '0' && r <= '9' {
			pending = int(r - '0')
			continue
		}
		if r != '.' && !unicode.IsLetter(r) {
			return fmt.Errorf("hyph: bad pattern %q", p)
		}
		values = append(values, pending)
		letters = append(letters, r)
		pending = 0
	}
	values = append(values, pending)
	if len(letters) == 0 {
		return fmt.Errorf("hyph: empty pattern %q", p)
	}
	key := string(letters)
	if old, ok := l.patterns[key]; ok {
		for i := range values {
			values[i] = max(values[i], old[i])
		}
	}
	l.patterns[key] = values
	l.maxLen = max(l.maxLen, len(letters))
	return nil
}

// AddException records a word with explicit hyphen positions.
func (l *Liang) AddException(word string) {
	var letters []rune
	var breaks []int
	for _, r := range word {
		if r == '-' {
			breaks = append(breaks, len(letters))
			continue
		}
		letters = append(letters, r)
	}
	l.exceptions[l.fold.String(string(letters))] = breaks
}

// Merge adds the patterns and exceptions of o to l. Where both have a
// pattern for the same letters the larger values win.
func (l *Liang) Merge(o *Liang) {
	for key, values := range o.patterns {
		if old, ok := l.patterns[key]; ok {
			merged := make([]int, len(values))
			for i := range values {
				merged[i] = max(values[i], old[i])
			}
			values = merged
		}
		l.patterns[key] = values
	}
	for word, breaks := range o.exceptions {
		l.exceptions[word] = breaks
	}
	l.maxLen = max(l.maxLen, o.maxLen)
}

// Points returns the positions k (1 <= k < len(word)) such that a break is
// allowed between word[k-1] and word[k], honouring leftMin and rightMin.
func (l *Liang) Points(word []rune, leftMin, rightMin int) []int {
	n := len(word)
	if n < leftMin+rightMin {
		return nil
	}
	allowed := func(k int) bool { return k >= leftMin && n-k >= rightMin }
	if ex, ok := l.exceptions[l.fold.String(string(word))]; ok {
		var out []int
		for _, k := range ex {
			if k > 0 && k < n && allowed(k) {
				out = append(out, k)
			}
		}
		return out
	}
	w := make([]rune, 0, n+2)
	w = append(w, '.')
	w = append(w, word...)
	w = append(w, '.')
	v := make([]int, len(w)+1)
	for i := range w {
		for j := i + 1; j <= len(w) && j-i <= l.maxLen; j++ {
			vals, ok := l.patterns[string(w[i:j])]
			if !ok {
				continue
			}
			for k, x := range vals {
				v[i+k] = max(v[i+k], x)
			}
		}
	}
	var out []int
	for k := 1; k < n; k++ {
		if v[k+1]%2 == 1 && allowed(k) {
			out = append(out, k)
		}
	}
	return out
}

// Hyphenate inserts a discretionary after each allowed letter of w.
func (l *Liang) Hyphenate(w *Word) {
	if l.hyphen == nil || len(w.Chars) != len(w.Letters) {
		return
	}
	for _, k := range l.Points(w.Letters, w.LeftMin, w.RightMin) {
		h := l.hyphen(w.Font)
		if h == nil {
			return
		}
		c := w.Chars[k-1]
		d := &node.Disc{Pre: h}
		d.SetNext(c.Next())
		c.SetNext(d)
	}
}
