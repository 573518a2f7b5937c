package fonts

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/quire/scaled"
)

// Face gives the dimensions of glyphs of one font at one size.
type Face struct {
	Src  string
	Size scaled.Scaled

	mu    sync.Mutex
	font  *sfnt.Font
	buf   sfnt.Buffer
	ppem  fixed.Int26_6
	cache map[rune]glyph
}

type glyph struct {
	width, height, depth scaled.Scaled
	ok                   bool
}

// NewFace parses font data for use at size.
func NewFace(src string, data []byte, size scaled.Scaled) (*Face, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fonts: parse %s: %w", src, err)
	}
	return &Face{
		Src:   src,
		Size:  size,
		font:  f,
		ppem:  toFixed(size),
		cache: map[rune]glyph{},
	}, nil
}

// toFixed converts sp to 26.6 points: 1/64pt is 1024sp.
func toFixed(s scaled.Scaled) fixed.Int26_6 { return fixed.Int26_6(s / 1024) }

func fromFixed(v fixed.Int26_6) scaled.Scaled { return scaled.Scaled(v) * 1024 }

// Glyph returns the advance width, height above the baseline and depth
// below it of r. ok is false when the font has no glyph for r.
func (f *Face) Glyph(r rune) (width, height, depth scaled.Scaled, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, hit := f.cache[r]; hit {
		return g.width, g.height, g.depth, g.ok
	}
	g := f.measure(r)
	f.cache[r] = g
	return g.width, g.height, g.depth, g.ok
}

func (f *Face) measure(r rune) glyph {
	idx, err := f.font.GlyphIndex(&f.buf, r)
	if err != nil || idx == 0 {
		return glyph{}
	}
	bounds, advance, err := f.font.GlyphBounds(&f.buf, idx, f.ppem, font.HintingNone)
	if err != nil {
		return glyph{}
	}
	// sfnt bounds grow downwards: Min.Y is minus the height.
	g := glyph{width: fromFixed(advance), ok: true}
	if h := -bounds.Min.Y; h > 0 {
		g.height = fromFixed(h)
	}
	if d := bounds.Max.Y; d > 0 {
		g.depth = fromFixed(d)
	}
	return g
}

// Space returns the interword glue of the face: the width of U+0020,
// stretchable by half and shrinkable by a third of it.
func (f *Face) Space() (width, stretch, shrink scaled.Scaled) {
	w, _, _, ok := f.Glyph(' ')
	if !ok {
		w = f.Size / 3
	}
	return w, w / 2, w / 3
}

// Loader opens faces, sharing parsed fonts between sizes.
type Loader struct {
	BaseDir string

	mu    sync.Mutex
	faces map[faceKey]*Face
}

type faceKey struct {
	src  string
	size scaled.Scaled
}

// Face returns the face for src at size.
func (l *Loader) Face(src string, size scaled.Scaled) (*Face, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := faceKey{src, size}
	if f, ok := l.faces[k]; ok {
		return f, nil
	}
	data, err := Load(src, l.BaseDir)
	if err != nil {
		return nil, err
	}
	f, err := NewFace(src, data, size)
	if err != nil {
		return nil, err
	}
	if l.faces == nil {
		l.faces = map[faceKey]*Face{}
	}
	l.faces[k] = f
	return f, nil
}
