package canvasrenderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/quire/diag"
	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/renderer"
	"github.com/ByLCY/quire/scaled"
)

// mmToBP converts millimetres to PostScript points, the unit of canvas
// font sizes.
const mmToBP = 72 / 25.4

// DefaultMargin is the offset of the page box from the paper edges, TeX's
// one inch.
const DefaultMargin scaled.Scaled = 4736286

var (
	// ErrClosed is returned when a page is shipped after Bytes.
	ErrClosed = errors.New("canvasrenderer: document already finished")
	// ErrNoPages is returned by Bytes when nothing was shipped.
	ErrNoPages = errors.New("canvasrenderer: no pages")
)

// Renderer draws shipped pages into a PDF via github.com/tdewolff/canvas.
type Renderer struct {
	baseDir string
	fonts   []layout.FontResource
	margin  scaled.Scaled
	meta    layout.DocumentMeta

	mu       sync.Mutex
	buf      bytes.Buffer
	writer   *pdf.PDF
	pages    int
	closed   bool
	families map[string]*canvas.FontFamily
	faces    map[int]*canvas.FontFace
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the canvas renderer.
type Options struct {
	// BaseDir resolves relative font paths.
	BaseDir string
	// Fonts is indexed by the font number of the character nodes.
	Fonts []layout.FontResource
	// Margin defaults to DefaultMargin; use a negative value for none.
	Margin scaled.Scaled
	Meta   layout.DocumentMeta
}

// New returns a renderer for a document using the given fonts.
func New(opts Options) *Renderer {
	margin := opts.Margin
	switch {
	case margin == 0:
		margin = DefaultMargin
	case margin < 0:
		margin = 0
	}
	return &Renderer{
		baseDir:  opts.BaseDir,
		fonts:    opts.Fonts,
		margin:   margin,
		meta:     opts.Meta,
		families: map[string]*canvas.FontFamily{},
		faces:    map[int]*canvas.FontFace{},
	}
}

// Ship draws one page. It implements page.Shipper.
func (r *Renderer) Ship(ctx context.Context, pg *node.Box) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	width := layout.ToMM(pg.Width + 2*r.margin)
	height := layout.ToMM(pg.Height + pg.Depth + 2*r.margin)
	if r.writer == nil {
		r.writer = pdf.New(&r.buf, width, height, nil)
		r.applyMeta(r.writer, r.meta)
	} else {
		r.writer.NewPage(width, height)
	}
	c := canvas.New(width, height)
	cctx := canvas.NewContext(c)
	cctx.SetCoordSystem(canvas.CartesianIV)
	p := &painter{r: r, ctx: cctx}
	renderer.Walk(pg, p)
	if p.err != nil {
		return p.err
	}
	c.RenderTo(r.writer)
	r.pages++
	diag.Logger().Debug("pdf page", "number", r.pages, "width_mm", width, "height_mm", height)
	return nil
}

// Bytes finishes the PDF and returns it.
func (r *Renderer) Bytes() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return nil, ErrNoPages
	}
	if !r.closed {
		r.closed = true
		if err := r.writer.Close(); err != nil {
			return nil, fmt.Errorf("canvasrenderer: write pdf: %w", err)
		}
	}
	return r.buf.Bytes(), nil
}

// Pages returns the number of pages drawn so far.
func (r *Renderer) Pages() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pages
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// face returns the canvas face of font number i.
func (r *Renderer) face(i int) (*canvas.FontFace, error) {
	if f, ok := r.faces[i]; ok {
		return f, nil
	}
	if i < 0 || i >= len(r.fonts) {
		return nil, fmt.Errorf("canvasrenderer: font %d is not declared", i)
	}
	font := r.fonts[i]
	family, ok := r.families[font.Src]
	if !ok {
		data, err := fonts.Load(font.Src, r.baseDir)
		if err != nil {
			return nil, err
		}
		family = canvas.NewFontFamily(font.Name)
		if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
			return nil, fmt.Errorf("canvasrenderer: font %s: %w", font.Name, err)
		}
		r.families[font.Src] = family
	}
	size := layout.ToMM(scaled.Scaled(font.Size)) * mmToBP
	f := family.Face(size, canvas.RGBA(0, 0, 0, 1), canvas.FontRegular, canvas.FontNormal)
	r.faces[i] = f
	return f, nil
}

// painter draws onto one canvas page. Positions arrive relative to the
// page box and are offset by the margin.
type painter struct {
	r   *Renderer
	ctx *canvas.Context
	err error
}

func (p *painter) mm(s scaled.Scaled) float64 { return layout.ToMM(s + p.r.margin) }

func (p *painter) Glyph(font int, c rune, x, y scaled.Scaled) {
	if p.err != nil {
		return
	}
	face, err := p.r.face(font)
	if err != nil {
		p.err = err
		return
	}
	if c == ' ' {
		return
	}
	p.ctx.DrawText(p.mm(x), p.mm(y), canvas.NewTextLine(face, string(c), canvas.Left))
}

func (p *painter) Rule(x, y, w, h scaled.Scaled) {
	if p.err != nil {
		return
	}
	p.ctx.SetFillColor(canvas.RGBA(0, 0, 0, 1))
	p.ctx.SetStrokeColor(canvas.RGBA(0, 0, 0, 0))
	p.ctx.DrawPath(p.mm(x), p.mm(y), canvas.Rectangle(layout.ToMM(w), layout.ToMM(h)))
}
