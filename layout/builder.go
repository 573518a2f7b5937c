package layout

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/zeebo/blake3"

	"github.com/ByLCY/quire/binding"
	"github.com/ByLCY/quire/diag"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/hyph"
	"github.com/ByLCY/quire/linebreak"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/pack"
	"github.com/ByLCY/quire/page"
	"github.com/ByLCY/quire/params"
	"github.com/ByLCY/quire/scaled"
	"github.com/ByLCY/quire/vbreak"
)

var (
	ErrNoDocument     = errors.New("layout: empty document")
	ErrNoMetrics      = errors.New("layout: no font metrics")
	ErrUnknownParam   = errors.New("layout: unknown parameter")
	ErrUnknownCommand = errors.New("layout: unknown command")
	ErrUnknownFont    = errors.New("layout: unknown font")
	ErrBadArgs        = errors.New("layout: bad arguments")
)

// SourceError locates a failure in the document source.
type SourceError struct {
	Pos lexer.Position
	Err error
}

func (e *SourceError) Error() string { return fmt.Sprintf("%s: %v", e.Pos, e.Err) }

func (e *SourceError) Unwrap() error { return e.Err }

// at wraps err with pos unless it already carries a position.
func at(pos lexer.Position, err error) error {
	var se *SourceError
	if err == nil || errors.As(err, &se) {
		return err
	}
	return &SourceError{Pos: pos, Err: err}
}

const defaultFontSize = 10 * scaled.Unity

var registerName = regexp.MustCompile(`^(count|dimen|skip)(\d+)$`)

// builder turns the body of a document into contributions for the page
// builder.
type builder struct {
	ctx  context.Context
	opts BuildOptions
	data any

	params   *params.Store
	packer   *pack.Packer
	lines    *linebreak.Breaker
	pages    *page.Builder
	splitter *vbreak.Splitter

	fonts     []FontResource
	faces     []Face
	fontIndex map[string]int
	font      int

	// target is the vertical list being built: the contributions of the
	// page builder, or the inside of a box or insert.
	target *node.VList
	// classes lists the insertion classes in the order they were first used.
	classes []int

	res *Result
}

// Build typesets doc. Data fills the ${...} references of the texts.
func Build(ctx context.Context, doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	if opts.Metrics == nil {
		return nil, ErrNoMetrics
	}
	p := opts.Params
	if p == nil {
		p = params.New()
	}
	rep := opts.Reporter
	if rep == nil {
		rep = diag.Discard
	}
	b := &builder{
		ctx:       ctx,
		opts:      opts,
		data:      data,
		params:    p,
		fontIndex: map[string]int{},
		res:       &Result{Meta: CollectMeta(doc, data)},
	}
	b.packer = pack.New(p, rep)
	b.splitter = &vbreak.Splitter{Params: p, Packer: b.packer}

	if err := b.collectResources(doc); err != nil {
		return nil, err
	}
	engine := opts.Hyphenator
	if engine == nil {
		l, err := b.collectHyphenation(doc)
		if err != nil {
			return nil, err
		}
		if l != nil {
			engine = l
		}
	}
	b.lines = linebreak.New(p, b.packer, opts.Arena, engine, rep)
	b.pages = page.New(p, b.packer, opts.Arena, page.OutputFunc(b.output), page.ShipperFunc(b.record), rep)
	b.target = b.pages.Contributions()

	for _, section := range doc.Sections {
		if section.Params == nil || section.Params.Block == nil {
			continue
		}
		for _, stmt := range section.Params.Block.Statements {
			if stmt.Assignment == nil {
				return nil, fmt.Errorf("params: %w: only assignments are allowed", ErrBadArgs)
			}
			if err := b.assign(stmt.Assignment); err != nil {
				return nil, err
			}
		}
	}

	for _, section := range doc.Sections {
		if section.Body == nil || section.Body.Block == nil {
			continue
		}
		if err := b.block(section.Body.Block); err != nil {
			return nil, err
		}
	}
	if err := b.pages.Finish(ctx); err != nil {
		return nil, err
	}

	h := blake3.New()
	for _, pg := range b.res.Pages {
		h.Write([]byte(pg.Digest))
	}
	b.res.Digest = hex.EncodeToString(h.Sum(nil))
	b.res.Fonts = b.fonts
	return b.res, nil
}

// CollectMeta reads the document information of the meta sections,
// interpolating data into the texts.
func CollectMeta(doc *dsl.Document, data any) DocumentMeta {
	meta := DocumentMeta{Creator: "Quire"}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			v := stmt.Assignment.Value
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = binding.Interpolate(v.Text(), data)
			case "author":
				meta.Author = binding.Interpolate(v.Text(), data)
			case "subject":
				meta.Subject = binding.Interpolate(v.Text(), data)
			case "creator":
				meta.Creator = binding.Interpolate(v.Text(), data)
			case "keywords":
				meta.Keywords = valueToStringSlice(v)
			}
		}
	}
	return meta
}

func valueToStringSlice(v *dsl.Value) []string {
	if v == nil {
		return nil
	}
	if v.Array == nil {
		if s := v.Text(); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(v.Array.Values))
	for _, item := range v.Array.Values {
		out = append(out, item.Text())
	}
	return out
}

// DeclaredFonts returns the fonts of the resources sections in order:
//
//	font body "embed:goregular" 10pt
//
// Char nodes refer to a font by its index in the result. Without
// declarations a single "body" font comes from the embedded default.
func DeclaredFonts(doc *dsl.Document) ([]FontResource, error) {
	var out []FontResource
	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			cmd := stmt.Command
			if cmd == nil || cmd.Name != "font" {
				continue
			}
			if len(cmd.Args) < 2 {
				return nil, at(cmd.Pos, fmt.Errorf("%w: font needs a name and a source", ErrBadArgs))
			}
			font := FontResource{Name: cmd.Args[0].Value, Src: cmd.Args[1].Value, Size: Dimen(defaultFontSize)}
			if len(cmd.Args) > 2 {
				size, err := ParseDimen(cmd.Args[2].Raw)
				if err != nil {
					return nil, at(cmd.Pos, err)
				}
				font.Size = Dimen(size)
			}
			out = append(out, font)
		}
	}
	if len(out) == 0 {
		out = append(out, FontResource{Name: "body", Src: fonts.Default, Size: Dimen(defaultFontSize)})
	}
	return out, nil
}

// collectResources opens a face for every declared font; the first one is
// current when the body starts.
func (b *builder) collectResources(doc *dsl.Document) error {
	declared, err := DeclaredFonts(doc)
	if err != nil {
		return err
	}
	for _, font := range declared {
		if err := b.addFont(font); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) addFont(font FontResource) error {
	face, err := b.opts.Metrics.Face(font.Src, scaled.Scaled(font.Size))
	if err != nil {
		return fmt.Errorf("font %s: %w", font.Name, err)
	}
	b.fontIndex[font.Name] = len(b.fonts)
	b.fonts = append(b.fonts, font)
	b.faces = append(b.faces, face)
	return nil
}

// collectHyphenation builds a hyphenator from the resources:
//
//	patterns "en.pat"
//	pattern "hy3ph" "he2n"
//	exceptions "ta-ble"
//
// It returns nil when none are declared.
func (b *builder) collectHyphenation(doc *dsl.Document) (*hyph.Liang, error) {
	l, err := hyph.NewLiang(nil, nil, b.hyphenChar)
	if err != nil {
		return nil, err
	}
	declared := false
	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			cmd := stmt.Command
			if cmd == nil {
				continue
			}
			switch cmd.Name {
			case "patterns":
				for _, a := range cmd.Args {
					if err := b.loadPatterns(l, a.Value); err != nil {
						return nil, at(cmd.Pos, err)
					}
				}
			case "pattern":
				for _, a := range cmd.Args {
					if err := l.AddPattern(a.Value); err != nil {
						return nil, at(cmd.Pos, err)
					}
				}
			case "exceptions":
				for _, a := range cmd.Args {
					l.AddException(a.Value)
				}
			default:
				continue
			}
			declared = true
		}
	}
	if !declared {
		return nil, nil
	}
	return l, nil
}

func (b *builder) loadPatterns(l *hyph.Liang, path string) error {
	if !filepath.IsAbs(path) && b.opts.BaseDir != "" {
		path = filepath.Join(b.opts.BaseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	loaded, err := hyph.Load(f, b.hyphenChar)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	l.Merge(loaded)
	return nil
}

// hyphenChar is the '-' of the given font, nil when the font lacks one.
func (b *builder) hyphenChar(font int) *node.Char {
	if font < 0 || font >= len(b.faces) {
		return nil
	}
	w, h, d, ok := b.faces[font].Glyph('-')
	if !ok {
		return nil
	}
	return node.NewChar(font, '-', w, h, d)
}

// assign sets a parameter or register in the current group:
//
//	tolerance: 500
//	hsize: 300pt
//	baselineskip: 12pt plus 1pt
//	count100: 1000
//	parshape: ["0pt 200pt", "20pt 180pt"]
func (b *builder) assign(a *dsl.Assignment) error {
	if err := b.setParam(a.Key, a.Value); err != nil {
		return at(a.Pos, fmt.Errorf("%s: %w", a.Key, err))
	}
	return nil
}

func (b *builder) setParam(key string, v *dsl.Value) error {
	text := v.Text()
	if p, ok := params.LookupInt(key); ok {
		n, err := parseInt(text)
		if err != nil {
			return err
		}
		b.params.SetInt(p, n)
		return nil
	}
	if p, ok := params.LookupDimen(key); ok {
		d, err := ParseDimen(text)
		if err != nil {
			return err
		}
		b.params.SetDimen(p, d)
		return nil
	}
	if p, ok := params.LookupGlue(key); ok {
		g, err := ParseGlue(text)
		if err != nil {
			return err
		}
		b.params.SetGlue(p, g)
		return nil
	}
	if m := registerName.FindStringSubmatch(strings.ToLower(key)); m != nil {
		n, err := register(m[2])
		if err != nil {
			return err
		}
		switch m[1] {
		case "count":
			c, err := parseInt(text)
			if err != nil {
				return err
			}
			b.params.SetCount(n, c)
		case "dimen":
			d, err := ParseDimen(text)
			if err != nil {
				return err
			}
			b.params.SetDimenReg(n, d)
		case "skip":
			g, err := ParseGlue(text)
			if err != nil {
				return err
			}
			b.params.SetSkip(n, g)
		}
		return nil
	}
	if strings.EqualFold(key, "parshape") {
		shape, err := parseParShape(v)
		if err != nil {
			return err
		}
		b.params.SetParShape(shape)
		return nil
	}
	if strings.EqualFold(key, "lccode") {
		return b.setLcCodes(v)
	}
	return ErrUnknownParam
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrBadArgs, s)
	}
	return n, nil
}

func register(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= params.Registers {
		return 0, fmt.Errorf("%w: bad register %s", ErrBadArgs, s)
	}
	return n, nil
}

// parseParShape reads a list of "indent width" pairs; an empty list
// cancels the shape.
func parseParShape(v *dsl.Value) ([]params.ShapeLine, error) {
	if v == nil || v.Array == nil {
		return nil, fmt.Errorf("%w: parshape needs a list", ErrBadArgs)
	}
	var shape []params.ShapeLine
	for _, item := range v.Array.Values {
		fields := strings.Fields(item.Text())
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: parshape line %q", ErrBadArgs, item.Text())
		}
		indent, err := ParseDimen(fields[0])
		if err != nil {
			return nil, err
		}
		width, err := ParseDimen(fields[1])
		if err != nil {
			return nil, err
		}
		shape = append(shape, params.ShapeLine{Indent: indent, Width: width})
	}
	return shape, nil
}

// setLcCodes reads a list of "c lc" pairs, such as "É é". An lc of 0
// makes c a non-letter.
func (b *builder) setLcCodes(v *dsl.Value) error {
	if v == nil || v.Array == nil {
		return fmt.Errorf("%w: lccode needs a list", ErrBadArgs)
	}
	for _, item := range v.Array.Values {
		fields := strings.Fields(item.Text())
		if len(fields) != 2 || utf8.RuneCountInString(fields[0]) != 1 || utf8.RuneCountInString(fields[1]) != 1 {
			return fmt.Errorf("%w: lccode pair %q", ErrBadArgs, item.Text())
		}
		c, _ := utf8.DecodeRuneInString(fields[0])
		lc, _ := utf8.DecodeRuneInString(fields[1])
		if lc == '0' {
			lc = 0
		}
		b.params.SetLcCode(c, lc)
	}
	return nil
}

// text interpolates s; in strict mode unresolved references are errors.
func (b *builder) text(s string) (string, error) {
	if !b.opts.Strict {
		return binding.Interpolate(s, b.data), nil
	}
	return binding.Expand(s, b.data)
}

// output is the output routine: the page followed by the insertion boxes,
// each after \skip n, packed and shipped.
func (b *builder) output(ctx context.Context, o *page.Output) error {
	var l node.List
	l.Append(o.Page())
	for _, n := range b.classes {
		box := o.Insert(n)
		if box == nil {
			continue
		}
		l.Append(node.NewGlue(o.Params().Skip(n)))
		l.Append(box)
	}
	box, _, err := b.packer.Vpack(l.Head, pack.Natural, pack.Additional, scaled.MaxDimen)
	if err != nil {
		return err
	}
	return o.Ship(ctx, box)
}

// record notes a shipped page and hands it to the configured shipper.
func (b *builder) record(ctx context.Context, pg *node.Box) error {
	info := PageInfo{
		Number:        len(b.res.Pages) + 1,
		Width:         Dimen(pg.Width),
		Height:        Dimen(pg.Height),
		Depth:         Dimen(pg.Depth),
		OutputPenalty: b.params.Int(params.OutputPenalty),
		Digest:        node.Digest(pg),
	}
	top, first, bot := b.pages.Marks()
	if top != nil {
		info.TopMark = *top
	}
	if first != nil {
		info.FirstMark = *first
	}
	if bot != nil {
		info.BotMark = *bot
	}
	if b.opts.Debug.Dump {
		info.Dump = node.Dump(pg)
	}
	b.res.Pages = append(b.res.Pages, info)
	diag.Logger().Debug("page shipped", "number", info.Number, "height", scaled.Scaled(info.Height).String(), "digest", info.Digest[:12])
	if b.opts.Shipper != nil {
		if err := b.opts.Shipper.Ship(ctx, pg); err != nil {
			return fmt.Errorf("ship page %d: %w", info.Number, err)
		}
	}
	node.Flush(pg)
	return nil
}
