package layout

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/quire/binding"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/params"
	"github.com/ByLCY/quire/scaled"
)

const pt = scaled.Unity

// stubFace gives every character the same metrics so that line widths can
// be computed by hand: 5pt wide, 7pt high, 2pt deep.
type stubFace struct{}

func (stubFace) Glyph(r rune) (scaled.Scaled, scaled.Scaled, scaled.Scaled, bool) {
	return 5 * pt, 7 * pt, 2 * pt, true
}

func (stubFace) Space() (scaled.Scaled, scaled.Scaled, scaled.Scaled) {
	return 3 * pt, 3 * pt / 2, pt
}

var stubMetrics = MetricsFunc(func(src string, size scaled.Scaled) (Face, error) {
	if src == "missing" {
		return nil, errors.New("no such font")
	}
	return stubFace{}, nil
})

// capture keeps a copy of every shipped page.
type capture struct {
	pages []*node.Box
}

func (c *capture) Ship(_ context.Context, pg *node.Box) error {
	c.pages = append(c.pages, node.CopyList(pg).(*node.Box))
	return nil
}

const header = `doc T v1 {
  params {
    hsize: 100pt
    vsize: 200pt
    parindent: 0pt
  }
`

func build(t *testing.T, src string, data any, opts BuildOptions) (*Result, *capture) {
	t.Helper()
	doc, err := dsl.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := &capture{}
	opts.Metrics = stubMetrics
	opts.Shipper = c
	res, err := Build(context.Background(), doc, data, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return res, c
}

func buildErr(src string, data any, opts BuildOptions) error {
	doc, err := dsl.ParseString(src)
	if err != nil {
		return err
	}
	opts.Metrics = stubMetrics
	_, err = Build(context.Background(), doc, data, opts)
	return err
}

// children returns the boxes directly inside b.
func children(b *node.Box) []*node.Box {
	var out []*node.Box
	for n := b.List; n != nil; n = n.Next() {
		if c, ok := n.(*node.Box); ok {
			out = append(out, c)
		}
	}
	return out
}

func TestSinglePage(t *testing.T) {
	res, c := build(t, header+`  body {
    par "aaa bbb"
  }
}`, nil, BuildOptions{})
	if len(res.Pages) != 1 || len(c.pages) != 1 {
		t.Fatalf("pages = %d, shipped %d", len(res.Pages), len(c.pages))
	}
	pg := res.Pages[0]
	if pg.Number != 1 || pg.Height != Dimen(200*pt) {
		t.Fatalf("page = %+v", pg)
	}
	if pg.OutputPenalty != -(1 << 30) {
		t.Fatalf("output penalty = %d", pg.OutputPenalty)
	}
	if len(res.Paragraphs) != 1 || res.Paragraphs[0] != (ParagraphInfo{Lines: 1, Pass: 1}) {
		t.Fatalf("paragraphs = %+v", res.Paragraphs)
	}
	if len(res.Fonts) != 1 || res.Fonts[0].Name != "body" || res.Fonts[0].Src != fonts.Default {
		t.Fatalf("fonts = %+v", res.Fonts)
	}
	if len(res.Digest) != 64 || pg.Digest == "" {
		t.Fatalf("digest %q page %q", res.Digest, pg.Digest)
	}
}

func TestEjectMakesPages(t *testing.T) {
	res, _ := build(t, header+`  body {
    par "a"
    eject
    par "b"
  }
}`, nil, BuildOptions{})
	if len(res.Pages) != 2 {
		t.Fatalf("pages = %d", len(res.Pages))
	}
	if res.Pages[0].OutputPenalty != scaled.EjectPenalty {
		t.Fatalf("first output penalty = %d", res.Pages[0].OutputPenalty)
	}
}

func TestGroupRestoresParams(t *testing.T) {
	p := params.New()
	_, c := build(t, header+`  body {
    group {
      hsize: 50pt
      par noindent "aaa"
    }
    par noindent "bbb"
  }
}`, nil, BuildOptions{Params: p})
	if got := p.Dimen(params.HSize); got != 100*pt {
		t.Fatalf("hsize after group = %s", got)
	}
	if len(c.pages) != 1 {
		t.Fatalf("shipped %d pages", len(c.pages))
	}
	box255 := children(c.pages[0])[0]
	lines := children(box255)
	if len(lines) < 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0].Width != 50*pt || lines[1].Width != 100*pt {
		t.Fatalf("line widths %s, %s", lines[0].Width, lines[1].Width)
	}
}

func TestLcCodeParam(t *testing.T) {
	p := params.New()
	build(t, `doc T v1 {
  params {
    lccode: ["É é", "Q 0"]
  }
  body {
    group {
      lccode: ["1 1"]
    }
    par "x"
  }
}`, nil, BuildOptions{Params: p})
	if p.LcCode('É') != 'é' {
		t.Errorf("lccode É = %q", p.LcCode('É'))
	}
	if p.LcCode('Q') != 0 {
		t.Errorf("lccode Q = %q, want 0", p.LcCode('Q'))
	}
	if p.LcCode('1') != 0 {
		t.Errorf("lccode 1 survived the group")
	}
	err := buildErr(`doc T v1 { params { lccode: ["ab c"] } }`, nil, BuildOptions{})
	if !errors.Is(err, ErrBadArgs) {
		t.Fatalf("err = %v, want ErrBadArgs", err)
	}
}

func TestFootnoteInsertion(t *testing.T) {
	res, c := build(t, `doc T v1 {
  params {
    hsize: 100pt
    vsize: 100pt
    parindent: 0pt
    count100: 1000
    dimen100: 50pt
    skip100: 6pt
  }
  body {
    par "aaa"
    insert 100 {
      par "note"
    }
  }
}`, nil, BuildOptions{})
	if len(res.Pages) != 1 {
		t.Fatalf("pages = %d", len(res.Pages))
	}
	parts := children(c.pages[0])
	if len(parts) != 2 {
		t.Fatalf("page parts = %d", len(parts))
	}
	if note := parts[1]; !note.IsVertical() || note.Height != 7*pt || note.Depth != 2*pt {
		t.Fatalf("footnote box %s+%s", note.Height, note.Depth)
	}
	g, ok := parts[0].Next().(*node.Glue)
	if !ok || g.Spec.Width != 6*pt {
		t.Fatalf("expected \\skip100 before the footnotes, got %T", parts[0].Next())
	}
}

func TestMarks(t *testing.T) {
	res, _ := build(t, header+`  body {
    mark "one"
    par "a"
    eject
    mark "two"
    par "b"
    mark "three"
  }
}`, nil, BuildOptions{})
	if len(res.Pages) != 2 {
		t.Fatalf("pages = %d", len(res.Pages))
	}
	got := [][3]string{}
	for _, pg := range res.Pages {
		got = append(got, [3]string{pg.TopMark, pg.FirstMark, pg.BotMark})
	}
	want := [][3]string{{"", "one", "one"}, {"one", "two", "three"}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("page %d marks = %q, want %q", i+1, got[i], want[i])
		}
	}
}

func TestDigestDeterministic(t *testing.T) {
	src := header + `  body {
    par "the quick brown fox jumps over the lazy dog"
    vskip 6pt plus 2pt
    par "again"
  }
}`
	a, _ := build(t, src, nil, BuildOptions{})
	b, _ := build(t, src, nil, BuildOptions{})
	if a.Digest != b.Digest {
		t.Fatalf("digests differ: %s %s", a.Digest, b.Digest)
	}
	other, _ := build(t, strings.Replace(src, "again", "other", 1), nil, BuildOptions{})
	if other.Digest == a.Digest {
		t.Fatalf("different documents share digest %s", a.Digest)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown param", `doc T v1 { params { frobnicate: 1 } }`, ErrUnknownParam},
		{"unknown command", `doc T v1 { body { frob } }`, ErrUnknownCommand},
		{"unknown font", `doc T v1 { body { font italic } }`, ErrUnknownFont},
		{"bad integer", `doc T v1 { params { tolerance: 1pt } }`, ErrBadArgs},
		{"bad length", `doc T v1 { params { hsize: wide } }`, ErrBadLength},
		{"insert 255", `doc T v1 { body { insert 255 { par "x" } } }`, ErrBadArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := buildErr(tt.src, nil, BuildOptions{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if err := buildErr(`doc T v1 { resources { font body "missing" } }`, nil, BuildOptions{}); err == nil {
		t.Fatalf("expected font load error")
	}
	err := buildErr("doc T v1 {\n  body {\n    vbox {\n      frob\n    }\n  }\n}", nil, BuildOptions{})
	var se *SourceError
	if !errors.As(err, &se) || se.Pos.Line != 4 || !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("nested error = %v", err)
	}
	if _, err := Build(context.Background(), nil, nil, BuildOptions{}); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("nil document: %v", err)
	}
}

func TestStrictInterpolation(t *testing.T) {
	src := header + `  body {
    par "Hi ${user.name}"
  }
}`
	data := map[string]any{"user": map[string]any{"name": "Ann"}}
	if _, c := build(t, src, data, BuildOptions{Strict: true}); len(c.pages) != 1 {
		t.Fatalf("shipped %d pages", len(c.pages))
	}
	err := buildErr(src, map[string]any{}, BuildOptions{Strict: true})
	if !errors.Is(err, binding.ErrUnresolved) {
		t.Fatalf("err = %v", err)
	}
	if err := buildErr(src, nil, BuildOptions{}); err != nil {
		t.Fatalf("lenient build: %v", err)
	}
}

func TestSetboxAndVSplit(t *testing.T) {
	_, c := build(t, header+`  body {
    setbox 1 {
      hbox "one"
      hbox "two"
      hbox "six"
    }
    vsplit 1 to 19pt
    box 1
  }
}`, nil, BuildOptions{})
	if len(c.pages) != 1 {
		t.Fatalf("shipped %d pages", len(c.pages))
	}
	var heights []scaled.Scaled
	for _, b := range children(children(c.pages[0])[0]) {
		if b.IsVertical() {
			heights = append(heights, b.Height)
		}
	}
	if len(heights) != 2 || heights[0] != 19*pt || heights[1] != 10*pt {
		t.Fatalf("split heights = %v", heights)
	}
}

func TestCollectMeta(t *testing.T) {
	doc, err := dsl.ParseString(`doc T v1 {
  meta {
    title: "Report for ${who}"
    keywords: ["tex", "pages"]
  }
}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	meta := CollectMeta(doc, map[string]any{"who": "Ann"})
	if meta.Title != "Report for Ann" || meta.Creator != "Quire" {
		t.Fatalf("meta = %+v", meta)
	}
	if strings.Join(meta.Keywords, ",") != "tex,pages" {
		t.Fatalf("keywords = %v", meta.Keywords)
	}
}

func TestCollectHyphenation(t *testing.T) {
	doc, err := dsl.ParseString(`doc T v1 {
  resources {
    pattern "hy3ph" "he2n" "hena4" "hen5at" "1na" "n2at" "1tio" "2io" "o2n"
    exceptions "ta-ble"
  }
}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b := &builder{fontIndex: map[string]int{}, opts: BuildOptions{Metrics: stubMetrics}}
	if err := b.collectResources(doc); err != nil {
		t.Fatalf("resources: %v", err)
	}
	l, err := b.collectHyphenation(doc)
	if err != nil || l == nil {
		t.Fatalf("hyphenation = %v, %v", l, err)
	}
	if got := l.Points([]rune("hyphenation"), 2, 3); len(got) != 2 || got[0] != 2 || got[1] != 6 {
		t.Fatalf("points = %v", got)
	}
	if c := b.hyphenChar(0); c == nil || c.Code != '-' {
		t.Fatalf("hyphen char = %v", c)
	}
}

func TestCollectHyphenationErrors(t *testing.T) {
	doc, err := dsl.ParseString(`doc T v1 { resources { font body "x" } }`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b := &builder{fontIndex: map[string]int{}, opts: BuildOptions{Metrics: stubMetrics}}
	if l, err := b.collectHyphenation(doc); l != nil || err != nil {
		t.Fatalf("no declarations: %v, %v", l, err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.pat"), []byte("hy3ph\na-b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err = buildErr("doc T v1 {\n  resources {\n    patterns \"bad.pat\"\n  }\n}", nil, BuildOptions{BaseDir: dir})
	var se *SourceError
	if !errors.As(err, &se) || se.Pos.Line != 3 {
		t.Fatalf("err = %v, want a positioned error", err)
	}
	if !strings.Contains(err.Error(), "bad.pat") || !strings.Contains(err.Error(), "bad pattern") {
		t.Errorf("err = %v", err)
	}
}
