package canvasrenderer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/scaled"
)

const pt = scaled.Unity

// testPage is a vbox holding one line of text above a rule.
func testPage() *node.Box {
	line := node.NewHList()
	line.Width, line.Height, line.Depth = 100*pt, 7*pt, 2*pt
	line.List = node.Chain(
		node.NewChar(0, 'H', 7*pt, 7*pt, 0),
		node.NewGlue(node.NewSpec(3*pt, 0, node.Normal, 0, node.Normal)),
		node.NewChar(0, 'i', 3*pt, 7*pt, 0),
	)
	rule := node.NewRule()
	rule.Height, rule.Depth = 26214, 0
	pg := node.NewVList()
	pg.Width, pg.Height, pg.Depth = 100*pt, 50*pt, 0
	pg.List = node.Chain(line, node.NewKern(10*pt), rule)
	return pg
}

func newRenderer() *Renderer {
	return New(Options{
		Fonts: []layout.FontResource{{Name: "body", Src: fonts.Default, Size: layout.Dimen(10 * pt)}},
		Meta:  layout.DocumentMeta{Title: "Test", Creator: "Quire"},
	})
}

func TestShipWritesPDF(t *testing.T) {
	r := newRenderer()
	for i := 0; i < 2; i++ {
		if err := r.Ship(context.Background(), testPage()); err != nil {
			t.Fatalf("Ship: %v", err)
		}
	}
	if r.Pages() != 2 {
		t.Fatalf("pages = %d", r.Pages())
	}
	data, err := r.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", data[:min(len(data), 16)])
	}
	if err := r.Ship(context.Background(), testPage()); !errors.Is(err, ErrClosed) {
		t.Fatalf("ship after Bytes: %v", err)
	}
}

func TestNoPages(t *testing.T) {
	if _, err := newRenderer().Bytes(); !errors.Is(err, ErrNoPages) {
		t.Fatalf("err = %v", err)
	}
}

func TestUndeclaredFont(t *testing.T) {
	r := New(Options{})
	if err := r.Ship(context.Background(), testPage()); err == nil {
		t.Fatalf("expected an error for an undeclared font")
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newRenderer().Ship(ctx, testPage()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
