// Command quire typesets document sources into PDF pages.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/ByLCY/quire/diag"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/page"
	"github.com/ByLCY/quire/params"
	canvasrenderer "github.com/ByLCY/quire/renderer/canvas"
	"github.com/ByLCY/quire/scaled"
)

const version = "0.1.0"

// CLI defines the command-line interface.
var CLI struct {
	Verbose bool `short:"v" help:"Log paragraph and page decisions"`

	Typeset TypesetCmd `cmd:"" help:"Typeset a document into a PDF"`
	Digest  DigestCmd  `cmd:"" help:"Print the digest of the typeset pages"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// EngineFlags override the plain defaults before the document's params
// section is applied.
type EngineFlags struct {
	HSize     string `name:"hsize" help:"Line width, e.g. 6.5in"`
	VSize     string `name:"vsize" help:"Page height, e.g. 8.9in"`
	Tolerance int    `help:"Badness tolerance of the second pass" default:"200"`
	Looseness int    `help:"Lines to add to or remove from each paragraph" default:"0"`
	Strict    bool   `help:"Fail on unresolved data references"`
	Data      string `help:"JSON data bound to the document text"`
}

// TypesetCmd writes the PDF and optionally the layout JSON.
type TypesetCmd struct {
	Input string `arg:"" help:"Document source" type:"existingfile"`
	Out   string `short:"o" help:"PDF output path" default:"out.pdf" type:"path"`
	Debug string `help:"Write page metrics and box dumps as JSON" type:"path"`
	EngineFlags `embed:""`
}

func (c *TypesetCmd) Run() error {
	doc, err := parseFile(c.Input)
	if err != nil {
		return err
	}
	baseDir := filepath.Dir(c.Input)
	declared, err := layout.DeclaredFonts(doc)
	if err != nil {
		return err
	}
	data, err := c.data()
	if err != nil {
		return err
	}
	pdf := canvasrenderer.New(canvasrenderer.Options{
		BaseDir: baseDir,
		Fonts:   declared,
		Meta:    layout.CollectMeta(doc, data),
	})
	res, err := typeset(doc, data, baseDir, c.EngineFlags, pdf, c.Debug != "")
	if err != nil {
		return err
	}
	if c.Debug != "" {
		if err := writeDebug(res, c.Debug); err != nil {
			return err
		}
	}
	out, err := pdf.Bytes()
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.Out), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(c.Out, out, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	fmt.Printf("wrote %s (%d pages)\n", c.Out, len(res.Pages))
	return nil
}

// DigestCmd typesets without rendering and prints the page digests.
type DigestCmd struct {
	Input string `arg:"" help:"Document source" type:"existingfile"`
	Pages bool   `help:"Print the digest of every page as well"`
	EngineFlags `embed:""`
}

func (c *DigestCmd) Run() error {
	doc, err := parseFile(c.Input)
	if err != nil {
		return err
	}
	data, err := c.data()
	if err != nil {
		return err
	}
	res, err := typeset(doc, data, filepath.Dir(c.Input), c.EngineFlags, nil, false)
	if err != nil {
		return err
	}
	if c.Pages {
		for _, pg := range res.Pages {
			fmt.Printf("%4d %s\n", pg.Number, pg.Digest)
		}
	}
	fmt.Println(res.Digest)
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("quire version %s\n", version)
	return nil
}

func parseFile(path string) (*dsl.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := dsl.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func (f EngineFlags) data() (any, error) {
	if f.Data == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(f.Data), &v); err != nil {
		return nil, fmt.Errorf("parse --data: %w", err)
	}
	return v, nil
}

// store returns the plain defaults with the flags applied.
func (f EngineFlags) store() (*params.Store, error) {
	p := params.New()
	p.SetInt(params.Tolerance, f.Tolerance)
	p.SetInt(params.Looseness, f.Looseness)
	for _, d := range []struct {
		flag  string
		value string
		param params.Dimen
	}{
		{"--hsize", f.HSize, params.HSize},
		{"--vsize", f.VSize, params.VSize},
	} {
		if d.value == "" {
			continue
		}
		v, err := layout.ParseDimen(d.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.flag, err)
		}
		p.SetDimen(d.param, v)
	}
	return p, nil
}

func typeset(doc *dsl.Document, data any, baseDir string, flags EngineFlags, ship page.Shipper, dump bool) (*layout.Result, error) {
	p, err := flags.store()
	if err != nil {
		return nil, err
	}
	loader := &fonts.Loader{BaseDir: baseDir}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := layout.Build(ctx, doc, data, layout.BuildOptions{
		Metrics: layout.MetricsFunc(func(src string, size scaled.Scaled) (layout.Face, error) {
			return loader.Face(src, size)
		}),
		Params:   p,
		Reporter: diag.SlogReporter{},
		Shipper:  ship,
		BaseDir:  baseDir,
		Strict:   flags.Strict,
		Debug:    layout.DebugOptions{Dump: dump},
	})
	if err != nil {
		return nil, fmt.Errorf("typeset: %w", err)
	}
	return res, nil
}

func writeDebug(res *layout.Result, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create debug directory: %w", err)
	}
	if err := layout.WriteDebugJSON(res, path); err != nil {
		return fmt.Errorf("write debug json: %w", err)
	}
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("quire"),
		kong.Description("Quire - paragraph and page builder with PDF output"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	level := slog.LevelWarn
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	diag.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
