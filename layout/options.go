package layout

import (
	"github.com/ByLCY/quire/diag"
	"github.com/ByLCY/quire/hyph"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/page"
	"github.com/ByLCY/quire/params"
	"github.com/ByLCY/quire/scaled"
)

// BuildOptions supplies the collaborators of the list builder. Only
// Metrics is required.
type BuildOptions struct {
	Metrics Metrics
	// Params starts from the plain defaults when nil.
	Params *params.Store
	// Hyphenator overrides the patterns declared in the document.
	Hyphenator hyph.Engine
	Arena      node.Arena
	Reporter   diag.Reporter
	// Shipper receives each finished page after it has been recorded.
	Shipper page.Shipper
	// BaseDir resolves relative resource paths.
	BaseDir string
	// Strict makes unresolved ${...} references an error.
	Strict bool
	Debug  DebugOptions
}

// DebugOptions controls what goes into the result beyond page metrics.
type DebugOptions struct {
	Dump bool // include the box dump of every page
}

// Face measures the glyphs of one font at one size.
type Face interface {
	Glyph(r rune) (width, height, depth scaled.Scaled, ok bool)
	Space() (width, stretch, shrink scaled.Scaled)
}

// Metrics opens faces by font source and size.
type Metrics interface {
	Face(src string, size scaled.Scaled) (Face, error)
}

// MetricsFunc adapts a function to Metrics.
type MetricsFunc func(src string, size scaled.Scaled) (Face, error)

// Face calls f.
func (f MetricsFunc) Face(src string, size scaled.Scaled) (Face, error) { return f(src, size) }
