// Package fonts supplies font bytes and glyph metrics. The Go fonts are
// built in; any other source is read from disk.
package fonts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Default is the source used when a document declares no font.
const Default = "embed:goregular"

// ErrUnknownEmbedded is returned for an embed: source that is not built in.
var ErrUnknownEmbedded = errors.New("fonts: unknown embedded font")

var embedded = map[string][]byte{
	"goregular": goregular.TTF,
	"gobold":    gobold.TTF,
	"goitalic":  goitalic.TTF,
	"gomono":    gomono.TTF,
}

// Load returns the bytes of a font source. "embed:goregular" (or just
// "goregular") names a built-in font; anything else is a path, relative
// paths being resolved against baseDir.
func Load(src, baseDir string) ([]byte, error) {
	if src == "" {
		src = Default
	}
	name := strings.TrimPrefix(src, "embed:")
	if data, ok := embedded[name]; ok {
		return data, nil
	}
	if strings.HasPrefix(src, "embed:") {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEmbedded, name)
	}
	path := src
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fonts: read %s: %w", src, err)
	}
	return data, nil
}
