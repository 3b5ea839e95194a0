// Package rasterizer provides a placeholder implementation of
// flow/provider's PDFRasterizer contract. Real page rasterization is an
// out-of-scope collaborator; Stub exists so DOCUMENT_SPLITTER has something
// to call and tests have something deterministic to assert against.
package rasterizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowforge/flowrun/flow/provider"
)

// Stub implements provider.PDFRasterizer by always producing a single page
// image path derived from the source document's name, with no actual image
// encoding. A host process wires in a real rasterizer for production use.
type Stub struct {
	// OutputDir is where page placeholder files are written. Defaults to
	// os.TempDir() when empty.
	OutputDir string
}

// Rasterize implements provider.PDFRasterizer.
func (s Stub) Rasterize(ctx context.Context, path string, opts provider.RasterizeOptions) ([]provider.Page, error) {
	if path == "" {
		return nil, fmt.Errorf("rasterizer: path is required")
	}

	dir := s.OutputDir
	if dir == "" {
		dir = os.TempDir()
	}

	dpi := opts.DPI
	if dpi <= 0 {
		dpi = 150
	}
	width, height := pixelsFor(dpi)

	base := filepath.Base(path)
	ext := extensionFor(opts.Format)
	pagePath := filepath.Join(dir, fmt.Sprintf("%s.page1.%s", base, ext))
	if err := os.WriteFile(pagePath, []byte{}, 0o644); err != nil {
		return nil, fmt.Errorf("rasterizer: write placeholder page: %w", err)
	}

	return []provider.Page{{ImagePath: pagePath, Width: width, Height: height}}, nil
}

func extensionFor(format string) string {
	switch format {
	case "jpg", "webp":
		return format
	default:
		return "png"
	}
}

// pixelsFor approximates US-Letter page dimensions at the given DPI.
func pixelsFor(dpi int) (int, int) {
	return int(8.5 * float64(dpi)), 11 * dpi
}
