package nodes

import (
	"fmt"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/provider"
	"github.com/flowforge/flowrun/flow/registry"
	"github.com/flowforge/flowrun/flow/resolve"
)

// DocumentSplitterHandler implements the DOCUMENT_SPLITTER node: it resolves
// a file handle id from node.Document, rasterizes it at the configured
// quality/DPI/format, and records one page entry per rendered image.
type DocumentSplitterHandler struct{}

// Execute rasterizes the referenced document into per-page images.
func (DocumentSplitterHandler) Execute(ec registry.ExecContext, node *flow.Node) (any, error) {
	files, ok := ec.Providers.Files()
	if !ok {
		return nil, fmt.Errorf("document_splitter: node %s: no file store configured", node.ID)
	}
	raster, ok := ec.Providers.Rasterizer()
	if !ok {
		return nil, fmt.Errorf("document_splitter: node %s: no PDF rasterizer configured", node.ID)
	}

	resolver := resolve.New(ec.State)
	resolvedDoc := resolver.ResolveValue(node.Document)
	fileID, ok := resolvedDoc.(string)
	if !ok || fileID == "" {
		return nil, fmt.Errorf("document_splitter: node %s: document did not resolve to a file handle id", node.ID)
	}

	handle, ok := files.GetFile(fileID)
	if !ok {
		return nil, fmt.Errorf("document_splitter: node %s: unknown file handle %q", node.ID, fileID)
	}

	opts := provider.RasterizeOptions{
		DPI:     configInt(node, "dpi", 150),
		Format:  configString(node, "image_format"),
		Quality: configString(node, "image_quality"),
	}
	if opts.Format == "" {
		opts.Format = "png"
	}

	pages, err := raster.Rasterize(ec.Ctx, handle.TempPath, opts)
	if err != nil {
		return nil, fmt.Errorf("document_splitter: node %s: %w", node.ID, err)
	}

	out := make([]map[string]any, len(pages))
	for i, p := range pages {
		pageHandle, err := files.RegisterFile(ec.Ctx, p.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("document_splitter: node %s: page %d: %w", node.ID, i, err)
		}
		out[i] = map[string]any{
			"page":     i + 1,
			"file_id":  pageHandle.ID,
			"width":    p.Width,
			"height":   p.Height,
		}
	}

	return map[string]any{"pages": out, "page_count": len(out)}, nil
}
