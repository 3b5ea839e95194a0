// Package provider declares the external-collaborator contracts node
// executors call through: LLM, embedding, and vector clients, a file store,
// and a PDF rasterizer. The core never depends on a concrete client; it only
// knows these interfaces, and a host process wires in real implementations
// (see the openai, gemini, pgvector, milvus, and rasterizer subpackages).
package provider

import "context"

// Message is one turn of an LLM conversation. Content is either plain text
// or a slice of content parts (e.g. text and image parts); the client
// interprets it.
type Message struct {
	Role    string
	Content any
}

// LLMRequest is a single completion request against a configured model.
type LLMRequest struct {
	Provider    string
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// OutputSchema names the fields the caller expects in the structured
	// reply; the client enforces or best-effort-coerces to this shape.
	OutputSchema map[string]any
}

// LLMResponse is a structured completion reply, one entry per declared
// output field.
type LLMResponse struct {
	Output map[string]any
}

// LLMClient completes conversations against a configured model.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// EmbeddingRequest embeds one or more strings into vectors.
type EmbeddingRequest struct {
	Provider string
	Model    string
	Texts    []string
}

// EmbeddingResponse carries one vector per input text, in the same order.
type EmbeddingResponse struct {
	Vectors [][]float32
}

// EmbeddingClient embeds text into vector representations.
type EmbeddingClient interface {
	Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error)
}

// VectorRecord is a single vector-store entry: an id, its embedding, and
// arbitrary metadata.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// VectorInsertRequest upserts records into an index/namespace.
type VectorInsertRequest struct {
	Provider  string
	IndexName string
	Namespace string
	Records   []VectorRecord
}

// VectorInsertResponse reports the ids that were written.
type VectorInsertResponse struct {
	InsertedIDs []string
}

// VectorSearchRequest finds the nearest records to Vector.
type VectorSearchRequest struct {
	Provider            string
	IndexName           string
	Namespace           string
	Vector              []float32
	TopK                int
	SimilarityThreshold float64
	Filter               map[string]any
}

// VectorMatch is a single search result with its similarity score.
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// VectorSearchResponse carries the matches ordered by decreasing score.
type VectorSearchResponse struct {
	Matches []VectorMatch
}

// VectorUpdateRequest modifies existing records' vectors and/or metadata.
type VectorUpdateRequest struct {
	Provider  string
	IndexName string
	Namespace string
	Records   []VectorRecord
}

// VectorUpdateResponse reports the ids that were updated.
type VectorUpdateResponse struct {
	UpdatedIDs []string
}

// VectorDeleteRequest removes records by id.
type VectorDeleteRequest struct {
	Provider  string
	IndexName string
	Namespace string
	IDs       []string
}

// VectorDeleteResponse reports the ids that were removed.
type VectorDeleteResponse struct {
	DeletedIDs []string
}

// VectorClient performs CRUD against a vector store index.
type VectorClient interface {
	Insert(ctx context.Context, req VectorInsertRequest) (VectorInsertResponse, error)
	Search(ctx context.Context, req VectorSearchRequest) (VectorSearchResponse, error)
	Update(ctx context.Context, req VectorUpdateRequest) (VectorUpdateResponse, error)
	Delete(ctx context.Context, req VectorDeleteRequest) (VectorDeleteResponse, error)
}

// FileHandle describes a registered file: its opaque id, a local temp path,
// its detected MIME type, and its size in bytes.
type FileHandle struct {
	ID       string
	TempPath string
	MimeType string
	Size     int64
}

// FileStore registers and serves files referenced by `file`-typed variables
// and by DOCUMENT_SPLITTER input.
type FileStore interface {
	RegisterFile(ctx context.Context, path string) (FileHandle, error)
	HasFile(id string) bool
	GetFile(id string) (FileHandle, bool)
	GetFileDataURL(id string) (string, error)
	IsImage(id string) bool
}

// RasterizeOptions controls how a PDF rasterizer renders a document.
type RasterizeOptions struct {
	DPI     int
	Format  string // png|jpg|webp
	Quality string // low|medium|high
}

// Page is one rasterized page: its image path and pixel dimensions.
type Page struct {
	ImagePath string
	Width     int
	Height    int
}

// PDFRasterizer splits a document into per-page images.
type PDFRasterizer interface {
	Rasterize(ctx context.Context, path string, opts RasterizeOptions) ([]Page, error)
}
