package nodes

import (
	"context"
	"fmt"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/provider"
	"github.com/flowforge/flowrun/flow/registry"
	"github.com/flowforge/flowrun/flow/state"
)

type fakeLLM struct {
	response provider.LLMResponse
	err      error
	lastReq  provider.LLMRequest
}

func (f *fakeLLM) Complete(_ context.Context, req provider.LLMRequest) (provider.LLMResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return provider.LLMResponse{}, f.err
	}
	return f.response, nil
}

type fakeEmbedding struct {
	vectors [][]float32
	err     error
	lastReq provider.EmbeddingRequest
}

func (f *fakeEmbedding) Embed(_ context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return provider.EmbeddingResponse{}, f.err
	}
	return provider.EmbeddingResponse{Vectors: f.vectors}, nil
}

type fakeVector struct {
	insertResp provider.VectorInsertResponse
	searchResp provider.VectorSearchResponse
	updateResp provider.VectorUpdateResponse
	deleteResp provider.VectorDeleteResponse
	err        error
	lastInsert provider.VectorInsertRequest
	lastSearch provider.VectorSearchRequest
	lastUpdate provider.VectorUpdateRequest
	lastDelete provider.VectorDeleteRequest
}

func (f *fakeVector) Insert(_ context.Context, req provider.VectorInsertRequest) (provider.VectorInsertResponse, error) {
	f.lastInsert = req
	return f.insertResp, f.err
}

func (f *fakeVector) Search(_ context.Context, req provider.VectorSearchRequest) (provider.VectorSearchResponse, error) {
	f.lastSearch = req
	return f.searchResp, f.err
}

func (f *fakeVector) Update(_ context.Context, req provider.VectorUpdateRequest) (provider.VectorUpdateResponse, error) {
	f.lastUpdate = req
	return f.updateResp, f.err
}

func (f *fakeVector) Delete(_ context.Context, req provider.VectorDeleteRequest) (provider.VectorDeleteResponse, error) {
	f.lastDelete = req
	return f.deleteResp, f.err
}

type fakeFileStore struct {
	handles map[string]provider.FileHandle
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{handles: make(map[string]provider.FileHandle)}
}

func (s *fakeFileStore) RegisterFile(_ context.Context, path string) (provider.FileHandle, error) {
	id := fmt.Sprintf("file-%d", len(s.handles)+1)
	h := provider.FileHandle{ID: id, TempPath: path, MimeType: "image/png", Size: 1}
	s.handles[id] = h
	return h, nil
}

func (s *fakeFileStore) HasFile(id string) bool {
	_, ok := s.handles[id]
	return ok
}

func (s *fakeFileStore) GetFile(id string) (provider.FileHandle, bool) {
	h, ok := s.handles[id]
	return h, ok
}

func (s *fakeFileStore) GetFileDataURL(id string) (string, error) {
	return "data:image/png;base64,", nil
}

func (s *fakeFileStore) IsImage(id string) bool { return true }

type fakeRasterizer struct {
	pages []provider.Page
	err   error
}

func (f *fakeRasterizer) Rasterize(_ context.Context, path string, opts provider.RasterizeOptions) ([]provider.Page, error) {
	return f.pages, f.err
}

func testFlow(vars []flow.VariableDeclaration) *flow.Flow {
	return &flow.Flow{Name: "t", Version: "1.0.0", Variables: vars}
}

func newExecContext(reg *provider.Registry, st *state.Registry) registry.ExecContext {
	return registry.ExecContext{
		Ctx:       context.Background(),
		FlowID:    "test-flow",
		Providers: reg,
		State:     st,
	}
}
