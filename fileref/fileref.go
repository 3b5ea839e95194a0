//
// Tencent is pleased to support the open source community by making
// trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package fileref implements the File collaborator (spec §6 FileStore): a
// process-wide registry of files referenced by `file`-typed variables and by
// DOCUMENT_SPLITTER input, keyed by an opaque handle id and backed by a
// local filesystem path.
package fileref

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/flowforge/flowrun/flow/provider"
)

// Scheme prefixes a raw reference may carry. A reference with no recognized
// scheme is treated as a plain local filesystem path.
const (
	SchemeArtifact  = "artifact"
	SchemeWorkspace = "workspace"

	ArtifactPrefix  = SchemeArtifact + "://"
	WorkspacePrefix = SchemeWorkspace + "://"
)

// Ref is a parsed file reference: a scheme (empty for a plain local path)
// and the remaining path/identifier.
type Ref struct {
	Scheme string
	Path   string
}

// Parse splits raw into its scheme and path. A raw value with no recognized
// scheme prefix yields a Ref with an empty Scheme and Path equal to raw.
func Parse(raw string) (Ref, error) {
	if raw == "" {
		return Ref{}, fmt.Errorf("fileref: empty reference")
	}
	switch {
	case strings.HasPrefix(raw, ArtifactPrefix):
		return Ref{Scheme: SchemeArtifact, Path: strings.TrimPrefix(raw, ArtifactPrefix)}, nil
	case strings.HasPrefix(raw, WorkspacePrefix):
		return Ref{Scheme: SchemeWorkspace, Path: strings.TrimPrefix(raw, WorkspacePrefix)}, nil
	default:
		return Ref{Path: raw}, nil
	}
}

// imageExtensions is consulted by IsImage.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true,
}

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".txt":  "text/plain",
	".json": "application/json",
}

// Store is a process-wide FileStore backed by the local filesystem. It
// implements provider.FileStore.
type Store struct {
	mu      sync.RWMutex
	handles map[string]provider.FileHandle
}

// NewStore creates an empty file store.
func NewStore() *Store {
	return &Store{handles: make(map[string]provider.FileHandle)}
}

// RegisterFile parses path as a Ref, stats the underlying local file (for
// scheme-less and workspace paths; artifact:// references are assumed to
// already be materialized by the caller under the same path convention),
// and assigns a new opaque handle id.
func (s *Store) RegisterFile(_ context.Context, path string) (provider.FileHandle, error) {
	ref, err := Parse(path)
	if err != nil {
		return provider.FileHandle{}, err
	}

	info, err := os.Stat(ref.Path)
	if err != nil {
		return provider.FileHandle{}, fmt.Errorf("fileref: cannot register %q: %w", path, err)
	}

	handle := provider.FileHandle{
		ID:       uuid.NewString(),
		TempPath: ref.Path,
		MimeType: mimeTypes[strings.ToLower(filepath.Ext(ref.Path))],
		Size:     info.Size(),
	}

	s.mu.Lock()
	s.handles[handle.ID] = handle
	s.mu.Unlock()
	return handle, nil
}

// HasFile reports whether id names a registered handle.
func (s *Store) HasFile(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.handles[id]
	return ok
}

// GetFile returns the handle for id.
func (s *Store) GetFile(id string) (provider.FileHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handles[id]
	return h, ok
}

// GetFileDataURL renders the file as a base64 data URL, used by LLM nodes
// that pass image content inline in a message.
func (s *Store) GetFileDataURL(id string) (string, error) {
	h, ok := s.GetFile(id)
	if !ok {
		return "", fmt.Errorf("fileref: unknown file id %q", id)
	}
	data, err := os.ReadFile(h.TempPath)
	if err != nil {
		return "", fmt.Errorf("fileref: failed to read %q: %w", h.TempPath, err)
	}
	mimeType := h.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}

// IsImage reports whether id's extension is a recognized image format.
func (s *Store) IsImage(id string) bool {
	h, ok := s.GetFile(id)
	if !ok {
		return false
	}
	return imageExtensions[strings.ToLower(filepath.Ext(h.TempPath))]
}
