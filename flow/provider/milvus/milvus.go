// Package milvus implements flow/provider's VectorClient contract against a
// Milvus collection via github.com/milvus-io/milvus/client/v2.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/flowforge/flowrun/flow/provider"
)

const (
	fieldID       = "id"
	fieldVector   = "vector"
	fieldMetadata = "metadata"
)

// Client implements provider.VectorClient against a Milvus deployment. Each
// IndexName names a collection, created on first use with a fixed vector
// dimension; Namespace is stored as a `__namespace` key in each record's JSON
// metadata, and Search returns only records whose key equals it.
type Client struct {
	client *milvusclient.Client
	dim    int
}

// Options configures a Client.
type Options struct {
	Address  string
	Username string
	Password string
	DBName   string
	APIKey   string
}

// New dials Milvus and wraps the connection in a Client.
func New(ctx context.Context, opts Options, dimension int) (*Client, error) {
	cli, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.DBName,
		APIKey:   opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("milvus: connect: %w", err)
	}
	return &Client{client: cli, dim: dimension}, nil
}

func (c *Client) ensureCollection(ctx context.Context, name string) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return fmt.Errorf("milvus: check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: name,
		Description:    "flowrun vector index",
		AutoID:         false,
		Fields: []*entity.Field{
			entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithIsPrimaryKey(true).WithMaxLength(256),
			entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(c.dim)),
			entity.NewField().WithName(fieldMetadata).WithDataType(entity.FieldTypeJSON),
		},
	}

	indexOpt := milvusclient.NewCreateIndexOption(name, fieldVector, index.NewHNSWIndex(entity.COSINE, 32, 400))
	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema).WithIndexOptions(indexOpt)); err != nil {
		return fmt.Errorf("milvus: create collection %s: %w", name, err)
	}

	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("milvus: load collection %s: %w", name, err)
	}
	return loadTask.Await(ctx)
}

// Insert implements provider.VectorClient.
func (c *Client) Insert(ctx context.Context, req provider.VectorInsertRequest) (provider.VectorInsertResponse, error) {
	if err := c.ensureCollection(ctx, req.IndexName); err != nil {
		return provider.VectorInsertResponse{}, err
	}

	ids := make([]string, 0, len(req.Records))
	vectors := make([][]float32, 0, len(req.Records))
	metadataBytes := make([][]byte, 0, len(req.Records))
	for _, rec := range req.Records {
		raw, err := json.Marshal(withNamespace(rec.Metadata, req.Namespace))
		if err != nil {
			return provider.VectorInsertResponse{}, fmt.Errorf("milvus: marshal metadata for %s: %w", rec.ID, err)
		}
		ids = append(ids, rec.ID)
		vectors = append(vectors, rec.Vector)
		metadataBytes = append(metadataBytes, raw)
	}

	insertOpt := milvusclient.NewColumnBasedInsertOption(req.IndexName).
		WithVarcharColumn(fieldID, ids).
		WithFloatVectorColumn(fieldVector, c.dim, vectors).
		WithColumns(column.NewColumnJSONBytes(fieldMetadata, metadataBytes))

	if _, err := c.client.Upsert(ctx, insertOpt); err != nil {
		return provider.VectorInsertResponse{}, fmt.Errorf("milvus: insert into %s: %w", req.IndexName, err)
	}
	return provider.VectorInsertResponse{InsertedIDs: ids}, nil
}

// Search implements provider.VectorClient.
func (c *Client) Search(ctx context.Context, req provider.VectorSearchRequest) (provider.VectorSearchResponse, error) {
	if err := c.ensureCollection(ctx, req.IndexName); err != nil {
		return provider.VectorSearchResponse{}, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}

	searchOpt := milvusclient.NewSearchOption(req.IndexName, topK, []entity.Vector{entity.FloatVector(req.Vector)}).
		WithANNSField(fieldVector).
		WithOutputFields(fieldMetadata)

	results, err := c.client.Search(ctx, searchOpt)
	if err != nil {
		return provider.VectorSearchResponse{}, fmt.Errorf("milvus: search %s: %w", req.IndexName, err)
	}

	var matches []provider.VectorMatch
	for _, result := range results {
		idCol := result.GetColumn(fieldID)
		metadataCol := result.GetColumn(fieldMetadata)
		for i := 0; i < result.ResultCount; i++ {
			id, err := idCol.GetAsString(i)
			if err != nil {
				continue
			}
			score := float64(result.Scores[i])
			if req.SimilarityThreshold > 0 && score < req.SimilarityThreshold {
				continue
			}
			metadata := decodeMetadataColumn(metadataCol, i)
			if ns, _ := metadata["__namespace"].(string); req.Namespace != "" && ns != req.Namespace {
				continue
			}
			if !matchesFilter(metadata, req.Filter) {
				continue
			}
			matches = append(matches, provider.VectorMatch{ID: id, Score: score, Metadata: stripNamespace(metadata)})
		}
	}
	return provider.VectorSearchResponse{Matches: matches}, nil
}

// Update implements provider.VectorClient. Milvus has no partial column
// update, so Update re-inserts the full record via upsert semantics.
func (c *Client) Update(ctx context.Context, req provider.VectorUpdateRequest) (provider.VectorUpdateResponse, error) {
	insertResp, err := c.Insert(ctx, provider.VectorInsertRequest{
		Provider:  req.Provider,
		IndexName: req.IndexName,
		Namespace: req.Namespace,
		Records:   req.Records,
	})
	if err != nil {
		return provider.VectorUpdateResponse{}, err
	}
	return provider.VectorUpdateResponse{UpdatedIDs: insertResp.InsertedIDs}, nil
}

// Delete implements provider.VectorClient.
func (c *Client) Delete(ctx context.Context, req provider.VectorDeleteRequest) (provider.VectorDeleteResponse, error) {
	if err := c.ensureCollection(ctx, req.IndexName); err != nil {
		return provider.VectorDeleteResponse{}, err
	}
	if len(req.IDs) == 0 {
		return provider.VectorDeleteResponse{}, nil
	}

	deleteOpt := milvusclient.NewDeleteOption(req.IndexName).WithStringIDs(fieldID, req.IDs)
	if _, err := c.client.Delete(ctx, deleteOpt); err != nil {
		return provider.VectorDeleteResponse{}, fmt.Errorf("milvus: delete from %s: %w", req.IndexName, err)
	}
	return provider.VectorDeleteResponse{DeletedIDs: req.IDs}, nil
}

func withNamespace(metadata map[string]any, namespace string) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	if namespace != "" {
		out["__namespace"] = namespace
	}
	return out
}

func stripNamespace(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	delete(metadata, "__namespace")
	return metadata
}

func matchesFilter(metadata map[string]any, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

func decodeMetadataColumn(col column.Column, row int) map[string]any {
	if col == nil {
		return nil
	}
	val, err := col.Get(row)
	if err != nil {
		return nil
	}
	switch v := val.(type) {
	case []byte:
		var metadata map[string]any
		if err := json.Unmarshal(v, &metadata); err != nil {
			return nil
		}
		return metadata
	case map[string]any:
		return v
	default:
		return nil
	}
}
