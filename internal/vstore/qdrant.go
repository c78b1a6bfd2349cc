package vstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

// QdrantClient is a typed REST binding over Qdrant's collection/points
// API, grounded on fyrsmithlabs-contextd's vectorstore provider split
// and this module's own HTTP-client idiom used for ollama (context-aware
// requests, typed request/response structs, wrapped transport errors).
type QdrantClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewQdrantClient builds a client against a running Qdrant instance.
func NewQdrantClient(host string, port int, apiKey string, useTLS bool) *QdrantClient {
	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	return &QdrantClient{
		baseURL: fmt.Sprintf("%s://%s:%d", scheme, host, port),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (q *QdrantClient) Close() error { return nil }

func (q *QdrantClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("vstore: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("vstore: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		logging.StorageError("vstore: qdrant request %s %s failed: %v", method, path, err)
		return model.NewError(model.KindTransportUnavailable, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return model.NewError(model.KindTransportUnavailable,
			fmt.Sprintf("qdrant returned %d: %s", resp.StatusCode, string(respBody)), nil)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("vstore: decode response: %w", err)
		}
	}
	return nil
}

// --- wire types ---

type qdrantVectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type qdrantQuantizationConfig struct {
	Scalar qdrantScalarQuantization `json:"scalar"`
}

type qdrantScalarQuantization struct {
	Type      string  `json:"type"`
	Quantile  float64 `json:"quantile"`
	AlwaysRAM bool    `json:"always_ram"`
}

type qdrantCreateCollectionRequest struct {
	Vectors      qdrantVectorParams        `json:"vectors"`
	Quantization *qdrantQuantizationConfig `json:"quantization_config,omitempty"`
}

type qdrantPoint struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}

type qdrantUpsertRequest struct {
	Points []qdrantPoint `json:"points"`
}

type qdrantFieldCondition struct {
	Key   string      `json:"key"`
	Match *qdrantMatch `json:"match,omitempty"`
	Range *qdrantRange `json:"range,omitempty"`
}

type qdrantMatch struct {
	Value interface{} `json:"value"`
}

type qdrantRange struct {
	GTE interface{} `json:"gte,omitempty"`
	LTE interface{} `json:"lte,omitempty"`
}

type qdrantFilter struct {
	Must []qdrantFieldCondition `json:"must"`
}

type qdrantScrollRequest struct {
	Filter      *qdrantFilter `json:"filter,omitempty"`
	Limit       int           `json:"limit"`
	Offset      int           `json:"offset,omitempty"`
	WithPayload bool          `json:"with_payload"`
	WithVector  bool          `json:"with_vector"`
}

type qdrantScrollResponse struct {
	Result struct {
		Points []qdrantPoint `json:"points"`
	} `json:"result"`
}

type qdrantSearchRequest struct {
	Vector      []float32     `json:"vector"`
	Filter      *qdrantFilter `json:"filter,omitempty"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	WithVector  bool          `json:"with_vector"`
}

type qdrantSearchHit struct {
	ID      string                 `json:"id"`
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
	Vector  []float32              `json:"vector"`
}

type qdrantSearchResponse struct {
	Result []qdrantSearchHit `json:"result"`
}

type qdrantDeleteRequest struct {
	Points []string `json:"points"`
}

type qdrantCountRequest struct {
	Filter *qdrantFilter `json:"filter,omitempty"`
	Exact  bool          `json:"exact"`
}

type qdrantCountResponse struct {
	Result struct {
		Count int64 `json:"count"`
	} `json:"result"`
}

type qdrantCollectionInfoResponse struct {
	Result struct {
		PointsCount int64 `json:"points_count"`
		Config      struct {
			Params struct {
				Vectors qdrantVectorParams `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

func toQdrantFilter(filter Filter) *qdrantFilter {
	if len(filter.Terms) == 0 {
		return nil
	}
	out := &qdrantFilter{}
	for _, t := range filter.Terms {
		switch t.Op {
		case OpEq:
			out.Must = append(out.Must, qdrantFieldCondition{Key: t.Field, Match: &qdrantMatch{Value: t.Value}})
		case OpGte:
			out.Must = append(out.Must, qdrantFieldCondition{Key: t.Field, Range: &qdrantRange{GTE: t.Value}})
		case OpLte:
			out.Must = append(out.Must, qdrantFieldCondition{Key: t.Field, Range: &qdrantRange{LTE: t.Value}})
		}
	}
	return out
}

func payloadToPoint(name model.Collection, id string, payload map[string]interface{}, vector []float32) model.Point {
	p := model.Point{ID: id, Vector: vector, Collection: name}
	if v, ok := payload["content"].(string); ok {
		p.Content = v
	}
	if v, ok := payload["content_hash"].(string); ok {
		p.ContentHash = v
	}
	if v, ok := payload["type"].(string); ok {
		p.Type = model.MemoryType(v)
	}
	if v, ok := payload["group_id"].(string); ok {
		p.GroupID = v
	}
	if v, ok := payload["stored_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			p.StoredAt = t
		}
	}
	if v, ok := payload["is_current"].(bool); ok {
		p.IsCurrent = v
	}
	if v, ok := payload["source_hook"].(string); ok {
		p.SourceHook = model.EventKind(v)
	}
	if v, ok := payload["file_path"].(string); ok {
		p.FilePath = v
	}
	if v, ok := payload["embedding_status"].(string); ok {
		p.EmbeddingStatus = model.EmbeddingStatus(v)
	} else {
		p.EmbeddingStatus = model.EmbeddingReady
	}
	meta := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		meta[k] = v
	}
	p.Metadata = meta
	return p
}

func pointToPayload(p model.Point) map[string]interface{} {
	return map[string]interface{}{
		"content":          p.Content,
		"content_hash":     p.ContentHash,
		"type":             string(p.Type),
		"group_id":         p.GroupID,
		"stored_at":        p.StoredAt.Format(time.RFC3339Nano),
		"is_current":       p.IsCurrent,
		"source_hook":      string(p.SourceHook),
		"file_path":        p.FilePath,
		"embedding_status": string(p.EmbeddingStatus),
	}
}

func collectionPath(name model.Collection) string {
	return "/collections/" + strings.ToLower(string(name))
}

func (q *QdrantClient) EnsureCollection(ctx context.Context, name model.Collection, dim int, payloadIndexes []string) error {
	req := qdrantCreateCollectionRequest{
		Vectors: qdrantVectorParams{Size: dim, Distance: "Cosine"},
		Quantization: &qdrantQuantizationConfig{
			Scalar: qdrantScalarQuantization{Type: "int8", Quantile: 0.99, AlwaysRAM: true},
		},
	}
	if err := q.do(ctx, http.MethodPut, collectionPath(name), req, nil); err != nil {
		return err
	}
	for _, field := range payloadIndexes {
		indexReq := map[string]interface{}{"field_name": field, "field_schema": "keyword"}
		if err := q.do(ctx, http.MethodPut, collectionPath(name)+"/index", indexReq, nil); err != nil {
			logging.StorageWarn("vstore: payload index %s on %s failed: %v", field, name, err)
		}
	}
	return nil
}

func (q *QdrantClient) Upsert(ctx context.Context, name model.Collection, points []model.Point) error {
	if len(points) == 0 {
		return nil
	}
	req := qdrantUpsertRequest{Points: make([]qdrantPoint, len(points))}
	for i, p := range points {
		req.Points[i] = qdrantPoint{ID: p.ID, Vector: p.Vector, Payload: pointToPayload(p)}
	}
	return q.do(ctx, http.MethodPut, collectionPath(name)+"/points?wait=true", req, nil)
}

func (q *QdrantClient) Scroll(ctx context.Context, name model.Collection, filter Filter, limit, offset int) ([]model.Point, error) {
	if err := validate(filter); err != nil {
		return nil, err
	}
	req := qdrantScrollRequest{
		Filter: toQdrantFilter(filter), Limit: limit, Offset: offset,
		WithPayload: true, WithVector: true,
	}
	var resp qdrantScrollResponse
	if err := q.do(ctx, http.MethodPost, collectionPath(name)+"/points/scroll", req, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Point, len(resp.Result.Points))
	for i, pt := range resp.Result.Points {
		out[i] = payloadToPoint(name, pt.ID, pt.Payload, pt.Vector)
	}
	return out, nil
}

func (q *QdrantClient) Search(ctx context.Context, name model.Collection, vector []float32, filter Filter, limit int) ([]ScoredPoint, error) {
	if err := validate(filter); err != nil {
		return nil, err
	}
	req := qdrantSearchRequest{
		Vector: vector, Filter: toQdrantFilter(filter), Limit: limit,
		WithPayload: true, WithVector: false,
	}
	var resp qdrantSearchResponse
	if err := q.do(ctx, http.MethodPost, collectionPath(name)+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	out := make([]ScoredPoint, len(resp.Result))
	for i, hit := range resp.Result {
		out[i] = ScoredPoint{Point: payloadToPoint(name, hit.ID, hit.Payload, hit.Vector), Score: hit.Score}
	}
	return out, nil
}

func (q *QdrantClient) GetByID(ctx context.Context, name model.Collection, id string) (*model.Point, error) {
	var resp struct {
		Result []qdrantPoint `json:"result"`
	}
	req := map[string]interface{}{"ids": []string{id}, "with_payload": true, "with_vector": true}
	if err := q.do(ctx, http.MethodPost, collectionPath(name)+"/points", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, nil
	}
	p := payloadToPoint(name, resp.Result[0].ID, resp.Result[0].Payload, resp.Result[0].Vector)
	return &p, nil
}

func (q *QdrantClient) Delete(ctx context.Context, name model.Collection, ids []string) error {
	req := qdrantDeleteRequest{Points: ids}
	return q.do(ctx, http.MethodPost, collectionPath(name)+"/points/delete?wait=true", req, nil)
}

func (q *QdrantClient) Count(ctx context.Context, name model.Collection, filter Filter) (int64, error) {
	if err := validate(filter); err != nil {
		return 0, err
	}
	req := qdrantCountRequest{Filter: toQdrantFilter(filter), Exact: true}
	var resp qdrantCountResponse
	if err := q.do(ctx, http.MethodPost, collectionPath(name)+"/points/count", req, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (q *QdrantClient) CollectionInfo(ctx context.Context, name model.Collection) (CollectionInfo, error) {
	var resp qdrantCollectionInfoResponse
	if err := q.do(ctx, http.MethodGet, collectionPath(name), nil, &resp); err != nil {
		return CollectionInfo{}, err
	}
	return CollectionInfo{
		Name:       string(name),
		Dimensions: resp.Result.Config.Params.Vectors.Size,
		PointCount: resp.Result.PointsCount,
	}, nil
}
