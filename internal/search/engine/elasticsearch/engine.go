// Package elasticsearch implements the search engine contract on top of an
// Elasticsearch 8 cluster. Each index kind gets its own index named
// "<prefix>_<kind>".
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/ludaNOFX/ludaproj-full/internal/search/engine"
)

// DefaultIndexPrefix is used when no prefix is configured.
const DefaultIndexPrefix = "marketplace"

// Engine is an Elasticsearch-backed implementation of engine.Engine.
type Engine struct {
	client *elasticsearch.Client
	prefix string
	logger *slog.Logger
}

// esSearchResponse decodes Elasticsearch search responses. Only hit IDs and
// the total count are used; sources stay in the primary store.
type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// esBulkResponse decodes Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// esErrorResponse decodes Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an Elasticsearch engine connected to the given URL.
// If prefix is empty, DefaultIndexPrefix is used.
func New(esURL string, prefix string, logger *slog.Logger) (*Engine, error) {
	if prefix == "" {
		prefix = DefaultIndexPrefix
	}

	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	return &Engine{
		client: client,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

func (e *Engine) indexName(kind string) string {
	return e.prefix + "_" + kind
}

// EnsureKind checks whether the index for a kind exists and creates it with
// a dynamic text mapping if not. Called once per registered kind at startup.
func (e *Engine) EnsureKind(ctx context.Context, kind string) error {
	name := e.indexName(kind)

	res, err := e.client.Indices.Exists([]string{name},
		e.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// Status 200 means the index exists.
	if res.StatusCode == 200 {
		e.logger.Info("elasticsearch index already exists", "index", name)
		return nil
	}

	mapping := `{
		"settings": {
			"number_of_shards": 1,
			"number_of_replicas": 0
		},
		"mappings": {
			"dynamic_templates": [
				{
					"strings_as_text": {
						"match_mapping_type": "string",
						"mapping": {"type": "text"}
					}
				}
			]
		}
	}`

	res, err = e.client.Indices.Create(
		name,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return fmt.Errorf("create index: %s: %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return fmt.Errorf("create index: unexpected status %s", res.Status())
	}

	e.logger.Info("elasticsearch index created", "index", name)
	return nil
}

// Upsert adds or overwrites a single document.
func (e *Engine) Upsert(ctx context.Context, kind string, id int64, doc map[string]any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: marshal document: %w", err)
	}

	res, err := e.client.Index(
		e.indexName(kind),
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(strconv.FormatInt(id, 10)),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return fmt.Errorf("elasticsearch upsert: %s: %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return fmt.Errorf("elasticsearch upsert: unexpected status %s", res.Status())
	}

	e.logger.Debug("indexed document", "kind", kind, "id", id)
	return nil
}

// Delete removes a document by its ID.
// It does not return an error if the document does not exist (404 is ignored).
func (e *Engine) Delete(ctx context.Context, kind string, id int64) error {
	res, err := e.client.Delete(
		e.indexName(kind),
		strconv.FormatInt(id, 10),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// Ignore 404, the document might not exist.
	if res.IsError() && res.StatusCode != 404 {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return fmt.Errorf("elasticsearch delete: %s: %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return fmt.Errorf("elasticsearch delete: unexpected status %s", res.Status())
	}

	e.logger.Debug("deleted document", "kind", kind, "id", id)
	return nil
}

// Search executes a multi-field match query and returns the hit IDs in
// relevance order plus the total match count.
func (e *Engine) Search(ctx context.Context, kind, query string, fields []string, from, size int) ([]int64, int, error) {
	var matchClause any
	if query != "" {
		matchClause = map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": fields,
			},
		}
	} else {
		matchClause = map[string]any{
			"match_all": map[string]any{},
		}
	}

	esQuery := map[string]any{
		"query":            matchClause,
		"from":             from,
		"size":             size,
		"_source":          false,
		"track_total_hits": true,
	}

	data, err := json.Marshal(esQuery)
	if err != nil {
		return nil, 0, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName(kind)),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return nil, 0, fmt.Errorf("elasticsearch search: %s: %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return nil, 0, fmt.Errorf("elasticsearch search: unexpected status %s", res.Status())
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, 0, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	ids := make([]int64, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("elasticsearch search: non-integer document id %q: %w", hit.ID, err)
		}
		ids = append(ids, id)
	}

	return ids, esResp.Hits.Total.Value, nil
}

// BulkUpsert adds or overwrites multiple documents of one kind using the
// bulk NDJSON API.
func (e *Engine) BulkUpsert(ctx context.Context, kind string, docs []engine.Document) error {
	if len(docs) == 0 {
		return nil
	}

	name := e.indexName(kind)

	var buf bytes.Buffer
	for i := range docs {
		// Action line.
		action := map[string]any{
			"index": map[string]any{
				"_index": name,
				"_id":    strconv.FormatInt(docs[i].ID, 10),
			},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk upsert: encode action: %w", err)
		}

		// Document line.
		if err := json.NewEncoder(&buf).Encode(docs[i].Fields); err != nil {
			return fmt.Errorf("elasticsearch bulk upsert: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(name),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk upsert: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return fmt.Errorf("elasticsearch bulk upsert: %s: %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return fmt.Errorf("elasticsearch bulk upsert: unexpected status %s", res.Status())
	}

	// Parse the bulk response to check for per-item errors.
	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk upsert: decode response: %w", err)
	}

	if bulkResp.Errors {
		var errMsgs []string
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				errMsgs = append(errMsgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk upsert: partial errors: %s", strings.Join(errMsgs, "; "))
	}

	e.logger.Info("bulk indexed documents", "kind", kind, "count", len(docs))
	return nil
}
