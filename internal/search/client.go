// Package search wraps the document store the collections are loaded into.
package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/segmentio/encoding/json"
)

const defaultTimeout = 60 * time.Second

// ErrIndexNotFound is returned when deleting an index that does not exist.
var ErrIndexNotFound = errors.New("index not found")

// ResponseError is a non-2xx reply from the store.
type ResponseError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s failed: HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if sent again.
func (e *ResponseError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config holds connection settings.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	Timeout   time.Duration
}

// Client talks to an Elasticsearch-compatible cluster.
type Client struct {
	es *elasticsearch.Client
}

// NewClient creates a client. Nothing is sent until the first call.
func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			ResponseHeaderTimeout: timeout,
		},
		// Retries are done per batch by the loader.
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}
	return &Client{es: es}, nil
}

// CreateIndex creates name with the given settings and mappings.
func (c *Client) CreateIndex(ctx context.Context, name string, spec IndexSpec) error {
	body, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encode index spec: %w", err)
	}

	res, err := c.es.Indices.Create(name,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	defer res.Body.Close()

	return checkResponse("create index "+name, res)
}

// DeleteIndex removes name. A missing index yields ErrIndexNotFound.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	res, err := c.es.Indices.Delete([]string{name},
		c.es.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("delete index %s: %w", name, ErrIndexNotFound)
	}
	return checkResponse("delete index "+name, res)
}

// BulkResult summarises one bulk request.
type BulkResult struct {
	Indexed int
	Failed  int
	// FirstError describes the first rejected document, if any.
	FirstError string
}

// Bulk indexes docs into name in one request. offset is the position of
// docs[0] in its collection; documents without an id are keyed by position
// so a resubmitted batch overwrites instead of duplicating.
func (c *Client) Bulk(ctx context.Context, name string, offset int, docs []json.RawMessage) (BulkResult, error) {
	body, err := bulkBody(name, offset, docs)
	if err != nil {
		return BulkResult{}, err
	}

	res, err := c.es.Bulk(bytes.NewReader(body),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(name),
	)
	if err != nil {
		return BulkResult{}, fmt.Errorf("bulk %s: %w", name, err)
	}
	defer res.Body.Close()

	if err := checkResponse("bulk "+name, res); err != nil {
		return BulkResult{}, err
	}

	var reply bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		return BulkResult{}, fmt.Errorf("decode bulk response: %w", err)
	}
	return reply.result(), nil
}

// ClusterHealth returns the cluster status (green, yellow or red) and how
// long the call took.
func (c *Client) ClusterHealth(ctx context.Context) (Health, error) {
	start := time.Now()
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return Health{}, fmt.Errorf("cluster health: %w", err)
	}
	defer res.Body.Close()

	if err := checkResponse("cluster health", res); err != nil {
		return Health{}, err
	}

	var h Health
	if err := json.NewDecoder(res.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("decode cluster health: %w", err)
	}
	h.Took = time.Since(start)
	return h, nil
}

// bulkBody builds the NDJSON payload: an action line then the document.
func bulkBody(name string, offset int, docs []json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	for i, doc := range docs {
		action, err := json.Marshal(map[string]any{
			"index": map[string]string{"_index": name, "_id": documentID(doc, offset+i)},
		})
		if err != nil {
			return nil, err
		}
		buf.Write(action)
		buf.WriteByte('\n')
		compact := bytes.TrimSpace(doc)
		if bytes.ContainsAny(compact, "\n\r") {
			var tmp bytes.Buffer
			if err := json.Compact(&tmp, compact); err != nil {
				return nil, fmt.Errorf("compact document: %w", err)
			}
			compact = tmp.Bytes()
		}
		buf.Write(compact)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// documentID is the document's own id, or its position in the collection
// for records that have none (addresses, fines, reserves).
func documentID(doc json.RawMessage, pos int) string {
	var keyed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(doc, &keyed); err == nil && keyed.ID != "" {
		return keyed.ID
	}
	return strconv.Itoa(pos)
}

func checkResponse(op string, res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return &ResponseError{Operation: op, StatusCode: res.StatusCode, Body: string(body)}
}
