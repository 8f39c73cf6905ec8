package partners

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Gateway performs the remote calls for one entity kind. Implementations must
// not touch any local state.
type Gateway interface {
	List(ctx context.Context) ([]Record, error)
	Create(ctx context.Context, draft Draft) (Record, error)
	Update(ctx context.Context, record Record) (Record, error)
	Delete(ctx context.Context, id int64) error
}

// HTTPGateway talks to the {base}/api/v1/{segment} collection endpoints.
// Every call is a single attempt.
type HTTPGateway struct {
	baseURL    string
	schema     Schema
	httpClient *http.Client
}

// NewHTTPGateway constructs a gateway. A nil client falls back to a client
// without timeout.
func NewHTTPGateway(baseURL string, schema Schema, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		schema:     schema,
		httpClient: client,
	}
}

// Schema returns the schema the gateway encodes with.
func (g *HTTPGateway) Schema() Schema {
	return g.schema
}

func (g *HTTPGateway) endpoint(suffix string) string {
	return fmt.Sprintf("%s/api/v1/%s/%s", g.baseURL, g.schema.Segment, suffix)
}

// List fetches the whole collection.
func (g *HTTPGateway) List(ctx context.Context) ([]Record, error) {
	body, err := g.do(ctx, "list", http.MethodGet, g.endpoint("get"), nil)
	if err != nil {
		return nil, err
	}
	records, err := g.schema.DecodeRecords(body)
	if err != nil {
		return nil, g.fail("list", 0, fmt.Errorf("decode: %w", err))
	}
	return records, nil
}

// Create posts a draft and returns the record with its canonical id.
func (g *HTTPGateway) Create(ctx context.Context, draft Draft) (Record, error) {
	payload, err := g.schema.EncodeDraft(draft)
	if err != nil {
		return Record{}, g.fail("create", 0, err)
	}
	body, err := g.do(ctx, "create", http.MethodPost, g.endpoint("add"), payload)
	if err != nil {
		return Record{}, err
	}
	record, err := g.schema.DecodeRecord(body)
	if err != nil {
		return Record{}, g.fail("create", 0, fmt.Errorf("decode: %w", err))
	}
	if record.IsNew() {
		return Record{}, g.fail("create", 0, errors.New("response carries no id"))
	}
	return record, nil
}

// Update replaces the remote record with the same id.
func (g *HTTPGateway) Update(ctx context.Context, record Record) (Record, error) {
	payload, err := g.schema.EncodeDraft(record.Draft())
	if err != nil {
		return Record{}, g.fail("update", 0, err)
	}
	body, err := g.do(ctx, "update", http.MethodPut, g.endpoint(strconv.FormatInt(record.ID, 10)), payload)
	if err != nil {
		return Record{}, err
	}
	updated, err := g.schema.DecodeRecord(body)
	if err != nil {
		return Record{}, g.fail("update", 0, fmt.Errorf("decode: %w", err))
	}
	if updated.ID == 0 {
		updated.ID = record.ID
	}
	return updated, nil
}

// Delete removes the remote record.
func (g *HTTPGateway) Delete(ctx context.Context, id int64) error {
	_, err := g.do(ctx, "delete", http.MethodDelete, g.endpoint(strconv.FormatInt(id, 10)), nil)
	return err
}

func (g *HTTPGateway) do(ctx context.Context, op, method, url string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, g.fail(op, 0, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, g.fail(op, 0, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, g.fail(op, resp.StatusCode, nil)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, g.fail(op, resp.StatusCode, err)
	}
	return body, nil
}

func (g *HTTPGateway) fail(op string, status int, err error) error {
	return &TransportError{Op: op, Kind: g.schema.Kind, Status: status, Err: err}
}
