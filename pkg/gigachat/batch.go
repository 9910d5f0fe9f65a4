package gigachat

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/tidwall/gjson"

	"gigachat/internal/llmclient"
	"gigachat/pkg/core"
)

const (
	batchesEndpoint  = "batches"
	maxBatchLineSize = 16 * 1024 * 1024
)

var (
	errMissingOutputFile = errors.New("completed batch has no output_file_id")
	errAmbiguousLine     = errors.New("batch output line must have exactly one non-null result or error")
)

// BatchBuilder queues chat requests for asynchronous execution.
type BatchBuilder struct {
	client   *Client
	requests []core.ChatRequest
}

// Batch starts an asynchronous batch of chat completions.
func (c *Client) Batch() *BatchBuilder {
	return &BatchBuilder{client: c}
}

// WithRequest queues one request.
func (b *BatchBuilder) WithRequest(req core.ChatRequest) *BatchBuilder {
	b.requests = append(b.requests, req)
	return b
}

// WithRequests queues several requests, keeping their order.
func (b *BatchBuilder) WithRequests(reqs ...core.ChatRequest) *BatchBuilder {
	b.requests = append(b.requests, reqs...)
	return b
}

// Len returns the number of queued requests.
func (b *BatchBuilder) Len() int {
	return len(b.requests)
}

type serializedBatch struct {
	data []byte
	err  error
}

// Execute encodes the queued requests as JSONL and submits them. Large
// batches are encoded off the caller's goroutine; the wait honours ctx.
func (b *BatchBuilder) Execute(ctx context.Context) (*BatchHandler, error) {
	if len(b.requests) == 0 {
		return nil, core.NewInvalidRequestError("batch has no requests", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}

	reqs := slices.Clone(b.requests)
	done := make(chan serializedBatch, 1)
	go func() {
		data, err := encodeJSONL(reqs)
		done <- serializedBatch{data: data, err: err}
	}()

	var batch serializedBatch
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("batch: %w", ctx.Err())
	case batch = <-done:
	}
	if batch.err != nil {
		return nil, batch.err
	}
	b.client.logger.Debug("batch serialized", "requests", len(reqs), "bytes", len(batch.data))

	var created core.BatchCreateResponse
	err := b.client.exec.Do(ctx, llmclient.Request{
		Method:      http.MethodPost,
		Endpoint:    batchesEndpoint,
		Query:       url.Values{"method": {string(core.BatchMethodChatCompletions)}},
		RawBody:     batch.data,
		ContentType: "application/octet-stream",
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("batch submit: %w", err)
	}
	if created.ID == "" {
		return nil, core.NewParseResponseError("batch create response has no id", nil, nil)
	}

	b.client.logger.Debug("batch submitted", "batch_id", created.ID, "total", created.Counts.Total)
	return &BatchHandler{client: b.client, id: created.ID, created: &created}, nil
}

// encodeJSONL writes one request object per line.
func encodeJSONL(reqs []core.ChatRequest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i := range reqs {
		if err := enc.Encode(&reqs[i]); err != nil {
			return nil, core.NewBatchSerializationError(i, err)
		}
	}
	return buf.Bytes(), nil
}

// BatchHandler tracks a submitted batch. It keeps no state beyond the id;
// every Check asks the service.
type BatchHandler struct {
	client  *Client
	id      string
	created *core.BatchCreateResponse
}

// BatchHandler reattaches to a batch submitted earlier.
func (c *Client) BatchHandler(id string) *BatchHandler {
	return &BatchHandler{client: c, id: id}
}

// ID returns the batch identifier.
func (h *BatchHandler) ID() string {
	return h.id
}

// Created returns the submission response, or nil for a reattached handler.
func (h *BatchHandler) Created() *core.BatchCreateResponse {
	return h.created
}

// Status fetches the raw batch status.
func (h *BatchHandler) Status(ctx context.Context) (*core.BatchStatusResponse, error) {
	var status core.BatchStatusResponse
	err := h.client.exec.DoWith(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: batchesEndpoint,
		Query:    url.Values{"batch_id": {h.id}},
	}, func(body []byte) error {
		if err := json.Unmarshal(body, &status); err != nil {
			return err
		}
		switch status.Status {
		case core.BatchStatusCreated, core.BatchStatusInProgress, core.BatchStatusCompleted:
			return nil
		}
		return fmt.Errorf("unknown batch status %q", status.Status)
	})
	if err != nil {
		return nil, fmt.Errorf("batch %s: check: %w", h.id, err)
	}
	return &status, nil
}

// Check reports the batch progress. A completed batch is returned with its
// results, fetched from the output file.
func (h *BatchHandler) Check(ctx context.Context) (core.BatchCheckResult, error) {
	status, err := h.Status(ctx)
	if err != nil {
		return nil, err
	}

	switch status.Status {
	case core.BatchStatusCreated:
		return &core.BatchPending{}, nil
	case core.BatchStatusInProgress:
		counts := status.RequestCounts
		return &core.BatchInProgress{Ready: counts.Completed + counts.Failed, Total: counts.Total}, nil
	}

	if status.OutputFileID == "" {
		raw, _ := json.Marshal(status)
		return nil, fmt.Errorf("batch %s: %w", h.id,
			core.NewParseResponseError("completed batch without output file", raw, errMissingOutputFile))
	}
	results, err := h.Results(ctx, status.OutputFileID)
	if err != nil {
		return nil, err
	}
	return &core.BatchSuccess{Responses: results}, nil
}

// Results downloads and decodes a batch output file.
func (h *BatchHandler) Results(ctx context.Context, outputFileID string) ([]core.BatchItemResult, error) {
	if outputFileID == "" {
		return nil, core.NewInvalidRequestError("output file id is required", nil)
	}

	var results []core.BatchItemResult
	err := h.client.exec.DoWith(ctx, llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: "files/" + url.PathEscape(outputFileID) + "/content",
		Route:    "files/{id}/content",
		Headers:  map[string]string{"Accept": "*/*"},
	}, func(body []byte) error {
		var err error
		results, err = parseBatchOutput(body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("batch %s: results: %w", h.id, err)
	}
	return results, nil
}

// parseBatchOutput decodes the JSONL output file. Results follow the keys
// when every line has one, otherwise the line order.
func parseBatchOutput(raw []byte) ([]core.BatchItemResult, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), maxBatchLineSize)

	type keyed struct {
		key    core.BatchKey
		result core.BatchItemResult
	}
	var items []keyed
	allKeyed := true

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if hasValue(line, "result") == hasValue(line, "error") {
			return nil, fmt.Errorf("line %d: %w", lineNo, errAmbiguousLine)
		}

		var out core.BatchOutputLine
		if err := json.Unmarshal(line, &out); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		item := keyed{result: core.BatchItemResult{Response: out.Result, Err: out.Error}}
		if out.Key != nil {
			item.key = *out.Key
		} else {
			allKeyed = false
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if allKeyed {
		slices.SortStableFunc(items, func(a, b keyed) int {
			return cmp.Compare(a.key, b.key)
		})
	}

	results := make([]core.BatchItemResult, len(items))
	for i, it := range items {
		results[i] = it.result
	}
	return results, nil
}

// hasValue reports whether path holds a non-null value; output files often
// carry an explicit "error": null on success lines.
func hasValue(line []byte, path string) bool {
	r := gjson.GetBytes(line, path)
	return r.Exists() && r.Type != gjson.Null
}
