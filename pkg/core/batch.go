package core

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// BatchMethod is the endpoint a batch job runs its requests against
type BatchMethod string

const (
	BatchMethodChatCompletions BatchMethod = "chat_completions"
	BatchMethodEmbedder        BatchMethod = "embedder"
)

// BatchStatus is the lifecycle state reported by the service
type BatchStatus string

const (
	BatchStatusCreated    BatchStatus = "created"
	BatchStatusInProgress BatchStatus = "in_progress"
	BatchStatusCompleted  BatchStatus = "completed"
)

// BatchCreateCounts is returned when a batch is accepted.
type BatchCreateCounts struct {
	Total int `json:"total"`
}

// BatchCreateResponse is returned by POST batches?method=...
type BatchCreateResponse struct {
	ID        string            `json:"id"`
	Method    BatchMethod       `json:"method"`
	Counts    BatchCreateCounts `json:"counts"`
	Status    BatchStatus       `json:"status"`
	CreatedAt UnixMilli         `json:"created_at"`
	UpdatedAt UnixMilli         `json:"updated_at"`
}

// BatchRequestCounts is the aggregate progress of a batch.
type BatchRequestCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// BatchStatusResponse is returned by POST batches?batch_id=...
type BatchStatusResponse struct {
	ID            string             `json:"id"`
	Method        BatchMethod        `json:"method"`
	RequestCounts BatchRequestCounts `json:"request_counts"`
	Status        BatchStatus        `json:"status"`
	OutputFileID  string             `json:"output_file_id,omitempty"`
	CreatedAt     UnixMilli          `json:"created_at"`
	UpdatedAt     UnixMilli          `json:"updated_at"`
}

// BatchKey correlates an output line with its request. The service sends it
// as a decimal string; plain numbers are accepted too.
type BatchKey int

// MarshalJSON implements json.Marshaler
func (k BatchKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(k)))
}

// UnmarshalJSON implements json.Unmarshaler
func (k *BatchKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("batch key %q: %w", s, err)
		}
		*k = BatchKey(v)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("batch key must be a string or a number: %w", err)
	}
	*k = BatchKey(n)
	return nil
}

// BatchItemError is the failure of one request inside a batch.
type BatchItemError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *BatchItemError) Error() string {
	return fmt.Sprintf("batch item failed with status %d: %s", e.Status, e.Message)
}

// BatchOutputLine is one line of a completed batch output file.
// Exactly one of Result and Error is set.
type BatchOutputLine struct {
	Key    *BatchKey       `json:"key,omitempty"`
	Result *ChatResponse   `json:"result,omitempty"`
	Error  *BatchItemError `json:"error,omitempty"`
}

// BatchItemResult is the outcome of one submitted request.
type BatchItemResult struct {
	Response *ChatResponse
	Err      *BatchItemError
}

// OK reports whether the item succeeded.
func (r BatchItemResult) OK() bool {
	return r.Err == nil && r.Response != nil
}

// Result returns the response or the item error.
func (r BatchItemResult) Result() (*ChatResponse, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Response, nil
}

// BatchCheckResult is the caller-facing outcome of polling a batch:
// one of *BatchPending, *BatchInProgress or *BatchSuccess.
type BatchCheckResult interface {
	batchCheckResult()
}

// BatchPending means the job was accepted but not started.
type BatchPending struct{}

// BatchInProgress reports how many items are no longer outstanding
// (Ready counts both completed and failed items).
type BatchInProgress struct {
	Ready int
	Total int
}

// BatchSuccess carries one result per submitted request, in submission order.
// Individual items may have failed.
type BatchSuccess struct {
	Responses []BatchItemResult
}

func (*BatchPending) batchCheckResult()    {}
func (*BatchInProgress) batchCheckResult() {}
func (*BatchSuccess) batchCheckResult()    {}

// Failed counts the failed items.
func (s *BatchSuccess) Failed() int {
	n := 0
	for _, r := range s.Responses {
		if !r.OK() {
			n++
		}
	}
	return n
}
