// Package sse decodes Server-Sent Events bodies into typed fragments.
//
// A stream ends successfully at the "[DONE]" data sentinel or at EOF.
// A payload that does not decode ends it with a stream_deserialization_failed
// error; broken framing ends it with event_parse_failed.
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"gigachat/pkg/core"
)

// DoneSentinel is the data payload that terminates a stream.
const DoneSentinel = "[DONE]"

const (
	defaultBufferSize = 64 * 1024
	defaultMaxLine    = 4 * 1024 * 1024
)

var (
	errLineTooLong = errors.New("event stream line exceeds limit")
	utf8BOM        = []byte{0xEF, 0xBB, 0xBF}
)

type config struct {
	maxLine int
	logger  *slog.Logger
}

// Option configures a Stream.
type Option func(*config)

// WithMaxLineSize limits the length of a single line.
func WithMaxLineSize(n int) Option {
	return func(c *config) { c.maxLine = n }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Stream is a pull-based sequence of decoded events. It is not safe for
// concurrent use except for Close, which may be called from any goroutine.
type Stream[T any] struct {
	body   io.ReadCloser
	reader *bufio.Reader
	cfg    config

	line        []byte
	data        []byte
	firstLine   bool
	lastEventID string

	current T
	err     error
	done    bool
	count   int

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewStream starts decoding body. The stream owns body and closes it when
// it ends or when Close is called.
func NewStream[T any](body io.ReadCloser, opts ...Option) *Stream[T] {
	cfg := config{maxLine: defaultMaxLine, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Stream[T]{
		body:      body,
		reader:    bufio.NewReaderSize(body, defaultBufferSize),
		cfg:       cfg,
		firstLine: true,
	}
}

// Next advances to the next fragment. It returns false once the stream has
// ended; Err then reports whether it ended with an error.
func (s *Stream[T]) Next() bool {
	if s.done {
		return false
	}
	if s.closed.Load() {
		s.finish(nil)
		return false
	}

	payload, ok, err := s.nextEvent()
	switch {
	case err != nil:
		if s.closed.Load() {
			s.finish(nil)
		} else {
			s.finish(err)
		}
		return false
	case !ok:
		s.finish(nil)
		return false
	case payload == DoneSentinel:
		s.finish(nil)
		return false
	}

	var v T
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		s.finish(core.NewStreamDeserializationError(payload, err))
		return false
	}
	s.current = v
	s.count++
	return true
}

// Current returns the fragment produced by the last successful Next.
func (s *Stream[T]) Current() T {
	return s.current
}

// Err returns the error that ended the stream, or nil.
func (s *Stream[T]) Err() error {
	return s.err
}

// LastEventID returns the most recent id field seen.
func (s *Stream[T]) LastEventID() string {
	return s.lastEventID
}

// Close stops the stream and closes the body without draining it.
func (s *Stream[T]) Close() error {
	s.closed.Store(true)
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

// All returns an iterator over the remaining fragments. A terminal error is
// yielded once as the last pair. Breaking out of the loop closes the stream.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer func() { _ = s.Close() }()
		for s.Next() {
			if !yield(s.current, nil) {
				return
			}
		}
		if s.err != nil {
			var zero T
			yield(zero, s.err)
		}
	}
}

func (s *Stream[T]) finish(err error) {
	s.done = true
	s.err = err
	var zero T
	s.current = zero
	_ = s.Close()
	if err != nil {
		s.cfg.logger.Debug("event stream failed", "events", s.count, "error", err)
		return
	}
	s.cfg.logger.Debug("event stream finished", "events", s.count)
}

// nextEvent reads lines until an event with data is dispatched.
// ok is false at EOF with nothing left to dispatch.
func (s *Stream[T]) nextEvent() (payload string, ok bool, err error) {
	s.data = s.data[:0]
	hasData := false

	for {
		line, err := s.readLine()
		if err == io.EOF {
			if hasData && len(s.data) > 0 {
				return string(s.data), true, nil
			}
			return "", false, nil
		}
		if err != nil {
			return "", false, core.NewEventParseError("failed to read event stream", err)
		}

		if len(line) == 0 {
			if hasData && len(s.data) > 0 {
				return string(s.data), true, nil
			}
			s.data = s.data[:0]
			hasData = false
			continue
		}
		if line[0] == ':' {
			continue
		}

		name, value, found := bytes.Cut(line, []byte(":"))
		if found {
			value = bytes.TrimPrefix(value, []byte(" "))
		}
		if !utf8.Valid(name) {
			return "", false, core.NewEventParseError("invalid utf-8 in field name", nil)
		}

		switch string(name) {
		case "data":
			if hasData {
				s.data = append(s.data, '\n')
			}
			s.data = append(s.data, value...)
			hasData = true
		case "id":
			if bytes.IndexByte(value, 0) < 0 {
				s.lastEventID = string(value)
			}
		case "event", "retry":
		default:
			if !found {
				return "", false, core.NewEventParseError("malformed event stream line "+quote(line), nil)
			}
		}
	}
}

// readLine returns the next line without its terminator. The slice is only
// valid until the next call.
func (s *Stream[T]) readLine() ([]byte, error) {
	s.line = s.line[:0]
	for {
		chunk, err := s.reader.ReadSlice('\n')
		s.line = append(s.line, chunk...)
		if len(s.line) > s.cfg.maxLine {
			return nil, errLineTooLong
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil && (err != io.EOF || len(s.line) == 0) {
			return nil, err
		}
		break
	}

	line := bytes.TrimSuffix(s.line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if s.firstLine {
		s.firstLine = false
		line = bytes.TrimPrefix(line, utf8BOM)
	}
	return line, nil
}

func quote(b []byte) string {
	const limit = 64
	if len(b) > limit {
		b = b[:limit]
	}
	q, _ := json.Marshal(string(b))
	return string(q)
}
