package sse

import (
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigachat/pkg/core"
)

type fragment struct {
	N    int    `json:"n"`
	Text string `json:"text"`
}

type trackingBody struct {
	io.Reader
	closed atomic.Int32
}

func (b *trackingBody) Close() error {
	b.closed.Add(1)
	return nil
}

func newBody(s string) *trackingBody {
	return &trackingBody{Reader: strings.NewReader(s)}
}

func collect(t *testing.T, s *Stream[fragment]) []fragment {
	t.Helper()
	var out []fragment
	for s.Next() {
		out = append(out, s.Current())
	}
	return out
}

func TestStream_EndsAtSentinel(t *testing.T) {
	body := newBody("data: {\"n\":1}\n\ndata: {\"n\":2}\n\ndata: [DONE]\n\ndata: {\"n\":3}\n\n")
	s := NewStream[fragment](body)

	got := collect(t, s)
	require.NoError(t, s.Err())
	assert.Equal(t, []fragment{{N: 1}, {N: 2}}, got)
	assert.Equal(t, int32(1), body.closed.Load())
	assert.False(t, s.Next(), "no items after the sentinel")
}

func TestStream_MalformedPayload(t *testing.T) {
	body := newBody("data: {\"n\":1}\n\ndata: {\"n\":2}\n\ndata: {not json\n\ndata: {\"n\":4}\n\n")
	s := NewStream[fragment](body)

	got := collect(t, s)
	assert.Equal(t, []fragment{{N: 1}, {N: 2}}, got)

	err := s.Err()
	require.ErrorIs(t, err, core.ErrStreamDeserialization)
	var gerr *core.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "{not json", gerr.Body)

	assert.False(t, s.Next())
	assert.Equal(t, int32(1), body.closed.Load())
}

func TestStream_Framing(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []fragment
	}{
		{
			name:  "crlf line endings",
			input: "data: {\"n\":1}\r\n\r\ndata: {\"n\":2}\r\n\r\n",
			want:  []fragment{{N: 1}, {N: 2}},
		},
		{
			name:  "multi-line data joined with newline",
			input: "data: {\"n\":1,\ndata: \"text\":\"a\"}\n\n",
			want:  []fragment{{N: 1, Text: "a"}},
		},
		{
			name:  "comments and other fields ignored",
			input: ": keep-alive\nevent: message\nid: 7\nretry: 1000\ndata: {\"n\":1}\n\n",
			want:  []fragment{{N: 1}},
		},
		{
			name:  "no space after colon",
			input: "data:{\"n\":5}\n\n",
			want:  []fragment{{N: 5}},
		},
		{
			name:  "events without data are skipped",
			input: "event: ping\n\n\n\ndata: {\"n\":1}\n\n",
			want:  []fragment{{N: 1}},
		},
		{
			name:  "trailing event flushed at eof",
			input: "data: {\"n\":1}\n\ndata: {\"n\":2}",
			want:  []fragment{{N: 1}, {N: 2}},
		},
		{
			name:  "leading byte order mark",
			input: "\xEF\xBB\xBFdata: {\"n\":1}\n\n",
			want:  []fragment{{N: 1}},
		},
		{
			name:  "unknown field with colon ignored",
			input: "foo: bar\ndata: {\"n\":1}\n\n",
			want:  []fragment{{N: 1}},
		},
		{
			name:  "empty stream",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStream[fragment](newBody(tt.input))
			got := collect(t, s)
			require.NoError(t, s.Err())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStream_FramingErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  []Option
	}{
		{"line without colon", "data: {\"n\":1}\n\ngarbage line\n\n", nil},
		{"invalid utf-8 field name", "\xff\xfe: x\n\n", nil},
		{"oversize line", "data: " + strings.Repeat("x", 200) + "\n\n", []Option{WithMaxLineSize(64)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := newBody(tt.input)
			s := NewStream[fragment](body, tt.opts...)
			_ = collect(t, s)
			assert.ErrorIs(t, s.Err(), core.ErrEventParse)
			assert.Equal(t, int32(1), body.closed.Load())
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestStream_ReadErrorIsEventParseFailure(t *testing.T) {
	body := &trackingBody{Reader: io.MultiReader(strings.NewReader("data: {\"n\":1}\n\n"), failingReader{})}
	s := NewStream[fragment](body)

	got := collect(t, s)
	assert.Equal(t, []fragment{{N: 1}}, got)
	assert.ErrorIs(t, s.Err(), core.ErrEventParse)
}

func TestStream_CloseStopsWithoutError(t *testing.T) {
	body := newBody("data: {\"n\":1}\n\ndata: {\"n\":2}\n\ndata: [DONE]\n\n")
	s := NewStream[fragment](body)

	require.True(t, s.Next())
	require.NoError(t, s.Close())
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
	assert.Equal(t, int32(1), body.closed.Load())
}

func TestStream_All(t *testing.T) {
	t.Run("break closes the body", func(t *testing.T) {
		body := newBody("data: {\"n\":1}\n\ndata: {\"n\":2}\n\ndata: {\"n\":3}\n\n")
		s := NewStream[fragment](body)

		var seen []int
		for f, err := range s.All() {
			require.NoError(t, err)
			seen = append(seen, f.N)
			if f.N == 2 {
				break
			}
		}
		assert.Equal(t, []int{1, 2}, seen)
		assert.Equal(t, int32(1), body.closed.Load())
	})

	t.Run("terminal error yielded last", func(t *testing.T) {
		s := NewStream[fragment](newBody("data: {\"n\":1}\n\ndata: nope\n\n"))

		var items int
		var last error
		for _, err := range s.All() {
			if err != nil {
				last = err
				continue
			}
			items++
		}
		assert.Equal(t, 1, items)
		assert.ErrorIs(t, last, core.ErrStreamDeserialization)
	})
}

func TestStream_LastEventID(t *testing.T) {
	s := NewStream[fragment](newBody("id: 42\ndata: {\"n\":1}\n\n"))
	require.True(t, s.Next())
	assert.Equal(t, "42", s.LastEventID())
}
