package keshavai

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/keshav-ai/keshavai/observability"
)

const (
	sseDataPrefix  = "data: "
	sseDoneMessage = "data: [DONE]"
)

// streamChunk is the JSON payload of one SSE data frame.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// DeltaFunc is invoked once per non-empty content delta, in arrival
// order. delta is the new fragment, full the accumulated assistant
// content so far. Returning an error aborts the stream.
type DeltaFunc func(delta, full string) error

// StreamReader converts a server-sent-event byte stream into ordered
// content deltas. Frame boundaries need not align with transport-level
// chunk boundaries; partial lines are kept buffered until the next
// read completes them.
type StreamReader struct {
	reader      *bufio.Reader
	accumulator strings.Builder
	logger      observability.Logger
}

// NewStreamReader creates a stream reader over r.
func NewStreamReader(r io.Reader, logger observability.Logger) *StreamReader {
	if logger == nil {
		logger = observability.NewNullLogger()
	}
	return &StreamReader{
		reader: bufio.NewReader(r),
		logger: logger,
	}
}

// Text returns the accumulated content so far.
func (s *StreamReader) Text() string {
	return s.accumulator.String()
}

// Process consumes the stream until the [DONE] sentinel, end of input,
// an apply error, or context cancellation, calling apply for every
// content delta. It returns the full accumulated content.
//
// A read failure after at least one delta has been applied is reported
// as a *StreamInterruptedError carrying the partial content; the caller
// keeps what was applied. A read failure before any delta, and any
// error returned by apply, are returned as-is so the caller can roll
// back the turn.
func (s *StreamReader) Process(ctx context.Context, apply DeltaFunc) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return s.Text(), s.failure(ctx.Err())
		default:
		}

		line, err := s.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return s.Text(), s.failure(err)
		}
		atEOF := err == io.EOF

		line = strings.TrimRight(line, "\r\n")
		if line == sseDoneMessage {
			return s.Text(), nil
		}
		if line != "" && strings.HasPrefix(line, sseDataPrefix) {
			if applyErr := s.handleFrame(line, apply); applyErr != nil {
				return s.Text(), applyErr
			}
		}

		if atEOF {
			return s.Text(), nil
		}
	}
}

// handleFrame decodes one data frame and applies its delta. A frame
// that fails to parse is logged and skipped; the stream continues.
func (s *StreamReader) handleFrame(line string, apply DeltaFunc) error {
	payload := strings.TrimPrefix(line, sseDataPrefix)

	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		s.logger.WithErr(err).Warn("skipping malformed stream frame")
		return nil
	}

	content := ""
	if len(chunk.Choices) > 0 {
		content = chunk.Choices[0].Delta.Content
	}
	if content == "" {
		return nil
	}

	s.accumulator.WriteString(content)
	return apply(content, s.accumulator.String())
}

func (s *StreamReader) failure(err error) error {
	if s.accumulator.Len() > 0 {
		return &StreamInterruptedError{Err: err, Partial: s.Text()}
	}
	return err
}
