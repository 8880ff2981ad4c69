package llm

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	sseDataPrefix = "data: "
	sseDoneMarker = "[DONE]"
)

type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error json.RawMessage `json:"error"`
}

// DecodeStream reads newline-delimited SSE frames from r and sends each text
// delta on out, in arrival order. Frames without the data marker and frames
// with malformed JSON are skipped. A [DONE] payload ends the stream cleanly;
// a frame carrying an error object fails the whole call.
//
// The caller owns out; DecodeStream never closes it.
func DecodeStream(r io.Reader, out chan<- StreamChunk) error {
	scanner := bufio.NewScanner(r)
	// Deltas are small but a single frame can carry a long content field.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}

		payload := strings.TrimSpace(line[len(sseDataPrefix):])
		if payload == sseDoneMarker {
			return nil
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			continue
		}

		if len(frame.Error) > 0 && string(frame.Error) != "null" {
			return fmt.Errorf("upstream error in stream: %s", frame.Error)
		}

		if len(frame.Choices) > 0 {
			if content := frame.Choices[0].Delta.Content; content != "" {
				out <- StreamChunk{Content: content}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
