package backend

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// The assistant API streams its reply as prefixed lines, one segment per
// line, in the form "<prefix>:<json payload>". Only a few prefixes matter
// to us:
//
//	0: text delta (JSON string), concatenated into the answer
//	2:, 9:, a: tool invocation payloads, not part of the answer
//	8: message annotations carrying the thread token
//	d: done marker, terminates the stream
//
// Unknown prefixes and malformed payloads are skipped; a truncated stream
// still yields the text received so far.

// maxStreamLine bounds a single stream segment.
const maxStreamLine = 1 << 20

// streamReply is the parsed outcome of one assistant response body.
type streamReply struct {
	Text        string
	ThreadToken string
}

// parseStream consumes an assistant response body line by line.
func parseStream(r io.Reader) (*streamReply, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	var text strings.Builder
	reply := &streamReply{}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		prefix, payload, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		switch prefix {
		case "0":
			var chunk string
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			text.WriteString(chunk)

		case "8":
			if token := threadTokenFrom(payload); token != "" {
				reply.ThreadToken = token
			}

		case "d":
			reply.Text = text.String()
			return reply, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading assistant stream: %w", err)
	}

	reply.Text = text.String()
	return reply, nil
}

// threadTokenFrom extracts the thread token from an annotation payload,
// a JSON array of objects.
func threadTokenFrom(payload string) string {
	var annotations []map[string]any
	if err := json.Unmarshal([]byte(payload), &annotations); err != nil {
		return ""
	}

	for _, a := range annotations {
		for _, key := range []string{"threadId", "thread_id"} {
			if v, ok := a[key].(string); ok && v != "" {
				return v
			}
		}
	}
	return ""
}
