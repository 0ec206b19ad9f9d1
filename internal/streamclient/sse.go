package streamclient

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"chat-stream/backend/internal/model"
)

const maxEventSize = 1 << 20

// readEvents decodes a text/event-stream body and calls fn for every valid
// event until fn returns false or the body ends. Payloads that do not decode
// are logged and skipped.
func readEvents(r io.Reader, fn func(model.StreamEvent) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var data []string
	dispatch := func() bool {
		if len(data) == 0 {
			return true
		}
		payload := strings.Join(data, "\n")
		data = data[:0]

		ev, err := model.DecodeStreamEvent([]byte(payload))
		if err != nil {
			slog.Warn("Skipping malformed stream event", "payload", payload, "error", err)
			return true
		}
		return fn(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if !dispatch() {
				return nil
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	// A final event without its blank line still counts.
	dispatch()
	return nil
}
