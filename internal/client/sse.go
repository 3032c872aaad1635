package client

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// serverEvent is one named event read off the stream.
type serverEvent struct {
	Name string
	Data []byte
}

// readEvents parses server-sent events off r and delivers each complete
// event to emit. It returns nil when the server closes the stream cleanly
// and the read error otherwise. The wire format matches the worker's
// "event:" / "data:" framing; comment lines and unknown fields are ignored.
func readEvents(r io.Reader, emit func(serverEvent) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name string
	var data bytes.Buffer

	flush := func() bool {
		if name == "" && data.Len() == 0 {
			return true
		}
		event := serverEvent{Name: name, Data: append([]byte(nil), data.Bytes()...)}
		if event.Name == "" {
			event.Name = "message"
		}
		name = ""
		data.Reset()
		return emit(event)
	}

	for scanner.Scan() {
		line := scanner.Text()

		// Blank line terminates the pending event.
		if line == "" {
			if !flush() {
				return nil
			}
			continue
		}

		// Comment / keepalive line.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if !found {
			field = line
			value = ""
		}
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			name = value
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	// Deliver any trailing event the server sent without a final blank line.
	flush()
	return nil
}
