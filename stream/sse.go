package stream

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/agentfeed/fanout"
)

// WriteEvent writes f as one server-sent event: an event line, one data line
// per payload line and a terminating blank line.
func WriteEvent(w io.Writer, f fanout.Frame) error {
	var buf bytes.Buffer

	if f.Event != "" {
		fmt.Fprintf(&buf, "event: %s\n", f.Event)
	}

	for _, line := range bytes.Split(f.Data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')

	_, err := w.Write(buf.Bytes())

	return err
}

// Decoder reads server-sent events from a stream.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next event. Comment lines and unknown fields are skipped.
// An event without a name is returned with Event "message". At end of input
// Next returns io.EOF.
func (d *Decoder) Next() (fanout.Frame, error) {
	var (
		event   string
		data    []byte
		hasData bool
	)

	for {
		line, err := d.r.ReadString('\n')
		if line == "" && err != nil {
			if err == io.EOF && (event != "" || hasData) {
				return frameOf(event, data), nil
			}
			return fanout.Frame{}, err
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if event == "" && !hasData {
				continue
			}
			return frameOf(event, data), nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event = value
		case "data":
			if hasData {
				data = append(data, '\n')
			}
			data = append(data, value...)
			hasData = true
		}
	}
}

func frameOf(event string, data []byte) fanout.Frame {
	if event == "" {
		event = "message"
	}

	return fanout.Frame{Event: event, Data: data}
}
