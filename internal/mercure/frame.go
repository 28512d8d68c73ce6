package mercure

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/gin-contrib/sse"
)

// maxFrameSize bounds a single buffered frame.
const maxFrameSize = 1 << 20

var errFrameTooLarge = errors.New("sse frame too large")

// frameEvent is a decoded SSE event with its data as text.
type frameEvent struct {
	Event string
	ID    string
	Data  string
}

// readFrames reads an event stream and calls fn for each dispatched event.
// Lines are buffered until a blank line ends the frame; the frame's fields are then
// decoded with the SSE parsing rules. It returns when r is exhausted or fails.
func readFrames(r io.Reader, fn func(frameEvent)) error {
	br := bufio.NewReader(r)
	var frame bytes.Buffer

	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimRight(line, "\r\n")
			if len(line) == 0 {
				dispatch(frame.Bytes(), fn)
				frame.Reset()
			} else {
				if frame.Len()+len(line) > maxFrameSize {
					return errFrameTooLarge
				}
				frame.Write(line)
				frame.WriteByte('\n')
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func dispatch(frame []byte, fn func(frameEvent)) {
	if len(frame) == 0 {
		return
	}
	events, err := sse.Decode(bytes.NewReader(frame))
	if err != nil {
		return
	}
	for _, ev := range events {
		data, _ := ev.Data.(string)
		fn(frameEvent{Event: ev.Event, ID: ev.Id, Data: data})
	}
}
