package codec

import (
	"errors"
	"io"
)

// writeSeeker is an in-memory io.WriteSeeker. The WAV encoder needs to
// seek back and patch chunk sizes after writing, which rules out a plain
// bytes.Buffer.
type writeSeeker struct {
	buf []byte
	pos int
}

func (ws *writeSeeker) Write(p []byte) (int, error) {
	if need := ws.pos + len(p); need > len(ws.buf) {
		grown := make([]byte, need)
		copy(grown, ws.buf)
		ws.buf = grown
	}

	copy(ws.buf[ws.pos:], p)
	ws.pos += len(p)

	return len(p), nil
}

func (ws *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var pos int64

	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(ws.pos) + offset
	case io.SeekEnd:
		pos = int64(len(ws.buf)) + offset
	default:
		return 0, errors.New("codec: invalid seek whence")
	}

	if pos < 0 {
		return 0, errors.New("codec: negative seek position")
	}

	ws.pos = int(pos)

	return pos, nil
}

// Bytes returns the written content.
func (ws *writeSeeker) Bytes() []byte {
	return ws.buf
}
