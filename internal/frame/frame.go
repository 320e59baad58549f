// Package frame implements the fixed-width zero-terminated framing codec
// shared by the server, the gateway, and the terminal client.
package frame

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Width is the size in bytes of every frame on the wire, in both
// directions. It is a protocol constant and must match exactly on both
// ends of a connection.
const Width = 64

// ErrInvalidUTF8 is returned by Decode when the bytes before the
// terminator are not valid UTF-8. The condition is fatal for the
// connection that produced the frame; the codec does not resynchronize.
var ErrInvalidUTF8 = errors.New("frame: payload is not valid UTF-8")

// ErrShortFrame is returned by Decode when fewer than Width bytes are
// supplied.
var ErrShortFrame = errors.New("frame: short frame")

// Encode copies text into a Width-byte frame and zero-fills the
// remainder. Text longer than Width-1 bytes is silently truncated so
// that at least one terminating zero byte always remains.
func Encode(text string) []byte {
	buf := make([]byte, Width)
	copy(buf[:Width-1], text)
	return buf
}

// Decode interprets everything before the first zero byte of a frame as
// UTF-8 text. A frame with no zero byte is impossible for frames we
// encode ourselves, but a peer could send one; the full Width bytes are
// then the payload.
func Decode(buf []byte) (string, error) {
	if len(buf) < Width {
		return "", fmt.Errorf("%w: got %d bytes, want %d", ErrShortFrame, len(buf), Width)
	}
	payload := buf[:Width]
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	if !utf8.Valid(payload) {
		return "", ErrInvalidUTF8
	}
	return string(payload), nil
}
