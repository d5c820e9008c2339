package base

import (
	"encoding/binary"
	"io"
)

const (
	// minReadSize is the minimum free space offered to a single read
	minReadSize = 4 * 1024
	// maxGrowStep caps how much the buffer grows ahead of received bytes
	maxGrowStep = 64 * 1024
)

// Decoder accumulates bytes read from a stream and splits them into frames.
// Frames may be split across reads at any byte offset, including inside the
// length header. A Decoder is not safe for concurrent use.
type Decoder struct {
	buf          []byte // buf[off:] holds the not yet consumed bytes
	off          int
	maxFrameSize uint32
}

// NewDecoder creates a decoder rejecting frames larger than maxFrameSize
func NewDecoder(maxFrameSize uint32) *Decoder {
	return &Decoder{maxFrameSize: maxFrameSize}
}

// Buffered returns the number of bytes received but not yet consumed
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.off
}

// Feed appends p to the read buffer
func (d *Decoder) Feed(p []byte) {
	d.compact()
	d.buf = append(d.buf, p...)
}

// Fill performs a single Read from r into the free space of the buffer and
// returns the number of bytes read. It never reads more than once so the
// caller can decode between reads.
func (d *Decoder) Fill(r io.Reader) (int, error) {
	d.compact()
	d.grow(d.wanted())

	n, err := r.Read(d.buf[len(d.buf):cap(d.buf)])
	d.buf = d.buf[:len(d.buf)+n]
	return n, err
}

// Next decodes the next frame from the buffer. It returns ErrNeedMoreData if
// no complete frame is buffered and a *ProtocolError for oversized frames.
// The returned payload is owned by the caller.
func (d *Decoder) Next() (Frame, error) {
	frame, n, err := Decode(d.buf[d.off:], d.maxFrameSize)
	if err != nil {
		return Frame{}, err
	}

	payload := make([]byte, len(frame.Payload))
	copy(payload, frame.Payload)
	frame.Payload = payload

	d.off += n
	if d.off == len(d.buf) {
		// everything consumed, start over at the front
		d.buf = d.buf[:0]
		d.off = 0
	}
	return frame, nil
}

// wanted returns how many more bytes the pending frame needs, at least
// minReadSize and at most maxGrowStep
func (d *Decoder) wanted() int {
	want := minReadSize
	pending := d.buf[d.off:]
	if len(pending) >= HeaderSize {
		length := binary.BigEndian.Uint32(pending[:HeaderSize])
		if length <= d.maxFrameSize {
			if missing := HeaderSize + int(length) - len(pending); missing > want {
				want = min(missing, maxGrowStep)
			}
		}
	}
	return want
}

// grow makes sure at least n bytes of free capacity are available
func (d *Decoder) grow(n int) {
	if cap(d.buf)-len(d.buf) >= n {
		return
	}
	grown := make([]byte, len(d.buf), len(d.buf)+max(len(d.buf), n))
	copy(grown, d.buf)
	d.buf = grown
}

// compact moves the unconsumed bytes to the front of the buffer once the
// consumed prefix is at least as large as the rest
func (d *Decoder) compact() {
	if d.off == 0 || d.off < len(d.buf)-d.off {
		return
	}
	n := copy(d.buf, d.buf[d.off:])
	d.buf = d.buf[:n]
	d.off = 0
}
