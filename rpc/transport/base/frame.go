package base

import (
	"encoding/binary"
	"fmt"
	"math"
)

// HeaderSize is the size of the length prefix of every frame
const HeaderSize = 4

// Frame is one length-prefixed message. On the wire it is
// - 4 bytes: payload length (uint32, big endian)
// - N bytes: payload
type Frame struct {
	Length  uint32
	Payload []byte
}

// Encode returns the wire representation of payload
func Encode(payload []byte) []byte {
	return AppendFrame(make([]byte, 0, HeaderSize+len(payload)), payload)
}

// AppendFrame appends the wire representation of payload to dst.
// Payloads larger than math.MaxUint32 cannot be represented and panic, callers
// check their frame limit before encoding.
func AppendFrame(dst, payload []byte) []byte {
	if uint64(len(payload)) > math.MaxUint32 {
		panic(fmt.Sprintf("frame payload of %d bytes does not fit the length header", len(payload)))
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// Decode parses one frame from the front of buf.
//
// It returns ErrNeedMoreData if buf holds less than a complete frame and a
// *ProtocolError as soon as the header announces more than maxFrameSize bytes.
// On success it returns the frame and the number of bytes consumed. The
// payload aliases buf.
func Decode(buf []byte, maxFrameSize uint32) (Frame, int, error) {
	if len(buf) < HeaderSize {
		return Frame{}, 0, ErrNeedMoreData
	}

	length := binary.BigEndian.Uint32(buf[:HeaderSize])
	if length > maxFrameSize {
		return Frame{}, 0, &ProtocolError{Length: uint64(length), Max: maxFrameSize}
	}

	total := HeaderSize + int(length)
	if len(buf) < total {
		return Frame{}, 0, ErrNeedMoreData
	}

	return Frame{Length: length, Payload: buf[HeaderSize:total:total]}, total, nil
}
