package base

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"
	"testing/iotest"
)

// testPayloads returns payloads of interesting sizes
func testPayloads() map[string][]byte {
	rnd := rand.New(rand.NewSource(42))
	large := make([]byte, 64*1024)
	rnd.Read(large)

	return map[string][]byte{
		"empty":  {},
		"single": {0x01},
		"ping":   []byte("ping"),
		"binary": {0x00, 0xff, 0x00, 0x00, 0x10},
		"large":  large,
	}
}

func TestFrameRoundTrip(t *testing.T) {
	for name, payload := range testPayloads() {
		t.Run(name, func(t *testing.T) {
			wire := Encode(payload)

			if len(wire) != HeaderSize+len(payload) {
				t.Fatalf("Expected %d wire bytes, got %d", HeaderSize+len(payload), len(wire))
			}

			frame, n, err := Decode(wire, DefaultTestMaxFrameSize)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if n != HeaderSize+len(payload) {
				t.Errorf("Expected %d consumed bytes, got %d", HeaderSize+len(payload), n)
			}
			if frame.Length != uint32(len(payload)) {
				t.Errorf("Expected length %d, got %d", len(payload), frame.Length)
			}
			if !bytes.Equal(frame.Payload, payload) {
				t.Errorf("Payload mismatch")
			}
		})
	}
}

func TestFrameRoundTripAtMaxSize(t *testing.T) {
	const max = 1024
	payload := bytes.Repeat([]byte{'x'}, max)

	frame, n, err := Decode(Encode(payload), max)
	if err != nil {
		t.Fatalf("Decode of a max sized frame failed: %v", err)
	}
	if n != HeaderSize+max || !bytes.Equal(frame.Payload, payload) {
		t.Errorf("Unexpected result: consumed %d, payload %d bytes", n, len(frame.Payload))
	}
}

func TestEncodeWireFormat(t *testing.T) {
	wire := Encode([]byte("ping"))
	expected := []byte{0x00, 0x00, 0x00, 0x04, 'p', 'i', 'n', 'g'}
	if !bytes.Equal(wire, expected) {
		t.Errorf("Expected %v, got %v", expected, wire)
	}

	// AppendFrame keeps what is already in dst
	wire = AppendFrame([]byte{0xaa}, []byte{0xbb})
	expected = []byte{0xaa, 0x00, 0x00, 0x00, 0x01, 0xbb}
	if !bytes.Equal(wire, expected) {
		t.Errorf("Expected %v, got %v", expected, wire)
	}
}

func TestDecodeNeedMoreData(t *testing.T) {
	wire := Encode([]byte("hello"))

	tests := map[string][]byte{
		"empty":           {},
		"partial header":  wire[:3],
		"header only":     wire[:HeaderSize],
		"partial payload": wire[:len(wire)-1],
	}

	for name, buf := range tests {
		_, n, err := Decode(buf, DefaultTestMaxFrameSize)
		if !errors.Is(err, ErrNeedMoreData) {
			t.Errorf("%s: expected ErrNeedMoreData, got %v", name, err)
		}
		if n != 0 {
			t.Errorf("%s: expected 0 consumed bytes, got %d", name, n)
		}
	}
}

func TestDecodeOversize(t *testing.T) {
	const max = 16
	wire := Encode(bytes.Repeat([]byte{'x'}, max+1))

	// the complete frame is rejected
	_, _, err := Decode(wire, max)
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("Expected ProtocolError, got %v", err)
	}
	if protoErr.Length != max+1 || protoErr.Max != max {
		t.Errorf("Unexpected error details: %+v", protoErr)
	}

	// the header alone is enough to reject it
	_, _, err = Decode(wire[:HeaderSize], max)
	if !errors.As(err, &protoErr) {
		t.Errorf("Expected ProtocolError from the header alone, got %v", err)
	}
}

func TestDecodeOnlyConsumesOneFrame(t *testing.T) {
	wire := append(Encode([]byte("first")), Encode([]byte("second"))...)

	frame, n, err := Decode(wire, DefaultTestMaxFrameSize)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if string(frame.Payload) != "first" || n != HeaderSize+5 {
		t.Errorf("Expected first frame with 9 bytes consumed, got %q and %d", frame.Payload, n)
	}

	frame, _, err = Decode(wire[n:], DefaultTestMaxFrameSize)
	if err != nil || string(frame.Payload) != "second" {
		t.Errorf("Expected second frame, got %q (%v)", frame.Payload, err)
	}
}

// TestDecoderSplitAtEveryOffset feeds the encoded frames in two chunks split
// at every possible offset
func TestDecoderSplitAtEveryOffset(t *testing.T) {
	payloads := [][]byte{[]byte("hello world"), {}, []byte("x")}
	var wire []byte
	for _, p := range payloads {
		wire = AppendFrame(wire, p)
	}

	for split := 0; split <= len(wire); split++ {
		d := NewDecoder(DefaultTestMaxFrameSize)
		var got [][]byte

		for _, chunk := range [][]byte{wire[:split], wire[split:]} {
			d.Feed(chunk)
			for {
				frame, err := d.Next()
				if errors.Is(err, ErrNeedMoreData) {
					break
				}
				if err != nil {
					t.Fatalf("split %d: unexpected error %v", split, err)
				}
				got = append(got, frame.Payload)
			}
		}

		if len(got) != len(payloads) {
			t.Fatalf("split %d: expected %d frames, got %d", split, len(payloads), len(got))
		}
		for i := range payloads {
			if !bytes.Equal(got[i], payloads[i]) {
				t.Errorf("split %d: frame %d mismatch: %q != %q", split, i, got[i], payloads[i])
			}
		}
		if d.Buffered() != 0 {
			t.Errorf("split %d: %d bytes left in buffer", split, d.Buffered())
		}
	}
}

func TestDecoderFillOneByteAtATime(t *testing.T) {
	payloads := testPayloads()
	order := []string{"ping", "empty", "binary", "large", "single"}

	var wire []byte
	for _, name := range order {
		wire = AppendFrame(wire, payloads[name])
	}

	r := iotest.OneByteReader(bytes.NewReader(wire))
	d := NewDecoder(DefaultTestMaxFrameSize)

	for _, name := range order {
		for {
			frame, err := d.Next()
			if err == nil {
				if !bytes.Equal(frame.Payload, payloads[name]) {
					t.Fatalf("Frame %s mismatch", name)
				}
				break
			}
			if !errors.Is(err, ErrNeedMoreData) {
				t.Fatalf("Unexpected error: %v", err)
			}
			if _, err := d.Fill(r); err != nil {
				t.Fatalf("Fill failed before frame %s: %v", name, err)
			}
		}
	}
}

func TestDecoderPayloadSurvivesCompaction(t *testing.T) {
	d := NewDecoder(DefaultTestMaxFrameSize)
	d.Feed(append(Encode([]byte("aaaa")), Encode([]byte("bbbb"))[:2]...))

	first, err := d.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	// triggers compaction of the consumed prefix
	d.Feed(Encode([]byte("bbbb"))[2:])
	second, err := d.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	if string(first.Payload) != "aaaa" || string(second.Payload) != "bbbb" {
		t.Errorf("Payloads corrupted: %q %q", first.Payload, second.Payload)
	}
}

func TestDecoderOversize(t *testing.T) {
	d := NewDecoder(8)
	d.Feed(Encode(make([]byte, 9))[:HeaderSize])

	var protoErr *ProtocolError
	if _, err := d.Next(); !errors.As(err, &protoErr) {
		t.Errorf("Expected ProtocolError, got %v", err)
	}
}

func TestDecoderGrowsWithReceivedBytes(t *testing.T) {
	const maxFrameSize = 16 * 1024 * 1024
	d := NewDecoder(maxFrameSize)

	// only the header of a max sized frame arrives
	header := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(header, maxFrameSize)
	if _, err := d.Fill(bytes.NewReader(header)); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if _, err := d.Fill(bytes.NewReader(nil)); err == nil {
		t.Fatalf("Expected EOF from an empty reader")
	}
	if c := cap(d.buf); c > 2*maxGrowStep {
		t.Errorf("Buffer reserved %d bytes for %d received", c, d.Buffered())
	}

	// the full frame still decodes once the payload arrives
	payload := make([]byte, 1024*1024)
	r := bytes.NewReader(Encode(payload)[HeaderSize:])
	d2 := NewDecoder(maxFrameSize)
	d2.Feed(Encode(payload)[:HeaderSize])
	for {
		frame, err := d2.Next()
		if err == nil {
			if len(frame.Payload) != len(payload) {
				t.Errorf("Expected %d bytes, got %d", len(payload), len(frame.Payload))
			}
			break
		}
		if !errors.Is(err, ErrNeedMoreData) {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, err := d2.Fill(r); err != nil {
			t.Fatalf("Fill failed after %d bytes: %v", d2.Buffered(), err)
		}
	}
}
