// Package wire implements the client→mempool framing: a 9-byte header
// (benchmark flag + big-endian u64 counter) followed by a
// canonically-encoded InvokeV1 transaction, carried over a
// length-delimited TCP stream: a big-endian u32 length prefix, then the
// 9-byte flag/counter header and the payload.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// HeaderBytes is the fixed length-9 client frame header.
	HeaderBytes = 9

	// MaxFrameBytes bounds a single length-delimited frame so a malformed
	// or hostile client cannot force an unbounded read. A frame-decode
	// failure is returned to the caller as an error.
	MaxFrameBytes = 1 << 20

	benchmarkFlag uint8 = 0x00
	standardFlag  uint8 = 0x01
)

// Frame is one decoded client→mempool wire frame.
type Frame struct {
	// Bench is true when header byte 0 is 0x00 (sample/benchmarked),
	// false when 0x01 (standard).
	Bench bool
	// Counter is the big-endian u64 in header bytes 1..9: a tx id for
	// sample transactions, an arbitrary value for standard ones.
	Counter uint64
	// Payload is the canonical encoding of a Transaction::InvokeV1.
	Payload []byte
}

// EncodeHeader renders the 9-byte header for a frame.
func EncodeHeader(bench bool, counter uint64) [HeaderBytes]byte {
	var out [HeaderBytes]byte
	if bench {
		out[0] = benchmarkFlag
	} else {
		out[0] = standardFlag
	}
	binary.BigEndian.PutUint64(out[1:], counter)
	return out
}

// DecodeHeader parses the 9-byte client frame header.
func DecodeHeader(b []byte) (bench bool, counter uint64, err error) {
	if len(b) != HeaderBytes {
		return false, 0, fmt.Errorf("wire: header must be %d bytes, got %d", HeaderBytes, len(b))
	}
	switch b[0] {
	case benchmarkFlag:
		bench = true
	case standardFlag:
		bench = false
	default:
		return false, 0, fmt.Errorf("wire: invalid header flag byte 0x%02x", b[0])
	}
	counter = binary.BigEndian.Uint64(b[1:])
	return bench, counter, nil
}

// StripHeader removes the leading 9-byte header from a framed byte-string
// when benchmarking is enabled, returning the InvokeV1 payload;
// otherwise it returns the input unchanged.
func StripHeader(benchmarking bool, framed []byte) ([]byte, error) {
	if !benchmarking {
		return framed, nil
	}
	if len(framed) < HeaderBytes {
		return nil, fmt.Errorf("wire: framed transaction shorter than header (%d bytes)", len(framed))
	}
	return framed[HeaderBytes:], nil
}

// WriteFrame writes a length-delimited frame: a big-endian u32 length
// prefix followed by header || payload.
func WriteFrame(w io.Writer, f Frame) error {
	header := EncodeHeader(f.Bench, f.Counter)
	body := make([]byte, 0, HeaderBytes+len(f.Payload))
	body = append(body, header[:]...)
	body = append(body, f.Payload...)
	if len(body) > MaxFrameBytes {
		return fmt.Errorf("wire: frame of %d bytes exceeds max %d", len(body), MaxFrameBytes)
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(body)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-delimited frame and decodes its header.
func ReadFrame(r io.Reader) (Frame, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return Frame{}, fmt.Errorf("wire: read length prefix: %w", err)
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > MaxFrameBytes {
		return Frame{}, fmt.Errorf("wire: frame length %d exceeds max %d", n, MaxFrameBytes)
	}
	if n < HeaderBytes {
		return Frame{}, fmt.Errorf("wire: frame length %d shorter than header", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, fmt.Errorf("wire: read frame body: %w", err)
	}
	bench, counter, err := DecodeHeader(body[:HeaderBytes])
	if err != nil {
		return Frame{}, err
	}
	return Frame{Bench: bench, Counter: counter, Payload: body[HeaderBytes:]}, nil
}
