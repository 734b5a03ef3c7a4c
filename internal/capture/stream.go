// Package capture turns externally captured radio data into RawFrames for
// the parser: a framed binary stream from a capture process, and a hex
// text replay format for files and tests.
package capture

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ridscan/internal/rid"
)

// Stream framing constants. Each frame is
// [sync][transport][rssi][len_lo][len_hi][payload...].
const (
	SyncByte = 0x1A

	headerLength = 5

	// MaxFrameLength bounds payloads accepted from the stream; anything
	// larger is treated as framing garbage and resynced past.
	MaxFrameLength = 1024
)

// StreamDecoder reassembles RawFrames from a byte stream delivered in
// arbitrary chunks. Garbage between frames is skipped by scanning for the
// next sync byte.
type StreamDecoder struct {
	logger *logrus.Logger
	buffer []byte
}

// NewStreamDecoder creates a stream decoder.
func NewStreamDecoder(logger *logrus.Logger) *StreamDecoder {
	return &StreamDecoder{
		logger: logger,
		buffer: make([]byte, 0, 4096),
	}
}

// Decode appends data to the internal buffer and returns every complete
// frame found. Partial frames stay buffered for the next call.
func (d *StreamDecoder) Decode(data []byte) []*rid.RawFrame {
	d.buffer = append(d.buffer, data...)

	var frames []*rid.RawFrame

	for {
		syncIndex := -1
		for i, b := range d.buffer {
			if b == SyncByte {
				syncIndex = i
				break
			}
		}

		if syncIndex == -1 {
			d.buffer = d.buffer[:0]
			break
		}

		if syncIndex > 0 {
			d.logger.WithFields(logrus.Fields{
				"skipped": syncIndex,
			}).Debug("Skipping garbage before sync byte")
			d.buffer = d.buffer[syncIndex:]
		}

		if len(d.buffer) < headerLength {
			break
		}

		transport := d.buffer[1]
		payloadLen := int(d.buffer[3]) | int(d.buffer[4])<<8

		if transport > uint8(rid.TransportWiFiNAN) || payloadLen > MaxFrameLength {
			d.logger.WithFields(logrus.Fields{
				"transport":   transport,
				"payload_len": payloadLen,
			}).Debug("Invalid frame header, resyncing")
			d.buffer = d.buffer[1:]
			continue
		}

		if len(d.buffer) < headerLength+payloadLen {
			break
		}

		payload := make([]byte, payloadLen)
		copy(payload, d.buffer[headerLength:headerLength+payloadLen])

		frames = append(frames, &rid.RawFrame{
			Payload:   payload,
			RSSI:      int8(d.buffer[2]),
			Transport: rid.TransportType(transport),
			Timestamp: time.Now(),
		})

		d.buffer = d.buffer[headerLength+payloadLen:]
	}

	// Bound the buffer if a peer keeps sending sync-less garbage.
	if len(d.buffer) > 2*MaxFrameLength {
		d.logger.WithField("buffer_size", len(d.buffer)).Debug("Dropping oversized stream buffer")
		d.buffer = d.buffer[:0]
	}

	return frames
}

// Encode renders a frame in stream framing, for tests and capture tools.
func Encode(frame *rid.RawFrame) ([]byte, error) {
	if len(frame.Payload) > MaxFrameLength {
		return nil, fmt.Errorf("payload too long: %d bytes", len(frame.Payload))
	}

	out := make([]byte, 0, headerLength+len(frame.Payload))
	out = append(out,
		SyncByte,
		byte(frame.Transport),
		byte(frame.RSSI),
		byte(len(frame.Payload)&0xFF),
		byte(len(frame.Payload)>>8),
	)
	return append(out, frame.Payload...), nil
}
