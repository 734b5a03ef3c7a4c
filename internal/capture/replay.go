package capture

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ridscan/internal/rid"
)

// transportNames maps the replay file transport column to transport types.
var transportNames = map[string]rid.TransportType{
	"unknown": rid.TransportUnknown,
	"bt4":     rid.TransportBTLegacy,
	"bt5":     rid.TransportBTExtended,
	"beacon":  rid.TransportWiFiBeacon,
	"nan":     rid.TransportWiFiNAN,
}

// ParseLine parses one replay line of the form
//
//	<transport> <rssi> <hex payload>
//
// e.g. "bt4 -65 1E16FAFF0002...". Blank lines and lines starting with '#'
// yield (nil, nil).
func ParseLine(line string) (*rid.RawFrame, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	fields := strings.Fields(line)
	if len(fields) != 3 {
		return nil, fmt.Errorf("expected 3 fields, got %d", len(fields))
	}

	transport, ok := transportNames[strings.ToLower(fields[0])]
	if !ok {
		return nil, fmt.Errorf("unknown transport %q", fields[0])
	}

	rssi, err := strconv.ParseInt(fields[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid rssi %q: %w", fields[1], err)
	}

	payload, err := hex.DecodeString(fields[2])
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	if len(payload) > MaxFrameLength {
		return nil, fmt.Errorf("payload too long: %d bytes", len(payload))
	}

	return &rid.RawFrame{
		Payload:   payload,
		RSSI:      int8(rssi),
		Transport: transport,
		Timestamp: time.Now(),
	}, nil
}

// ReplayReader reads frames from a hex replay stream line by line.
type ReplayReader struct {
	scanner *bufio.Scanner
	lineNum int
}

// NewReplayReader creates a reader over r.
func NewReplayReader(r io.Reader) *ReplayReader {
	return &ReplayReader{scanner: bufio.NewScanner(r)}
}

// Next returns the next frame, io.EOF at end of input, or a parse error
// tagged with its line number. Comment and blank lines are skipped.
func (r *ReplayReader) Next() (*rid.RawFrame, error) {
	for r.scanner.Scan() {
		r.lineNum++

		frame, err := ParseLine(r.scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		if frame != nil {
			return frame, nil
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
