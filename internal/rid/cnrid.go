package rid

// CNUAVCategory is the weight-class taxonomy used by the Chinese national
// standard.
type CNUAVCategory uint8

const (
	CNCategoryUnknown CNUAVCategory = 0
	CNCategoryMicro   CNUAVCategory = 1 // < 250 g
	CNCategoryLight   CNUAVCategory = 2 // 250 g - 4 kg
	CNCategorySmall   CNUAVCategory = 3 // 4 kg - 25 kg
	CNCategoryMedium  CNUAVCategory = 4 // 25 kg - 150 kg
	CNCategoryLarge   CNUAVCategory = 5 // > 150 kg
)

// CNRIDDecoder is a placeholder for the GB/T Chinese Remote ID standard.
// The bitstream is not publicly specified; the router branch is kept so the
// protocol slot exists, but decoding always fails.
type CNRIDDecoder struct{}

// IsRemoteID always reports false: without a public bitstream there is
// nothing to probe for.
func (d *CNRIDDecoder) IsRemoteID(payload []byte) bool {
	return false
}

// Decode always fails with "not implemented".
func (d *CNRIDDecoder) Decode(payload []byte, uav *UAVObject) DecodeResult {
	return DecodeResult{Error: "not implemented"}
}

// Implemented reports whether this decoder has a working bitstream parser.
func (d *CNRIDDecoder) Implemented() bool {
	return false
}

// StatusMessage describes the implementation state for display layers.
func (d *CNRIDDecoder) StatusMessage() string {
	return "GB/T decoder is a placeholder pending official specification access"
}
