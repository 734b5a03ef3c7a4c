package rid

import (
	"math"
	"strings"

	"ridscan/internal/bitstream"
)

// MessageType is the ASTM F3411 message type nibble.
type MessageType uint8

const (
	MessageBasicID    MessageType = 0x0
	MessageLocation   MessageType = 0x1
	MessageAuth       MessageType = 0x2
	MessageSelfID     MessageType = 0x3
	MessageSystem     MessageType = 0x4
	MessageOperatorID MessageType = 0x5
	MessagePack       MessageType = 0xF
)

const (
	// MessageSize is the fixed length of a single ODID message.
	MessageSize = 25

	basicIDLength    = 20
	selfIDLength     = 23
	operatorIDLength = 20

	// Service Data AD type and the ASTM Remote ID 16-bit service UUID.
	odidADType      = 0x16
	odidServiceUUID = 0xFFFA
)

// Fixed-point scale factors from the wire grammar.
const (
	latLonScale        = 1e-7
	altitudeOffset     = -1000.0
	altitudeScale      = 0.5
	speedScale         = 0.25
	speedScaleHigh     = 0.75
	speedOffsetHigh    = 255 * 0.25
	verticalSpeedScale = 0.5
)

// DecodeResult reports the outcome of a single decode attempt.
type DecodeResult struct {
	Success bool
	Type    MessageType
	Error   string
}

// ASTMDecoder decodes ASTM F3411 Remote ID from Bluetooth advertisement
// payloads: legacy (BT4) advertising data structures and BT5 extended
// advertising.
type ASTMDecoder struct{}

// IsRemoteID cheaply probes whether the payload carries an ODID service
// data structure, in either legacy or extended advertising form.
func (d *ASTMDecoder) IsRemoteID(payload []byte) bool {
	if len(payload) < 5 {
		return false
	}

	if d.isExtendedAdvertising(payload) {
		return true
	}

	for i := 0; i+4 < len(payload); {
		adLen := int(payload[i])
		if adLen == 0 {
			break
		}

		if adLen >= 4 && payload[i+1] == odidADType {
			uuid := bitstream.LE16(payload[i+2:])
			if uuid == odidServiceUUID {
				return true
			}
		}

		i += adLen + 1
	}

	return false
}

// isExtendedAdvertising scans for the ODID AD type and service UUID at any
// offset; BT5 extended advertising carries the structure without the fixed
// legacy AD layout.
func (d *ASTMDecoder) isExtendedAdvertising(payload []byte) bool {
	if len(payload) < 7 {
		return false
	}

	for i := 0; i+4 < len(payload); i++ {
		if payload[i] == odidADType && i+3 < len(payload) {
			if bitstream.LE16(payload[i+1:]) == odidServiceUUID {
				return true
			}
		}
	}

	return false
}

// Decode locates the ODID message inside a BLE advertisement payload and
// decodes it into uav. The well-formed legacy AD structure is preferred;
// the loose extended-advertising scan runs only when the legacy walk never
// located the service UUID, so a malformed legacy frame keeps its real
// decode error.
func (d *ASTMDecoder) Decode(payload []byte, uav *UAVObject) DecodeResult {
	result, sawUUID := d.decodeLegacy(payload, uav)
	if result.Success || sawUUID {
		return result
	}

	if d.isExtendedAdvertising(payload) {
		return d.decodeExtended(payload, uav)
	}

	return result
}

func (d *ASTMDecoder) decodeExtended(payload []byte, uav *UAVObject) DecodeResult {
	data, ok := findODIDData(payload)
	if !ok {
		return DecodeResult{Error: "No ODID data found in extended advertisement"}
	}
	if len(data) < MessageSize {
		return DecodeResult{Error: "ODID data too short"}
	}

	result := d.DecodeMessage(data, uav)
	if result.Success {
		uav.Protocol = ProtocolASTMF3411
		uav.Transport = TransportBTExtended
	}
	return result
}

func (d *ASTMDecoder) decodeLegacy(payload []byte, uav *UAVObject) (DecodeResult, bool) {
	if len(payload) < 5 {
		return DecodeResult{Error: "Payload too short"}, false
	}

	sawUUID := false
	lastErr := "No valid ODID message found"

	for i := 0; i+4 < len(payload); {
		adLen := int(payload[i])
		if adLen == 0 {
			break
		}

		if adLen >= 4 && payload[i+1] == odidADType {
			uuid := bitstream.LE16(payload[i+2:])
			if uuid == odidServiceUUID {
				sawUUID = true

				// adLen covers AD type + UUID + counter + message.
				// adLen >= 4 is checked above, so the subtraction
				// cannot underflow. Some advertisers overstate the
				// field length; clamp to the bytes actually present.
				end := i + 1 + adLen
				if end > len(payload) {
					end = len(payload)
				}
				msg := payload[i+4 : end]
				// Skip the message counter byte.
				if len(msg) > 0 {
					msg = msg[1:]
				}

				if len(msg) >= MessageSize {
					result := d.DecodeMessage(msg, uav)
					if result.Success {
						uav.Protocol = ProtocolASTMF3411
						// Keep a more specific transport hint if
						// the radio already reported BT5.
						if uav.Transport != TransportBTExtended {
							uav.Transport = TransportBTLegacy
						}
						return result, true
					}
					lastErr = result.Error
				} else {
					lastErr = "Message too short"
				}
			}
		}

		i += adLen + 1
	}

	return DecodeResult{Error: lastErr}, sawUUID
}

// findODIDData locates the ODID service data in an extended advertising
// payload and returns the message bytes (counter absent).
func findODIDData(payload []byte) ([]byte, bool) {
	for i := 0; i+4 < len(payload); i++ {
		if payload[i] == odidADType && bitstream.LE16(payload[i+1:]) == odidServiceUUID {
			return payload[i+3:], true
		}
	}
	return nil, false
}

// DecodeMessage decodes a single 25-byte ODID message into uav. On success
// the UAV's message count is incremented.
func (d *ASTMDecoder) DecodeMessage(data []byte, uav *UAVObject) DecodeResult {
	return d.decodeMessage(data, uav, 0)
}

func (d *ASTMDecoder) decodeMessage(data []byte, uav *UAVObject, depth int) DecodeResult {
	if len(data) < MessageSize {
		return DecodeResult{Error: "Message too short"}
	}

	header := data[0]
	msgType := MessageType((header >> 4) & 0x0F)

	result := DecodeResult{Type: msgType}

	var ok bool
	switch msgType {
	case MessageBasicID:
		ok = decodeBasicID(data, uav)
	case MessageLocation:
		ok = decodeLocation(data, uav)
	case MessageAuth:
		ok = decodeAuth(data, uav)
	case MessageSelfID:
		ok = decodeSelfID(data, uav)
	case MessageSystem:
		ok = decodeSystem(data, uav)
	case MessageOperatorID:
		ok = decodeOperatorID(data, uav)
	case MessagePack:
		// The wire grammar permits packs inside packs; bound nesting to
		// a single level.
		if depth > 0 {
			return DecodeResult{Type: msgType, Error: "Nested message pack rejected"}
		}
		ok = d.decodeMessagePack(data, uav, depth)
	default:
		return DecodeResult{Type: msgType, Error: "Unknown message type"}
	}

	if !ok {
		result.Error = "Failed to decode message"
		return result
	}

	result.Success = true
	uav.MessageCount++
	return result
}

func decodeBasicID(data []byte, uav *UAVObject) bool {
	typeByte := data[1]
	uav.IDType = UAVIDType((typeByte >> 4) & 0x0F)
	uav.UAVType = UAVType(typeByte & 0x0F)
	uav.ID = trimPadding(data[2 : 2+basicIDLength])
	return true
}

func decodeLocation(data []byte, uav *UAVObject) bool {
	loc := &uav.Location
	loc.Valid = true

	statusByte := data[1]
	loc.Status = UAVStatus((statusByte >> 4) & 0x0F)
	loc.HeightRef = HeightReference((statusByte >> 2) & 0x01)
	speedMult := statusByte&0x01 != 0

	loc.Direction = decodeDirection(data[2])
	loc.SpeedHorizontal = decodeSpeed(data[3], speedMult)
	loc.SpeedVertical = decodeVerticalSpeed(int8(data[4]))

	loc.Latitude = float64(int32(bitstream.LE32(data[5:]))) * latLonScale
	loc.Longitude = float64(int32(bitstream.LE32(data[9:]))) * latLonScale

	loc.AltitudeBaro = decodeAltitude(bitstream.LE16(data[13:]))
	loc.AltitudeGeo = decodeAltitude(bitstream.LE16(data[15:]))
	loc.Height = decodeAltitude(bitstream.LE16(data[17:]))

	loc.HAccuracy = HorizontalAccuracy((data[19] >> 4) & 0x0F)
	loc.VAccuracy = VerticalAccuracy(data[19] & 0x0F)
	loc.SpeedAccuracy = SpeedAccuracy(data[20] & 0x0F)

	loc.TimestampOffset = bitstream.LE16(data[21:])

	return true
}

func decodeAuth(data []byte, uav *UAVObject) bool {
	uav.AuthData = append([]byte(nil), data[1:MessageSize]...)
	return true
}

func decodeSelfID(data []byte, uav *UAVObject) bool {
	uav.SelfID.Valid = true
	uav.SelfID.DescriptionType = data[1]
	uav.SelfID.Description = trimPadding(data[2 : 2+selfIDLength])
	return true
}

func decodeSystem(data []byte, uav *UAVObject) bool {
	sys := &uav.System
	sys.Valid = true

	sys.LocationType = OperatorLocationType((data[1] >> 4) & 0x03)

	sys.OperatorLatitude = float64(int32(bitstream.LE32(data[2:]))) * latLonScale
	sys.OperatorLongitude = float64(int32(bitstream.LE32(data[6:]))) * latLonScale

	sys.AreaCount = bitstream.LE16(data[10:])
	sys.AreaRadius = uint16(data[12]) * 10

	sys.AreaCeiling = decodeAltitude(bitstream.LE16(data[13:]))
	sys.AreaFloor = decodeAltitude(bitstream.LE16(data[15:]))

	sys.Timestamp = bitstream.LE32(data[17:])

	return true
}

func decodeOperatorID(data []byte, uav *UAVObject) bool {
	uav.OperatorID.Valid = true
	uav.OperatorID.IDType = data[1]
	uav.OperatorID.ID = trimPadding(data[2 : 2+operatorIDLength])
	return true
}

// decodeMessagePack iterates the packed child messages. Children are decoded
// best effort: a failed child does not abort the remaining ones.
func (d *ASTMDecoder) decodeMessagePack(data []byte, uav *UAVObject, depth int) bool {
	packInfo := data[1]
	msgSize := int((packInfo>>4)&0x0F) + 1
	msgCount := int(packInfo & 0x0F)

	if msgSize != MessageSize {
		return false
	}

	offset := 2
	for i := 0; i < msgCount && offset+MessageSize <= len(data); i++ {
		d.decodeMessage(data[offset:offset+MessageSize], uav, depth+1)
		offset += MessageSize
	}

	return true
}

// trimPadding converts a fixed-width ASCII field to a string, dropping
// trailing NULs and spaces.
func trimPadding(data []byte) string {
	s := string(data)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "\x00 ")
}

func decodeAltitude(encoded uint16) float32 {
	if encoded == 0 {
		return 0.0
	}
	return float32(encoded)*altitudeScale + altitudeOffset
}

func decodeSpeed(encoded uint8, highRange bool) float32 {
	if encoded == 255 {
		return float32(math.NaN())
	}
	if highRange {
		return float32(encoded)*speedScaleHigh + speedOffsetHigh
	}
	return float32(encoded) * speedScale
}

func decodeVerticalSpeed(encoded int8) float32 {
	if encoded == 63 {
		return float32(math.NaN())
	}
	return float32(encoded) * verticalSpeedScale
}

func decodeDirection(encoded uint8) float32 {
	if int(encoded) > 360 {
		return float32(math.NaN())
	}
	return float32(encoded)
}
