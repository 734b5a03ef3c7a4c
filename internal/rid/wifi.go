package rid

import (
	"bytes"

	"ridscan/internal/bitstream"
)

// 802.11 frame control bits and Information Element IDs.
const (
	fcTypeMask        = 0x000C
	fcSubtypeMask     = 0x00F0
	fcTypeManagement  = 0x0000
	fcSubtypeBeacon   = 0x0080
	fcSubtypeProbeRsp = 0x0050
	fcSubtypeAction   = 0x00D0

	ieVendorSpecific = 221

	minMgmtHeader = 24 // 802.11 management frame header
	minBeaconBody = 12 // timestamp(8) + interval(2) + capability(2)
)

// wifiOUI is the ASTM-designated OUI carried in vendor-specific IEs, and
// wifiVendorType the Remote ID vendor type that follows it.
var wifiOUI = []byte{0xFA, 0x0B, 0xBC}

const wifiVendorType = 0x0D

// nanServiceID is the NAN service hash for "org.opendroneid.remoteid".
var nanServiceID = []byte{0x88, 0x69, 0x19, 0x9D, 0x92, 0x09}

// WiFiDecoder extracts ASTM Remote ID messages from 802.11 beacon frames,
// NAN service discovery frames, and raw vendor IE payloads.
type WiFiDecoder struct {
	astm ASTMDecoder
}

// IsRemoteID probes for the ASTM OUI or the NAN service ID anywhere in the
// payload.
func (d *WiFiDecoder) IsRemoteID(payload []byte) bool {
	if len(payload) < 10 {
		return false
	}

	for i := 0; i+6 < len(payload); i++ {
		if payload[i] == wifiOUI[0] &&
			payload[i+1] == wifiOUI[1] &&
			payload[i+2] == wifiOUI[2] &&
			payload[i+3] == wifiVendorType {
			return true
		}
	}

	return bytes.Contains(payload, nanServiceID)
}

// DecodeBeacon decodes a full 802.11 management frame carrying a Remote ID
// vendor IE.
func (d *WiFiDecoder) DecodeBeacon(payload []byte, uav *UAVObject) DecodeResult {
	if len(payload) < minMgmtHeader+minBeaconBody {
		return DecodeResult{Error: "Frame too short for beacon"}
	}

	offset, ok := parseFrameHeader(payload)
	if !ok {
		return DecodeResult{Error: "Invalid 802.11 header"}
	}

	// Fixed beacon parameters precede the IEs.
	offset += minBeaconBody

	ieData, ok := findVendorIE(payload[offset:], wifiOUI)
	if !ok {
		return DecodeResult{Error: "No Remote ID vendor IE found"}
	}

	if len(ieData) < 2 {
		return DecodeResult{Error: "Vendor IE data too short"}
	}

	// First IE byte after the OUI is the vendor type.
	result := d.decodeASTMPayload(ieData[1:], uav)
	if result.Success {
		uav.Transport = TransportWiFiBeacon
		uav.Protocol = ProtocolASTMF3411
	}
	return result
}

// DecodeNAN decodes a NAN service discovery frame: the ASTM message follows
// the service ID, or, as a fallback, the raw OUI + vendor type prefix.
func (d *WiFiDecoder) DecodeNAN(payload []byte, uav *UAVObject) DecodeResult {
	if len(payload) < 10 {
		return DecodeResult{Error: "NAN frame too short"}
	}

	for i := 0; i+len(nanServiceID)+MessageSize <= len(payload); i++ {
		if bytes.Equal(payload[i:i+len(nanServiceID)], nanServiceID) {
			result := d.decodeASTMPayload(payload[i+len(nanServiceID):], uav)
			if result.Success {
				uav.Transport = TransportWiFiNAN
				uav.Protocol = ProtocolASTMF3411
				return result
			}
		}
	}

	for i := 0; i+4+MessageSize <= len(payload); i++ {
		if payload[i] == wifiOUI[0] &&
			payload[i+1] == wifiOUI[1] &&
			payload[i+2] == wifiOUI[2] &&
			payload[i+3] == wifiVendorType {
			result := d.decodeASTMPayload(payload[i+4:], uav)
			if result.Success {
				uav.Transport = TransportWiFiNAN
				uav.Protocol = ProtocolASTMF3411
				return result
			}
		}
	}

	return DecodeResult{Error: "No valid NAN Remote ID data found"}
}

// DecodeVendorIE decodes a bare vendor IE payload: OUI, vendor type, then
// the ASTM message.
func (d *WiFiDecoder) DecodeVendorIE(payload []byte, uav *UAVObject) DecodeResult {
	if len(payload) < 4 {
		return DecodeResult{Error: "Vendor IE too short"}
	}

	if !bytes.Equal(payload[:3], wifiOUI) {
		return DecodeResult{Error: "Invalid OUI"}
	}
	if payload[3] != wifiVendorType {
		return DecodeResult{Error: "Invalid vendor type"}
	}

	result := d.decodeASTMPayload(payload[4:], uav)
	if result.Success {
		uav.Transport = TransportWiFiBeacon
		uav.Protocol = ProtocolASTMF3411
	}
	return result
}

// parseFrameHeader validates the 802.11 management header and returns the
// offset of the frame body.
func parseFrameHeader(data []byte) (int, bool) {
	if len(data) < minMgmtHeader {
		return 0, false
	}

	fc := bitstream.LE16(data)
	if fc&fcTypeMask != fcTypeManagement {
		return 0, false
	}

	subtype := fc & fcSubtypeMask
	if subtype != fcSubtypeBeacon && subtype != fcSubtypeProbeRsp && subtype != fcSubtypeAction {
		return 0, false
	}

	return minMgmtHeader, true
}

// findVendorIE walks the IE list looking for a vendor-specific element with
// the given OUI, returning the IE data after the OUI.
func findVendorIE(data []byte, oui []byte) ([]byte, bool) {
	offset := 0

	for offset+2 <= len(data) {
		ieID := data[offset]
		ieLen := int(data[offset+1])

		if offset+2+ieLen > len(data) {
			break
		}

		if ieID == ieVendorSpecific && ieLen >= len(oui) {
			if bytes.Equal(data[offset+2:offset+2+len(oui)], oui) {
				return data[offset+2+len(oui) : offset+2+ieLen], true
			}
		}

		offset += 2 + ieLen
	}

	return nil, false
}

func (d *WiFiDecoder) decodeASTMPayload(data []byte, uav *UAVObject) DecodeResult {
	if len(data) < MessageSize {
		return DecodeResult{Error: "Message too short"}
	}
	return d.astm.DecodeMessage(data, uav)
}
