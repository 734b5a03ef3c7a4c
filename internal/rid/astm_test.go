package rid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeBLEAdvertisement wraps an ODID message in a legacy BLE advertisement:
// [length][type 0x16][UUID low][UUID high][counter][message...]
func makeBLEAdvertisement(msg []byte) []byte {
	adv := []byte{
		byte(3 + 1 + len(msg)),
		0x16,
		0xFA, 0xFF,
		0x00, // message counter
	}
	return append(adv, msg...)
}

// makeBasicIDMessage builds a Basic ID message for the given serial.
func makeBasicIDMessage(serial string, idType UAVIDType, uavType UAVType) []byte {
	msg := make([]byte, MessageSize)
	msg[0] = 0x02 // Basic ID, protocol version 2
	msg[1] = byte(idType)<<4 | byte(uavType)
	copy(msg[2:2+basicIDLength], serial)
	return msg
}

// makeLocationMessage builds a Location message with low-range speed
// encoding.
func makeLocationMessage(lat, lon float64, alt float32, speedH, speedV, direction float32) []byte {
	msg := make([]byte, MessageSize)
	msg[0] = 0x12 // Location, protocol version 2
	msg[1] = 0x20 // airborne status

	msg[2] = byte(direction)
	msg[3] = byte(speedH / 0.25)
	msg[4] = byte(int8(speedV / 0.5))

	latEnc := int32(lat * 1e7)
	msg[5] = byte(latEnc)
	msg[6] = byte(latEnc >> 8)
	msg[7] = byte(latEnc >> 16)
	msg[8] = byte(latEnc >> 24)

	lonEnc := int32(lon * 1e7)
	msg[9] = byte(lonEnc)
	msg[10] = byte(lonEnc >> 8)
	msg[11] = byte(lonEnc >> 16)
	msg[12] = byte(lonEnc >> 24)

	altEnc := uint16((alt + 1000.0) / 0.5)
	for _, off := range []int{13, 15, 17} {
		msg[off] = byte(altEnc)
		msg[off+1] = byte(altEnc >> 8)
	}

	return msg
}

func TestIsRemoteID(t *testing.T) {
	var d ASTMDecoder

	t.Run("valid ODID advertisement", func(t *testing.T) {
		adv := makeBLEAdvertisement(makeBasicIDMessage("DJI123456789012", IDTypeSerialNumber, UAVTypeHelicopterOrMultirotor))
		assert.True(t, d.IsRemoteID(adv))
	})

	t.Run("short payload", func(t *testing.T) {
		assert.False(t, d.IsRemoteID([]byte{0x01, 0x02, 0x03}))
	})

	t.Run("wrong UUID", func(t *testing.T) {
		assert.False(t, d.IsRemoteID([]byte{0x05, 0x16, 0x00, 0x00, 0x00, 0x00}))
	})

	t.Run("empty", func(t *testing.T) {
		assert.False(t, d.IsRemoteID(nil))
	})
}

func TestDecodeBasicID(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	adv := makeBLEAdvertisement(makeBasicIDMessage("DJI1234567890ABCD", IDTypeSerialNumber, UAVTypeHelicopterOrMultirotor))
	result := d.Decode(adv, &uav)

	require.True(t, result.Success, "decode failed: %s", result.Error)
	assert.Equal(t, MessageBasicID, result.Type)
	assert.Equal(t, "DJI1234567890ABCD", uav.ID)
	assert.Equal(t, IDTypeSerialNumber, uav.IDType)
	assert.Equal(t, UAVTypeHelicopterOrMultirotor, uav.UAVType)
	assert.Equal(t, ProtocolASTMF3411, uav.Protocol)
	assert.Equal(t, uint32(1), uav.MessageCount)
}

// The advertised field length is one byte larger than the data actually
// present; the decoder clamps instead of rejecting.
func TestDecodeBasicIDOverstatedLength(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	adv := makeBLEAdvertisement(makeBasicIDMessage("DJI1234567890ABCD", IDTypeSerialNumber, UAVTypeHelicopterOrMultirotor))
	adv[0]++

	result := d.Decode(adv, &uav)
	require.True(t, result.Success, "decode failed: %s", result.Error)
	assert.Equal(t, "DJI1234567890ABCD", uav.ID)
}

func TestDecodeBasicIDTrimsPadding(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	msg := makeBasicIDMessage("AB12", IDTypeCAARegistration, UAVTypeAeroplane)
	// Space padding instead of NULs.
	for i := 2 + 4; i < 2+basicIDLength; i++ {
		msg[i] = ' '
	}

	result := d.Decode(makeBLEAdvertisement(msg), &uav)
	require.True(t, result.Success)
	assert.Equal(t, "AB12", uav.ID)
}

func TestDecodeLocation(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	adv := makeBLEAdvertisement(makeLocationMessage(37.7749, -122.4194, 100.0, 10.0, 2.0, 90.0))
	result := d.Decode(adv, &uav)

	require.True(t, result.Success, "decode failed: %s", result.Error)
	assert.Equal(t, MessageLocation, result.Type)
	require.True(t, uav.Location.Valid)

	assert.InDelta(t, 37.7749, uav.Location.Latitude, 1e-5)
	assert.InDelta(t, -122.4194, uav.Location.Longitude, 1e-5)
	assert.InDelta(t, 100.0, float64(uav.Location.AltitudeGeo), 0.5)
	assert.InDelta(t, 10.0, float64(uav.Location.SpeedHorizontal), 0.25)
	assert.InDelta(t, 2.0, float64(uav.Location.SpeedVertical), 0.5)
	assert.InDelta(t, 90.0, float64(uav.Location.Direction), 1.0)
	assert.Equal(t, StatusAirborne, uav.Location.Status)
}

func TestDecodeLocationSentinels(t *testing.T) {
	var d ASTMDecoder

	t.Run("horizontal speed unavailable", func(t *testing.T) {
		var uav UAVObject
		msg := makeLocationMessage(1.0, 2.0, 0, 0, 0, 0)
		msg[3] = 255
		require.True(t, d.Decode(makeBLEAdvertisement(msg), &uav).Success)
		assert.True(t, math.IsNaN(float64(uav.Location.SpeedHorizontal)))
	})

	t.Run("vertical speed unavailable", func(t *testing.T) {
		var uav UAVObject
		msg := makeLocationMessage(1.0, 2.0, 0, 0, 0, 0)
		msg[4] = 63
		require.True(t, d.Decode(makeBLEAdvertisement(msg), &uav).Success)
		assert.True(t, math.IsNaN(float64(uav.Location.SpeedVertical)))
	})

	t.Run("altitude unset encodes as zero", func(t *testing.T) {
		var uav UAVObject
		msg := makeLocationMessage(1.0, 2.0, 0, 0, 0, 0)
		msg[13], msg[14] = 0, 0
		require.True(t, d.Decode(makeBLEAdvertisement(msg), &uav).Success)
		assert.Equal(t, float32(0.0), uav.Location.AltitudeBaro)
	})
}

func TestDecodeHighRangeSpeed(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	msg := makeLocationMessage(1.0, 2.0, 0, 0, 0, 0)
	msg[1] |= 0x01 // speed multiplier bit
	msg[3] = 100   // 100 * 0.75 + 63.75 = 138.75 m/s

	require.True(t, d.Decode(makeBLEAdvertisement(msg), &uav).Success)
	assert.InDelta(t, 138.75, float64(uav.Location.SpeedHorizontal), 0.01)
}

// Altitude round-trip across the encodable range stays within the 0.5 m
// wire resolution, and lat/lon within the 1e-7 degree resolution.
func TestNumericRoundTrip(t *testing.T) {
	var d ASTMDecoder

	cases := []struct {
		lat, lon float64
		alt      float32
	}{
		{-90.0, -180.0, -1000.0},
		{-45.5, 170.25, 0.0},
		{0.0, 0.0, 123.5},
		{37.7749, -122.4194, 100.0},
		{89.9999999, 179.9999999, 31767.5},
	}

	for _, tc := range cases {
		var uav UAVObject
		msg := makeLocationMessage(tc.lat, tc.lon, tc.alt, 0, 0, 0)
		require.True(t, d.Decode(makeBLEAdvertisement(msg), &uav).Success)

		assert.InDelta(t, tc.lat, uav.Location.Latitude, 5e-8)
		assert.InDelta(t, tc.lon, uav.Location.Longitude, 5e-8)
		if tc.alt == -1000.0 {
			// -1000 m encodes as 0, the "unset" sentinel, which decodes
			// to 0.0 by definition.
			assert.Equal(t, float32(0.0), uav.Location.AltitudeGeo)
		} else {
			assert.InDelta(t, float64(tc.alt), float64(uav.Location.AltitudeGeo), 0.5)
		}
	}
}

func TestDecodeSelfID(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	msg := make([]byte, MessageSize)
	msg[0] = 0x32
	msg[1] = 0x00
	copy(msg[2:], "Survey flight")

	require.True(t, d.Decode(makeBLEAdvertisement(msg), &uav).Success)
	require.True(t, uav.SelfID.Valid)
	assert.Equal(t, "Survey flight", uav.SelfID.Description)
}

func TestDecodeSystem(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	msg := make([]byte, MessageSize)
	msg[0] = 0x42
	msg[1] = 0x10 // live GNSS operator location

	opLat := int32(48.8566 * 1e7)
	msg[2] = byte(opLat)
	msg[3] = byte(opLat >> 8)
	msg[4] = byte(opLat >> 16)
	msg[5] = byte(opLat >> 24)

	opLon := int32(2.3522 * 1e7)
	msg[6] = byte(opLon)
	msg[7] = byte(opLon >> 8)
	msg[8] = byte(opLon >> 16)
	msg[9] = byte(opLon >> 24)

	msg[10], msg[11] = 5, 0 // area count
	msg[12] = 25            // area radius / 10

	ceiling := uint16((120.0 + 1000.0) / 0.5)
	msg[13] = byte(ceiling)
	msg[14] = byte(ceiling >> 8)

	ts := uint32(1700000000)
	msg[17] = byte(ts)
	msg[18] = byte(ts >> 8)
	msg[19] = byte(ts >> 16)
	msg[20] = byte(ts >> 24)

	require.True(t, d.Decode(makeBLEAdvertisement(msg), &uav).Success)
	require.True(t, uav.System.Valid)

	assert.Equal(t, OperatorLocationLiveGNSS, uav.System.LocationType)
	assert.InDelta(t, 48.8566, uav.System.OperatorLatitude, 1e-5)
	assert.InDelta(t, 2.3522, uav.System.OperatorLongitude, 1e-5)
	assert.Equal(t, uint16(5), uav.System.AreaCount)
	assert.Equal(t, uint16(250), uav.System.AreaRadius)
	assert.InDelta(t, 120.0, float64(uav.System.AreaCeiling), 0.5)
	assert.Equal(t, ts, uav.System.Timestamp)
}

func TestDecodeOperatorID(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	msg := make([]byte, MessageSize)
	msg[0] = 0x52
	msg[1] = 0x00
	copy(msg[2:], "FIN87astrdge12k8")

	require.True(t, d.Decode(makeBLEAdvertisement(msg), &uav).Success)
	require.True(t, uav.OperatorID.Valid)
	assert.Equal(t, "FIN87astrdge12k8", uav.OperatorID.ID)
}

func TestDecodeAuth(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	msg := make([]byte, MessageSize)
	msg[0] = 0x22
	msg[1] = 0x10 // auth type 1, page 0
	for i := 2; i < MessageSize; i++ {
		msg[i] = byte(i)
	}

	require.True(t, d.Decode(makeBLEAdvertisement(msg), &uav).Success)
	assert.Len(t, uav.AuthData, MessageSize-1)
	assert.Equal(t, byte(0x10), uav.AuthData[0])
}

func TestDecodeUnknownType(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	msg := make([]byte, MessageSize)
	msg[0] = 0x62 // type 0x6 is not assigned

	result := d.Decode(makeBLEAdvertisement(msg), &uav)
	assert.False(t, result.Success)
	assert.Equal(t, "Unknown message type", result.Error)
}

func TestDecodeTruncatedMessage(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	result := d.DecodeMessage(make([]byte, 10), &uav)
	assert.False(t, result.Success)
	assert.Equal(t, "Message too short", result.Error)
	assert.Equal(t, uint32(0), uav.MessageCount)
}

// Packs can only declare a message size of 1..16 in the four size bits, so
// the required size of 25 can never match and every pack is rejected.
func TestDecodeMessagePackSizeMismatch(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	msg := make([]byte, MessageSize)
	msg[0] = 0xF2
	msg[1] = 0x81 // claimed size 9, one message

	result := d.DecodeMessage(msg, &uav)
	assert.False(t, result.Success)
	assert.Equal(t, MessagePack, result.Type)
}

func TestDecodeMessagePackNoRecursion(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	// A pack whose children are themselves packs must not recurse; the
	// decode terminates regardless of the claimed counts.
	msg := make([]byte, 256)
	msg[0] = 0xF2
	msg[1] = 0x8F
	for i := 2; i+1 < len(msg); i += MessageSize {
		msg[i] = 0xF2
		msg[i+1] = 0x8F
	}

	result := d.DecodeMessage(msg, &uav)
	assert.False(t, result.Success)
}

func TestExtendedAdvertising(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	// Loose BT5 container: leading AUX header bytes, then the service
	// data prefix with the message following directly (no counter).
	msg := makeBasicIDMessage("EXT0001", IDTypeSerialNumber, UAVTypeGlider)
	payload := append([]byte{0x0D, 0x10, 0x37, 0xC9, 0x51, 0x22, 0x18, 0xAB}, 0x16, 0xFA, 0xFF)
	payload = append(payload, msg...)

	assert.True(t, d.IsRemoteID(payload))

	result := d.Decode(payload, &uav)
	require.True(t, result.Success, "decode failed: %s", result.Error)
	assert.Equal(t, "EXT0001", uav.ID)
	assert.Equal(t, TransportBTExtended, uav.Transport)
}

func TestMessageCountAccumulates(t *testing.T) {
	var d ASTMDecoder
	var uav UAVObject

	require.True(t, d.Decode(makeBLEAdvertisement(makeBasicIDMessage("X1", IDTypeSerialNumber, UAVTypeOther)), &uav).Success)
	require.True(t, d.Decode(makeBLEAdvertisement(makeLocationMessage(1, 2, 50, 5, 0, 10)), &uav).Success)

	assert.Equal(t, uint32(2), uav.MessageCount)
}
