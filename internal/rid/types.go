// Package rid decodes Open Drone ID Remote-ID broadcasts (ASTM F3411 and
// ASD-STAN EN 4709-002) from raw Bluetooth and WiFi frames and tracks the
// observed aircraft in a session registry.
package rid

import "time"

// Version is the library version string exposed to boundary callers.
const Version = "1.0.0"

// ProtocolType identifies the Remote ID wire standard a frame was decoded with.
type ProtocolType uint8

const (
	ProtocolUnknown   ProtocolType = 0
	ProtocolASTMF3411 ProtocolType = 1 // USA/international standard
	ProtocolASDStan   ProtocolType = 2 // EU standard
	ProtocolCNRID     ProtocolType = 3 // China standard (reserved)
)

// String returns the protocol name.
func (p ProtocolType) String() string {
	switch p {
	case ProtocolASTMF3411:
		return "ASTM-F3411"
	case ProtocolASDStan:
		return "ASD-STAN"
	case ProtocolCNRID:
		return "CN-RID"
	default:
		return "Unknown"
	}
}

// TransportType identifies the radio transport a frame arrived on.
type TransportType uint8

const (
	TransportUnknown    TransportType = 0
	TransportBTLegacy   TransportType = 1 // Bluetooth 4.x legacy advertising
	TransportBTExtended TransportType = 2 // Bluetooth 5.x extended advertising
	TransportWiFiBeacon TransportType = 3
	TransportWiFiNAN    TransportType = 4
)

// String returns the transport name.
func (t TransportType) String() string {
	switch t {
	case TransportBTLegacy:
		return "BT-Legacy"
	case TransportBTExtended:
		return "BT-Extended"
	case TransportWiFiBeacon:
		return "WiFi-Beacon"
	case TransportWiFiNAN:
		return "WiFi-NAN"
	default:
		return "Unknown"
	}
}

// RawFrame is a single radio capture handed to the parser. The payload is
// borrowed for the duration of the Parse call.
type RawFrame struct {
	Payload   []byte
	RSSI      int8 // dBm
	Transport TransportType
	Timestamp time.Time
}

// UAVIDType is the Basic ID identifier class.
type UAVIDType uint8

const (
	IDTypeNone            UAVIDType = 0
	IDTypeSerialNumber    UAVIDType = 1
	IDTypeCAARegistration UAVIDType = 2
	IDTypeUTMAssigned     UAVIDType = 3
	IDTypeSpecificSession UAVIDType = 4
)

// UAVType is the airframe classification from the Basic ID message.
type UAVType uint8

const (
	UAVTypeNone                   UAVType = 0
	UAVTypeAeroplane              UAVType = 1
	UAVTypeHelicopterOrMultirotor UAVType = 2
	UAVTypeGyroplane              UAVType = 3
	UAVTypeHybridLift             UAVType = 4
	UAVTypeOrnithopter            UAVType = 5
	UAVTypeGlider                 UAVType = 6
	UAVTypeKite                   UAVType = 7
	UAVTypeFreeBalloon            UAVType = 8
	UAVTypeCaptiveBalloon         UAVType = 9
	UAVTypeAirship                UAVType = 10
	UAVTypeFreeFallParachute      UAVType = 11
	UAVTypeRocket                 UAVType = 12
	UAVTypeTetheredPowered        UAVType = 13
	UAVTypeGroundObstacle         UAVType = 14
	UAVTypeOther                  UAVType = 15
)

// OperatorLocationType tells how the operator position in the System
// message was obtained.
type OperatorLocationType uint8

const (
	OperatorLocationTakeoff  OperatorLocationType = 0
	OperatorLocationLiveGNSS OperatorLocationType = 1
	OperatorLocationFixed    OperatorLocationType = 2
)

// HeightReference is the datum for the height field in Location messages.
type HeightReference uint8

const (
	HeightAboveTakeoff HeightReference = 0
	HeightAboveGround  HeightReference = 1
)

// HorizontalAccuracy mirrors the wire encoding of horizontal position accuracy.
type HorizontalAccuracy uint8

const (
	HAccUnknown HorizontalAccuracy = iota
	HAccLessThan10NM
	HAccLessThan4NM
	HAccLessThan2NM
	HAccLessThan1NM
	HAccLessThan05NM
	HAccLessThan03NM
	HAccLessThan01NM
	HAccLessThan005NM
	HAccLessThan30M
	HAccLessThan10M
	HAccLessThan3M
	HAccLessThan1M
)

// VerticalAccuracy mirrors the wire encoding of vertical position accuracy.
type VerticalAccuracy uint8

const (
	VAccUnknown VerticalAccuracy = iota
	VAccLessThan150M
	VAccLessThan45M
	VAccLessThan25M
	VAccLessThan10M
	VAccLessThan3M
	VAccLessThan1M
)

// SpeedAccuracy mirrors the wire encoding of speed accuracy.
type SpeedAccuracy uint8

const (
	SAccUnknown SpeedAccuracy = iota
	SAccLessThan10MPS
	SAccLessThan3MPS
	SAccLessThan1MPS
	SAccLessThan03MPS
)

// UAVStatus is the operational status reported in Location messages.
type UAVStatus uint8

const (
	StatusUndeclared      UAVStatus = 0
	StatusGround          UAVStatus = 1
	StatusAirborne        UAVStatus = 2
	StatusEmergency       UAVStatus = 3
	StatusRemoteIDFailure UAVStatus = 4
)

// LocationVector carries the decoded Location/Vector message fields.
// Speed, vertical speed and direction are NaN when the wire value is the
// "unavailable" sentinel.
type LocationVector struct {
	Valid           bool
	Latitude        float64 // degrees
	Longitude       float64 // degrees
	AltitudeBaro    float32 // meters
	AltitudeGeo     float32 // meters
	Height          float32 // meters above HeightRef
	HeightRef       HeightReference
	SpeedHorizontal float32 // m/s
	SpeedVertical   float32 // m/s, positive up
	Direction       float32 // degrees, 0-360
	HAccuracy       HorizontalAccuracy
	VAccuracy       VerticalAccuracy
	SpeedAccuracy   SpeedAccuracy
	Status          UAVStatus
	TimestampOffset uint16 // 0.1 s units since top of hour
}

// SystemInfo carries the decoded System message fields (operator/area info).
type SystemInfo struct {
	Valid             bool
	LocationType      OperatorLocationType
	OperatorLatitude  float64
	OperatorLongitude float64
	AreaCeiling       float32 // meters
	AreaFloor         float32 // meters
	AreaCount         uint16
	AreaRadius        uint16 // meters
	Timestamp         uint32 // Unix seconds
}

// SelfID carries the free-text Self-ID message.
type SelfID struct {
	Valid           bool
	DescriptionType uint8
	Description     string
}

// OperatorID carries the Operator ID message.
type OperatorID struct {
	Valid  bool
	IDType uint8
	ID     string
}

// UAVObject is the merged state of one observed aircraft. Optional message
// parts accumulate across frames: a part stamped valid stays valid until the
// record times out.
type UAVObject struct {
	ID      string
	IDType  UAVIDType
	UAVType UAVType

	Protocol  ProtocolType
	Transport TransportType

	RSSI     int8
	LastSeen time.Time

	Location   LocationVector
	System     SystemInfo
	SelfID     SelfID
	OperatorID OperatorID

	// Authentication payload, kept opaque. Interpretation depends on the
	// auth type carried in the first byte.
	AuthData []byte

	MessageCount uint32
}

// ParseResult is returned by Parser.Parse.
type ParseResult struct {
	Success    bool
	IsRemoteID bool
	Protocol   ProtocolType
	Error      string

	// UAV holds the parsed aircraft data; meaningful only when Success
	// and IsRemoteID are both set.
	UAV UAVObject
}
