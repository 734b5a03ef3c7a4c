// Package boundary exposes the parser through fixed-layout record types for
// external callers (FFI shims, IPC, display layers that want stable ABI
// shapes). Strings live in fixed NUL-terminated byte arrays and enums
// travel as small integers; this package is conversion glue over the rid
// core.
package boundary

import (
	"time"

	"ridscan/internal/rid"
)

// Fixed field widths shared with external callers.
const (
	MaxIDLength          = 64
	MaxDescriptionLength = 64
	MaxErrorLength       = 128

	// MaxPayloadLength bounds accepted frames; longer payloads are
	// rejected before any scanning happens.
	MaxPayloadLength = 1024
)

// Location is the fixed-layout mirror of rid.LocationVector.
type Location struct {
	Valid        uint32
	Latitude     float64
	Longitude    float64
	AltitudeBaro float32
	AltitudeGeo  float32
	Height       float32
	SpeedH       float32
	SpeedV       float32
	Direction    float32
	Status       uint32
}

// SystemInfo is the fixed-layout mirror of rid.SystemInfo.
type SystemInfo struct {
	Valid      uint32
	OpLat      float64
	OpLon      float64
	Ceiling    float32
	Floor      float32
	AreaCount  uint16
	AreaRadius uint16
	Timestamp  uint32
}

// Uav is the fixed-layout mirror of rid.UAVObject. LastSeenMS is
// milliseconds on the clock used internally; callers treat it as opaque
// and monotonic per aircraft.
type Uav struct {
	ID        [MaxIDLength]byte
	IDType    uint32
	UAVType   uint32
	Protocol  uint32
	Transport uint32

	RSSI       int8
	LastSeenMS uint64

	Location Location
	System   SystemInfo

	HasSelfID  uint32
	SelfIDDesc [MaxDescriptionLength]byte

	HasOpID uint32
	OpID    [MaxIDLength]byte

	MsgCount uint32
}

// Result is the fixed-layout mirror of rid.ParseResult.
type Result struct {
	Success    uint32
	IsRemoteID uint32
	Protocol   uint32
	Error      [MaxErrorLength]byte
	Uav        Uav
}

// Config is the fixed-layout mirror of rid.Config; the timeout is carried
// in milliseconds.
type Config struct {
	TimeoutMS uint32
	Dedup     uint32
	ASTM      uint32
	ASD       uint32
	CN        uint32
}

// Callback consumes a fixed-layout record plus the user data registered
// with it. The record is a borrow valid only for the duration of the call.
type Callback func(uav *Uav, userData any)

// Handle is an opaque parser handle for boundary callers.
type Handle struct {
	parser *rid.Parser
}

// VersionString returns the library version.
func VersionString() string {
	return rid.Version
}

// DefaultConfig returns the stock configuration in boundary form.
func DefaultConfig() Config {
	return fromCoreConfig(rid.DefaultConfig())
}

// New creates a parser handle with the default configuration.
func New() *Handle {
	return &Handle{parser: rid.NewParser()}
}

// NewWithConfig creates a parser handle with cfg.
func NewWithConfig(cfg Config) *Handle {
	return &Handle{parser: rid.NewParserWithConfig(toCoreConfig(cfg))}
}

// Parse decodes one payload into out and returns 0 on success, non-zero on
// failure. Payloads longer than MaxPayloadLength are rejected unscanned.
func (h *Handle) Parse(payload []byte, rssi int8, transport uint32, out *Result) int {
	if out == nil {
		return 1
	}

	*out = Result{}

	if len(payload) > MaxPayloadLength {
		setString(out.Error[:], "Payload too large")
		return 1
	}

	result := h.parser.ParseBytes(payload, rssi, rid.TransportType(transport))

	out.Success = boolU32(result.Success)
	out.IsRemoteID = boolU32(result.IsRemoteID)
	out.Protocol = uint32(result.Protocol)
	setString(out.Error[:], result.Error)
	fromCoreUAV(&result.UAV, &out.Uav)

	if !result.Success {
		return 1
	}
	return 0
}

// ActiveCount returns the number of tracked aircraft.
func (h *Handle) ActiveCount() int {
	return h.parser.ActiveCount()
}

// ActiveUAVs copies up to len(dst) tracked aircraft into dst, most recently
// seen first, and returns the number copied.
func (h *Handle) ActiveUAVs(dst []Uav) int {
	uavs := h.parser.ActiveUAVs()

	n := 0
	for i := range uavs {
		if n >= len(dst) {
			break
		}
		fromCoreUAV(&uavs[i], &dst[n])
		n++
	}
	return n
}

// GetUAV fills out with the record for id, returning 0 if found.
func (h *Handle) GetUAV(id string, out *Uav) int {
	uav, ok := h.parser.GetUAV(id)
	if !ok || out == nil {
		return 1
	}
	fromCoreUAV(&uav, out)
	return 0
}

// Clear drops all tracked aircraft.
func (h *Handle) Clear() {
	h.parser.Clear()
}

// Cleanup evicts timed-out aircraft and returns how many were removed.
func (h *Handle) Cleanup() int {
	return len(h.parser.Cleanup())
}

// SetOnNewUAV registers the first-sighting callback with its user data.
func (h *Handle) SetOnNewUAV(cb Callback, userData any) {
	h.parser.SetOnNewUAV(wrapCallback(cb, userData))
}

// SetOnUAVUpdate registers the merge callback with its user data.
func (h *Handle) SetOnUAVUpdate(cb Callback, userData any) {
	h.parser.SetOnUAVUpdate(wrapCallback(cb, userData))
}

// SetOnUAVTimeout registers the eviction callback with its user data.
func (h *Handle) SetOnUAVTimeout(cb Callback, userData any) {
	h.parser.SetOnUAVTimeout(wrapCallback(cb, userData))
}

func wrapCallback(cb Callback, userData any) rid.UAVCallback {
	if cb == nil {
		return nil
	}
	return func(uav *rid.UAVObject) {
		var fixed Uav
		fromCoreUAV(uav, &fixed)
		cb(&fixed, userData)
	}
}

func toCoreConfig(cfg Config) rid.Config {
	return rid.Config{
		UAVTimeout:          time.Duration(cfg.TimeoutMS) * time.Millisecond,
		EnableDeduplication: cfg.Dedup != 0,
		EnableASTM:          cfg.ASTM != 0,
		EnableASD:           cfg.ASD != 0,
		EnableCN:            cfg.CN != 0,
	}
}

func fromCoreConfig(cfg rid.Config) Config {
	return Config{
		TimeoutMS: uint32(cfg.UAVTimeout.Milliseconds()),
		Dedup:     boolU32(cfg.EnableDeduplication),
		ASTM:      boolU32(cfg.EnableASTM),
		ASD:       boolU32(cfg.EnableASD),
		CN:        boolU32(cfg.EnableCN),
	}
}

func fromCoreUAV(src *rid.UAVObject, dst *Uav) {
	*dst = Uav{
		IDType:    uint32(src.IDType),
		UAVType:   uint32(src.UAVType),
		Protocol:  uint32(src.Protocol),
		Transport: uint32(src.Transport),
		RSSI:      src.RSSI,
		MsgCount:  src.MessageCount,
	}

	setString(dst.ID[:], src.ID)

	if !src.LastSeen.IsZero() {
		dst.LastSeenMS = uint64(src.LastSeen.UnixMilli())
	}

	dst.Location = Location{
		Valid:        boolU32(src.Location.Valid),
		Latitude:     src.Location.Latitude,
		Longitude:    src.Location.Longitude,
		AltitudeBaro: src.Location.AltitudeBaro,
		AltitudeGeo:  src.Location.AltitudeGeo,
		Height:       src.Location.Height,
		SpeedH:       src.Location.SpeedHorizontal,
		SpeedV:       src.Location.SpeedVertical,
		Direction:    src.Location.Direction,
		Status:       uint32(src.Location.Status),
	}

	dst.System = SystemInfo{
		Valid:      boolU32(src.System.Valid),
		OpLat:      src.System.OperatorLatitude,
		OpLon:      src.System.OperatorLongitude,
		Ceiling:    src.System.AreaCeiling,
		Floor:      src.System.AreaFloor,
		AreaCount:  src.System.AreaCount,
		AreaRadius: src.System.AreaRadius,
		Timestamp:  src.System.Timestamp,
	}

	dst.HasSelfID = boolU32(src.SelfID.Valid)
	setString(dst.SelfIDDesc[:], src.SelfID.Description)

	dst.HasOpID = boolU32(src.OperatorID.Valid)
	setString(dst.OpID[:], src.OperatorID.ID)
}

// setString copies s into a fixed NUL-terminated buffer, truncating to
// len(dst)-1 bytes.
func setString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	n := len(s)
	if n > len(dst)-1 {
		n = len(dst) - 1
	}
	copy(dst, s[:n])
}

// GetString reads a NUL-terminated fixed buffer back into a Go string.
func GetString(src []byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
