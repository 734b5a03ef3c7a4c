package analysis

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"time"

	"ridscan/internal/rid"
)

// AnomalyType classifies what a detected anomaly indicates.
type AnomalyType uint8

const (
	AnomalyNone             AnomalyType = 0
	AnomalySpeedImpossible  AnomalyType = 1
	AnomalyPositionJump     AnomalyType = 2
	AnomalyAltitudeSpike    AnomalyType = 3
	AnomalyReplayAttack     AnomalyType = 4
	AnomalySignalAnomaly    AnomalyType = 5
	AnomalyTimestampAnomaly AnomalyType = 6
	AnomalyIDSpoof          AnomalyType = 7
)

// String returns the anomaly type name.
func (t AnomalyType) String() string {
	switch t {
	case AnomalySpeedImpossible:
		return "SpeedImpossible"
	case AnomalyPositionJump:
		return "PositionJump"
	case AnomalyAltitudeSpike:
		return "AltitudeSpike"
	case AnomalyReplayAttack:
		return "ReplayAttack"
	case AnomalySignalAnomaly:
		return "SignalAnomaly"
	case AnomalyTimestampAnomaly:
		return "TimestampAnomaly"
	case AnomalyIDSpoof:
		return "IDSpoof"
	default:
		return "None"
	}
}

// AnomalySeverity grades how certain an anomaly is.
type AnomalySeverity uint8

const (
	SeverityInfo     AnomalySeverity = 0
	SeverityWarning  AnomalySeverity = 1
	SeverityCritical AnomalySeverity = 2
)

// Anomaly is one detected irregularity in a UAV's update stream.
type Anomaly struct {
	Type        AnomalyType
	Severity    AnomalySeverity
	UAVID       string
	Description string
	Confidence  float64 // 0.0 - 1.0
	DetectedAt  time.Time

	ExpectedValue float64
	ActualValue   float64
}

// AnomalyConfig holds the detection thresholds.
type AnomalyConfig struct {
	MaxHorizontalSpeed float64 // m/s
	MaxVerticalSpeed   float64 // m/s
	MaxAcceleration    float64 // m/s^2

	MaxPositionJumpM      float64
	MaxAltitudeChangeRate float64 // m/s

	ReplayWindow      time.Duration
	MinDuplicateCount int

	RSSIDistanceTolerance float64
	MinRSSIChange         float64 // dB

	MaxTimestampGap time.Duration
}

// DefaultAnomalyConfig returns the stock thresholds.
func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{
		MaxHorizontalSpeed:    150.0, // ~540 km/h
		MaxVerticalSpeed:      50.0,
		MaxAcceleration:       30.0,
		MaxPositionJumpM:      1000.0,
		MaxAltitudeChangeRate: 100.0,
		ReplayWindow:          5 * time.Second,
		MinDuplicateCount:     3,
		RSSIDistanceTolerance: 0.3,
		MinRSSIChange:         20.0,
		MaxTimestampGap:       10 * time.Second,
	}
}

// Free-space path-loss model constants for the RSSI/distance cross-check.
const (
	rssiRef     = -50.0 // dBm at 1 m
	pathLossExp = 2.5
)

const maxHistory = 100

// uavHistory is the per-aircraft ring of recent observations. Eviction is
// FIFO once maxHistory entries accumulate.
type uavHistory struct {
	positions  []rid.LocationVector
	rssi       []int8
	timestamps []time.Time
	hashes     []uint32
}

func (h *uavHistory) add(loc rid.LocationVector, rssi int8, t time.Time, hash uint32) {
	h.positions = append(h.positions, loc)
	h.rssi = append(h.rssi, rssi)
	h.timestamps = append(h.timestamps, t)
	h.hashes = append(h.hashes, hash)

	for len(h.positions) > maxHistory {
		h.positions = h.positions[1:]
		h.rssi = h.rssi[1:]
		h.timestamps = h.timestamps[1:]
		h.hashes = h.hashes[1:]
	}
}

// AnomalyDetector flags physically implausible updates, replayed messages,
// and signal behavior inconsistent with reported movement. It never fails:
// updates it cannot judge are silently accepted.
type AnomalyDetector struct {
	config  AnomalyConfig
	history map[string]*uavHistory

	counts map[AnomalyType]int
	total  int
}

// NewAnomalyDetector creates a detector with the default thresholds.
func NewAnomalyDetector() *AnomalyDetector {
	return NewAnomalyDetectorWithConfig(DefaultAnomalyConfig())
}

// NewAnomalyDetectorWithConfig creates a detector with cfg.
func NewAnomalyDetectorWithConfig(cfg AnomalyConfig) *AnomalyDetector {
	return &AnomalyDetector{
		config:  cfg,
		history: make(map[string]*uavHistory),
		counts:  make(map[AnomalyType]int),
	}
}

// Analyze inspects one post-merge UAV update and returns any anomalies it
// triggers. An update with a valid location is appended to the aircraft's
// history afterwards; one without is judged but not recorded.
func (d *AnomalyDetector) Analyze(uav *rid.UAVObject, rssi int8) []Anomaly {
	return d.analyzeAt(uav, rssi, time.Now())
}

func (d *AnomalyDetector) analyzeAt(uav *rid.UAVObject, rssi int8, now time.Time) []Anomaly {
	if uav.ID == "" {
		return nil
	}

	msgHash := hashMessage(uav)

	hist, ok := d.history[uav.ID]
	if !ok {
		hist = &uavHistory{}
		d.history[uav.ID] = hist
	}

	var anomalies []Anomaly

	anomalies = append(anomalies, d.checkReplay(uav.ID, hist, msgHash, now)...)

	if len(hist.positions) > 0 && uav.Location.Valid {
		prev := hist.positions[len(hist.positions)-1]
		prevTime := hist.timestamps[len(hist.timestamps)-1]

		dt := now.Sub(prevTime).Seconds()

		if dt > 0 && dt < d.config.MaxTimestampGap.Seconds() {
			anomalies = append(anomalies, d.checkSpeed(uav.ID, &uav.Location, &prev, dt, now)...)
			anomalies = append(anomalies, d.checkPosition(uav.ID, &uav.Location, &prev, dt, now)...)
		}

		anomalies = append(anomalies, d.checkSignal(uav.ID, hist, rssi, &uav.Location, now)...)
	}

	if uav.Location.Valid {
		hist.add(uav.Location, rssi, now, msgHash)
	}

	for _, a := range anomalies {
		d.counts[a.Type]++
		d.total++
	}

	return anomalies
}

func (d *AnomalyDetector) checkSpeed(id string, current, previous *rid.LocationVector, dt float64, now time.Time) []Anomaly {
	var anomalies []Anomaly

	distance := Distance(previous.Latitude, previous.Longitude, current.Latitude, current.Longitude)
	speed := distance / dt

	if speed > d.config.MaxHorizontalSpeed {
		severity := SeverityWarning
		if speed > d.config.MaxHorizontalSpeed*2 {
			severity = SeverityCritical
		}
		anomalies = append(anomalies, Anomaly{
			Type:          AnomalySpeedImpossible,
			Severity:      severity,
			UAVID:         id,
			Description:   "Calculated horizontal speed exceeds physical limits",
			ExpectedValue: d.config.MaxHorizontalSpeed,
			ActualValue:   speed,
			Confidence:    math.Min(1.0, speed/(d.config.MaxHorizontalSpeed*3)),
			DetectedAt:    now,
		})
	}

	verticalSpeed := math.Abs(float64(current.AltitudeGeo-previous.AltitudeGeo)) / dt

	if verticalSpeed > d.config.MaxVerticalSpeed {
		severity := SeverityWarning
		if verticalSpeed > d.config.MaxVerticalSpeed*2 {
			severity = SeverityCritical
		}
		anomalies = append(anomalies, Anomaly{
			Type:          AnomalyAltitudeSpike,
			Severity:      severity,
			UAVID:         id,
			Description:   "Vertical speed exceeds physical limits",
			ExpectedValue: d.config.MaxVerticalSpeed,
			ActualValue:   verticalSpeed,
			Confidence:    math.Min(1.0, verticalSpeed/(d.config.MaxVerticalSpeed*3)),
			DetectedAt:    now,
		})
	}

	// Acceleration derived from the reported speed field. NaN speeds
	// (unavailable sentinel) fail the comparison and are skipped.
	speedChange := math.Abs(float64(current.SpeedHorizontal - previous.SpeedHorizontal))
	acceleration := speedChange / dt

	if acceleration > d.config.MaxAcceleration {
		anomalies = append(anomalies, Anomaly{
			Type:          AnomalySpeedImpossible,
			Severity:      SeverityWarning,
			UAVID:         id,
			Description:   "Acceleration exceeds reasonable limits",
			ExpectedValue: d.config.MaxAcceleration,
			ActualValue:   acceleration,
			Confidence:    math.Min(1.0, acceleration/(d.config.MaxAcceleration*2)),
			DetectedAt:    now,
		})
	}

	return anomalies
}

func (d *AnomalyDetector) checkPosition(id string, current, previous *rid.LocationVector, dt float64, now time.Time) []Anomaly {
	distance := Distance(previous.Latitude, previous.Longitude, current.Latitude, current.Longitude)
	maxPossible := d.config.MaxHorizontalSpeed * dt

	if distance > d.config.MaxPositionJumpM && distance > maxPossible*1.5 {
		return []Anomaly{{
			Type:          AnomalyPositionJump,
			Severity:      SeverityCritical,
			UAVID:         id,
			Description:   "Position jumped impossibly far",
			ExpectedValue: maxPossible,
			ActualValue:   distance,
			Confidence:    math.Min(1.0, distance/(maxPossible*3)),
			DetectedAt:    now,
		}}
	}

	return nil
}

func (d *AnomalyDetector) checkReplay(id string, hist *uavHistory, msgHash uint32, now time.Time) []Anomaly {
	duplicates := 0
	for i, h := range hist.hashes {
		if h == msgHash && now.Sub(hist.timestamps[i]) < d.config.ReplayWindow {
			duplicates++
		}
	}

	if duplicates >= d.config.MinDuplicateCount {
		return []Anomaly{{
			Type:          AnomalyReplayAttack,
			Severity:      SeverityCritical,
			UAVID:         id,
			Description:   "Duplicate messages detected (possible replay attack)",
			ExpectedValue: 0,
			ActualValue:   float64(duplicates),
			Confidence:    math.Min(1.0, float64(duplicates)/10.0),
			DetectedAt:    now,
		}}
	}

	return nil
}

func (d *AnomalyDetector) checkSignal(id string, hist *uavHistory, currentRSSI int8, location *rid.LocationVector, now time.Time) []Anomaly {
	if len(hist.rssi) < 3 {
		return nil
	}

	var sum float64
	for _, r := range hist.rssi {
		sum += float64(r)
	}
	avg := sum / float64(len(hist.rssi))

	rssiDiff := math.Abs(float64(currentRSSI) - avg)
	if rssiDiff <= d.config.MinRSSIChange {
		return nil
	}

	prev := hist.positions[len(hist.positions)-1]
	distance := Distance(prev.Latitude, prev.Longitude, location.Latitude, location.Longitude)

	// RSSI swing should track the distance change per the path-loss model.
	expectedChange := 10.0 * pathLossExp * math.Log10(math.Max(1.0, distance))

	if rssiDiff > expectedChange*(1.0+d.config.RSSIDistanceTolerance) {
		return []Anomaly{{
			Type:          AnomalySignalAnomaly,
			Severity:      SeverityWarning,
			UAVID:         id,
			Description:   "RSSI change inconsistent with position change",
			ExpectedValue: expectedChange,
			ActualValue:   rssiDiff,
			Confidence:    math.Min(1.0, rssiDiff/40.0),
			DetectedAt:    now,
		}}
	}

	return nil
}

// TotalAnomalies returns the count of all anomalies emitted so far.
func (d *AnomalyDetector) TotalAnomalies() int {
	return d.total
}

// AnomalyCount returns the count emitted for one anomaly type.
func (d *AnomalyDetector) AnomalyCount(t AnomalyType) int {
	return d.counts[t]
}

// Clear drops all history and counters.
func (d *AnomalyDetector) Clear() {
	d.history = make(map[string]*uavHistory)
	d.counts = make(map[AnomalyType]int)
	d.total = 0
}

// ClearUAV drops the history for one aircraft.
func (d *AnomalyDetector) ClearUAV(id string) {
	delete(d.history, id)
}

// Config returns the active thresholds.
func (d *AnomalyDetector) Config() AnomalyConfig {
	return d.config
}

// EstimateDistanceFromRSSI inverts the free-space path-loss model to a
// rough transmitter distance in meters.
func EstimateDistanceFromRSSI(rssi int8) float64 {
	exponent := (rssiRef - float64(rssi)) / (10.0 * pathLossExp)
	return math.Pow(10.0, exponent)
}

// hashMessage combines the identity and kinematic fields into a compact
// fingerprint for replay detection.
func hashMessage(uav *rid.UAVObject) uint32 {
	h := fnv.New32a()
	h.Write([]byte(uav.ID))

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(uav.Location.Latitude))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(uav.Location.Longitude))
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(uav.Location.AltitudeGeo))
	h.Write(buf[:4])
	binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(uav.Location.SpeedHorizontal))
	h.Write(buf[:4])

	return h.Sum32()
}
