package analysis

import (
	"math"
	"time"

	"ridscan/internal/rid"
)

// TrajectoryPoint is one recorded sample of an aircraft track.
type TrajectoryPoint struct {
	Latitude  float64
	Longitude float64
	Altitude  float32
	Speed     float32 // reported horizontal speed, m/s
	Heading   float32 // degrees
	Timestamp time.Time
}

// PredictedPosition is a dead-reckoned future position.
type PredictedPosition struct {
	Latitude     float64
	Longitude    float64
	Altitude     float32
	Confidence   float64 // 0.0 - 1.0
	ErrorRadiusM float64
	PredictionAt time.Time
}

// TrajectoryStats summarizes a recorded track.
type TrajectoryStats struct {
	TotalDistanceM float64
	MaxSpeedMPS    float64
	AvgSpeedMPS    float64
	MaxAltitudeM   float32
	MinAltitudeM   float32
	Duration       time.Duration
	PointCount     int
}

// FlightPattern classifies the shape of a track.
type FlightPattern uint8

const (
	PatternUnknown    FlightPattern = 0
	PatternStationary FlightPattern = 1
	PatternLinear     FlightPattern = 2
	PatternCircular   FlightPattern = 3
	PatternPatrol     FlightPattern = 4
	PatternErratic    FlightPattern = 5
	PatternLanding    FlightPattern = 6
	PatternTakeoff    FlightPattern = 7
)

// String returns the pattern name.
func (p FlightPattern) String() string {
	switch p {
	case PatternStationary:
		return "Stationary"
	case PatternLinear:
		return "Linear"
	case PatternCircular:
		return "Circular"
	case PatternPatrol:
		return "Patrol"
	case PatternErratic:
		return "Erratic"
	case PatternLanding:
		return "Landing"
	case PatternTakeoff:
		return "Takeoff"
	default:
		return "Unknown"
	}
}

// TrajectoryConfig holds the analyzer tunables.
type TrajectoryConfig struct {
	MaxHistoryPoints         int
	SmoothingFactor          float64 // exponential smoothing alpha
	PredictionHorizon        time.Duration
	MinMovementM             float64 // below this, samples are not recorded
	StationarySpeedThreshold float64 // m/s
}

// DefaultTrajectoryConfig returns the stock tunables.
func DefaultTrajectoryConfig() TrajectoryConfig {
	return TrajectoryConfig{
		MaxHistoryPoints:         1000,
		SmoothingFactor:          0.3,
		PredictionHorizon:        5 * time.Second,
		MinMovementM:             1.0,
		StationarySpeedThreshold: 0.5,
	}
}

// Trajectory is the recorded track of one aircraft: the raw samples, their
// exponentially smoothed twin, cached statistics, and the last classified
// pattern.
type Trajectory struct {
	UAVID          string
	Points         []TrajectoryPoint
	SmoothedPoints []TrajectoryPoint
	Stats          TrajectoryStats
	Pattern        FlightPattern
}

func (t *Trajectory) addPoint(p TrajectoryPoint, maxSize int) {
	t.Points = append(t.Points, p)
	for len(t.Points) > maxSize {
		t.Points = t.Points[1:]
	}
}

func (t *Trajectory) calculateStats() {
	if len(t.Points) == 0 {
		t.Stats = TrajectoryStats{}
		return
	}

	stats := TrajectoryStats{
		PointCount:   len(t.Points),
		MaxAltitudeM: t.Points[0].Altitude,
		MinAltitudeM: t.Points[0].Altitude,
	}

	var speedSum float64

	for i, p := range t.Points {
		if p.Altitude > stats.MaxAltitudeM {
			stats.MaxAltitudeM = p.Altitude
		}
		if p.Altitude < stats.MinAltitudeM {
			stats.MinAltitudeM = p.Altitude
		}
		if float64(p.Speed) > stats.MaxSpeedMPS {
			stats.MaxSpeedMPS = float64(p.Speed)
		}
		speedSum += float64(p.Speed)

		if i > 0 {
			prev := t.Points[i-1]
			stats.TotalDistanceM += Distance(prev.Latitude, prev.Longitude, p.Latitude, p.Longitude)
		}
	}

	stats.AvgSpeedMPS = speedSum / float64(len(t.Points))

	if len(t.Points) >= 2 {
		stats.Duration = t.Points[len(t.Points)-1].Timestamp.Sub(t.Points[0].Timestamp)
	}

	t.Stats = stats
}

// TrajectoryAnalyzer records per-aircraft tracks and derives smoothing,
// prediction, statistics, and pattern classification. Invalid locations are
// silently ignored; the analyzer never fails.
type TrajectoryAnalyzer struct {
	config       TrajectoryConfig
	trajectories map[string]*Trajectory
}

// NewTrajectoryAnalyzer creates an analyzer with the default tunables.
func NewTrajectoryAnalyzer() *TrajectoryAnalyzer {
	return NewTrajectoryAnalyzerWithConfig(DefaultTrajectoryConfig())
}

// NewTrajectoryAnalyzerWithConfig creates an analyzer with cfg.
func NewTrajectoryAnalyzerWithConfig(cfg TrajectoryConfig) *TrajectoryAnalyzer {
	return &TrajectoryAnalyzer{
		config:       cfg,
		trajectories: make(map[string]*Trajectory),
	}
}

// AddPosition records a location sample for an aircraft. Samples closer
// than MinMovementM to the previous raw point are dropped. Statistics and
// the pattern are refreshed every ten recorded points.
func (a *TrajectoryAnalyzer) AddPosition(uavID string, location *rid.LocationVector) {
	a.addPositionAt(uavID, location, time.Now())
}

func (a *TrajectoryAnalyzer) addPositionAt(uavID string, location *rid.LocationVector, now time.Time) {
	if !location.Valid {
		return
	}

	traj, ok := a.trajectories[uavID]
	if !ok {
		traj = &Trajectory{UAVID: uavID}
		a.trajectories[uavID] = traj
	}

	point := TrajectoryPoint{
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
		Altitude:  location.AltitudeGeo,
		Speed:     location.SpeedHorizontal,
		Heading:   location.Direction,
		Timestamp: now,
	}

	if len(traj.Points) > 0 {
		last := traj.Points[len(traj.Points)-1]
		if Distance(last.Latitude, last.Longitude, point.Latitude, point.Longitude) < a.config.MinMovementM {
			return
		}
	}

	traj.addPoint(point, a.config.MaxHistoryPoints)

	if len(traj.SmoothedPoints) == 0 {
		traj.SmoothedPoints = append(traj.SmoothedPoints, point)
	} else {
		prev := traj.SmoothedPoints[len(traj.SmoothedPoints)-1]
		traj.SmoothedPoints = append(traj.SmoothedPoints, a.smoothPoint(point, prev))
		for len(traj.SmoothedPoints) > a.config.MaxHistoryPoints {
			traj.SmoothedPoints = traj.SmoothedPoints[1:]
		}
	}

	if len(traj.Points)%10 == 0 {
		traj.calculateStats()
		traj.Pattern = a.analyzePattern(traj)
	}
}

// Trajectory returns the recorded track for an aircraft, or nil if none.
// The returned value is owned by the analyzer and valid until the next
// mutating call.
func (a *TrajectoryAnalyzer) Trajectory(uavID string) *Trajectory {
	return a.trajectories[uavID]
}

// ActiveUAVs lists the aircraft with recorded tracks.
func (a *TrajectoryAnalyzer) ActiveUAVs() []string {
	ids := make([]string, 0, len(a.trajectories))
	for id := range a.trajectories {
		ids = append(ids, id)
	}
	return ids
}

// PredictPosition dead-reckons the aircraft position horizon from now using
// the last two smoothed points (raw points if smoothing has not started).
// With fewer than two points the prediction carries zero confidence.
func (a *TrajectoryAnalyzer) PredictPosition(uavID string, horizon time.Duration) PredictedPosition {
	pred := PredictedPosition{PredictionAt: time.Now().Add(horizon)}

	traj, ok := a.trajectories[uavID]
	if !ok || len(traj.Points) < 2 {
		return pred
	}

	points := traj.SmoothedPoints
	if len(points) < 2 {
		points = traj.Points
	}
	if len(points) < 2 {
		return pred
	}

	p1 := points[len(points)-2]
	p2 := points[len(points)-1]

	dt := p2.Timestamp.Sub(p1.Timestamp).Seconds()
	if dt <= 0 {
		pred.Latitude = p2.Latitude
		pred.Longitude = p2.Longitude
		pred.Altitude = p2.Altitude
		pred.Confidence = 0.5
		return pred
	}

	bearing := Bearing(p1.Latitude, p1.Longitude, p2.Latitude, p2.Longitude)
	distance := Distance(p1.Latitude, p1.Longitude, p2.Latitude, p2.Longitude)
	speed := distance / dt
	altRate := float64(p2.Altitude-p1.Altitude) / dt

	horizonS := horizon.Seconds()
	pred.Latitude, pred.Longitude = Project(p2.Latitude, p2.Longitude, bearing, speed*horizonS)
	pred.Altitude = p2.Altitude + float32(altRate*horizonS)

	pred.Confidence = math.Max(0.0, 1.0-horizonS/30.0)
	pred.ErrorRadiusM = speed*horizonS*0.1 + horizonS*2.0

	return pred
}

// SmoothedTrajectory returns a copy of the smoothed track.
func (a *TrajectoryAnalyzer) SmoothedTrajectory(uavID string) []TrajectoryPoint {
	traj, ok := a.trajectories[uavID]
	if !ok {
		return nil
	}
	return append([]TrajectoryPoint(nil), traj.SmoothedPoints...)
}

// ClassifyPattern returns the last computed pattern for an aircraft.
func (a *TrajectoryAnalyzer) ClassifyPattern(uavID string) FlightPattern {
	traj, ok := a.trajectories[uavID]
	if !ok {
		return PatternUnknown
	}
	return traj.Pattern
}

// Stats returns the last computed statistics for an aircraft.
func (a *TrajectoryAnalyzer) Stats(uavID string) TrajectoryStats {
	traj, ok := a.trajectories[uavID]
	if !ok {
		return TrajectoryStats{}
	}
	return traj.Stats
}

// Clear drops all recorded tracks.
func (a *TrajectoryAnalyzer) Clear() {
	a.trajectories = make(map[string]*Trajectory)
}

// ClearUAV drops the track for one aircraft.
func (a *TrajectoryAnalyzer) ClearUAV(uavID string) {
	delete(a.trajectories, uavID)
}

// Config returns the active tunables.
func (a *TrajectoryAnalyzer) Config() TrajectoryConfig {
	return a.config
}

func (a *TrajectoryAnalyzer) smoothPoint(raw, prev TrajectoryPoint) TrajectoryPoint {
	alpha := a.config.SmoothingFactor

	return TrajectoryPoint{
		Latitude:  alpha*raw.Latitude + (1-alpha)*prev.Latitude,
		Longitude: alpha*raw.Longitude + (1-alpha)*prev.Longitude,
		Altitude:  float32(alpha*float64(raw.Altitude) + (1-alpha)*float64(prev.Altitude)),
		Speed:     float32(alpha*float64(raw.Speed) + (1-alpha)*float64(prev.Speed)),
		Heading:   float32(alpha*float64(raw.Heading) + (1-alpha)*float64(prev.Heading)),
		Timestamp: raw.Timestamp,
	}
}

func (a *TrajectoryAnalyzer) analyzePattern(traj *Trajectory) FlightPattern {
	points := traj.Points
	if len(points) < 5 {
		return PatternUnknown
	}

	var avgSpeed float64
	for _, p := range points {
		avgSpeed += float64(p.Speed)
	}
	avgSpeed /= float64(len(points))

	if avgSpeed < a.config.StationarySpeedThreshold {
		return PatternStationary
	}

	altDiff := float64(points[len(points)-1].Altitude - points[0].Altitude)

	if altDiff < -10.0 && avgSpeed < 5.0 {
		return PatternLanding
	}
	if altDiff > 10.0 && avgSpeed < 5.0 {
		return PatternTakeoff
	}

	headingVar := headingVariance(points)

	if headingVar < 15.0 {
		return PatternLinear
	}

	// Consistent turning in one direction reads as a circular pattern.
	var totalTurn float64
	for i := 1; i < len(points); i++ {
		totalTurn += normalizeHeadingDelta(float64(points[i].Heading) - float64(points[i-1].Heading))
	}
	avgTurn := totalTurn / float64(len(points)-1)
	if math.Abs(avgTurn) > 5.0 && headingVar < 30.0 {
		return PatternCircular
	}

	// A handful of sharp reversals reads as a patrol leg pattern.
	directionChanges := 0
	for i := 2; i < len(points); i++ {
		h1 := normalizeHeadingDelta(float64(points[i-1].Heading) - float64(points[i-2].Heading))
		h2 := normalizeHeadingDelta(float64(points[i].Heading) - float64(points[i-1].Heading))

		if math.Abs(h2-h1) > 90 {
			directionChanges++
		}
	}
	if directionChanges >= 2 && directionChanges <= len(points)/5 {
		return PatternPatrol
	}

	if headingVar > 60.0 {
		return PatternErratic
	}

	return PatternUnknown
}

// headingVariance computes the circular standard deviation of the track
// headings in degrees.
func headingVariance(points []TrajectoryPoint) float64 {
	if len(points) < 2 {
		return 0.0
	}

	var sinSum, cosSum float64
	for _, p := range points {
		sinSum += math.Sin(float64(p.Heading) * degToRad)
		cosSum += math.Cos(float64(p.Heading) * degToRad)
	}
	mean := math.Atan2(sinSum, cosSum) * radToDeg

	var varSum float64
	for _, p := range points {
		diff := normalizeHeadingDelta(float64(p.Heading) - mean)
		varSum += diff * diff
	}

	return math.Sqrt(varSum / float64(len(points)))
}

// normalizeHeadingDelta folds a heading difference into (-180, 180].
func normalizeHeadingDelta(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d <= -180 {
		d += 360
	}
	return d
}
