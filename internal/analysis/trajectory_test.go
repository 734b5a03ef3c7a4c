package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridscan/internal/rid"
)

func location(lat, lon float64, alt, speed, heading float32) *rid.LocationVector {
	return &rid.LocationVector{
		Valid:           true,
		Latitude:        lat,
		Longitude:       lon,
		AltitudeGeo:     alt,
		SpeedHorizontal: speed,
		Direction:       heading,
	}
}

// walkNorth feeds a steady northbound track: stepM meters between samples,
// interval apart.
func walkNorth(a *TrajectoryAnalyzer, id string, points int, stepM float64, speed float32, start time.Time, interval time.Duration) {
	for i := 0; i < points; i++ {
		lat := 37.0 + float64(i)*stepM/111195.0
		a.addPositionAt(id, location(lat, -122.0, 100, speed, 0), start.Add(time.Duration(i)*interval))
	}
}

func TestAddPositionIgnoresInvalid(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	a.AddPosition("DRONE1", &rid.LocationVector{Valid: false, Latitude: 37.0})

	assert.Nil(t, a.Trajectory("DRONE1"))
	assert.Empty(t, a.ActiveUAVs())
}

func TestMinimumMovementFilter(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	now := time.Now()

	a.addPositionAt("DRONE1", location(37.0, -122.0, 100, 1, 0), now)
	// 10 cm of movement is below the 1 m floor.
	a.addPositionAt("DRONE1", location(37.0+0.1/111195.0, -122.0, 100, 1, 0), now.Add(time.Second))
	// 5 m of movement records.
	a.addPositionAt("DRONE1", location(37.0+5.0/111195.0, -122.0, 100, 1, 0), now.Add(2*time.Second))

	traj := a.Trajectory("DRONE1")
	require.NotNil(t, traj)
	assert.Len(t, traj.Points, 2)
}

func TestSmoothingConverges(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	now := time.Now()

	walkNorth(a, "DRONE1", 10, 10.0, 5, now, time.Second)

	traj := a.Trajectory("DRONE1")
	require.NotNil(t, traj)
	require.Len(t, traj.SmoothedPoints, 10)

	// First smoothed point equals the first raw point.
	assert.Equal(t, traj.Points[0].Latitude, traj.SmoothedPoints[0].Latitude)

	// Smoothing lags the raw track on a monotonic path.
	last := len(traj.Points) - 1
	assert.Less(t, traj.SmoothedPoints[last].Latitude, traj.Points[last].Latitude)
	assert.Greater(t, traj.SmoothedPoints[last].Latitude, traj.Points[0].Latitude)
}

func TestHistoryBoundByConfig(t *testing.T) {
	cfg := DefaultTrajectoryConfig()
	cfg.MaxHistoryPoints = 20
	a := NewTrajectoryAnalyzerWithConfig(cfg)

	walkNorth(a, "DRONE1", 50, 5.0, 5, time.Now(), time.Second)

	traj := a.Trajectory("DRONE1")
	require.NotNil(t, traj)
	assert.Len(t, traj.Points, 20)
	assert.LessOrEqual(t, len(traj.SmoothedPoints), 20)
}

func TestPredictWithoutHistory(t *testing.T) {
	a := NewTrajectoryAnalyzer()

	pred := a.PredictPosition("NOPE", 5*time.Second)
	assert.Equal(t, 0.0, pred.Confidence)

	a.addPositionAt("DRONE1", location(37.0, -122.0, 100, 5, 0), time.Now())
	pred = a.PredictPosition("DRONE1", 5*time.Second)
	assert.Equal(t, 0.0, pred.Confidence)
}

func TestPredictProjectsForward(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	now := time.Now()

	// Northbound at 10 m/s, sampled once a second.
	walkNorth(a, "DRONE1", 5, 10.0, 10, now, time.Second)

	pred := a.PredictPosition("DRONE1", 5*time.Second)

	require.Greater(t, pred.Confidence, 0.0)
	assert.InDelta(t, 1.0-5.0/30.0, pred.Confidence, 1e-9)
	assert.Greater(t, pred.ErrorRadiusM, 0.0)

	traj := a.Trajectory("DRONE1")
	lastSmoothed := traj.SmoothedPoints[len(traj.SmoothedPoints)-1]

	// The prediction continues north of the last smoothed point.
	assert.Greater(t, pred.Latitude, lastSmoothed.Latitude)
	assert.InDelta(t, -122.0, pred.Longitude, 1e-4)
}

func TestPredictConfidenceDecays(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	walkNorth(a, "DRONE1", 5, 10.0, 10, time.Now(), time.Second)

	near := a.PredictPosition("DRONE1", 1*time.Second)
	far := a.PredictPosition("DRONE1", 20*time.Second)
	veryFar := a.PredictPosition("DRONE1", 40*time.Second)

	assert.Greater(t, near.Confidence, far.Confidence)
	assert.Equal(t, 0.0, veryFar.Confidence)
}

func TestStatsComputation(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	now := time.Now()

	// Exactly 10 points triggers the periodic stats refresh.
	walkNorth(a, "DRONE1", 10, 10.0, 8, now, time.Second)

	stats := a.Stats("DRONE1")
	assert.Equal(t, 10, stats.PointCount)
	assert.InDelta(t, 90.0, stats.TotalDistanceM, 1.0)
	assert.InDelta(t, 8.0, stats.AvgSpeedMPS, 1e-6)
	assert.InDelta(t, 8.0, stats.MaxSpeedMPS, 1e-6)
	assert.Equal(t, 9*time.Second, stats.Duration)
}

func TestClassifyStationary(t *testing.T) {
	cfg := DefaultTrajectoryConfig()
	cfg.MinMovementM = 0.5
	a := NewTrajectoryAnalyzerWithConfig(cfg)
	now := time.Now()

	// Hovering: barely drifting, reported speed near zero.
	for i := 0; i < 10; i++ {
		lat := 37.0 + float64(i)*0.8/111195.0
		a.addPositionAt("DRONE1", location(lat, -122.0, 100, 0.1, float32(i*37%360)), now.Add(time.Duration(i)*time.Second))
	}

	assert.Equal(t, PatternStationary, a.ClassifyPattern("DRONE1"))
}

func TestClassifyLinear(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	now := time.Now()

	// Constant heading, cruising speed.
	for i := 0; i < 10; i++ {
		lat := 37.0 + float64(i)*15.0/111195.0
		a.addPositionAt("DRONE1", location(lat, -122.0, 100, 15, 0), now.Add(time.Duration(i)*time.Second))
	}

	assert.Equal(t, PatternLinear, a.ClassifyPattern("DRONE1"))
}

func TestClassifyTakeoff(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	now := time.Now()

	// Climbing steadily with low forward speed.
	for i := 0; i < 10; i++ {
		lat := 37.0 + float64(i)*3.0/111195.0
		alt := float32(10 + i*5)
		a.addPositionAt("DRONE1", location(lat, -122.0, alt, 2, 0), now.Add(time.Duration(i)*time.Second))
	}

	assert.Equal(t, PatternTakeoff, a.ClassifyPattern("DRONE1"))
}

func TestClassifyLanding(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	now := time.Now()

	for i := 0; i < 10; i++ {
		lat := 37.0 + float64(i)*3.0/111195.0
		alt := float32(60 - i*5)
		a.addPositionAt("DRONE1", location(lat, -122.0, alt, 2, 0), now.Add(time.Duration(i)*time.Second))
	}

	assert.Equal(t, PatternLanding, a.ClassifyPattern("DRONE1"))
}

func TestClassifyCircular(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	now := time.Now()

	// Heading advances a steady 10 degrees per sample while orbiting.
	for i := 0; i < 10; i++ {
		bearing := float64(i) * 10.0
		lat, lon := Project(37.0, -122.0, bearing, 100)
		a.addPositionAt("DRONE1", location(lat, lon, 100, 8, float32(bearing)), now.Add(time.Duration(i)*time.Second))
	}

	assert.Equal(t, PatternCircular, a.ClassifyPattern("DRONE1"))
}

func TestClassifyUnknownWithFewPoints(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	now := time.Now()

	walkNorth(a, "DRONE1", 3, 10.0, 5, now, time.Second)
	assert.Equal(t, PatternUnknown, a.ClassifyPattern("DRONE1"))
}

func TestClearUAV(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	walkNorth(a, "DRONE1", 5, 10.0, 5, time.Now(), time.Second)
	walkNorth(a, "DRONE2", 5, 10.0, 5, time.Now(), time.Second)

	a.ClearUAV("DRONE1")
	assert.Nil(t, a.Trajectory("DRONE1"))
	assert.NotNil(t, a.Trajectory("DRONE2"))

	a.Clear()
	assert.Empty(t, a.ActiveUAVs())
}

func TestSmoothedTrajectoryIsACopy(t *testing.T) {
	a := NewTrajectoryAnalyzer()
	walkNorth(a, "DRONE1", 5, 10.0, 5, time.Now(), time.Second)

	smoothed := a.SmoothedTrajectory("DRONE1")
	require.Len(t, smoothed, 5)

	smoothed[0].Latitude = -99.0
	assert.NotEqual(t, -99.0, a.Trajectory("DRONE1").SmoothedPoints[0].Latitude)
}
