package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKnownPairs(t *testing.T) {
	// San Francisco to Los Angeles, roughly 559 km.
	d := Distance(37.7749, -122.4194, 34.0522, -118.2437)
	assert.InDelta(t, 559000, d, 5000)

	// Identity.
	assert.InDelta(t, 0.0, Distance(37.0, -122.0, 37.0, -122.0), 1e-9)

	// One degree of latitude is about 111.2 km.
	assert.InDelta(t, 111195, Distance(0, 0, 1, 0), 100)
}

func TestBearingRange(t *testing.T) {
	assert.InDelta(t, 0.0, Bearing(0, 0, 1, 0), 0.1)   // due north
	assert.InDelta(t, 90.0, Bearing(0, 0, 0, 1), 0.1)  // due east
	assert.InDelta(t, 180.0, Bearing(1, 0, 0, 0), 0.1) // due south
	assert.InDelta(t, 270.0, Bearing(0, 1, 0, 0), 0.1) // due west

	for _, b := range []float64{
		Bearing(37.0, -122.0, 38.0, -121.0),
		Bearing(-45.0, 170.0, -44.0, -170.0),
		Bearing(60.0, 10.0, 59.0, 9.0),
	} {
		assert.GreaterOrEqual(t, b, 0.0)
		assert.Less(t, b, 360.0)
	}
}

// Projecting a point along a bearing and measuring back recovers the
// distance within a meter for distances up to 100 km.
func TestProjectDistanceConsistency(t *testing.T) {
	cases := []struct {
		lat, lon, bearing, distance float64
	}{
		{37.7749, -122.4194, 0, 1000},
		{37.7749, -122.4194, 45, 5000},
		{37.7749, -122.4194, 90, 100},
		{-33.8688, 151.2093, 135, 25000},
		{59.9139, 10.7522, 270, 100000},
		{0.0, 0.0, 222.5, 100000},
	}

	for _, tc := range cases {
		lat2, lon2 := Project(tc.lat, tc.lon, tc.bearing, tc.distance)
		d := Distance(tc.lat, tc.lon, lat2, lon2)
		assert.InDelta(t, tc.distance, d, 1.0,
			"bearing %.1f distance %.0f", tc.bearing, tc.distance)
	}
}

func TestProjectBearingConsistency(t *testing.T) {
	lat2, lon2 := Project(37.7749, -122.4194, 60.0, 10000)
	b := Bearing(37.7749, -122.4194, lat2, lon2)
	assert.InDelta(t, 60.0, b, 0.5)

	// Projection by zero distance stays put.
	lat3, lon3 := Project(37.7749, -122.4194, 123.0, 0)
	assert.InDelta(t, 37.7749, lat3, 1e-9)
	assert.InDelta(t, -122.4194, lon3, 1e-9)
}

func TestDistanceNonNegative(t *testing.T) {
	assert.False(t, math.Signbit(Distance(10, 20, -10, -20)))
}
