package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mainCampus() Zone {
	return Zone{
		ID:   "z1",
		Name: "Main Campus",
		Corners: [4]Point{
			{Lat: 40.7128, Lon: -74.006},
			{Lat: 40.7130, Lon: -74.005},
			{Lat: 40.7140, Lon: -74.004},
			{Lat: 40.7150, Lon: -74.003},
		},
	}
}

func square() Zone {
	return Zone{
		ID:   "z2",
		Name: "Quad",
		Corners: [4]Point{
			{Lat: 0, Lon: 0},
			{Lat: 0, Lon: 10},
			{Lat: 10, Lon: 10},
			{Lat: 10, Lon: 0},
		},
	}
}

func TestZoneContains(t *testing.T) {
	testCases := []struct {
		name   string
		zone   Zone
		point  Point
		inside bool
	}{
		{"square center", square(), Point{Lat: 5, Lon: 5}, true},
		{"square near corner", square(), Point{Lat: 9.9, Lon: 9.9}, true},
		{"square outside right", square(), Point{Lat: 5, Lon: 10.1}, false},
		{"square outside above", square(), Point{Lat: 10.1, Lon: 5}, false},
		{"square far away", square(), Point{Lat: -20, Lon: -20}, false},
		{"square edge midpoint", square(), Point{Lat: 5, Lon: 0}, true},
		{"campus interior", mainCampus(), Point{Lat: 40.7136, Lon: -74.0045}, true},
		{"campus fix on edge", mainCampus(), Point{Lat: 40.7135, Lon: -74.0045}, true},
		{"campus corner", mainCampus(), Point{Lat: 40.7130, Lon: -74.005}, true},
		{"campus west of zone", mainCampus(), Point{Lat: 40.7150, Lon: -74.006}, false},
		{"campus south of zone", mainCampus(), Point{Lat: 40.7120, Lon: -74.0045}, false},
		{"square collinear beyond edge", square(), Point{Lat: 15, Lon: 10}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.inside, tc.zone.Contains(tc.point))
		})
	}
}

// Containment must be stable: the same point against the same zone always
// yields the same answer, edges and corners included.
func TestZoneContainsDeterministic(t *testing.T) {
	z := mainCampus()
	points := []Point{
		{Lat: 40.7135, Lon: -74.0045}, // on an edge
		{Lat: 40.7130, Lon: -74.005},  // a corner
		{Lat: 0, Lon: 10},             // square corner against campus zone
	}
	for _, p := range points {
		first := z.Contains(p)
		for i := 0; i < 100; i++ {
			assert.Equal(t, first, z.Contains(p))
		}
	}
}
