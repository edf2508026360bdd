package geo

import (
	"math"
	"testing"
)

func TestDistanceKnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64 // meters
		tolerance              float64 // fraction
	}{
		{
			// One degree of latitude at the equator is ~111.2 km.
			name: "one degree latitude",
			lat1: 0, lng1: 0, lat2: 1, lng2: 0,
			want: 111195, tolerance: 0.01,
		},
		{
			// 0.009 degrees latitude is almost exactly 1 km.
			name: "one kilometer north",
			lat1: 0, lng1: 0, lat2: 0.0089932, lng2: 0,
			want: 1000, tolerance: 0.01,
		},
		{
			name: "paris to london",
			lat1: 48.8566, lng1: 2.3522, lat2: 51.5074, lng2: -0.1278,
			want: 343500, tolerance: 0.01,
		},
		{
			name: "longitude shrinks with latitude",
			lat1: 60, lng1: 0, lat2: 60, lng2: 1,
			want: 55597, tolerance: 0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > tt.want*tt.tolerance {
				t.Errorf("Distance = %.1f m, want %.1f m ± %.0f%%", got, tt.want, tt.tolerance*100)
			}
		})
	}
}

func TestDistanceZero(t *testing.T) {
	if d := Distance(45.5, -122.6, 45.5, -122.6); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := Distance(40.7128, -74.0060, 34.0522, -118.2437)
	b := Distance(34.0522, -118.2437, 40.7128, -74.0060)
	if math.Abs(a-b) > 1e-6 {
		t.Errorf("asymmetric distance: %f vs %f", a, b)
	}
}
