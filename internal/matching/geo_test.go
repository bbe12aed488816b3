package matching

import (
	"math"
	"testing"
)

func TestDistance_SymmetryAndIdentity(t *testing.T) {
	points := []GeoPoint{
		{Lat: 10.7769, Lng: 106.6955},
		{Lat: 10.7626, Lng: 106.6602},
		{Lat: 21.0285, Lng: 105.8542},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 0, Lng: 0},
	}

	for _, a := range points {
		if d := DistanceBetween(a, a); d != 0 {
			t.Fatalf("distance(%v, %v) = %f, want 0", a, a, d)
		}
		for _, b := range points {
			ab := DistanceBetween(a, b)
			ba := DistanceBetween(b, a)
			if math.Abs(ab-ba) > 1e-9 {
				t.Fatalf("distance not symmetric: %f vs %f", ab, ba)
			}
			if ab < 0 {
				t.Fatalf("negative distance %f", ab)
			}
		}
	}
}

func TestDistance_KnownValues(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{"district 1 to district 5", 10.7769, 106.6955, 10.7626, 106.6602, 4.17, 0.01},
		{"saigon to hanoi", 10.7769, 106.6955, 21.0285, 105.8542, 1143.46, 0.5},
		{"antipodal on equator", 0, 0, 0, 180, math.Pi * EarthRadiusKM, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Fatalf("Distance() = %f, want %f ± %f", got, tt.want, tt.tolerance)
			}
		})
	}
}
