package matching

import "math"

// EarthRadiusKM is the mean Earth radius used for great-circle distances
const EarthRadiusKM = 6371.0

// GeoPoint is a latitude/longitude pair in degrees
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Distance returns the haversine great-circle distance in kilometers
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// rounding can push a slightly past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	return EarthRadiusKM * 2 * math.Asin(math.Sqrt(a))
}

// DistanceBetween is Distance over GeoPoints
func DistanceBetween(a, b GeoPoint) float64 {
	return Distance(a.Lat, a.Lng, b.Lat, b.Lng)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
