// Package geo measures great-circle distances between venues and a user.
package geo

import (
	"fmt"
	"math"
	"sort"
)

// EarthRadiusMiles is the mean Earth radius used by Distance.
const EarthRadiusMiles = 3958.8

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether p lies within the coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the haversine distance between a and b in miles.
func Distance(a, b Point) float64 {
	dLat := rad(b.Lat - a.Lat)
	dLon := rad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Format renders a distance for display: "Nearby" under a tenth of a mile,
// otherwise one decimal place.
func Format(miles float64) string {
	if miles < 0.1 {
		return "Nearby"
	}
	return fmt.Sprintf("%.1f mi", miles)
}

// SortByDistance orders idx (indexes into points) nearest-first from origin.
// Ties keep their input order.
func SortByDistance(origin Point, points []Point) []int {
	idx := make([]int, len(points))
	dist := make([]float64, len(points))
	for i, p := range points {
		idx[i] = i
		dist[i] = Distance(origin, p)
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return dist[idx[i]] < dist[idx[j]]
	})
	return idx
}
