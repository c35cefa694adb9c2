package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/umahmood/haversine"
)

// ErrEmptyGrid is returned when no grid point has usable coordinates.
var ErrEmptyGrid = errors.New("grid has no valid points")

// Metric selects how distances between points are measured.
type Metric int

const (
	// Euclidean compares raw degree differences, matching the usual quick
	// lookup on model output.
	Euclidean Metric = iota
	// GreatCircle uses the haversine distance on the sphere.
	GreatCircle
)

// NearestIndex returns the index of the grid point closest to (lat, lon),
// measuring sqrt(dlat² + dlon²) in degrees. The first of equally close
// points wins. Points with NaN coordinates are ignored.
func NearestIndex(lats, lons []float64, lat, lon float64) (int, error) {
	return nearest(lats, lons, lat, lon, Euclidean)
}

// NearestIndexHaversine is NearestIndex with great-circle distance.
func NearestIndexHaversine(lats, lons []float64, lat, lon float64) (int, error) {
	return nearest(lats, lons, lat, lon, GreatCircle)
}

func nearest(lats, lons []float64, lat, lon float64, m Metric) (int, error) {
	if len(lats) != len(lons) {
		return -1, fmt.Errorf("lats has %d points, lons has %d", len(lats), len(lons))
	}
	best, bestDist := -1, math.Inf(1)
	target := haversine.Coord{Lat: lat, Lon: lon}
	for i := range lats {
		var d float64
		switch m {
		case GreatCircle:
			_, d = haversine.Distance(target, haversine.Coord{Lat: lats[i], Lon: lons[i]})
		default:
			d = math.Hypot(lats[i]-lat, lons[i]-lon)
		}
		if math.IsNaN(d) {
			continue
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return -1, ErrEmptyGrid
	}
	return best, nil
}

// Locator finds the nearest grid point to a location.
type Locator interface {
	Nearest(lat, lon float64) (int, error)
}

// GridLocator searches a fixed set of grid points.
type GridLocator struct {
	lats, lons []float64
	metric     Metric
}

// NewGridLocator validates the coordinates once so later lookups only fail
// for an all-NaN grid.
func NewGridLocator(lats, lons []float64, metric Metric) (*GridLocator, error) {
	if len(lats) != len(lons) {
		return nil, fmt.Errorf("lats has %d points, lons has %d", len(lats), len(lons))
	}
	if len(lats) == 0 {
		return nil, ErrEmptyGrid
	}
	return &GridLocator{lats: lats, lons: lons, metric: metric}, nil
}

func (g *GridLocator) Nearest(lat, lon float64) (int, error) {
	return nearest(g.lats, g.lons, lat, lon, g.metric)
}
