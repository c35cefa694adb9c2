package grid

import (
	"fmt"

	"github.com/ctessum/geom"
)

// Polygon is a closed ring of (lon, lat) vertices in degrees. The closing
// vertex may be omitted.
type Polygon [][2]float64

// AlpineRegion outlines the Swiss Alps and adjacent valleys.
var AlpineRegion = Polygon{
	{5.9, 46.1}, {6.8, 45.8}, {7.9, 45.9}, {8.6, 46.0}, {9.3, 46.2},
	{10.2, 46.3}, {10.5, 46.9}, {9.6, 47.1}, {8.4, 46.9}, {7.3, 46.8},
	{6.4, 46.6},
}

func (p Polygon) toGeom() geom.Polygon {
	path := make(geom.Path, 0, len(p)+1)
	for _, v := range p {
		path = append(path, geom.Point{X: v[0], Y: v[1]})
	}
	if len(p) > 0 && p[0] != p[len(p)-1] {
		path = append(path, path[0])
	}
	return geom.Polygon{path}
}

// Mask reports for each grid point whether it lies inside poly or on its
// edge.
func Mask(lats, lons []float64, poly Polygon) ([]bool, error) {
	if len(lats) != len(lons) {
		return nil, fmt.Errorf("lats has %d points, lons has %d", len(lats), len(lons))
	}
	if len(poly) < 3 {
		return nil, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(poly))
	}
	gp := poly.toGeom()
	out := make([]bool, len(lats))
	for i := range lats {
		out[i] = geom.Point{X: lons[i], Y: lats[i]}.Within(gp) != geom.Outside
	}
	return out, nil
}

// Apply replaces values outside mask with fill. values and mask must have
// the same length.
func Apply(values []float64, mask []bool, fill float64) ([]float64, error) {
	if len(values) != len(mask) {
		return nil, fmt.Errorf("values has %d points, mask has %d", len(values), len(mask))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if mask[i] {
			out[i] = v
		} else {
			out[i] = fill
		}
	}
	return out, nil
}
