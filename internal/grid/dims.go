package grid

import "strings"

// Dims names the roles of a variable's dimensions. Empty means absent.
type Dims struct {
	Time     string
	Vertical string
	Cell     string
}

var (
	timeNames     = []string{"time", "t", "valid_time", "step"}
	verticalNames = []string{"height", "z_mc", "z_ifc", "plev", "alt", "level", "lev", "depth", "bnds_height"}
	cellNames     = []string{"ncells", "cell", "cells", "values", "station", "nstations"}
)

// InferDims assigns roles to dims by name convention. Exact names are tried
// before prefixes (height_2, ncells_3), and the first dimension matching a
// role wins.
func InferDims(dims []string) Dims {
	var d Dims
	d.Time = match(dims, timeNames)
	d.Vertical = match(dims, verticalNames)
	d.Cell = match(dims, cellNames)
	return d
}

func match(dims, candidates []string) string {
	for _, dim := range dims {
		for _, c := range candidates {
			if strings.EqualFold(dim, c) {
				return dim
			}
		}
	}
	for _, dim := range dims {
		lower := strings.ToLower(dim)
		for _, c := range candidates {
			if len(c) > 1 && strings.HasPrefix(lower, c+"_") {
				return dim
			}
		}
	}
	return ""
}
