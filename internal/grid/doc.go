// Package grid holds post-processing helpers for gridded model output:
// nearest grid point lookup, de-averaging of accumulated fields, dimension
// name inference, polygon masks, lead time conversion and merging of grid
// metadata into model output.
//
// Coordinates are in degrees unless a name says otherwise (clon and clat in
// ICON grid files are radians).
package grid
