package grid

import (
	"errors"
	"fmt"
	"slices"
)

// FieldMapping copies grid variable From into the merged dataset as To.
type FieldMapping struct {
	From     string
	To       string
	Optional bool
}

// DefaultGridFields are the ICON grid fields appended by MergeGrid: cell
// centre coordinates and their vertex bounds.
var DefaultGridFields = []FieldMapping{
	{From: "clon", To: "clon"},
	{From: "clat", To: "clat"},
	{From: "clon_vertices", To: "clon_bnds", Optional: true},
	{From: "clat_vertices", To: "clat_bnds", Optional: true},
}

// MergeOptions controls MergeGrid. Zero values select the defaults.
type MergeOptions struct {
	// GridDim is the cell index dimension of the grid description, "cell" by default.
	GridDim string
	// ModelDim is the horizontal dimension of the model output, inferred
	// with InferDims when empty.
	ModelDim string
	Fields   []FieldMapping
}

// MergeGrid returns a copy of model with the grid description's coordinate
// fields appended. The grid's index dimension is renamed to the model's
// horizontal dimension; both must have the same size. Model variables on
// that dimension get a "coordinates" attribute naming the appended centres.
func MergeGrid(model, grid *Dataset, opts MergeOptions) (*Dataset, error) {
	if opts.GridDim == "" {
		opts.GridDim = "cell"
	}
	if opts.Fields == nil {
		opts.Fields = DefaultGridFields
	}
	if opts.ModelDim == "" {
		opts.ModelDim = InferDims(model.DimNames()).Cell
		if opts.ModelDim == "" {
			return nil, errors.New("cannot infer the horizontal dimension of the model output")
		}
	}

	gridCells, ok := grid.Dim(opts.GridDim)
	if !ok {
		return nil, fmt.Errorf("grid has no dimension %s", opts.GridDim)
	}
	modelCells, ok := model.Dim(opts.ModelDim)
	if !ok {
		return nil, fmt.Errorf("model output has no dimension %s", opts.ModelDim)
	}
	if gridCells != modelCells {
		return nil, fmt.Errorf("grid has %d cells, model output has %d", gridCells, modelCells)
	}

	out := model.Clone()
	added := make(map[string]string) // source name -> output name
	for _, f := range opts.Fields {
		gv, ok := grid.Var(f.From)
		if !ok {
			if f.Optional {
				continue
			}
			return nil, fmt.Errorf("grid has no variable %s", f.From)
		}
		v := gv.clone()
		for i, d := range v.Dims {
			if d == opts.GridDim {
				v.Dims[i] = opts.ModelDim
			}
		}
		if err := out.AddVariable(f.To, v.Dims, v.Shape, v.Data, v.Attrs); err != nil {
			return nil, fmt.Errorf("append %s: %w", f.From, err)
		}
		added[f.From] = f.To
	}

	for _, coord := range []string{"clon", "clat"} {
		centre, ok1 := added[coord]
		bounds, ok2 := added[coord+"_vertices"]
		if ok1 && ok2 {
			v, _ := out.Var(centre)
			v.Attrs["bounds"] = bounds
		}
	}

	coords := coordinatesAttr(added)
	if coords != "" {
		for _, name := range model.VarNames() {
			v, _ := out.Var(name)
			if _, set := v.Attrs["coordinates"]; !set && slices.Contains(v.Dims, opts.ModelDim) {
				v.Attrs["coordinates"] = coords
			}
		}
	}
	return out, nil
}

func coordinatesAttr(added map[string]string) string {
	lon, okLon := added["clon"]
	lat, okLat := added["clat"]
	if !okLon || !okLat {
		return ""
	}
	return lat + " " + lon
}
