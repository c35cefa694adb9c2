package grid

import (
	"fmt"
	"maps"
	"slices"
)

// Variable is one numeric field of a Dataset, stored row-major.
type Variable struct {
	Name  string
	Dims  []string
	Shape []int
	Data  []float64
	Attrs map[string]string
}

// Len returns the number of elements.
func (v *Variable) Len() int { return len(v.Data) }

func (v *Variable) clone() *Variable {
	return &Variable{
		Name:  v.Name,
		Dims:  slices.Clone(v.Dims),
		Shape: slices.Clone(v.Shape),
		Data:  slices.Clone(v.Data),
		Attrs: maps.Clone(v.Attrs),
	}
}

// Dataset is an in-memory set of variables sharing named dimensions, the
// subset of a NetCDF file the grid helpers need.
type Dataset struct {
	dims  map[string]int
	vars  map[string]*Variable
	order []string
}

// NewDataset returns an empty Dataset.
func NewDataset() *Dataset {
	return &Dataset{dims: make(map[string]int), vars: make(map[string]*Variable)}
}

// AddVariable adds or replaces a variable. Dimension sizes must agree with
// the ones already in the dataset.
func (d *Dataset) AddVariable(name string, dims []string, shape []int, data []float64, attrs map[string]string) error {
	if len(dims) != len(shape) {
		return fmt.Errorf("variable %s: %d dims but %d sizes", name, len(dims), len(shape))
	}
	n := 1
	for i, dim := range dims {
		if size, ok := d.dims[dim]; ok && size != shape[i] {
			return fmt.Errorf("variable %s: dimension %s has size %d, dataset has %d", name, dim, shape[i], size)
		}
		n *= shape[i]
	}
	if n != len(data) {
		return fmt.Errorf("variable %s: shape %v holds %d values, got %d", name, shape, n, len(data))
	}

	for i, dim := range dims {
		d.dims[dim] = shape[i]
	}
	if _, ok := d.vars[name]; !ok {
		d.order = append(d.order, name)
	}
	if attrs == nil {
		attrs = make(map[string]string)
	}
	d.vars[name] = &Variable{
		Name:  name,
		Dims:  slices.Clone(dims),
		Shape: slices.Clone(shape),
		Data:  data,
		Attrs: attrs,
	}
	return nil
}

// Var looks up a variable by name.
func (d *Dataset) Var(name string) (*Variable, bool) {
	v, ok := d.vars[name]
	return v, ok
}

// VarNames returns variable names in insertion order.
func (d *Dataset) VarNames() []string {
	return slices.Clone(d.order)
}

// Dim returns the size of a dimension.
func (d *Dataset) Dim(name string) (int, bool) {
	n, ok := d.dims[name]
	return n, ok
}

// DimNames returns the dimension names, sorted.
func (d *Dataset) DimNames() []string {
	return slices.Sorted(maps.Keys(d.dims))
}

// RenameDim renames a dimension in the dataset and every variable using it.
func (d *Dataset) RenameDim(from, to string) error {
	size, ok := d.dims[from]
	if !ok {
		return fmt.Errorf("no dimension %s", from)
	}
	if from == to {
		return nil
	}
	if existing, ok := d.dims[to]; ok && existing != size {
		return fmt.Errorf("cannot rename %s to %s: sizes %d and %d differ", from, to, size, existing)
	}
	delete(d.dims, from)
	d.dims[to] = size
	for _, v := range d.vars {
		for i, dim := range v.Dims {
			if dim == from {
				v.Dims[i] = to
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		dims:  maps.Clone(d.dims),
		vars:  make(map[string]*Variable, len(d.vars)),
		order: slices.Clone(d.order),
	}
	for name, v := range d.vars {
		out.vars[name] = v.clone()
	}
	return out
}
