package grid

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

const fillValueAttr = "_FillValue"

// LoadDataset reads every numeric variable of a NetCDF file (classic or
// HDF5-based). Values equal to a variable's _FillValue become NaN.
// Text variables are skipped.
func LoadDataset(path string) (*Dataset, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()

	ds := NewDataset()
	for _, name := range nc.ListVariables() {
		v, err := nc.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("read variable %s: %w", name, err)
		}
		data, shape, ok, err := flatten(v.Values)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		if !ok {
			continue
		}
		attrs, fill, hasFill := attributes(v.Attributes)
		if hasFill {
			applyFill(data, fill)
		}
		if err := ds.AddVariable(name, v.Dimensions, shape, data, attrs); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// SaveDataset writes d as a classic NetCDF file. Attributes are written as
// text; all data is float64.
func SaveDataset(path string, d *Dataset) error {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	for _, name := range d.order {
		v := d.vars[name]
		keys := slices.Sorted(maps.Keys(v.Attrs))
		values := make(map[string]any, len(keys))
		for _, k := range keys {
			values[k] = v.Attrs[k]
		}
		attrs, err := util.NewOrderedMap(keys, values)
		if err != nil {
			_ = cw.Close()
			return fmt.Errorf("variable %s attributes: %w", name, err)
		}
		if err := cw.AddVar(name, api.Variable{
			Values:     reshape(v.Data, v.Shape),
			Dimensions: slices.Clone(v.Dims),
			Attributes: attrs,
		}); err != nil {
			_ = cw.Close()
			return fmt.Errorf("write variable %s: %w", name, err)
		}
	}
	return cw.Close()
}

func applyFill(data []float64, fill float64) {
	for i, x := range data {
		if x == fill {
			data[i] = math.NaN()
		}
	}
}

func attributes(am api.AttributeMap) (attrs map[string]string, fill float64, hasFill bool) {
	attrs = make(map[string]string)
	if am == nil {
		return attrs, 0, false
	}
	for _, k := range am.Keys() {
		val, ok := am.Get(k)
		if !ok {
			continue
		}
		attrs[k] = fmt.Sprint(val)
		if k != fillValueAttr {
			continue
		}
		if f, ok := numeric(reflect.ValueOf(val)); ok {
			fill, hasFill = f, true
		} else if f, err := strconv.ParseFloat(attrs[k], 64); err == nil {
			fill, hasFill = f, true
		}
	}
	return attrs, fill, hasFill
}

// flatten turns a (nested) slice of numbers into row-major data and its
// shape. ok is false for non-numeric values.
func flatten(values any) (data []float64, shape []int, ok bool, err error) {
	rv := reflect.ValueOf(values)
	if !rv.IsValid() {
		return nil, nil, false, nil
	}

	depth := 0
	leaf := rv.Type()
	for leaf.Kind() == reflect.Slice || leaf.Kind() == reflect.Array {
		leaf = leaf.Elem()
		depth++
	}
	if !isNumericKind(leaf.Kind()) {
		return nil, nil, false, nil
	}

	shape = make([]int, depth)
	for v, i := rv, 0; i < depth; i++ {
		shape[i] = v.Len()
		if v.Len() == 0 {
			break
		}
		v = v.Index(0)
	}

	if err := collect(rv, shape, &data); err != nil {
		return nil, nil, false, err
	}
	return data, shape, true, nil
}

func collect(v reflect.Value, shape []int, out *[]float64) error {
	if len(shape) == 0 {
		f, _ := numeric(v)
		*out = append(*out, f)
		return nil
	}
	if v.Len() != shape[0] {
		return fmt.Errorf("ragged array: got length %d, want %d", v.Len(), shape[0])
	}
	for i := 0; i < v.Len(); i++ {
		if err := collect(v.Index(i), shape[1:], out); err != nil {
			return err
		}
	}
	return nil
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func numeric(v reflect.Value) (float64, bool) {
	if !v.IsValid() {
		return 0, false
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Slice, reflect.Array:
		if v.Len() == 1 {
			return numeric(v.Index(0))
		}
	}
	return 0, false
}

// reshape is the inverse of flatten for float64 data.
func reshape(data []float64, shape []int) any {
	if len(shape) == 0 {
		if len(data) == 0 {
			return float64(0)
		}
		return data[0]
	}
	return build(data, shape).Interface()
}

func build(data []float64, shape []int) reflect.Value {
	if len(shape) == 1 {
		return reflect.ValueOf(slices.Clone(data))
	}
	elem := reflect.TypeFor[float64]()
	for range shape[1:] {
		elem = reflect.SliceOf(elem)
	}
	stride := 1
	for _, n := range shape[1:] {
		stride *= n
	}
	out := reflect.MakeSlice(reflect.SliceOf(elem), shape[0], shape[0])
	for i := 0; i < shape[0]; i++ {
		out.Index(i).Set(build(data[i*stride:(i+1)*stride], shape[1:]))
	}
	return out
}
