package grid

import "github.com/couchcryptid/dwh-retrieval/internal/domain"

// Deaverage converts a series averaged since the start of the simulation
// into per-step values: out[i-1] = arr[i]*i - arr[i-1]*(i-1). The result is
// one element shorter than arr; series shorter than two give nil.
func Deaverage(arr []float64) []float64 {
	if len(arr) < 2 {
		return nil
	}
	out := make([]float64, len(arr)-1)
	for i := 1; i < len(arr); i++ {
		out[i-1] = arr[i]*float64(i) - arr[i-1]*float64(i-1)
	}
	return out
}

// PrepareSeries turns a raw model series into display units for v: time
// averaged variables are de-averaged first, then scaled and offset.
func PrepareSeries(v domain.VariableDescriptor, raw []float64) []float64 {
	series := raw
	if v.IsTimeAveraged {
		series = Deaverage(raw)
	}
	out := make([]float64, len(series))
	for i, x := range series {
		out[i] = v.Apply(x)
	}
	return out
}
