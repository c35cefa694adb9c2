package domain

import (
	"math"
	"sort"
)

// VariableDescriptor describes how a plottable model variable is named,
// scaled and drawn. Values are read-only; copies are handed out.
type VariableDescriptor struct {
	Key         string
	SourceName  string // variable name in model output, e.g. "ATHB_S"
	DisplayName string
	ShortName   string
	Unit        string
	ValidMin    float64
	ValidMax    float64
	VariableID  string // optional DWH parameter code of the matching observation
	Marker      string
	LineStyle   string
	Color       string

	// IsTimeAveraged marks fields stored as averages since simulation start;
	// see grid.Deaverage. It defaults to false and is set only for the
	// A-prefixed radiation and heat flux outputs (ATHB_S, ASOB_S, ALHFL_S...),
	// which the model writes as running means.
	IsTimeAveraged bool
	Multiplier     float64
	Offset         float64
}

// Apply converts a raw model value into display units: v*Multiplier + Offset.
func (d VariableDescriptor) Apply(v float64) float64 {
	return v*d.Multiplier + d.Offset
}

// InRange reports whether v (in display units) lies within [ValidMin, ValidMax].
func (d VariableDescriptor) InRange(v float64) bool {
	return !math.IsNaN(v) && v >= d.ValidMin && v <= d.ValidMax
}

// variable fills in the shared defaults: circle markers, solid black lines,
// identity scaling, instantaneous values.
func variable(d VariableDescriptor) VariableDescriptor {
	if d.Marker == "" {
		d.Marker = "circle"
	}
	if d.LineStyle == "" {
		d.LineStyle = "solid"
	}
	if d.Color == "" {
		d.Color = "black"
	}
	if d.Multiplier == 0 {
		d.Multiplier = 1
	}
	return d
}

var variables = buildVariables(
	variable(VariableDescriptor{
		Key: "lw_net", SourceName: "ATHB_S", DisplayName: "Net longwave radiation", ShortName: "LW_net",
		Unit: "W m-2", ValidMin: -100, ValidMax: 10, Color: "goldenrod", IsTimeAveraged: true,
	}),
	variable(VariableDescriptor{
		Key: "lw_down", SourceName: "ATHD_S", DisplayName: "Downward longwave radiation", ShortName: "LW_down",
		Unit: "W m-2", ValidMin: 200, ValidMax: 400, Color: "darkorange", IsTimeAveraged: true,
	}),
	variable(VariableDescriptor{
		Key: "lw_up", SourceName: "ATHU_S", DisplayName: "Upward longwave radiation", ShortName: "LW_up",
		Unit: "W m-2", ValidMin: -450, ValidMax: -250, Color: "orange", IsTimeAveraged: true,
	}),
	variable(VariableDescriptor{
		Key: "sw_net", SourceName: "ASOB_S", DisplayName: "Net shortwave radiation", ShortName: "SW_net",
		Unit: "W m-2", ValidMin: -10, ValidMax: 270, Color: "blueviolet", IsTimeAveraged: true,
	}),
	variable(VariableDescriptor{
		Key: "latent_heat", SourceName: "ALHFL_S", DisplayName: "Latent heat flux", ShortName: "LH",
		Unit: "W m-2", ValidMin: -150, ValidMax: 20, Color: "teal", IsTimeAveraged: true,
	}),
	variable(VariableDescriptor{
		Key: "sensible_heat", SourceName: "ASHFL_S", DisplayName: "Sensible heat flux", ShortName: "SH",
		Unit: "W m-2", ValidMin: -100, ValidMax: 50, Color: "firebrick", IsTimeAveraged: true,
	}),
	variable(VariableDescriptor{
		Key: "bs_latent_heat", SourceName: "ALHFL_BS", DisplayName: "Latent heat flux from bare soil", ShortName: "LH_bs",
		Unit: "W m-2", ValidMin: -100, ValidMax: 20, Color: "saddlebrown", IsTimeAveraged: true,
	}),
	variable(VariableDescriptor{
		Key: "pl_latent_heat", SourceName: "ALHFL_PL", DisplayName: "Latent heat flux from plants", ShortName: "LH_pl",
		Unit: "W m-2", ValidMin: -100, ValidMax: 20, Color: "forestgreen", IsTimeAveraged: true,
	}),
	variable(VariableDescriptor{
		Key: "tqc", SourceName: "TQC", DisplayName: "Liquid water path", ShortName: "LWP",
		Unit: "kg m-2", ValidMin: 0, ValidMax: 0.05, Color: "blue",
	}),
	variable(VariableDescriptor{
		Key: "Ts", SourceName: "T_S", DisplayName: "Surface temperature", ShortName: "T_s",
		Unit: "°C", ValidMin: -20, ValidMax: 40, Color: "red", Offset: -273.15,
	}),
	variable(VariableDescriptor{
		Key: "Ws", SourceName: "W_SO", DisplayName: "Soil water content", ShortName: "W_s",
		Unit: "kg m-2", ValidMin: 0, ValidMax: 100, Color: "sienna",
	}),
	variable(VariableDescriptor{
		Key: "qc", SourceName: "QC", DisplayName: "Cloud water", ShortName: "q_c",
		Unit: "g kg-1", ValidMin: 0, ValidMax: 1, Color: "lightskyblue", Multiplier: 1000,
	}),
	variable(VariableDescriptor{
		Key: "qv", SourceName: "QV", DisplayName: "Specific humidity", ShortName: "q_v",
		Unit: "g kg-1", ValidMin: 0, ValidMax: 15, Color: "navy", Multiplier: 1000,
	}),
	variable(VariableDescriptor{
		Key: "qv_s", SourceName: "QV_S", DisplayName: "Surface specific humidity", ShortName: "q_v,s",
		Unit: "g kg-1", ValidMin: 0, ValidMax: 15, Color: "royalblue", Multiplier: 1000,
	}),
	variable(VariableDescriptor{
		Key: "temp", SourceName: "T", DisplayName: "Temperature", ShortName: "T",
		Unit: "°C", ValidMin: -60, ValidMax: 40, Color: "crimson", Offset: -273.15, VariableID: "743",
	}),
	variable(VariableDescriptor{
		Key: "turb_coeff", SourceName: "TCH", DisplayName: "Turbulent transfer coefficient for heat", ShortName: "TCH",
		Unit: "-", ValidMin: 0, ValidMax: 0.05, Color: "gray",
	}),
	variable(VariableDescriptor{
		Key: "u_10m", SourceName: "U_10M", DisplayName: "Zonal wind at 10 m", ShortName: "u_10m",
		Unit: "m s-1", ValidMin: -15, ValidMax: 15, Color: "darkcyan",
	}),
	variable(VariableDescriptor{
		Key: "v_10m", SourceName: "V_10M", DisplayName: "Meridional wind at 10 m", ShortName: "v_10m",
		Unit: "m s-1", ValidMin: -15, ValidMax: 15, Color: "darkmagenta",
	}),
)

func buildVariables(ds ...VariableDescriptor) map[string]VariableDescriptor {
	m := make(map[string]VariableDescriptor, len(ds))
	for _, d := range ds {
		m[d.Key] = d
	}
	return m
}

// LookupVariable returns the descriptor registered under key.
func LookupVariable(key string) (VariableDescriptor, bool) {
	d, ok := variables[key]
	return d, ok
}

// VariableKeys lists every registered key in sorted order.
func VariableKeys() []string {
	keys := make([]string, 0, len(variables))
	for k := range variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
