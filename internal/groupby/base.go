// Package groupby implements grouped views over a DataFrame: the
// classification registry for named group operations and the delegation
// protocol that derives narrowed views while sharing a grouping.
//
// The registry answers, for any operation name, which behavioral categories
// apply: whether the operation collapses each group to one value
// (reduction), returns output shaped like its input (transformation), has a
// pre-shaped native fast path, must skip result dtype normalization, or is
// forwarded through the generic allowlists.
package groupby

import (
	"fmt"
	"strings"
)

// Category is a bit set of behavioral categories for an operation name.
type Category uint16

const (
	// Reduction marks operations that map each group to a single value.
	Reduction Category = 1 << iota
	// Transformation marks operations whose output is shaped like the
	// group's input.
	Transformation
	// NativeKernel marks operations with a specialized execution path that
	// already returns correctly-shaped output. The dispatcher must skip the
	// generic broadcast/collapse postprocessing for these, or results get
	// processed twice.
	NativeKernel
	// CastBlocklisted marks operations whose result dtype must not be
	// coerced back to the input dtype (rank legitimately produces floats
	// for integer input).
	CastBlocklisted
	// SeriesAllowlisted marks operations forwarded on column views.
	SeriesAllowlisted
	// FrameAllowlisted marks operations forwarded on table views.
	FrameAllowlisted
	// PlottingMethod marks plotting names, always present in both
	// allowlists so the forwarding guard never suppresses duplicate-plot
	// side effects inconsistently.
	PlottingMethod
	// OtherMethod marks public grouped-view methods that are neither
	// reductions nor transformations.
	OtherMethod
)

var categoryNames = map[Category]string{
	Reduction:         "reduction",
	Transformation:    "transformation",
	NativeKernel:      "native",
	CastBlocklisted:   "cast-blocklisted",
	SeriesAllowlisted: "series-allowlisted",
	FrameAllowlisted:  "frame-allowlisted",
	PlottingMethod:    "plotting",
	OtherMethod:       "other",
}

// Has reports whether the set contains the given category.
func (c Category) Has(flag Category) bool {
	return c&flag != 0
}

// String returns the categories joined with "|", or "unclassified".
func (c Category) String() string {
	if c == 0 {
		return "unclassified"
	}

	var parts []string
	for flag := Reduction; flag <= OtherMethod; flag <<= 1 {
		if c.Has(flag) {
			parts = append(parts, categoryNames[flag])
		}
	}
	return strings.Join(parts, "|")
}

// Special case to prevent duplicate plots when catching exceptions while
// forwarding methods from the underlying container.
var plottingMethods = []string{"plot", "hist"}

var commonApplyAllowlist = append([]string{
	"quantile",
	"fillna",
	"mad",
	"take",
	"idxmax",
	"idxmin",
	"tshift",
	"skew",
	"corr",
	"cov",
	"diff",
}, plottingMethods...)

var seriesApplyAllowlist = append(commonApplyAllowlist[:len(commonApplyAllowlist):len(commonApplyAllowlist)],
	"nlargest",
	"nsmallest",
	"is_monotonic_increasing",
	"is_monotonic_decreasing",
	"dtype",
	"unique",
)

var frameApplyAllowlist = append(commonApplyAllowlist[:len(commonApplyAllowlist):len(commonApplyAllowlist)],
	"dtypes",
	"corrwith",
)

// Native transformations or canned "agg+broadcast" which do not require
// postprocessing of the result by transform.
var nativeKernels = []string{"cumprod", "cumsum", "shift", "cummin", "cummax"}

var castBlocklist = []string{"rank", "count", "size", "idxmin", "idxmax"}

// Aggregation/reduction functions. These map each group to a single value.
var reductionKernels = []string{
	"all",
	"any",
	"corrwith",
	"count",
	"first",
	"idxmax",
	"idxmin",
	"last",
	"mad",
	"max",
	"mean",
	"median",
	"min",
	"ngroup",
	"nth",
	"nunique",
	"prod",
	"quantile",
	"sem",
	"size",
	"skew",
	"std",
	"sum",
	"var",
}

// Transformation functions. A transformation produces, for each group, a
// result that has the same shape as the group.
var transformationKernels = []string{
	"backfill",
	"bfill",
	"cumcount",
	"cummax",
	"cummin",
	"cumprod",
	"cumsum",
	"diff",
	"ffill",
	"fillna",
	"pad",
	"pct_change",
	"rank",
	"shift",
	"tshift",
}

// Public grouped-view methods that belong in neither kernel table.
// corr and cov return ngroups*ncolumns rows, so they are neither a
// transformation nor a reduction.
var otherMethods = []string{
	"agg",
	"aggregate",
	"apply",
	"boxplot",
	"corr",
	"cov",
	"describe",
	"dtypes",
	"expanding",
	"ewm",
	"filter",
	"get_group",
	"groups",
	"head",
	"hist",
	"indices",
	"ndim",
	"ngroups",
	"ohlc",
	"pipe",
	"plot",
	"resample",
	"rolling",
	"tail",
	"take",
	"transform",
	"sample",
}

// classifications is the process-wide classification table. Built once from
// the literal tables above, never mutated afterward, safe for concurrent
// reads without synchronization.
var classifications = buildClassifications()

func buildClassifications() map[string]Category {
	table := make(map[string]Category)

	add := func(names []string, cat Category) {
		for _, name := range names {
			table[name] |= cat
		}
	}

	add(reductionKernels, Reduction)
	add(transformationKernels, Transformation)
	add(nativeKernels, NativeKernel)
	add(castBlocklist, CastBlocklisted)
	add(seriesApplyAllowlist, SeriesAllowlisted)
	add(frameApplyAllowlist, FrameAllowlisted)
	add(plottingMethods, PlottingMethod)
	add(otherMethods, OtherMethod)

	validateClassifications(table)
	return table
}

// validateClassifications enforces the table construction invariants. A
// violation is a data-entry error in the literal tables, so it is fatal.
func validateClassifications(table map[string]Category) {
	for _, name := range reductionKernels {
		if table[name].Has(Transformation) {
			panic(fmt.Sprintf("groupby: %q classified as both reduction and transformation", name))
		}
	}

	for _, name := range plottingMethods {
		cats := table[name]
		if !cats.Has(SeriesAllowlisted) || !cats.Has(FrameAllowlisted) {
			panic(fmt.Sprintf("groupby: plotting method %q missing from an apply allowlist", name))
		}
		if cats.Has(Reduction) || cats.Has(Transformation) {
			panic(fmt.Sprintf("groupby: plotting method %q classified as a kernel", name))
		}
	}
}

// CategoriesOf returns the category set for an operation name. Unknown
// names return the empty set; they are unclassified, not an error.
func CategoriesOf(name string) Category {
	return classifications[name]
}

// IsReduction reports whether name collapses each group to a single value.
func IsReduction(name string) bool {
	return classifications[name].Has(Reduction)
}

// IsTransformation reports whether name preserves each group's shape.
func IsTransformation(name string) bool {
	return classifications[name].Has(Transformation)
}

// IsValidTransformArgument reports whether name may be passed to the
// generic named-transform entry point: the union of the reduction and
// transformation tables.
func IsValidTransformArgument(name string) bool {
	return classifications[name].Has(Reduction | Transformation)
}

// IsNativeKernel reports whether name has a pre-shaped native execution
// path that bypasses generic postprocessing.
func IsNativeKernel(name string) bool {
	return classifications[name].Has(NativeKernel)
}

// IsCastBlocklisted reports whether name's result dtype must be kept as
// produced instead of being normalized back to the input dtype.
func IsCastBlocklisted(name string) bool {
	return classifications[name].Has(CastBlocklisted)
}

// IsSeriesAllowlisted reports whether name is forwarded on column views.
func IsSeriesAllowlisted(name string) bool {
	return classifications[name].Has(SeriesAllowlisted)
}

// IsFrameAllowlisted reports whether name is forwarded on table views.
func IsFrameAllowlisted(name string) bool {
	return classifications[name].Has(FrameAllowlisted)
}

// IsPlottingMethod reports whether name is a plotting method.
func IsPlottingMethod(name string) bool {
	return classifications[name].Has(PlottingMethod)
}
