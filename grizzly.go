// Package grizzly provides grouped views over Arrow-backed DataFrames.
// This package is the sole public API for the library.
//
// A grouped view pairs a DataFrame with an immutable grouping and supports
// narrowing to subsets of columns while retaining the grouping. Named group
// operations are classified by a static registry that decides how each
// operation's result is shaped.
package grizzly

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/grizzlydata/grizzly/internal/config"
	"github.com/grizzlydata/grizzly/internal/dataframe"
	"github.com/grizzlydata/grizzly/internal/groupby"
	"github.com/grizzlydata/grizzly/internal/logging"
	"github.com/grizzlydata/grizzly/internal/series"
)

// ISeries provides a type-erased interface for Series of any type
type ISeries interface {
	Name() string
	Len() int
	DataType() arrow.DataType
	IsNull(index int) bool
	String() string
	Array() arrow.Array
	Release()
}

// DataFrame is the public type for a table of typed columns.
// It wraps the internal dataframe.DataFrame to hide implementation details.
type DataFrame struct {
	df *dataframe.DataFrame
}

// GroupBy is the public type for a grouped view over a DataFrame.
type GroupBy struct {
	view groupby.GroupedView
}

// Category is a bit set of behavioral categories for a group operation.
type Category = groupby.Category

// Operation categories, re-exported from the classification registry.
const (
	Reduction         = groupby.Reduction
	Transformation    = groupby.Transformation
	NativeKernel      = groupby.NativeKernel
	CastBlocklisted   = groupby.CastBlocklisted
	SeriesAllowlisted = groupby.SeriesAllowlisted
	FrameAllowlisted  = groupby.FrameAllowlisted
	PlottingMethod    = groupby.PlottingMethod
	OtherMethod       = groupby.OtherMethod
)

// Config holds the library's runtime configuration.
type Config = config.Config

// NewSeries creates a new typed Series from values.
func NewSeries[T any](name string, values []T, mem memory.Allocator) ISeries {
	return series.New(name, values, mem)
}

// NewDataFrame creates a new DataFrame from ISeries.
func NewDataFrame(series ...ISeries) *DataFrame {
	internalSeries := make([]dataframe.ISeries, len(series))
	for i, s := range series {
		internalSeries[i] = s
	}
	return &DataFrame{df: dataframe.New(internalSeries...)}
}

// DataFrame methods

// Columns returns the column names in order.
func (d *DataFrame) Columns() []string {
	return d.df.Columns()
}

// Len returns the number of rows.
func (d *DataFrame) Len() int {
	return d.df.Len()
}

// Width returns the number of columns.
func (d *DataFrame) Width() int {
	return d.df.Width()
}

// Column returns the column with the given name.
func (d *DataFrame) Column(name string) (ISeries, bool) {
	return d.df.Column(name)
}

// HasColumn checks whether a column exists.
func (d *DataFrame) HasColumn(name string) bool {
	return d.df.HasColumn(name)
}

// Select returns a new DataFrame with only the specified columns.
func (d *DataFrame) Select(names ...string) *DataFrame {
	return &DataFrame{df: d.df.Select(names...)}
}

// Drop returns a new DataFrame without the specified columns.
func (d *DataFrame) Drop(names ...string) *DataFrame {
	return &DataFrame{df: d.df.Drop(names...)}
}

// String returns a human-readable representation.
func (d *DataFrame) String() string {
	return d.df.String()
}

// Release releases the underlying Arrow memory.
func (d *DataFrame) Release() {
	d.df.Release()
}

// GroupBy buckets the frame's rows by the given key columns and returns a
// root grouped view over the full frame.
func (d *DataFrame) GroupBy(keys ...string) (*GroupBy, error) {
	g, err := groupby.NewGrouping(d.df, keys...)
	if err != nil {
		return nil, err
	}
	return &GroupBy{view: groupby.NewTableView(d.df, g, groupby.DefaultViewConfig())}, nil
}

// GroupBy methods

// Select derives a grouped view narrowed to the given columns. The derived
// view shares this view's grouping; groups stay computed against the
// original ungrouped data.
func (gb *GroupBy) Select(keys ...string) (*GroupBy, error) {
	derived, err := groupby.GetItem(gb.view, keys, nil)
	if err != nil {
		return nil, err
	}
	return &GroupBy{view: derived}, nil
}

// Selection returns the column keys that narrowed this view, if any.
func (gb *GroupBy) Selection() ([]string, bool) {
	return gb.view.Selection()
}

// Keys returns the grouping key column names.
func (gb *GroupBy) Keys() []string {
	return gb.view.Grouping().Keys()
}

// NumGroups returns the number of distinct groups.
func (gb *GroupBy) NumGroups() int {
	return gb.view.Grouping().NumGroups()
}

// Apply executes a named operation, routed by its classification.
func (gb *GroupBy) Apply(name string) (*DataFrame, error) {
	result, err := groupby.Apply(gb.view, name)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: result}, nil
}

// Transform executes a named transform; the name must be in the union of
// the reduction and transformation tables.
func (gb *GroupBy) Transform(name string) (*DataFrame, error) {
	result, err := groupby.Transform(gb.view, name)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: result}, nil
}

// Agg executes one reduction per name and joins the results.
func (gb *GroupBy) Agg(names ...string) (*DataFrame, error) {
	result, err := groupby.Agg(gb.view, names...)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: result}, nil
}

// Sum collapses each group to the sum of its numeric columns.
func (gb *GroupBy) Sum() (*DataFrame, error) { return gb.Apply("sum") }

// Mean collapses each group to the mean of its numeric columns.
func (gb *GroupBy) Mean() (*DataFrame, error) { return gb.Apply("mean") }

// Count collapses each group to its row count.
func (gb *GroupBy) Count() (*DataFrame, error) { return gb.Apply("count") }

// Min collapses each group to the minimum of its numeric columns.
func (gb *GroupBy) Min() (*DataFrame, error) { return gb.Apply("min") }

// Max collapses each group to the maximum of its numeric columns.
func (gb *GroupBy) Max() (*DataFrame, error) { return gb.Apply("max") }

// Classification registry queries

// CategoriesOf returns the category set for an operation name. Unknown
// names return the empty set.
func CategoriesOf(name string) Category { return groupby.CategoriesOf(name) }

// IsReduction reports whether name collapses each group to a single value.
func IsReduction(name string) bool { return groupby.IsReduction(name) }

// IsTransformation reports whether name preserves each group's shape.
func IsTransformation(name string) bool { return groupby.IsTransformation(name) }

// IsValidTransformArgument reports whether name may be passed to Transform.
func IsValidTransformArgument(name string) bool { return groupby.IsValidTransformArgument(name) }

// IsNativeKernel reports whether name has a pre-shaped native fast path.
func IsNativeKernel(name string) bool { return groupby.IsNativeKernel(name) }

// IsCastBlocklisted reports whether name's result dtype is kept as produced.
func IsCastBlocklisted(name string) bool { return groupby.IsCastBlocklisted(name) }

// Configuration

// DefaultConfig returns the default runtime configuration.
func DefaultConfig() Config {
	return config.NewConfig()
}

// Configure installs a runtime configuration after validation and switches
// trace logging accordingly.
func Configure(c Config) error {
	if err := config.SetGlobalConfig(c); err != nil {
		return err
	}
	logging.SetVerbose(c.VerboseLogging)
	return nil
}

// LoadConfig reads a YAML configuration file, applies GRIZZLY_* environment
// overrides, and installs the result.
func LoadConfig(path string) (Config, error) {
	c, err := config.LoadFromFile(path)
	if err != nil {
		return c, err
	}
	c = config.LoadFromEnv(c)
	if err := Configure(c); err != nil {
		return c, err
	}
	return c, nil
}
