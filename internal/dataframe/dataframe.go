// Package dataframe provides the tabular container grouped views narrow over
package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/grizzlydata/grizzly/internal/series"
)

// DataFrame represents a table of data with typed columns
type DataFrame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new DataFrame from a slice of ISeries
func New(series ...ISeries) *DataFrame {
	columns := make(map[string]ISeries)
	order := make([]string, 0, len(series))

	for _, s := range series {
		name := s.Name()
		columns[name] = s
		order = append(order, name)
	}

	return &DataFrame{
		columns: columns,
		order:   order,
	}
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	return append([]string(nil), df.order...)
}

// Len returns the number of rows (assumes all columns have same length)
func (df *DataFrame) Len() int {
	if len(df.order) == 0 {
		return 0
	}
	if s, exists := df.columns[df.order[0]]; exists {
		return s.Len()
	}
	return 0
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.columns)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (ISeries, bool) {
	s, exists := df.columns[name]
	return s, exists
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// Select returns a new DataFrame with only the specified columns.
// Unknown names are skipped; key validation belongs to the caller.
func (df *DataFrame) Select(names ...string) *DataFrame {
	newColumns := make(map[string]ISeries)
	newOrder := make([]string, 0, len(names))

	for _, name := range names {
		if s, exists := df.columns[name]; exists {
			newColumns[name] = s
			newOrder = append(newOrder, name)
		}
	}

	return &DataFrame{
		columns: newColumns,
		order:   newOrder,
	}
}

// Drop returns a new DataFrame without the specified columns
func (df *DataFrame) Drop(names ...string) *DataFrame {
	dropSet := make(map[string]bool, len(names))
	for _, name := range names {
		dropSet[name] = true
	}

	newColumns := make(map[string]ISeries)
	newOrder := make([]string, 0, len(df.order))

	for _, name := range df.order {
		if !dropSet[name] {
			newColumns[name] = df.columns[name]
			newOrder = append(newOrder, name)
		}
	}

	return &DataFrame{
		columns: newColumns,
		order:   newOrder,
	}
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}
	for _, name := range df.order {
		parts = append(parts, fmt.Sprintf("  %s: %s", name, df.columns[name].DataType().String()))
	}

	return strings.Join(parts, "\n")
}

// Take returns a new DataFrame containing the given rows, in order.
// The result owns independent copies of the data.
func (df *DataFrame) Take(rows []int) *DataFrame {
	taken := make([]ISeries, 0, len(df.order))
	mem := memory.NewGoAllocator()

	for _, name := range df.order {
		taken = append(taken, takeSeries(df.columns[name], rows, mem))
	}

	return New(taken...)
}

// takeSeries materializes the given rows of a series as a new series
func takeSeries(s ISeries, rows []int, mem memory.Allocator) ISeries {
	arr := s.Array()
	if arr == nil {
		return series.New(s.Name(), []string{}, mem)
	}
	defer arr.Release()

	switch typedArr := arr.(type) {
	case *array.String:
		return series.New(s.Name(), takeValues(typedArr, rows, typedArr.Value), mem)
	case *array.Int64:
		return series.New(s.Name(), takeValues(typedArr, rows, typedArr.Value), mem)
	case *array.Float64:
		return series.New(s.Name(), takeValues(typedArr, rows, typedArr.Value), mem)
	case *array.Boolean:
		return series.New(s.Name(), takeValues(typedArr, rows, typedArr.Value), mem)
	default:
		return series.New(s.Name(), []string{}, mem)
	}
}

// takeValues gathers non-null values at the given rows, zero-filling nulls
func takeValues[T any](arr arrow.Array, rows []int, value func(int) T) []T {
	values := make([]T, len(rows))
	for i, row := range rows {
		if row >= 0 && row < arr.Len() && !arr.IsNull(row) {
			values[i] = value(row)
		}
	}
	return values
}

// Release releases all underlying Arrow memory
func (df *DataFrame) Release() {
	for _, s := range df.columns {
		s.Release()
	}
}
