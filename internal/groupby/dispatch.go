package groupby

import (
	"fmt"
	"math"
	"sort"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"

	"github.com/grizzlydata/grizzly/internal/config"
	"github.com/grizzlydata/grizzly/internal/dataframe"
	gerrors "github.com/grizzlydata/grizzly/internal/errors"
	"github.com/grizzlydata/grizzly/internal/logging"
	"github.com/grizzlydata/grizzly/internal/parallel"
	"github.com/grizzlydata/grizzly/internal/series"
)

type number interface {
	constraints.Integer | constraints.Float
}

// Apply executes a named operation on a grouped view, routed by the
// operation's classification. Native kernels return pre-shaped output and
// skip the generic broadcast/collapse postprocessing entirely; reductions
// collapse each group to one row; transformations broadcast back to the
// input shape; everything else takes the generic per-group path.
func Apply(view GroupedView, name string) (*dataframe.DataFrame, error) {
	if err := checkWellFormed("Apply", view); err != nil {
		return nil, err
	}

	df, err := frameOf(view.Data())
	if err != nil {
		return nil, err
	}

	cats := CategoriesOf(name)
	g := view.Grouping()

	logging.L().Debug("dispatching grouped operation",
		zap.String("op", name),
		zap.Stringer("categories", cats),
		zap.Int("groups", g.NumGroups()),
	)

	switch {
	case cats.Has(NativeKernel):
		return applyNative(df, g, name)
	case cats.Has(Reduction):
		return applyReduction(df, g, name)
	case cats.Has(Transformation):
		return applyTransformation(df, g, name)
	default:
		return applyOther(df, g, name)
	}
}

// Transform executes a named transform, rejecting names outside the union
// of the reduction and transformation tables.
func Transform(view GroupedView, name string) (*dataframe.DataFrame, error) {
	if !IsValidTransformArgument(name) {
		return nil, gerrors.NewInvalidInputError("Transform",
			fmt.Sprintf("%q is not a valid transform argument", name))
	}
	return Apply(view, name)
}

// Agg executes one reduction per name and joins the results into a single
// frame of group key columns plus one column per (column, name) pair.
func Agg(view GroupedView, names ...string) (*dataframe.DataFrame, error) {
	if len(names) == 0 {
		return nil, gerrors.NewInvalidInputError("Agg", "at least one aggregation name is required")
	}
	for _, name := range names {
		if !IsReduction(name) {
			return nil, gerrors.NewInvalidInputError("Agg",
				fmt.Sprintf("%q is not a reduction", name))
		}
	}

	var combined []dataframe.ISeries
	for i, name := range names {
		result, err := Apply(view, name)
		if err != nil {
			return nil, err
		}
		for j, col := range result.Columns() {
			// Group key columns only once, from the first result.
			if i > 0 && j < len(view.Grouping().Keys()) {
				continue
			}
			s, _ := result.Column(col)
			combined = append(combined, s)
		}
	}

	return dataframe.New(combined...), nil
}

// frameOf resolves view data to a DataFrame for kernel execution
func frameOf(c Container) (*dataframe.DataFrame, error) {
	switch data := c.(type) {
	case Table:
		return data.Frame(), nil
	case Column:
		return dataframe.New(data.Series()), nil
	default:
		return nil, gerrors.NewUnsupportedTypeError("Apply", fmt.Sprintf("%T", c))
	}
}

// numericColumn carries one extracted numeric value column. Exactly one of
// ints/floats is set, matching the column's dtype.
type numericColumn struct {
	name   string
	ints   []int64
	floats []float64
}

// numericColumns extracts the numeric value columns of a frame, excluding
// the grouping key columns.
func numericColumns(df *dataframe.DataFrame, exclude []string) []numericColumn {
	var cols []numericColumn

	for _, name := range df.Columns() {
		if slices.Contains(exclude, name) {
			continue
		}

		s, _ := df.Column(name)
		arr := s.Array()
		if arr == nil {
			continue
		}

		switch typedArr := arr.(type) {
		case *array.Int64:
			values := make([]int64, typedArr.Len())
			for i := range values {
				if !typedArr.IsNull(i) {
					values[i] = typedArr.Value(i)
				}
			}
			cols = append(cols, numericColumn{name: name, ints: values})
		case *array.Float64:
			values := make([]float64, typedArr.Len())
			for i := range values {
				if !typedArr.IsNull(i) {
					values[i] = typedArr.Value(i)
				}
			}
			cols = append(cols, numericColumn{name: name, floats: values})
		}
		arr.Release()
	}

	return cols
}

// groupLabelSeries rebuilds the grouping key columns for reduced output,
// one row per group in group order.
func groupLabelSeries(g *Grouping, mem memory.Allocator) []dataframe.ISeries {
	keys := g.Keys()
	labels := make([]dataframe.ISeries, 0, len(keys))
	for i, key := range keys {
		labels = append(labels, series.New(key, g.LabelColumn(i), mem))
	}
	return labels
}

type seriesOrError struct {
	series dataframe.ISeries
	err    error
}

// applyReduction collapses each group to a single row per numeric column.
// Columns fan out over the worker pool once the group count reaches the
// configured parallel threshold.
func applyReduction(df *dataframe.DataFrame, g *Grouping, name string) (*dataframe.DataFrame, error) {
	cols := numericColumns(df, g.Keys())
	groupKeys := g.GroupKeys()
	cfg := config.GetGlobalConfig()

	worker := func(col numericColumn) seriesOrError {
		s, err := reduceColumn(col, g, groupKeys, name, memory.NewGoAllocator())
		return seriesOrError{series: s, err: err}
	}

	var reduced []seriesOrError
	if g.NumGroups() >= cfg.ParallelThreshold {
		pool := parallel.NewWorkerPool(cfg.WorkerPoolSize)
		defer pool.Close()
		reduced = parallel.Process(pool, cols, worker)
	} else {
		for _, col := range cols {
			reduced = append(reduced, worker(col))
		}
	}

	result := groupLabelSeries(g, memory.NewGoAllocator())
	for _, r := range reduced {
		if r.err != nil {
			return nil, r.err
		}
		result = append(result, r.series)
	}

	return dataframe.New(result...), nil
}

// reduceColumn reduces one column to one value per group
func reduceColumn(
	col numericColumn, g *Grouping, groupKeys []string, name string, mem memory.Allocator,
) (dataframe.ISeries, error) {
	outName := col.name + "_" + name

	switch name {
	case "count":
		out := make([]int64, 0, len(groupKeys))
		for _, key := range groupKeys {
			out = append(out, int64(len(g.Rows(key))))
		}
		return series.New(outName, out, mem), nil

	case "mean":
		out := make([]float64, 0, len(groupKeys))
		for _, key := range groupKeys {
			rows := g.Rows(key)
			var total float64
			for _, row := range rows {
				if col.ints != nil {
					total += float64(col.ints[row])
				} else {
					total += col.floats[row]
				}
			}
			if len(rows) == 0 {
				out = append(out, math.NaN())
			} else {
				out = append(out, total/float64(len(rows)))
			}
		}
		return series.New(outName, out, mem), nil

	case "sum", "min", "max":
		// Type-preserving reductions.
		if col.ints != nil {
			return series.New(outName, reducePerGroup(name, col.ints, g, groupKeys), mem), nil
		}
		return series.New(outName, reducePerGroup(name, col.floats, g, groupKeys), mem), nil

	default:
		return nil, gerrors.NewInvalidInputError("Apply",
			fmt.Sprintf("no reduction kernel registered for %q", name))
	}
}

// reducePerGroup applies a type-preserving reduction group by group
func reducePerGroup[T number](name string, values []T, g *Grouping, groupKeys []string) []T {
	out := make([]T, 0, len(groupKeys))

	for _, key := range groupKeys {
		rows := g.Rows(key)
		vals := make([]T, 0, len(rows))
		for _, row := range rows {
			vals = append(vals, values[row])
		}

		var reduced T
		switch name {
		case "sum":
			for _, v := range vals {
				reduced += v
			}
		case "min":
			if len(vals) > 0 {
				reduced = slices.Min(vals)
			}
		case "max":
			if len(vals) > 0 {
				reduced = slices.Max(vals)
			}
		}
		out = append(out, reduced)
	}

	return out
}

// applyNative runs a native kernel: per-group scans that already produce
// output shaped like the input, in the input dtype, with no postprocessing.
func applyNative(df *dataframe.DataFrame, g *Grouping, name string) (*dataframe.DataFrame, error) {
	cols := numericColumns(df, g.Keys())
	mem := memory.NewGoAllocator()

	result := make([]dataframe.ISeries, 0, len(cols))
	for _, col := range cols {
		if col.ints != nil {
			out, err := nativeScanColumn(name, col.ints, g)
			if err != nil {
				return nil, err
			}
			result = append(result, series.New(col.name, out, mem))
			continue
		}
		out, err := nativeScanColumn(name, col.floats, g)
		if err != nil {
			return nil, err
		}
		result = append(result, series.New(col.name, out, mem))
	}

	return dataframe.New(result...), nil
}

// nativeScanColumn applies a running scan within each group, writing
// results back into original row positions.
func nativeScanColumn[T number](name string, values []T, g *Grouping) ([]T, error) {
	switch name {
	case "cumsum", "cumprod", "cummax", "cummin", "shift":
	default:
		return nil, gerrors.NewInvalidInputError("Apply",
			fmt.Sprintf("no native kernel registered for %q", name))
	}

	out := make([]T, len(values))

	for _, key := range g.GroupKeys() {
		rows := g.Rows(key)

		switch name {
		case "cumsum":
			var running T
			for _, row := range rows {
				running += values[row]
				out[row] = running
			}
		case "cumprod":
			running := T(1)
			for _, row := range rows {
				running *= values[row]
				out[row] = running
			}
		case "cummax":
			for i, row := range rows {
				if i == 0 || values[row] > out[rows[i-1]] {
					out[row] = values[row]
				} else {
					out[row] = out[rows[i-1]]
				}
			}
		case "cummin":
			for i, row := range rows {
				if i == 0 || values[row] < out[rows[i-1]] {
					out[row] = values[row]
				} else {
					out[row] = out[rows[i-1]]
				}
			}
		case "shift":
			for i, row := range rows {
				if i > 0 {
					out[row] = values[rows[i-1]]
				}
			}
		}
	}

	return out, nil
}

// applyTransformation runs a generic transformation: per-group computation
// in float64, broadcast back to input shape, with the result dtype
// normalized to the input dtype unless the operation is cast-blocklisted.
func applyTransformation(df *dataframe.DataFrame, g *Grouping, name string) (*dataframe.DataFrame, error) {
	cols := numericColumns(df, g.Keys())
	mem := memory.NewGoAllocator()

	result := make([]dataframe.ISeries, 0, len(cols))
	for _, col := range cols {
		length := len(col.ints)
		if col.floats != nil {
			length = len(col.floats)
		}

		out := make([]float64, length)
		for _, key := range g.GroupKeys() {
			rows := g.Rows(key)
			vals := make([]float64, 0, len(rows))
			for _, row := range rows {
				if col.ints != nil {
					vals = append(vals, float64(col.ints[row]))
				} else {
					vals = append(vals, col.floats[row])
				}
			}

			var transformed []float64
			switch name {
			case "rank":
				transformed = rankAverage(vals)
			case "diff":
				transformed = diff(vals)
			default:
				return nil, gerrors.NewInvalidInputError("Apply",
					fmt.Sprintf("no transformation kernel registered for %q", name))
			}

			for i, row := range rows {
				out[row] = transformed[i]
			}
		}

		// rank legitimately produces floats for integer input; coercing it
		// back would corrupt results.
		if col.ints != nil && !IsCastBlocklisted(name) {
			cast := make([]int64, len(out))
			for i, v := range out {
				cast[i] = int64(v)
			}
			result = append(result, series.New(col.name, cast, mem))
			continue
		}
		result = append(result, series.New(col.name, out, mem))
	}

	return dataframe.New(result...), nil
}

// rankAverage assigns 1-based ranks with ties sharing the average of their
// positions.
func rankAverage(vals []float64) []float64 {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })

	out := make([]float64, len(vals))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && vals[idx[j]] == vals[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			out[idx[k]] = avg
		}
		i = j
	}
	return out
}

// diff computes first differences within a group; the first slot has no
// predecessor and is zero-filled.
func diff(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i := 1; i < len(vals); i++ {
		out[i] = vals[i] - vals[i-1]
	}
	return out
}

// applyOther is the generic path for operations that are neither reductions
// nor transformations. corr returns ngroups*ncolumns rows, which is why it
// can take neither of the shaped paths.
func applyOther(df *dataframe.DataFrame, g *Grouping, name string) (*dataframe.DataFrame, error) {
	switch name {
	case "corr":
		return applyCorr(df, g)
	default:
		return nil, gerrors.NewInvalidInputError("Apply",
			fmt.Sprintf("no kernel registered for %q", name))
	}
}

// applyCorr computes the per-group Pearson correlation matrix of the
// numeric value columns: one output row per (group, column) pair.
func applyCorr(df *dataframe.DataFrame, g *Grouping) (*dataframe.DataFrame, error) {
	cols := numericColumns(df, g.Keys())
	if len(cols) < 2 {
		return nil, gerrors.NewInvalidInputError("Apply",
			"corr requires at least two numeric columns")
	}

	groupKeys := g.GroupKeys()
	keys := g.Keys()
	mem := memory.NewGoAllocator()

	labelCols := make([][]string, len(keys))
	for ki := range keys {
		labelCols[ki] = g.LabelColumn(ki)
	}

	// Group label columns, repeated once per numeric column.
	labelOut := make([][]string, len(keys))
	columnOut := make([]string, 0, len(groupKeys)*len(cols))
	valueOut := make([][]float64, len(cols))

	for gi, groupKey := range groupKeys {
		rows := g.Rows(groupKey)

		grouped := make([][]float64, len(cols))
		for ci, col := range cols {
			vals := make([]float64, 0, len(rows))
			for _, row := range rows {
				if col.ints != nil {
					vals = append(vals, float64(col.ints[row]))
				} else {
					vals = append(vals, col.floats[row])
				}
			}
			grouped[ci] = vals
		}

		for ci, col := range cols {
			for ki := range keys {
				labelOut[ki] = append(labelOut[ki], labelCols[ki][gi])
			}
			columnOut = append(columnOut, col.name)
			for cj := range cols {
				valueOut[cj] = append(valueOut[cj], pearson(grouped[ci], grouped[cj]))
			}
		}
	}

	result := make([]dataframe.ISeries, 0, len(keys)+1+len(cols))
	for ki, key := range keys {
		result = append(result, series.New(key, labelOut[ki], mem))
	}
	result = append(result, series.New("column", columnOut, mem))
	for cj, col := range cols {
		result = append(result, series.New(col.name, valueOut[cj], mem))
	}

	return dataframe.New(result...), nil
}

// pearson computes the Pearson correlation of two equal-length samples,
// NaN when either sample has zero variance.
func pearson(x, y []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return math.NaN()
	}

	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range x {
		dx, dy := x[i]-meanX, y[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varX*varY)
}
