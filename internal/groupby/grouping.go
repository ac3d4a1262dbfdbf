package groupby

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	xxhash "github.com/cespare/xxhash/v2"
	"golang.org/x/exp/slices"

	"github.com/grizzlydata/grizzly/internal/dataframe"
	gerrors "github.com/grizzlydata/grizzly/internal/errors"
)

// keySeparator joins the per-column parts of a composite group key.
const keySeparator = "\x1f"

// Grouping is an immutable assignment of row indices to groups for one or
// more key columns. It is shared by reference across the views derived
// from it; narrowing always constructs a new Grouping, never mutates.
type Grouping struct {
	source *dataframe.DataFrame
	keys   []string
	groups map[string][]int
	order  []string            // composite group keys in first-seen order
	labels map[string][]string // composite key -> per-column key parts
	sum64  uint64              // structural fingerprint
}

// NewGrouping buckets the frame's rows by the given key columns. The frame
// is retained by reference so key-subset narrowing can re-derive groups
// against the original, un-narrowed data.
func NewGrouping(df *dataframe.DataFrame, keys ...string) (*Grouping, error) {
	if len(keys) == 0 {
		return nil, gerrors.NewInvalidInputError("GroupBy", "at least one grouping key is required")
	}
	for _, key := range keys {
		if !df.HasColumn(key) {
			return nil, gerrors.NewLookupError("GroupBy", key)
		}
	}

	g := &Grouping{
		source: df,
		keys:   append([]string(nil), keys...),
		groups: make(map[string][]int),
		labels: make(map[string][]string),
	}

	keyArrays := make([]arrow.Array, len(keys))
	for i, key := range keys {
		s, _ := df.Column(key)
		keyArrays[i] = s.Array()
	}
	defer func() {
		for _, arr := range keyArrays {
			if arr != nil {
				arr.Release()
			}
		}
	}()

	for row := 0; row < df.Len(); row++ {
		parts := make([]string, len(keyArrays))
		for i, arr := range keyArrays {
			parts[i] = formatKeyPart(arr, row)
		}

		key := strings.Join(parts, keySeparator)
		if _, seen := g.groups[key]; !seen {
			g.order = append(g.order, key)
			g.labels[key] = parts
		}
		g.groups[key] = append(g.groups[key], row)
	}

	g.sum64 = g.fingerprint()
	return g, nil
}

// formatKeyPart renders one row of a key column as a group key part
func formatKeyPart(arr arrow.Array, row int) string {
	if arr == nil || arr.IsNull(row) {
		return "null"
	}

	switch typedArr := arr.(type) {
	case *array.String:
		return typedArr.Value(row)
	case *array.Int64:
		return strconv.FormatInt(typedArr.Value(row), 10)
	case *array.Float64:
		return strconv.FormatFloat(typedArr.Value(row), 'g', -1, 64)
	case *array.Boolean:
		return strconv.FormatBool(typedArr.Value(row))
	default:
		return "unknown"
	}
}

// fingerprint hashes the grouping structure: key columns, group order and
// group sizes. Two groupings over equal data with equal keys hash equal.
func (g *Grouping) fingerprint() uint64 {
	digest := xxhash.New()
	for _, key := range g.keys {
		_, _ = digest.WriteString(key)
		_, _ = digest.WriteString(keySeparator)
	}
	for _, groupKey := range g.order {
		_, _ = digest.WriteString(groupKey)
		_, _ = digest.WriteString(strconv.Itoa(len(g.groups[groupKey])))
	}
	return digest.Sum64()
}

// Keys returns the grouping key column names
func (g *Grouping) Keys() []string {
	return append([]string(nil), g.keys...)
}

// NumGroups returns the number of distinct groups
func (g *Grouping) NumGroups() int {
	return len(g.groups)
}

// GroupKeys returns the composite group keys in first-seen order
func (g *Grouping) GroupKeys() []string {
	return append([]string(nil), g.order...)
}

// Rows returns the row indices of a group. The returned slice is a copy;
// the grouping itself is never exposed mutably.
func (g *Grouping) Rows(groupKey string) []int {
	return append([]int(nil), g.groups[groupKey]...)
}

// Sizes returns the size of every group, keyed by composite group key
func (g *Grouping) Sizes() map[string]int {
	sizes := make(map[string]int, len(g.groups))
	for key, rows := range g.groups {
		sizes[key] = len(rows)
	}
	return sizes
}

// LabelColumn returns, for grouping key column i, the key part of every
// group in group order. Used to rebuild key columns on reduced output.
func (g *Grouping) LabelColumn(i int) []string {
	column := make([]string, 0, len(g.order))
	for _, groupKey := range g.order {
		column = append(column, g.labels[groupKey][i])
	}
	return column
}

// Level derives a narrower Grouping over a subset of this grouping's key
// columns, re-bucketed against the original source frame. A key that is
// not a grouping key yields ErrNotGroupingLevel; callers narrowing a view
// are expected to recover that case by reusing the parent grouping.
func (g *Grouping) Level(keys ...string) (*Grouping, error) {
	if len(keys) == 0 {
		return nil, gerrors.NewInvalidInputError("Level", "at least one grouping key is required")
	}
	for _, key := range keys {
		if !slices.Contains(g.keys, key) {
			return nil, gerrors.NewNotGroupingLevelError("Level", key)
		}
	}
	return NewGrouping(g.source, keys...)
}

// Fingerprint returns the structural hash of the grouping
func (g *Grouping) Fingerprint() uint64 {
	return g.sum64
}

// Equal reports structural equality: same key columns and same group
// assignment, independent of object identity.
func (g *Grouping) Equal(other *Grouping) bool {
	if g == nil || other == nil {
		return g == other
	}
	return slices.Equal(g.keys, other.keys) && g.sum64 == other.sum64
}
