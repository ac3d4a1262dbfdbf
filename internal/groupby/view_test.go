package groupby

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grizzlydata/grizzly/internal/dataframe"
	gerrors "github.com/grizzlydata/grizzly/internal/errors"
	"github.com/grizzlydata/grizzly/internal/series"
)

func createRootView(t *testing.T, keys ...string) (*TableView, *dataframe.DataFrame) {
	t.Helper()

	df := createGroupedFrame()
	g, err := NewGrouping(df, keys...)
	require.NoError(t, err)

	return NewTableView(df, g, DefaultViewConfig()), df
}

func TestShallowCopyInheritsConfig(t *testing.T) {
	view, df := createRootView(t, "region")
	defer df.Release()

	replacement := df.Select("sales")
	copied, err := ShallowCopy(view, replacement, nil)
	require.NoError(t, err)

	assert.NotSame(t, view, copied)
	assert.Equal(t, view.Config(), copied.Config())
	assert.True(t, view.Grouping().Equal(copied.Grouping()))
	assert.Equal(t, []string{"sales"}, copied.Data().Columns())
}

func TestShallowCopyAppliesOverrides(t *testing.T) {
	view, df := createRootView(t, "region")
	defer df.Release()

	noSort := false
	copied, err := ShallowCopy(view, df, &ConfigOverrides{Sort: &noSort})
	require.NoError(t, err)

	assert.False(t, copied.Config().Sort)
	// Unoverridden fields are inherited.
	assert.Equal(t, view.Config().AsIndex, copied.Config().AsIndex)
	// The source view's configuration is untouched.
	assert.True(t, view.Config().Sort)
}

func TestShallowCopyUnwrapsNestedViews(t *testing.T) {
	view, df := createRootView(t, "region")
	defer df.Release()

	other, err := GetItem(view, []string{"sales"}, nil)
	require.NoError(t, err)

	// Passing a grouped view as replacement data must unwrap it rather
	// than nest view inside view.
	copied, err := ShallowCopy(view, other, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"sales"}, copied.Data().Columns())
	_, isView := copied.Data().(GroupedView)
	assert.False(t, isView)
}

func TestShallowCopyRejectsUnsupportedReplacement(t *testing.T) {
	view, df := createRootView(t, "region")
	defer df.Release()

	_, err := ShallowCopy(view, 42, nil)
	assert.Error(t, err)
}

func TestShallowCopyMalformedView(t *testing.T) {
	broken := &TableView{}

	_, err := ShallowCopy(broken, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, gerrors.ErrMalformedView)
}

func TestGetItemRecordsSelection(t *testing.T) {
	view, df := createRootView(t, "region")
	defer df.Release()

	derived, err := GetItem(view, []string{"sales"}, nil)
	require.NoError(t, err)

	selection, ok := derived.Selection()
	require.True(t, ok)
	assert.Equal(t, []string{"sales"}, selection)

	// The derived view shares the parent's grouping: groups are computed
	// against the original ungrouped data, unaffected by column narrowing.
	assert.True(t, view.Grouping().Equal(derived.Grouping()))

	parent, ok := derived.Parent()
	require.True(t, ok)
	assert.Same(t, GroupedView(view), parent)
}

func TestGetItemReusesGroupingForDataColumns(t *testing.T) {
	view, df := createRootView(t, "region")
	defer df.Release()

	// "sales" is not a grouping level; the miss is recovered internally by
	// reusing the parent grouping, never surfaced.
	derived, err := GetItem(view, []string{"sales"}, nil)
	require.NoError(t, err)

	assert.Same(t, view.Grouping(), derived.Grouping())
}

func TestGetItemNarrowsGroupingLevels(t *testing.T) {
	view, df := createRootView(t, "region", "tier")
	defer df.Release()

	derived, err := GetItem(view, []string{"region"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"region"}, derived.Grouping().Keys())
	assert.Equal(t, 2, derived.Grouping().NumGroups())

	// The parent's grouping is untouched.
	assert.Equal(t, []string{"region", "tier"}, view.Grouping().Keys())
}

func TestGetItemUnknownKeyPropagatesLookupFailure(t *testing.T) {
	view, df := createRootView(t, "region")
	defer df.Release()

	_, err := GetItem(view, []string{"missing"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, gerrors.ErrLookupFailure)
}

func TestGetItemDoesNotMutateParent(t *testing.T) {
	view, df := createRootView(t, "region")
	defer df.Release()

	configBefore := view.Config()
	groupingBefore := view.Grouping()
	view.GroupSizes() // populate the parent's memo

	first, err := GetItem(view, []string{"sales"}, nil)
	require.NoError(t, err)
	second, err := GetItem(view, []string{"sales"}, nil)
	require.NoError(t, err)

	assert.Equal(t, configBefore, view.Config())
	assert.Same(t, groupingBefore, view.Grouping())

	// Two derivations with the same key are independent objects with equal
	// configuration and equal grouping.
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Config(), second.Config())
	assert.True(t, first.Grouping().Equal(second.Grouping()))
}

func TestGetItemDerivedCacheIsFresh(t *testing.T) {
	view, df := createRootView(t, "region")
	defer df.Release()

	sizes := view.GroupSizes()
	sizes["east"] = 999 // caller mutation must not leak into the memo

	derived, err := GetItem(view, []string{"sales"}, nil)
	require.NoError(t, err)

	derivedView, ok := derived.(*TableView)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"east": 3, "west": 2}, derivedView.GroupSizes())
	assert.Equal(t, map[string]int{"east": 3, "west": 2}, view.GroupSizes())
}

func TestGetItemExplicitSubset(t *testing.T) {
	view, df := createRootView(t, "region")
	defer df.Release()

	subset, err := NewTable(df).Lookup("sales", "score")
	require.NoError(t, err)

	derived, err := GetItem(view, []string{"score"}, subset)
	require.NoError(t, err)

	assert.Equal(t, []string{"score"}, derived.Data().Columns())
}

func TestGetItemColumnViewHasNoSelection(t *testing.T) {
	df := createGroupedFrame()
	defer df.Release()

	g, err := NewGrouping(df, "region")
	require.NoError(t, err)

	s, ok := df.Column("sales")
	require.True(t, ok)

	view := NewColumnView(s, g, DefaultViewConfig())
	derived, err := GetItem(view, []string{"sales"}, nil)
	require.NoError(t, err)

	// One-dimensional data never records a selection marker.
	_, selected := derived.Selection()
	assert.False(t, selected)

	_, isColumn := derived.(*ColumnView)
	assert.True(t, isColumn)
}

func TestGetItemEmptyKeys(t *testing.T) {
	view, df := createRootView(t, "region")
	defer df.Release()

	_, err := GetItem(view, nil, nil)
	assert.Error(t, err)
}

func TestColumnLookup(t *testing.T) {
	mem := memory.NewGoAllocator()
	s := series.New("sales", []int64{1, 2, 3}, mem)
	defer s.Release()

	col := NewColumn(s)

	assert.Equal(t, 1, col.NDim())
	assert.Equal(t, []string{"sales"}, col.Columns())

	same, err := col.Lookup("sales")
	require.NoError(t, err)
	assert.Equal(t, col, same)

	_, err = col.Lookup("other")
	assert.ErrorIs(t, err, gerrors.ErrLookupFailure)
}

func TestViewConfigApply(t *testing.T) {
	cfg := DefaultViewConfig()

	assert.Equal(t, cfg, cfg.apply(nil))

	f := false
	overridden := cfg.apply(&ConfigOverrides{AsIndex: &f, DropNulls: &f})
	assert.False(t, overridden.AsIndex)
	assert.False(t, overridden.DropNulls)
	assert.True(t, overridden.Sort)
}
