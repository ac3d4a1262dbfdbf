package groupby

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/grizzlydata/grizzly/internal/dataframe"
	gerrors "github.com/grizzlydata/grizzly/internal/errors"
)

// Container abstracts the data object a grouped view wraps. A container is
// either one-dimensional (a single column) or two-dimensional (a table with
// independent rows and columns).
type Container interface {
	// NDim returns 1 for columns, 2 for tables.
	NDim() int
	// Len returns the number of rows.
	Len() int
	// Columns returns the column/field identifier set.
	Columns() []string
	// Lookup narrows the container by key. Unknown keys fail with a lookup
	// error; the failure semantics propagate to view derivation unchanged.
	Lookup(keys ...string) (Container, error)
}

// Table wraps a DataFrame as a two-dimensional Container
type Table struct {
	frame *dataframe.DataFrame
}

// NewTable wraps a DataFrame for use as view data
func NewTable(df *dataframe.DataFrame) Table {
	return Table{frame: df}
}

// Frame returns the wrapped DataFrame
func (t Table) Frame() *dataframe.DataFrame { return t.frame }

// NDim returns 2
func (t Table) NDim() int { return 2 }

// Len returns the number of rows
func (t Table) Len() int { return t.frame.Len() }

// Columns returns the column names in order
func (t Table) Columns() []string { return t.frame.Columns() }

// Lookup narrows the table to the given columns. Scalar keys stay
// two-dimensional; the derived view's selection marker records the
// narrowing, not a dimensionality change.
func (t Table) Lookup(keys ...string) (Container, error) {
	if len(keys) == 0 {
		return nil, gerrors.NewInvalidInputError("Lookup", "at least one key is required")
	}
	for _, key := range keys {
		if !t.frame.HasColumn(key) {
			return nil, gerrors.NewLookupError("Lookup", key)
		}
	}
	return Table{frame: t.frame.Select(keys...)}, nil
}

// Column wraps a single series as a one-dimensional Container
type Column struct {
	series dataframe.ISeries
}

// NewColumn wraps a series for use as view data
func NewColumn(s dataframe.ISeries) Column {
	return Column{series: s}
}

// Series returns the wrapped series
func (c Column) Series() dataframe.ISeries { return c.series }

// NDim returns 1
func (c Column) NDim() int { return 1 }

// Len returns the number of rows
func (c Column) Len() int { return c.series.Len() }

// Columns returns the single field name
func (c Column) Columns() []string { return []string{c.series.Name()} }

// Lookup on a column succeeds only for the column's own name
func (c Column) Lookup(keys ...string) (Container, error) {
	if len(keys) == 1 && keys[0] == c.series.Name() {
		return c, nil
	}
	key := ""
	if len(keys) > 0 {
		key = keys[0]
	}
	return nil, gerrors.NewLookupError("Lookup", key)
}

// ViewConfig is the declared configuration a view propagates to every view
// derived from it. Fields are statically enumerated; propagation is a
// copy-construction with field-level overrides, not attribute introspection.
type ViewConfig struct {
	// AsIndex places group keys on the result index of reductions.
	AsIndex bool
	// Sort orders groups by key rather than by first appearance.
	Sort bool
	// GroupKeys includes group keys when broadcasting transformed output.
	GroupKeys bool
	// DropNulls excludes rows with null grouping keys.
	DropNulls bool
}

// DefaultViewConfig returns the configuration of a freshly built root view
func DefaultViewConfig() ViewConfig {
	return ViewConfig{
		AsIndex:   true,
		Sort:      true,
		GroupKeys: true,
		DropNulls: true,
	}
}

// ConfigOverrides carries optional per-field overrides for ShallowCopy.
// A nil field means "inherit from the source view".
type ConfigOverrides struct {
	AsIndex   *bool
	Sort      *bool
	GroupKeys *bool
	DropNulls *bool
}

func (c ViewConfig) apply(ov *ConfigOverrides) ViewConfig {
	if ov == nil {
		return c
	}
	if ov.AsIndex != nil {
		c.AsIndex = *ov.AsIndex
	}
	if ov.Sort != nil {
		c.Sort = *ov.Sort
	}
	if ov.GroupKeys != nil {
		c.GroupKeys = *ov.GroupKeys
	}
	if ov.DropNulls != nil {
		c.DropNulls = *ov.DropNulls
	}
	return c
}

// GroupedView is the capability interface implemented by each concrete
// view kind. withData is the per-kind factory that replaces reflection
// based re-construction: it builds a fresh instance of the same concrete
// kind with an empty cache.
type GroupedView interface {
	// Data returns the underlying container.
	Data() Container
	// Grouping returns the active grouping, shared and immutable.
	Grouping() *Grouping
	// Config returns a snapshot of the propagated configuration.
	Config() ViewConfig
	// Parent returns the view this one was derived from, if any.
	Parent() (GroupedView, bool)
	// Selection returns the key(s) that narrowed this view, if recorded.
	Selection() ([]string, bool)

	withData(data Container, g *Grouping, parent GroupedView, cfg ViewConfig) GroupedView
	setSelection(keys []string)
}

// viewState holds the fields and behavior shared by all view kinds.
// A view is immutable once handed to a caller: narrowing produces a new
// object, never mutates in place.
type viewState struct {
	data      Container
	grouping  *Grouping
	config    ViewConfig
	parent    GroupedView
	selection []string
	sizes     map[string]int // memoized group sizes, never inherited
}

// Data returns the underlying container
func (v *viewState) Data() Container { return v.data }

// Grouping returns the active grouping
func (v *viewState) Grouping() *Grouping { return v.grouping }

// Config returns a copy of the propagated configuration
func (v *viewState) Config() ViewConfig { return v.config }

// Parent returns the view this one was derived from
func (v *viewState) Parent() (GroupedView, bool) {
	return v.parent, v.parent != nil
}

// Selection returns the selection marker recorded at derivation time
func (v *viewState) Selection() ([]string, bool) {
	if v.selection == nil {
		return nil, false
	}
	return append([]string(nil), v.selection...), true
}

func (v *viewState) setSelection(keys []string) {
	v.selection = append([]string(nil), keys...)
}

// GroupSizes returns the size of each group, memoized on this view. The
// memo is never shared with parents or derived views.
func (v *viewState) GroupSizes() map[string]int {
	if v.sizes == nil {
		v.sizes = v.grouping.Sizes()
	}
	return maps.Clone(v.sizes)
}

// TableView is a grouped view over two-dimensional data
type TableView struct {
	viewState
}

// NewTableView creates a root table view from a container and a grouping
func NewTableView(df *dataframe.DataFrame, g *Grouping, cfg ViewConfig) *TableView {
	return &TableView{viewState{
		data:     NewTable(df),
		grouping: g,
		config:   cfg,
	}}
}

func (v *TableView) withData(data Container, g *Grouping, parent GroupedView, cfg ViewConfig) GroupedView {
	return &TableView{viewState{
		data:     data,
		grouping: g,
		config:   cfg,
		parent:   parent,
	}}
}

// ColumnView is a grouped view over one-dimensional data
type ColumnView struct {
	viewState
}

// NewColumnView creates a root column view from a series and a grouping
func NewColumnView(s dataframe.ISeries, g *Grouping, cfg ViewConfig) *ColumnView {
	return &ColumnView{viewState{
		data:     NewColumn(s),
		grouping: g,
		config:   cfg,
	}}
}

func (v *ColumnView) withData(data Container, g *Grouping, parent GroupedView, cfg ViewConfig) GroupedView {
	return &ColumnView{viewState{
		data:     data,
		grouping: g,
		config:   cfg,
		parent:   parent,
	}}
}

// ShallowCopy rebuilds a view of the same concrete kind around replacement
// data, inheriting the source view's configuration except where overridden.
// A replacement that is itself a grouped view is unwrapped to its
// underlying container first, so views never nest. The returned view is a
// distinct instance; mutating it never affects the source.
func ShallowCopy(view GroupedView, replacement any, ov *ConfigOverrides) (GroupedView, error) {
	if err := checkWellFormed("ShallowCopy", view); err != nil {
		return nil, err
	}

	data, err := asContainer("ShallowCopy", replacement)
	if err != nil {
		return nil, err
	}

	return view.withData(data, view.Grouping(), nil, view.Config().apply(ov)), nil
}

// GetItem derives a view narrowed to the given key(s), evaluated against
// subset, or against the view's own data when subset is nil.
//
// The derived view shares the parent's grouping unless the keys name a
// subset of the grouping levels, in which case a narrower grouping is
// re-derived against the original un-narrowed data. A key that is not a
// grouping level is the expected case (it selects data columns) and is
// recovered by reusing the parent grouping unchanged; lookup failures on
// the data propagate to the caller as-is.
func GetItem(view GroupedView, keys []string, subset Container) (GroupedView, error) {
	if err := checkWellFormed("GetItem", view); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, gerrors.NewInvalidInputError("GetItem", "at least one key is required")
	}

	if subset == nil {
		subset = view.Data()
	}

	// Snapshot before touching anything else, so the derived view cannot
	// observe later changes to the parent's configuration.
	cfg := view.Config()

	grouping := view.Grouping()
	if narrowed, err := grouping.Level(keys...); err == nil {
		grouping = narrowed
	} else if !errors.Is(err, gerrors.ErrNotGroupingLevel) {
		return nil, err
	}

	data, err := subset.Lookup(keys...)
	if err != nil {
		return nil, err
	}

	derived := view.withData(data, grouping, view, cfg)

	if subset.NDim() == 2 && containsAll(subset.Columns(), keys) {
		derived.setSelection(keys)
	}

	return derived, nil
}

// checkWellFormed guards the construction-time contract: a view must carry
// data and a grouping. A violation is a ConfigurationError, fatal rather
// than recoverable.
func checkWellFormed(op string, view GroupedView) error {
	if view == nil {
		return gerrors.NewMalformedViewError(op, "view is nil")
	}
	if view.Data() == nil {
		return gerrors.NewMalformedViewError(op, "view has no data attached")
	}
	if view.Grouping() == nil {
		return gerrors.NewMalformedViewError(op, "view has no grouping attached")
	}
	return nil
}

// asContainer resolves a replacement object to a Container, unwrapping
// grouped views to prevent nested wrapping.
func asContainer(op string, replacement any) (Container, error) {
	switch obj := replacement.(type) {
	case GroupedView:
		return obj.Data(), nil
	case Container:
		return obj, nil
	case *dataframe.DataFrame:
		return NewTable(obj), nil
	case dataframe.ISeries:
		return NewColumn(obj), nil
	default:
		return nil, gerrors.NewUnsupportedTypeError(op, fmt.Sprintf("%T", replacement))
	}
}

func containsAll(columns []string, keys []string) bool {
	for _, key := range keys {
		if !slices.Contains(columns, key) {
			return false
		}
	}
	return true
}
