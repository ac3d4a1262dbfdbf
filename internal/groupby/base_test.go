package groupby

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKernelTablesAreDisjoint(t *testing.T) {
	for _, name := range reductionKernels {
		assert.True(t, IsReduction(name), "reduction table entry %q", name)
		assert.False(t, IsTransformation(name),
			"%q must not be in both kernel tables", name)
	}
	for _, name := range transformationKernels {
		assert.True(t, IsTransformation(name), "transformation table entry %q", name)
		assert.False(t, IsReduction(name),
			"%q must not be in both kernel tables", name)
	}
}

func TestValidTransformArgumentIsTheUnion(t *testing.T) {
	names := append(append([]string{}, reductionKernels...), transformationKernels...)
	names = append(names, "corr", "plot", "totally_unknown_name")

	for _, name := range names {
		assert.Equal(t, IsReduction(name) || IsTransformation(name),
			IsValidTransformArgument(name), "union property for %q", name)
	}
}

func TestPlottingMethodClassification(t *testing.T) {
	for _, name := range []string{"plot", "hist"} {
		cats := CategoriesOf(name)

		assert.True(t, cats.Has(PlottingMethod), "%q", name)
		assert.True(t, IsSeriesAllowlisted(name), "%q must be series-allowlisted", name)
		assert.True(t, IsFrameAllowlisted(name), "%q must be frame-allowlisted", name)
		assert.False(t, IsReduction(name), "%q must not be a reduction", name)
		assert.False(t, IsTransformation(name), "%q must not be a transformation", name)
	}
}

func TestSumIsAReduction(t *testing.T) {
	cats := CategoriesOf("sum")

	assert.True(t, cats.Has(Reduction))
	assert.True(t, IsValidTransformArgument("sum"))
	assert.False(t, IsTransformation("sum"))
}

func TestRankIsACastBlocklistedTransformation(t *testing.T) {
	cats := CategoriesOf("rank")

	assert.True(t, cats.Has(Transformation))
	assert.True(t, cats.Has(CastBlocklisted))
	assert.False(t, IsNativeKernel("rank"))
}

func TestShiftIsANativeTransformation(t *testing.T) {
	cats := CategoriesOf("shift")

	assert.True(t, cats.Has(Transformation))
	assert.True(t, cats.Has(NativeKernel))
}

func TestCorrAndCovAreUnshaped(t *testing.T) {
	// corr and cov may return ngroups*ncolumns rows, so they route through
	// the generic path.
	for _, name := range []string{"corr", "cov"} {
		assert.False(t, IsReduction(name), "%q", name)
		assert.False(t, IsTransformation(name), "%q", name)
		assert.True(t, CategoriesOf(name).Has(OtherMethod), "%q", name)
	}
}

func TestUnknownNamesAreUnclassified(t *testing.T) {
	cats := CategoriesOf("totally_unknown_name")

	assert.Equal(t, Category(0), cats)
	assert.False(t, IsReduction("totally_unknown_name"))
	assert.False(t, IsTransformation("totally_unknown_name"))
	assert.Equal(t, "unclassified", cats.String())
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "reduction", Reduction.String())

	combined := CategoriesOf("shift")
	assert.Contains(t, combined.String(), "transformation")
	assert.Contains(t, combined.String(), "native")
}

func TestValidateClassificationsPanicsOnOverlap(t *testing.T) {
	broken := map[string]Category{
		"sum": Reduction | Transformation,
	}

	assert.Panics(t, func() {
		validateClassifications(broken)
	})
}
