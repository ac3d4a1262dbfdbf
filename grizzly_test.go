package grizzly_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/grizzlydata/grizzly"
)

func createEmployees() *grizzly.DataFrame {
	mem := memory.NewGoAllocator()

	depts := grizzly.NewSeries("dept", []string{"eng", "sales", "eng", "sales", "eng"}, mem)
	salaries := grizzly.NewSeries("salary", []int64{100, 50, 120, 60, 110}, mem)
	years := grizzly.NewSeries("years", []float64{3, 1, 5, 2, 4}, mem)

	return grizzly.NewDataFrame(depts, salaries, years)
}

func TestGroupBySum(t *testing.T) {
	df := createEmployees()
	defer df.Release()

	gb, err := df.GroupBy("dept")
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	if gb.NumGroups() != 2 {
		t.Errorf("Expected 2 groups, got %d", gb.NumGroups())
	}

	result, err := gb.Sum()
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	defer result.Release()

	if result.Len() != 2 {
		t.Errorf("Expected 2 rows, got %d", result.Len())
	}

	s, ok := result.Column("salary_sum")
	if !ok {
		t.Fatal("Expected column 'salary_sum'")
	}

	arr := s.Array()
	defer arr.Release()

	sums := arr.(*array.Int64)
	if sums.Value(0) != 330 || sums.Value(1) != 110 {
		t.Errorf("Expected sums [330 110], got [%d %d]", sums.Value(0), sums.Value(1))
	}
}

func TestGroupBySelectNarrows(t *testing.T) {
	df := createEmployees()
	defer df.Release()

	gb, err := df.GroupBy("dept")
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	narrowed, err := gb.Select("salary")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	selection, ok := narrowed.Selection()
	if !ok || len(selection) != 1 || selection[0] != "salary" {
		t.Errorf("Expected selection [salary], got %v", selection)
	}

	result, err := narrowed.Sum()
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	defer result.Release()

	if result.HasColumn("years_sum") {
		t.Error("Narrowed view must not aggregate unselected columns")
	}
	if !result.HasColumn("salary_sum") {
		t.Error("Expected column 'salary_sum'")
	}
}

func TestGroupBySelectUnknownColumn(t *testing.T) {
	df := createEmployees()
	defer df.Release()

	gb, err := df.GroupBy("dept")
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	if _, err := gb.Select("missing"); err == nil {
		t.Error("Expected lookup failure for unknown column")
	}
}

func TestTransformRejectsInvalidName(t *testing.T) {
	df := createEmployees()
	defer df.Release()

	gb, err := df.GroupBy("dept")
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	if _, err := gb.Transform("corr"); err == nil {
		t.Error("Expected corr to be rejected as a transform argument")
	}

	result, err := gb.Transform("rank")
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	defer result.Release()

	if result.Len() != df.Len() {
		t.Errorf("Expected %d rows, got %d", df.Len(), result.Len())
	}
}

func TestRegistryQueries(t *testing.T) {
	if !grizzly.IsReduction("sum") {
		t.Error("sum must be a reduction")
	}
	if grizzly.IsTransformation("sum") {
		t.Error("sum must not be a transformation")
	}
	if !grizzly.IsValidTransformArgument("rank") {
		t.Error("rank must be a valid transform argument")
	}
	if !grizzly.CategoriesOf("shift").Has(grizzly.NativeKernel) {
		t.Error("shift must have a native kernel")
	}
	if !grizzly.IsCastBlocklisted("rank") {
		t.Error("rank must be cast-blocklisted")
	}
	if grizzly.CategoriesOf("totally_unknown_name") != 0 {
		t.Error("unknown names must be unclassified")
	}
}

func TestConfigure(t *testing.T) {
	defer func() {
		if err := grizzly.Configure(grizzly.DefaultConfig()); err != nil {
			t.Fatalf("restoring config failed: %v", err)
		}
	}()

	c := grizzly.DefaultConfig()
	c.ParallelThreshold = 10
	if err := grizzly.Configure(c); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	bad := grizzly.DefaultConfig()
	bad.ParallelThreshold = -5
	if err := grizzly.Configure(bad); err == nil {
		t.Error("Expected invalid config to be rejected")
	}
}
