package population

import (
	"testing"

	"github.com/Nicaras/memilio/epidata"
)

func censusFixture(t *testing.T) *epidata.Table {
	t.Helper()
	census := epidata.NewTable()
	mustAdd(t, census, "Name", []any{"Flensburg", "Niemandsland"})
	mustAdd(t, census, "EWZ", []any{int64(89000), int64(123)})
	for _, col := range maleColumns {
		mustAdd(t, census, col, []any{int64(2), int64(1)})
	}
	for _, col := range femaleColumns {
		mustAdd(t, census, col, []any{int64(3), int64(1)})
	}
	return census
}

func registerFixture(t *testing.T) *epidata.Table {
	t.Helper()
	register := epidata.NewTable()
	mustAdd(t, register, "NAME", []any{"Flensburg", "Kiel"})
	mustAdd(t, register, "AGS", []any{int64(1001), int64(1002)})
	mustAdd(t, register, "Zensus_EWZ", []any{89.0, 246.6})
	return register
}

func mustAdd(t *testing.T, table *epidata.Table, name string, values []any) {
	t.Helper()
	if err := table.AddColumn(name, values); err != nil {
		t.Fatalf("AddColumn %s failed: %v", name, err)
	}
}

func TestMatchRegionKeys(t *testing.T) {
	keys, err := matchRegionKeys(censusFixture(t), registerFixture(t))
	if err != nil {
		t.Fatalf("matchRegionKeys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Expected one key per census row, got %d", len(keys))
	}
	if keys[0] != 1001 {
		t.Errorf("Expected key 1001 for Flensburg, got %d", keys[0])
	}
	if keys[1] != 0 {
		t.Errorf("Expected key 0 for an unmatched row, got %d", keys[1])
	}
}

func TestBuildAgeMatrix(t *testing.T) {
	data, err := buildAgeMatrix(censusFixture(t), registerFixture(t))
	if err != nil {
		t.Fatalf("buildAgeMatrix failed: %v", err)
	}
	if len(data) != 1 {
		t.Fatalf("Expected unmatched rows to be excluded, got %d rows", len(data))
	}
	row := data[0]
	if row[0] != 1001 {
		t.Errorf("Expected key 1001, got %f", row[0])
	}
	if row[1] != 89000 {
		t.Errorf("Expected total 89000, got %f", row[1])
	}
	for b := 0; b < len(maleColumns); b++ {
		if row[2+b] != 5 {
			t.Errorf("Expected unisex bracket sum 5, got %f", row[2+b])
		}
	}
}

func TestBuildAgeMatrixNoMatches(t *testing.T) {
	census := censusFixture(t)
	register := epidata.NewTable()
	mustAdd(t, register, "NAME", []any{"Atlantis"})
	mustAdd(t, register, "AGS", []any{int64(1)})
	mustAdd(t, register, "Zensus_EWZ", []any{1.0})

	if _, err := buildAgeMatrix(census, register); err == nil {
		t.Fatal("Expected an error when no census row matches")
	}
}

func TestBuildRatios(t *testing.T) {
	counties := epidata.NewTable()
	mustAdd(t, counties, "Schlüssel-nummer", []any{int64(1001), "footnote text"})
	mustAdd(t, counties, "Bevölkerung2)", []any{int64(150), nil})

	data := [][]float64{
		{1001, 100},
		{1002, 0},
		{1003, 50},
	}
	ratios, err := buildRatios(data, counties)
	if err != nil {
		t.Fatalf("buildRatios failed: %v", err)
	}
	if ratios[0] != 1.5 {
		t.Errorf("Expected ratio 1.5, got %f", ratios[0])
	}
	if ratios[1] != 1.0 {
		t.Errorf("Expected ratio 1.0 for a zero total, got %f", ratios[1])
	}
	if ratios[2] != 1.0 {
		t.Errorf("Expected ratio 1.0 for an unknown key, got %f", ratios[2])
	}
}

func TestTableFromMatrix(t *testing.T) {
	row := make([]float64, len(outputColumns))
	row[0] = 1001
	for c := 1; c < len(row); c++ {
		row[c] = 10.7
	}

	truncated, err := tableFromMatrix([][]float64{row}, false)
	if err != nil {
		t.Fatalf("tableFromMatrix failed: %v", err)
	}
	total, _ := truncated.Column("Total")
	if total[0] != int64(10) {
		t.Errorf("Expected truncated value 10, got %v", total[0])
	}

	rounded, err := tableFromMatrix([][]float64{row}, true)
	if err != nil {
		t.Fatalf("tableFromMatrix failed: %v", err)
	}
	total, _ = rounded.Column("Total")
	if total[0] != int64(11) {
		t.Errorf("Expected rounded value 11, got %v", total[0])
	}

	if got := truncated.Columns(); len(got) != len(outputColumns) {
		t.Errorf("Expected %d columns, got %d", len(outputColumns), len(got))
	}
}
