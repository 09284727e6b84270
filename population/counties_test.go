package population

import (
	"sort"
	"testing"
)

func keysOf(data [][]float64) []int64 {
	keys := make([]int64, len(data))
	for i, row := range data {
		keys[i] = int64(row[0])
	}
	return keys
}

func TestReconcileCountiesSumsPredecessors(t *testing.T) {
	data := [][]float64{
		{3152, 10, 20},
		{3156, 5, 8},
	}

	merged := reconcileCounties(data)

	var goettingen []float64
	for _, row := range merged {
		if row[0] == 3159 {
			goettingen = row
		}
	}
	if goettingen == nil {
		t.Fatal("Expected a row for key 3159")
	}
	if goettingen[1] != 15 || goettingen[2] != 28 {
		t.Errorf("Expected summed values [15 28], got %v", goettingen[1:])
	}
	for _, key := range keysOf(merged) {
		if key == 3152 || key == 3156 {
			t.Errorf("Expected predecessor key %d to be removed", key)
		}
	}
}

func TestReconcileCountiesKeepsUnrelatedRows(t *testing.T) {
	data := [][]float64{
		{1001, 100},
		{9162, 200},
	}

	merged := reconcileCounties(data)

	found := 0
	for _, row := range merged {
		switch row[0] {
		case 1001:
			found++
			if row[1] != 100 {
				t.Errorf("Expected untouched value 100, got %f", row[1])
			}
		case 9162:
			found++
		}
	}
	if found != 2 {
		t.Errorf("Expected both unrelated rows to survive, found %d", found)
	}
}

func TestReconcileCountiesSortedAndUnique(t *testing.T) {
	data := [][]float64{
		{13056, 1},
		{9162, 2},
		{13002, 3},
		{1001, 4},
	}

	merged := reconcileCounties(data)

	keys := keysOf(merged)
	if !sort.SliceIsSorted(keys, func(a, b int) bool { return keys[a] < keys[b] }) {
		t.Errorf("Expected keys sorted ascending, got %v", keys)
	}
	seen := make(map[int64]bool)
	for _, key := range keys {
		if seen[key] {
			t.Errorf("Expected unique keys, got %d twice", key)
		}
		seen[key] = true
	}
	// one row per merge target even when no predecessor is present
	if len(merged) != 2+len(countyMerges) {
		t.Errorf("Expected %d rows, got %d", 2+len(countyMerges), len(merged))
	}
}

func TestReconcileCountiesEmptyInput(t *testing.T) {
	if merged := reconcileCounties(nil); len(merged) != 0 {
		t.Errorf("Expected empty result, got %v", merged)
	}
}
