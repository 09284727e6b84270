package population

import "sort"

// countyMerge maps one successor county key to the predecessor keys it
// absorbed during the district reforms after the 2011 census.
type countyMerge struct {
	successor    int64
	predecessors []int64
}

// countyMerges is the fixed reconciliation table for the seven counties
// formed since 2011.
var countyMerges = []countyMerge{
	// Göttingen and Osterode am Harz -> Göttingen
	{3159, []int64{3152, 3156}},
	// Müritz, Neubrandenburg, Mecklenburg-Strelitz and Demmin -> Mecklenburgische Seenplatte
	{13071, []int64{13056, 13002, 13055, 13052}},
	// Bad Doberan and Güstrow -> Landkreis Rostock
	{13072, []int64{13051, 13053}},
	// Rügen, Stralsund and Nordvorpommern -> Vorpommern-Rügen
	{13073, []int64{13061, 13005, 13057}},
	// Wismar and Nordwestmecklenburg -> Nordwestmecklenburg
	{13074, []int64{13006, 13058}},
	// Ostvorpommern, Uecker-Randow and Greifswald -> Vorpommern-Greifswald
	{13075, []int64{13059, 13062, 13001}},
	// Ludwigslust and Parchim -> Ludwigslust-Parchim
	{13076, []int64{13054, 13060}},
}

// reconcileCounties applies the merge table to a matrix whose first
// column holds the region key. The value columns of every predecessor
// row are summed into a newly appended row under the successor key and
// the predecessor rows are removed. The result contains exactly one row
// per currently valid region key, sorted ascending.
func reconcileCounties(data [][]float64) [][]float64 {
	if len(data) == 0 {
		return data
	}
	width := len(data[0])

	successorRow := make(map[int64]int, len(countyMerges))
	for _, merge := range countyMerges {
		row := make([]float64, width)
		row[0] = float64(merge.successor)
		data = append(data, row)
		successorRow[merge.successor] = len(data) - 1
	}

	predecessorOf := make(map[int64]int64)
	for _, merge := range countyMerges {
		for _, key := range merge.predecessors {
			predecessorOf[key] = merge.successor
		}
	}

	merged := make([][]float64, 0, len(data))
	for i, row := range data {
		successor, isPredecessor := predecessorOf[int64(row[0])]
		if isPredecessor && i < len(data)-len(countyMerges) {
			target := data[successorRow[successor]]
			for c := 1; c < width; c++ {
				target[c] += row[c]
			}
			continue
		}
		merged = append(merged, row)
	}

	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a][0] < merged[b][0]
	})
	return merged
}
