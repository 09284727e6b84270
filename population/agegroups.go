package population

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/Nicaras/memilio/epidata"
	"github.com/Nicaras/memilio/logging"
)

const (
	countiesAPIURL = "http://hpcagainstcorona.sc.bs.dlr.de/data/migration/"
	registerAPIURL = "https://www.zensus2011.de/SharedDocs/Downloads/DE/Pressemitteilung/DemografischeGrunddaten/"
	registerExt    = ".xls?__blob=publicationFile&v=5"
	censusItem     = "abad92e8eead46a4b0d252ee9438eb53_1"
)

var maleColumns = []string{
	"M_Unter_3", "M_3_bis_5", "M_6_bis_14", "M_15_bis_17", "M_18_bis_24",
	"M_25_bis_29", "M_30_bis_39", "M_40_bis_49", "M_50_bis_64",
	"M_65_bis_74", "M_75_und_aelter",
}

var femaleColumns = []string{
	"W_Unter_3", "W_3_bis_5", "W_6_bis_14", "W_15_bis_17", "W_18_bis_24",
	"W_25_bis_29", "W_30_bis_39", "W_40_bis_49", "W_50_bis_64",
	"W_65_bis_74", "W_75_und_aelter",
}

var outputColumns = []string{
	"Key", "Total", "<3 years", "3-5 years", "6-14 years", "15-17 years",
	"18-24 years", "25-29 years", "30-39 years", "40-49 years",
	"50-64 years", "65-74 years", ">74 years",
}

// GetAgePopulationData builds the age-stratified county population
// tables: the raw census-era table and a copy rescaled to the current
// population level, both keyed by region and reconciled to the current
// county layout.
func (p *Pipeline) GetAgePopulationData(flags *epidata.RunFlags) error {
	counties, err := epidata.LoadExcel("kreise_deu", epidata.ExcelParams{
		APIURL:     countiesAPIURL,
		Extension:  ".xlsx",
		SheetIndex: 1,
		Header:     3,
		Timeout:    p.cfg.HTTPTimeout,
	})
	if err != nil {
		return err
	}

	register, err := epidata.LoadExcel("1A_EinwohnerzahlGeschlecht", epidata.ExcelParams{
		APIURL:    registerAPIURL,
		Extension: registerExt,
		SheetName: "Tabelle_1A",
		Header:    12,
		Timeout:   p.cfg.HTTPTimeout,
	})
	if err != nil {
		return err
	}

	census, err := epidata.LoadCSV(censusItem, epidata.CSVParams{Timeout: p.cfg.HTTPTimeout})
	if err != nil {
		return err
	}

	data, err := buildAgeMatrix(census, register)
	if err != nil {
		return err
	}
	data = reconcileCounties(data)

	ratios, err := buildRatios(data, counties)
	if err != nil {
		return err
	}

	rescaled := make([][]float64, len(data))
	for i, row := range data {
		out := make([]float64, len(row))
		out[0] = row[0]
		for c := 1; c < len(row); c++ {
			out[c] = row[c] * ratios[i]
		}
		rescaled[i] = out
	}

	raw, err := tableFromMatrix(data, false)
	if err != nil {
		return err
	}
	current, err := tableFromMatrix(rescaled, true)
	if err != nil {
		return err
	}

	directory := filepath.Join(flags.OutFolder, "Germany")
	if err := epidata.CheckDir(directory); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", directory, err)
	}
	if err := epidata.WriteTable(raw, directory, "county_population", flags.FileFormat, nil); err != nil {
		return err
	}
	return epidata.WriteTable(current, directory, "county_current_population", flags.FileFormat, nil)
}

// buildAgeMatrix joins the census age table with the register of region
// keys and collapses the per-sex age brackets into unisex totals. The
// result has one row per matched region key, ascending, with columns
// key, total population, then one column per age bracket. Census rows
// without a register match keep a zero key and are excluded.
func buildAgeMatrix(census, register *epidata.Table) ([][]float64, error) {
	keys, err := matchRegionKeys(census, register)
	if err != nil {
		return nil, err
	}

	firstIndex := make(map[int64]int)
	for i, key := range keys {
		if key == 0 {
			continue
		}
		if _, seen := firstIndex[key]; !seen {
			firstIndex[key] = i
		}
	}
	uniqueKeys := make([]int64, 0, len(firstIndex))
	for key := range firstIndex {
		uniqueKeys = append(uniqueKeys, key)
	}
	sort.Slice(uniqueKeys, func(a, b int) bool { return uniqueKeys[a] < uniqueKeys[b] })
	if len(uniqueKeys) == 0 {
		return nil, &epidata.DataError{Msg: "no census row could be matched to a region key"}
	}
	logging.Info("Matched census rows to region keys", "regions", len(uniqueKeys), "census_rows", len(keys))

	total, err := census.Column("EWZ")
	if err != nil {
		return nil, err
	}
	brackets := make([][]any, len(maleColumns))
	for b := range maleColumns {
		male, err := census.Column(maleColumns[b])
		if err != nil {
			return nil, err
		}
		female, err := census.Column(femaleColumns[b])
		if err != nil {
			return nil, err
		}
		combined := make([]any, len(male))
		for i := range male {
			m, _ := epidata.AsFloat(male[i])
			f, _ := epidata.AsFloat(female[i])
			combined[i] = m + f
		}
		brackets[b] = combined
	}

	data := make([][]float64, len(uniqueKeys))
	for r, key := range uniqueKeys {
		i := firstIndex[key]
		row := make([]float64, 2+len(maleColumns))
		row[0] = float64(key)
		row[1], _ = epidata.AsFloat(total[i])
		for b := range brackets {
			row[2+b], _ = epidata.AsFloat(brackets[b][i])
		}
		data[r] = row
	}
	return data, nil
}

// matchRegionKeys finds the register key for every census row: the
// region name must match and the census population must equal the
// register population rounded to the nearest thousand. Unmatched rows
// get key 0.
func matchRegionKeys(census, register *epidata.Table) ([]int64, error) {
	names, err := census.Column("Name")
	if err != nil {
		return nil, err
	}
	totals, err := census.Column("EWZ")
	if err != nil {
		return nil, err
	}
	regNames, err := register.Column("NAME")
	if err != nil {
		return nil, err
	}
	regKeys, err := register.Column("AGS")
	if err != nil {
		return nil, err
	}
	regTotals, err := register.Column("Zensus_EWZ")
	if err != nil {
		return nil, err
	}

	keys := make([]int64, len(names))
	for i := range names {
		name := epidata.AsString(names[i])
		total, ok := epidata.AsFloat(totals[i])
		if !ok {
			continue
		}
		for j := range regNames {
			if name != epidata.AsString(regNames[j]) {
				continue
			}
			regTotal, ok := epidata.AsFloat(regTotals[j])
			if !ok {
				continue
			}
			if total == math.Round(regTotal*1000) {
				if key, ok := epidata.AsInt(regKeys[j]); ok {
					keys[i] = key
				}
			}
		}
	}
	return keys, nil
}

// buildRatios computes the per-region rescale ratio of current to
// census-era population from the county reference table. Regions absent
// from the reference keep ratio 1.0.
func buildRatios(data [][]float64, counties *epidata.Table) ([]float64, error) {
	countyKeys, err := counties.Column("Schlüssel-nummer")
	if err != nil {
		return nil, err
	}
	countyPop, err := counties.Column("Bevölkerung2)")
	if err != nil {
		return nil, err
	}

	ratios := make([]float64, len(data))
	for i, row := range data {
		ratios[i] = 1.0
		if row[1] == 0 {
			continue
		}
		for j := range countyKeys {
			key, ok := epidata.AsInt(countyKeys[j])
			if !ok {
				// reference footer and note rows carry no key
				continue
			}
			if key != int64(row[0]) {
				continue
			}
			if pop, ok := epidata.AsFloat(countyPop[j]); ok {
				ratios[i] = pop / row[1]
			}
		}
	}
	return ratios, nil
}

// tableFromMatrix converts a key+values matrix into a table of integer
// cells, rounding to the nearest integer when rounded is set and
// truncating otherwise.
func tableFromMatrix(data [][]float64, rounded bool) (*epidata.Table, error) {
	table := epidata.NewTable()
	for c, name := range outputColumns {
		values := make([]any, len(data))
		for i, row := range data {
			v := row[c]
			if rounded {
				v = math.Round(v)
			}
			values[i] = int64(v)
		}
		if err := table.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return table, nil
}
