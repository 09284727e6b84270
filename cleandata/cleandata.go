// Package cleandata deletes output artifacts generated by the dataset
// pipelines, selected by dataset family.
package cleandata

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Nicaras/memilio/logging"
)

// countryDirs lists the country subdirectories the pipelines write to.
var countryDirs = []string{"Germany", "Spain", "France", "Italy", "US", "SouthKorea", "China"}

// Options selects which dataset families to delete. Family selections
// are additive; All overrides the individual selections.
type Options struct {
	All         bool
	RKI         bool
	JohnHopkins bool
	Spain       bool
	Population  bool
	// HDF5 switches the targeted file ending from .json to .h5.
	HDF5    bool
	OutPath string
}

// Clean removes the selected artifacts under opts.OutPath and removes
// country directories that become empty. Missing directories are
// skipped silently. With no family selected it prints a usage hint and
// deletes nothing.
func Clean(opts Options) error {
	ending := ".json"
	if opts.HDF5 {
		ending = ".h5"
	}

	switch {
	case opts.All:
		return cleanAll(opts.OutPath)
	case opts.RKI || opts.JohnHopkins || opts.Spain || opts.Population:
		if opts.RKI {
			err := cleanDir(filepath.Join(opts.OutPath, "Germany"), ending, func(name string) bool {
				return strings.Contains(name, "_rki") || strings.Contains(name, "RKI")
			})
			if err != nil {
				return err
			}
		}
		if opts.Population {
			err := cleanDir(filepath.Join(opts.OutPath, "Germany"), ending, func(name string) bool {
				return strings.Contains(name, "Popul") || strings.Contains(name, "FullDataB") ||
					strings.Contains(name, "FullDataL")
			})
			if err != nil {
				return err
			}
		}
		if opts.Spain {
			err := cleanDir(filepath.Join(opts.OutPath, "Spain"), ending, func(name string) bool {
				return strings.Contains(name, "spain")
			})
			if err != nil {
				return err
			}
		}
		if opts.JohnHopkins {
			for _, country := range countryDirs {
				err := cleanDir(filepath.Join(opts.OutPath, country), ending, func(name string) bool {
					return strings.Contains(name, "_jh")
				})
				if err != nil {
					return err
				}
			}
			// summary files live directly in the output root
			err := removeMatching(opts.OutPath, ending, func(name string) bool {
				return strings.Contains(name, "_jh") || strings.Contains(name, "JohnHopkins")
			})
			if err != nil {
				return err
			}
		}
		return nil
	default:
		logging.Info("Please specify what should be deleted. See --help for details.")
		return nil
	}
}

// cleanAll removes every json and h5 artifact regardless of family.
func cleanAll(outPath string) error {
	anyEnding := func(name string) bool {
		return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".h5")
	}
	for _, country := range countryDirs {
		directory := filepath.Join(outPath, country)
		if err := removeMatching(directory, "", anyEnding); err != nil {
			return err
		}
		removeIfEmpty(directory)
	}
	return removeMatching(outPath, "", anyEnding)
}

// cleanDir removes matching files with the given ending from one
// directory, then removes the directory if it became empty.
func cleanDir(directory, ending string, match func(name string) bool) error {
	if err := removeMatching(directory, ending, match); err != nil {
		return err
	}
	removeIfEmpty(directory)
	return nil
}

// removeMatching deletes regular files in directory whose names end
// with ending (when non-empty) and satisfy match. A missing directory
// is not an error.
func removeMatching(directory, ending string, match func(name string) bool) error {
	entries, err := os.ReadDir(directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ending != "" && !strings.HasSuffix(name, ending) {
			continue
		}
		if !match(name) {
			continue
		}
		path := filepath.Join(directory, name)
		if err := os.Remove(path); err != nil {
			return err
		}
		logging.Info("Deleted file", "path", path)
	}
	return nil
}

// removeIfEmpty removes a directory that has no entries left. Non-empty
// and missing directories are skipped silently.
func removeIfEmpty(directory string) {
	if err := os.Remove(directory); err == nil {
		logging.Info("Deleted directory", "path", directory)
	}
}
