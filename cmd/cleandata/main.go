// Command cleandata deletes output artifacts written by the dataset
// pipelines, selected by dataset family.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Nicaras/memilio/cleandata"
	"github.com/Nicaras/memilio/config"
	"github.com/Nicaras/memilio/logging"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogDir, cfg.LogLevel)

	var opts cleandata.Options
	flag.BoolVar(&opts.All, "a", false, "Deletes all data and folders which could possibly be written by the dataset pipelines.")
	flag.BoolVar(&opts.All, "all", false, "Deletes all data and folders which could possibly be written by the dataset pipelines.")
	flag.BoolVar(&opts.RKI, "r", false, "Deletes just RKI data.")
	flag.BoolVar(&opts.RKI, "rki", false, "Deletes just RKI data.")
	flag.BoolVar(&opts.JohnHopkins, "j", false, "Deletes just data from Johns Hopkins University.")
	flag.BoolVar(&opts.JohnHopkins, "john-hopkins", false, "Deletes just data from Johns Hopkins University.")
	flag.BoolVar(&opts.Spain, "s", false, "Deletes just Spain data.")
	flag.BoolVar(&opts.Spain, "spain", false, "Deletes just Spain data.")
	flag.BoolVar(&opts.Population, "p", false, "Deletes just population data.")
	flag.BoolVar(&opts.Population, "population", false, "Deletes just population data.")
	flag.BoolVar(&opts.HDF5, "h5", false, "Deletes h5 files instead of json files.")
	flag.StringVar(&opts.OutPath, "o", cfg.OutFolder, "Defines folder for output.")
	flag.StringVar(&opts.OutPath, "out-path", cfg.OutFolder, "Defines folder for output.")
	flag.Parse()

	if err := cleandata.Clean(opts); err != nil {
		logging.Error("Cleanup failed", "error", err)
		os.Exit(1)
	}
}
