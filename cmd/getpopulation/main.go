// Command getpopulation downloads the German population datasets and
// writes the normalized artifacts to the output folder.
package main

import (
	"fmt"
	"os"

	"github.com/Nicaras/memilio/config"
	"github.com/Nicaras/memilio/epidata"
	"github.com/Nicaras/memilio/logging"
	"github.com/Nicaras/memilio/population"
	"github.com/joho/godotenv"
)

func main() {
	// a missing .env file is fine, the environment may be set directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogDir, cfg.LogLevel)

	flags, err := epidata.ParseFlags("population", os.Args[1:], cfg.OutFolder)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := population.New(cfg).Run(flags); err != nil {
		logging.Error("Population data run failed", "error", err)
		os.Exit(1)
	}
}
