package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"retailcast/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, sparse, drift")
	outDir := flag.String("out", "./cleaned", "Output directory for the cleaned CSV files")
	days := flag.Int("days", 365, "Number of days of history to generate")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	end := flag.String("end", "", "Last history day (YYYY-MM-DD), defaults to today")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario: *scenario,
		Days:     *days,
		Seed:     *seed,
	}
	if *end != "" {
		t, err := time.Parse("2006-01-02", *end)
		if err != nil {
			fmt.Printf("Invalid end date: %v\n", err)
			os.Exit(1)
		}
		cfg.End = t
	}

	fmt.Printf("Generating scenario '%s' (Days: %d, Seed: %d) to %s...\n", cfg.Scenario, cfg.Days, cfg.Seed, *outDir)

	ds := engine.Generate(cfg)
	if err := engine.Save(*outDir, ds); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done. %d sales lines, %d return lines.\n", len(ds.Sales), len(ds.Returns))
}
