package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rachelplusplus/image-encoder-comparison/internal/analysis"
	"github.com/rachelplusplus/image-encoder-comparison/internal/config"
	"github.com/rachelplusplus/image-encoder-comparison/internal/estimate"
	"github.com/rachelplusplus/image-encoder-comparison/internal/logger"
	"github.com/rachelplusplus/image-encoder-comparison/internal/metric"
	"github.com/rachelplusplus/image-encoder-comparison/internal/report"
	"github.com/rachelplusplus/image-encoder-comparison/internal/store"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file (default: ./enccompare.yaml)")
	database := flag.String("database", "", "Override results database path from config")
	labelList := flag.String("labels", "", "Comma-separated encoder labels to compare (required)")
	csvPath := flag.String("csv", "", "Write averaged curves to this CSV file")
	estimateErrors := flag.String("estimate", "", "Jackknife the delta rate against the first label: 'sample' or 'source'")
	workers := flag.Int("workers", 0, "Override worker count from config")
	flag.Parse()

	// Determine config path
	cfgPath := *configPath
	if cfgPath == "" {
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			cfgPath = envPath
		} else {
			cfgPath = "enccompare.yaml"
		}
	}

	// Load config
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Init("info")
		logger.Warn("Could not load config", "path", cfgPath, "error", err)
		cfg = config.DefaultConfig()
	}
	logger.Init(cfg.LogLevel)

	// Override with environment variables, then flags
	if envDB := os.Getenv("DATABASE_PATH"); envDB != "" {
		cfg.DatabasePath = envDB
	}
	if *database != "" {
		cfg.DatabasePath = *database
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	labels := splitList(*labelList)
	if len(labels) == 0 {
		fmt.Fprintln(os.Stderr, "Error: -labels is required")
		flag.Usage()
		os.Exit(2)
	}

	calibrations, err := cfg.BuildCalibrations()
	if err != nil {
		logger.Error("Invalid calibration config", "error", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to open results database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Positional arguments select sources; with none given, use every
	// source all requested labels have results for.
	sources, err := expandSources(flag.Args())
	if err != nil {
		logger.Error("Failed to read source list", "error", err)
		os.Exit(1)
	}
	if len(sources) == 0 {
		sources, err = db.SharedSources(labels)
		if err != nil {
			logger.Error("Failed to query shared sources", "error", err)
			os.Exit(1)
		}
		if len(sources) == 0 {
			logger.Error("No sources shared by all labels", "labels", labels)
			os.Exit(1)
		}
		fmt.Println("Auto-selected source list:")
		for _, source := range sources {
			fmt.Println(source)
		}
		fmt.Println()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	analyzer := analysis.New(db, analysis.Options{
		QualityLo:    cfg.QualityLo,
		QualityHi:    cfg.QualityHi,
		GridPoints:   cfg.GridPoints,
		Workers:      cfg.Workers,
		Calibrations: calibrations,
	})

	logger.Info("Computing curves",
		"labels", labels, "sources", len(sources),
		"quality_lo", cfg.QualityLo, "quality_hi", cfg.QualityHi)

	result, err := analyzer.Run(ctx, labels, sources)
	if err != nil {
		logger.Error("Analysis aborted", "error", err)
		os.Exit(1)
	}

	if err := report.WriteFailures(os.Stdout, result.Failures); err != nil {
		logger.Error("Failed to write report", "error", err)
		os.Exit(1)
	}
	if err := report.WriteSummary(os.Stdout, result); err != nil {
		logger.Error("Failed to write report", "error", err)
		os.Exit(1)
	}

	if len(labels) > 1 {
		fmt.Println("Encoder comparisons (left vs. top; entries are delta rate, delta runtime):")
		fmt.Println()

		for _, resIdx := range resolutionIndexes(result) {
			curves := make(map[string]metric.Curve)
			for label, lc := range result.Labels {
				if c, ok := lc.ByResolution[resIdx]; ok {
					curves[label] = c
				}
			}
			m := metric.CompareAll(labels, curves, cfg.QualityLo, cfg.QualityHi)
			if err := report.WriteComparisonTable(os.Stdout, report.ResolutionName(resIdx), m); err != nil {
				logger.Error("Failed to write report", "error", err)
				os.Exit(1)
			}
		}
	}

	if *estimateErrors != "" {
		if err := runEstimates(analyzer, labels, sources, *estimateErrors); err != nil {
			logger.Error("Error estimation failed", "error", err)
			os.Exit(1)
		}
	}

	if *csvPath != "" {
		if err := writeCSV(*csvPath, result); err != nil {
			logger.Error("Failed to write CSV", "path", *csvPath, "error", err)
			os.Exit(1)
		}
		logger.Info("Curve data written", "path", *csvPath)
	}
}

// runEstimates jackknifes every label's full-resolution delta rate against
// the first label.
func runEstimates(analyzer *analysis.Analyzer, labels, sources []string, granName string) error {
	var gran estimate.Granularity
	switch granName {
	case "sample":
		gran = estimate.WithholdSample
	case "source":
		gran = estimate.WithholdSource
	default:
		return fmt.Errorf("unknown granularity %q (want 'sample' or 'source')", granName)
	}

	ref := labels[0]
	fmt.Printf("Delta rate error estimates (full resolution, withholding per %s):\n", granName)
	for _, cand := range labels[1:] {
		r, err := analyzer.EstimateDeltaRate(ref, cand, sources, gran)
		if err != nil {
			fmt.Printf("%s vs %s: N/A (%v)\n", cand, ref, err)
			continue
		}
		if err := report.WriteEstimate(os.Stdout, ref, cand, r); err != nil {
			return err
		}
	}
	fmt.Println()
	return nil
}

func writeCSV(path string, result *analysis.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteCurvesCSV(f, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// resolutionIndexes returns every resolution index any label produced a
// curve for, real resolutions first and multires last.
func resolutionIndexes(result *analysis.Result) []int {
	seen := make(map[int]bool)
	var out []int
	for _, lc := range result.Labels {
		for idx := range lc.ByResolution {
			if !seen[idx] {
				seen[idx] = true
				out = append(out, idx)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a == analysis.MultiresIndex) != (b == analysis.MultiresIndex) {
			return b == analysis.MultiresIndex
		}
		return a < b
	})
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
