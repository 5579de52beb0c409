// Package main provides a performance benchmarking tool for the casetrend CLI.
// It seeds synthetic snapshot stores of different sizes, then times the
// analysis commands against each backend, running each test multiple times,
// treating the first successful run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - casetrend binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory the seeded stores are written to
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/internal/iostore"
	"github.com/huangsam/casetrend/schema"
)

// BenchmarkResult holds the result of a benchmark run (cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset  string
	Backend  string
	Command  string
	ColdTime string
	WarmTime string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir  string
	Timeout  time.Duration
	Runs     int
	Regions  int
	Datasets map[string]int // Dataset name -> number of daily snapshots
	Backends []schema.StoreBackend
	Commands [][]string
}

// regionNames are reused cyclically when more regions are requested.
var regionNames = []string{
	"Baden-Württemberg", "Bayern", "Berlin", "Brandenburg", "Bremen", "Hamburg",
	"Hessen", "Mecklenburg-Vorpommern", "Niedersachsen", "Nordrhein-Westfalen",
	"Rheinland-Pfalz", "Saarland", "Sachsen", "Sachsen-Anhalt", "Schleswig-Holstein", "Thüringen",
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:  os.Args[1],
		Timeout:  2 * time.Minute,
		Runs:     4,
		Regions:  len(regionNames),
		Datasets: map[string]int{"month": 30, "year": 365, "decade": 3650},
		Backends: []schema.StoreBackend{schema.FileBackend, schema.SQLiteBackend},
		Commands: [][]string{
			{"series", "--output", "csv"},
			{"trend", "--output", "csv", "--points", "0"},
			{"trend", "--output", "json"},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results, err := runBenchmarks(config)
	if err != nil {
		fmt.Printf("Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the casetrend binary exists and the work dir is usable.
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("casetrend"); err != nil {
		return fmt.Errorf("casetrend binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// runBenchmarks seeds every dataset for every backend and times all commands against it.
func runBenchmarks(config BenchmarkConfig) ([]BenchmarkResult, error) {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %d backends, %v timeout, %d runs\n",
		len(config.Datasets), len(config.Backends), config.Timeout, config.Runs)

	for dataset, days := range config.Datasets {
		for _, backend := range config.Backends {
			env, err := seedStore(config, dataset, backend, days)
			if err != nil {
				return nil, fmt.Errorf("failed to seed %s/%s: %w", dataset, backend, err)
			}
			for _, args := range config.Commands {
				results = append(results, runBenchmarkSuite(config, dataset, backend, args, env))
			}
		}
	}

	return results, nil
}

// seedStore writes days synthetic snapshots and returns the env selecting that store.
func seedStore(config BenchmarkConfig, dataset string, backend schema.StoreBackend, days int) ([]string, error) {
	dir := filepath.Join(config.WorkDir, dataset+"-"+string(backend))
	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	connStr := filepath.Join(dir, "casetrend.db")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	store, err := iostore.NewSnapshotStore(backend, dir, connStr)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	fmt.Printf("Seeding %s (%d snapshots) into %s\n", dataset, days, backend)
	start := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	for d := range days {
		counts := schema.NewRegionCounts()
		for r := range config.Regions {
			name := schema.Region(regionNames[r%len(regionNames)])
			if r >= len(regionNames) {
				name = schema.Region(fmt.Sprintf("%s %d", name, r/len(regionNames)))
			}
			rate := 0.01 + 0.002*float64(r%10)
			counts.Set(name, int(math.Round(20*math.Exp(rate*float64(d)))))
		}
		if _, err := store.Put(context.Background(), schema.NewSnapshot(start.AddDate(0, 0, d), counts)); err != nil {
			return nil, err
		}
	}

	return []string{
		"CASETREND_STORE_BACKEND=" + string(backend),
		"CASETREND_STORE_DB_CONNECT=" + connStr,
		"CASETREND_DATA_DIR=" + dir,
		"CASETREND_COLOR=no",
	}, nil
}

// runBenchmarkSuite times one command against one seeded store.
func runBenchmarkSuite(config BenchmarkConfig, dataset string, backend schema.StoreBackend, args, env []string) BenchmarkResult {
	fmt.Printf("Running %v on %s/%s (%d runs)\n", args, dataset, backend, config.Runs)

	coldTime, warmTimes := runBenchmark(config, args, env)

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}
	warmAvg := "TIMEOUT"
	if len(warmTimes) > 0 {
		var sum float64
		for _, t := range warmTimes {
			sum += t
		}
		warmAvg = fmt.Sprintf("%.3fs", sum/float64(len(warmTimes)))
	}

	fmt.Printf("  Cold time: %s, Warm average: %s\n", coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:  dataset,
		Backend:  string(backend),
		Command:  args[0] + " " + args[len(args)-1],
		ColdTime: coldTimeStr,
		WarmTime: warmAvg,
	}
}

// runBenchmark executes a casetrend command multiple times and returns cold time and warm times.
func runBenchmark(config BenchmarkConfig, args, env []string) (coldTime float64, warmTimes []float64) {
	var times []float64
	for range config.Runs {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		cmd := exec.CommandContext(ctx, "casetrend", args...)
		cmd.Env = append(os.Environ(), env...)

		start := time.Now()
		err := cmd.Run()
		elapsed := time.Since(start)
		cancel()

		if err == nil {
			times = append(times, elapsed.Seconds())
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("casetrend_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			contract.LogWarn("Failed to close benchmark file", closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"dataset", "backend", "cmd", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		if err := writer.Write([]string{result.Dataset, result.Backend, result.Command, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary.
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-7s %-7s %-13s: Cold: %s, Warm: %s\n", result.Dataset, result.Backend, result.Command, result.ColdTime, result.WarmTime)
	}
}
