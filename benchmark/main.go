// Package main provides a performance benchmarking tool for the Fairspot CLI.
// It generates synthetic decision datasets of increasing size, audits each one
// several times with and without run tracking, treats the first tracked run as
// cold and averages the rest as warm, and writes a CSV summary.
//
// Prerequisites:
// - fairspot binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where datasets and the run database are written
package main

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (untracked average, cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset       string
	Command       string
	UntrackedTime string
	ColdTime      string
	WarmTime      string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir       string
	Timeout       time.Duration
	Workers       int
	UntrackedRuns int
	TrackedRuns   int
	DatasetSizes  map[string]int
	DatasetOrder  []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:       os.Args[1],
		Timeout:       5 * time.Minute,
		Workers:       8,
		UntrackedRuns: 3,
		TrackedRuns:   4,
		DatasetSizes: map[string]int{
			"small":  1_000,
			"medium": 100_000,
			"large":  1_000_000,
		},
		DatasetOrder: []string{"small", "medium", "large"},
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

// checkPrerequisites verifies that the fairspot binary and work directory exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("fairspot"); err != nil {
		return fmt.Errorf("fairspot binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// generateDataset writes a CSV with two protected attributes and a biased decision column
func generateDataset(path string, rows int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	rng := rand.New(rand.NewPCG(42, uint64(rows)))
	races := []string{"X", "Y", "Z"}
	sexes := []string{"F", "M"}

	w := csv.NewWriter(file)
	if err := w.Write([]string{"race", "sex", "repaid", "approved"}); err != nil {
		return err
	}
	for range rows {
		race := races[rng.IntN(len(races))]
		repaid := rng.Float64() < 0.6
		approveProb := 0.5
		if repaid {
			approveProb = 0.8
		}
		if race == "Z" {
			approveProb -= 0.15
		}
		approved := rng.Float64() < approveProb
		record := []string{race, sexes[rng.IntN(len(sexes))], boolDigit(repaid), boolDigit(approved)}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// runBenchmarks executes all benchmark tests across generated datasets
func runBenchmarks(config BenchmarkConfig) ([]BenchmarkResult, error) {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, %d workers, untracked: %d runs, tracked: %d runs\n",
		len(config.DatasetOrder), config.Timeout, config.Workers, config.UntrackedRuns, config.TrackedRuns)

	for _, name := range config.DatasetOrder {
		rows := config.DatasetSizes[name]
		path := filepath.Join(config.WorkDir, name+".csv")
		fmt.Printf("Generating %s dataset (%d rows)\n", name, rows)
		if err := generateDataset(path, rows); err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", path, err)
		}

		results = append(results,
			runBenchmarkSuite(config, name, path, "audit", "per-attribute audit", "--attributes race,sex --reference Y"),
			runBenchmarkSuite(config, name, path, "audit", "intersectional audit", "--attributes race,sex --intersectional"),
			runBenchmarkSuite(config, name, path, "check", "policy check", "--attributes race --reference Y --thresholds-override \"di:0.5,spd:0.5,eod:0.5,fprd:0.5\""),
		)
	}

	return results, nil
}

// runBenchmarkSuite runs both untracked and tracked benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, dataset, path, command, description, extraArgs string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", description, dataset)

	dbPath := filepath.Join(config.WorkDir, "runs.db")
	_ = os.Remove(dbPath)

	runPhase := func(backend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, path, command, extraArgs, backend, dbPath, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: no run tracking
	_, untrackedAvg := runPhase("none", config.UntrackedRuns, "Untracked")

	// Phase 2: SQLite run tracking
	coldTime, warmAvg := runPhase("sqlite", config.TrackedRuns, "Tracked")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  Untracked average: %s, Cold time: %s, Warm average: %s\n", untrackedAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:       dataset,
		Command:       command + " (" + description + ")",
		UntrackedTime: untrackedAvg,
		ColdTime:      coldTimeStr,
		WarmTime:      warmAvg,
	}
}

// runBenchmark executes a fairspot command multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, path, command, extraArgs, backend, dbPath string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		command, path,
		"--truth", "repaid", "--prediction", "approved",
		"--workers", strconv.Itoa(config.Workers),
		"--run-backend", backend,
	}
	if backend == "sqlite" {
		args = append(args, "--run-db-connect", dbPath)
	}
	if extraArgs != "" {
		args = append(args, parseArgs(extraArgs)...)
	}

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("fairspot", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output, command) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

func parseArgs(argsStr string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false

	for _, r := range argsStr {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ' ':
			if !inQuotes && current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			} else if inQuotes {
				current.WriteRune(r)
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte, command string) bool {
	outputStr := string(output)
	if command == "check" {
		return strings.Contains(outputStr, "Checked") && strings.Contains(outputStr, "comparisons")
	}
	return strings.Contains(outputStr, "Audited") && strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/fairspot_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"dataset", "cmd", "untracked_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Dataset, result.Command, result.UntrackedTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-8s %-32s: Untracked: %s, Cold: %s, Warm: %s\n",
			result.Dataset, result.Command, result.UntrackedTime, result.ColdTime, result.WarmTime)
	}
}
