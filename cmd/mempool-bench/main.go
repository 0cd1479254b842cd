// Command mempool-bench runs allocation workloads against the fixed-size
// pool and reports timing, memory footprint and pool metrics.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mempool/pkg/config"
	"github.com/ajitpratap0/mempool/pkg/logger"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "mempool-bench",
		Short: "Benchmark harness for the chunked fixed-size memory pool",
		Long: `mempool-bench exercises the fixed-size pool with configurable workloads:
steady alloc/free churn, grow-then-drain cycles that trigger defragmentation,
and live-element export. Results are logged and optionally written as JSON.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mempool-bench v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var (
		profileFile string
		outputFile  string
		logLevel    string
		dumpMetrics bool
		flagProfile = config.BenchProfile{}
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run benchmark workloads",
		Long: `Run benchmark workloads against the pool.

Workload parameters come either from a YAML profile file (--profile, which
may define several profiles run back to back) or from the individual flags.

Example:
  mempool-bench run --element-size 64 --chunk-capacity 1024 --iterations 1000000 --churn 0.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(logger.Config{Level: logLevel, Encoding: "console"}); err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			profiles, err := resolveProfiles(profileFile, flagProfile)
			if err != nil {
				return err
			}

			report := Report{Version: version}
			for _, p := range profiles {
				result, err := runProfile(p)
				if err != nil {
					return err
				}
				report.Results = append(report.Results, result)
			}

			if dumpMetrics {
				printMetrics()
			}

			if outputFile != "" {
				if err := writeReport(outputFile, &report); err != nil {
					return err
				}
				logger.Info("report written", zap.String("path", outputFile))
			}
			return nil
		},
	}

	runCmd.Flags().StringVar(&profileFile, "profile", "", "Path to YAML profile file (overrides the workload flags)")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Path for the JSON report (optional)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "Print the prometheus metric registry after the run")
	runCmd.Flags().StringVar(&flagProfile.Name, "name", "default", "Profile name used in logs, metrics and the report")
	runCmd.Flags().IntVar(&flagProfile.ElementSize, "element-size", 64, "Element size in bytes")
	runCmd.Flags().IntVar(&flagProfile.ChunkCapacity, "chunk-capacity", 1024, "Element slots per chunk")
	runCmd.Flags().IntVar(&flagProfile.InitialCapacity, "initial-capacity", 0, "Creation-time element count hint")
	runCmd.Flags().IntVar(&flagProfile.Iterations, "iterations", 1_000_000, "Alloc/free operations per workload")
	runCmd.Flags().Float64Var(&flagProfile.Churn, "churn", 0.5, "Fraction of operations that free a live element, in [0, 1)")
	runCmd.Flags().BoolVar(&flagProfile.SafeIteration, "safe-iteration", true, "Enable the liveness sentinel and export workloads")
	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveProfiles loads profiles from the file when given, otherwise
// validates and returns the flag-built profile.
func resolveProfiles(profileFile string, flagProfile config.BenchProfile) ([]config.BenchProfile, error) {
	if profileFile != "" {
		return config.LoadProfiles(profileFile)
	}
	if err := flagProfile.Validate(); err != nil {
		return nil, err
	}
	return []config.BenchProfile{flagProfile}, nil
}

func writeReport(path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644) //nolint:gosec
}

// printMetrics dumps the default prometheus registry to stdout.
func printMetrics() {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		logger.Warn("failed to gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				fmt.Printf("%s%s %.0f\n", mf.GetName(), labelString(m), m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Printf("%s%s %.0f\n", mf.GetName(), labelString(m), m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				fmt.Printf("%s%s count=%d sum=%.0f\n",
					mf.GetName(), labelString(m), m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum())
			}
		}
	}
}

func labelString(m *dto.Metric) string {
	if len(m.GetLabel()) == 0 {
		return ""
	}
	s := "{"
	for i, lp := range m.GetLabel() {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue())
	}
	return s + "}"
}
