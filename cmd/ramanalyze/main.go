// Command ramanalyze processes Raman spectra of zircon crystals: baseline
// correction, normalization, Gaussian peak fitting, region classification,
// outlier cleaning, and the comparative baseline × normalization sweep.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-raman/baseline"
	"github.com/cwbudde/algo-raman/internal/config"
	"github.com/cwbudde/algo-raman/internal/store"
	"github.com/cwbudde/algo-raman/normalize"
	"github.com/cwbudde/algo-raman/peakfit"
	"github.com/cwbudde/algo-raman/pipeline"
	"github.com/cwbudde/algo-raman/report"
	"github.com/cwbudde/algo-raman/smooth"
	"github.com/cwbudde/algo-raman/spectrum"
	"github.com/cwbudde/algo-raman/sweep"
	"github.com/cwbudde/algo-raman/zircon"
)

var (
	analyzeConfigPath    string
	analyzeBaseline      string
	analyzeNormalization string
	analyzeOut           string
	analyzeDB            string
	analyzeDelimiter     string

	sweepConfigPath string
	sweepWorkers    int
	sweepOut        string
	sweepDB         string
	sweepDelimiter  string

	generateOut     string
	generateColumns int
	generateSamples int
	generateNoise   float64
	generateSeed    int64

	runsDB string
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("ramanalyze: ")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ramanalyze",
		Short:         "Raman spectroscopy analysis for zircon crystals",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newMethodsCmd())
	rootCmd.AddCommand(newRunsCmd())

	return rootCmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Process spectrum tables under one baseline+normalization combination",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAnalyzeCmd,
	}

	cmd.Flags().StringVar(&analyzeConfigPath, "config", config.DefaultPath(), "TOML config file")
	cmd.Flags().StringVar(&analyzeBaseline, "baseline", "", "baseline method (arpls|polynomial|spline)")
	cmd.Flags().StringVar(&analyzeNormalization, "normalization", "", "normalization method (range|area|peak|l2|identity)")
	cmd.Flags().StringVar(&analyzeOut, "out", ".", "output directory for the CSV tables")
	cmd.Flags().StringVar(&analyzeDB, "db", "", "SQLite database for run persistence")
	cmd.Flags().StringVar(&analyzeDelimiter, "delimiter", ",", `input field delimiter ("tab" for tab-separated)`)

	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadPipelineConfig(analyzeConfigPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("baseline") {
		m, ok := baseline.ParseMethod(analyzeBaseline)
		if !ok {
			log.Printf("warning: unknown baseline method %q, using %q", analyzeBaseline, m)
		}

		cfg.BaselineMethod = m
	}

	if cmd.Flags().Changed("normalization") {
		m, ok := normalize.ParseMethod(analyzeNormalization)
		if !ok {
			log.Printf("warning: unknown normalization method %q, using %q", analyzeNormalization, m)
		}

		cfg.Normalization = m
	}

	tables, err := readTables(args, analyzeDelimiter)
	if err != nil {
		return err
	}

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		return err
	}

	res, err := runner.Run(tables)
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		log.Printf("warning: %s", w)
	}

	if err := os.MkdirAll(analyzeOut, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"peaks.csv", func(w io.Writer) error { return report.WritePeakTable(w, res.Table) }},
		{"peaks_cleaned.csv", func(w io.Writer) error { return report.WritePeakTable(w, res.Cleaned) }},
		{"outliers.csv", func(w io.Writer) error { return report.WriteOutlierSummary(w, res.Outliers) }},
	}

	for _, out := range outputs {
		if err := writeFile(filepath.Join(analyzeOut, out.name), out.write); err != nil {
			return err
		}
	}

	combination := cfg.BaselineMethod.String() + "+" + cfg.Normalization.String()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "combination\t%s\n", combination)
	fmt.Fprintf(tw, "spectra processed\t%d\n", res.SpectraProcessed)
	fmt.Fprintf(tw, "spectra skipped\t%d\n", res.SpectraSkipped)
	fmt.Fprintf(tw, "peaks fitted\t%d\n", res.Table.Len())
	fmt.Fprintf(tw, "fits failed\t%d\n", res.FitsFailed)
	fmt.Fprintf(tw, "outliers removed\t%d\n", res.Outliers.TotalRemoved)
	fmt.Fprintf(tw, "peaks kept\t%d\n", res.Cleaned.Len())

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if analyzeDB == "" {
		return nil
	}

	st, err := store.Open(analyzeDB)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Printf("warning: closing database: %v", cerr)
		}
	}()

	id, err := st.SaveAnalysis(cmd.Context(), combination, res)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "stored run %d in %s\n", id, analyzeDB)

	return nil
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [files...]",
		Short: "Run every baseline × normalization combination and rank the results",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSweepCmd,
	}

	cmd.Flags().StringVar(&sweepConfigPath, "config", config.DefaultPath(), "TOML config file")
	cmd.Flags().IntVar(&sweepWorkers, "workers", 0, "concurrent combinations (0 = all at once)")
	cmd.Flags().StringVar(&sweepOut, "out", ".", "output directory for the CSV tables")
	cmd.Flags().StringVar(&sweepDB, "db", "", "SQLite database for run persistence")
	cmd.Flags().StringVar(&sweepDelimiter, "delimiter", ",", `input field delimiter ("tab" for tab-separated)`)

	return cmd
}

func runSweepCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadPipelineConfig(sweepConfigPath)
	if err != nil {
		return err
	}

	tables, err := readTables(args, sweepDelimiter)
	if err != nil {
		return err
	}

	opts := sweep.DefaultOptions()
	opts.Base = cfg
	opts.Workers = sweepWorkers

	summary, err := sweep.Run(tables, opts)
	if err != nil {
		return err
	}

	for _, res := range summary.Results {
		if res.Failed {
			log.Printf("warning: combination %s failed: %s", res.Combination.Name(), res.Reason)
		}
	}

	if err := os.MkdirAll(sweepOut, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"sweep_summary.csv", func(w io.Writer) error { return report.WriteSweepSummary(w, summary) }},
		{"comparative.csv", func(w io.Writer) error { return report.WriteComparative(w, summary) }},
	}

	for _, f := range files {
		if err := writeFile(filepath.Join(sweepOut, f.name), f.write); err != nil {
			return err
		}
	}

	for _, res := range summary.Results {
		if res.Failed {
			continue
		}

		peaksName := fmt.Sprintf("peaks_%s.csv", res.Combination.Name())
		regionsName := fmt.Sprintf("regions_%s.csv", res.Combination.Name())

		if err := writeFile(filepath.Join(sweepOut, peaksName), func(w io.Writer) error {
			return report.WritePeakTable(w, res.Peaks)
		}); err != nil {
			return err
		}

		if err := writeFile(filepath.Join(sweepOut, regionsName), func(w io.Writer) error {
			return report.WriteRegionMetrics(w, res)
		}); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()

	if err := report.RenderSweepSummary(out, summary); err != nil {
		return err
	}

	fmt.Fprintln(out)

	if err := report.RenderRankings(out, summary); err != nil {
		return err
	}

	if err := report.RenderImpacts(out, summary); err != nil {
		return err
	}

	if sweepDB == "" {
		return nil
	}

	st, err := store.Open(sweepDB)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Printf("warning: closing database: %v", cerr)
		}
	}()

	id, err := st.SaveSweep(cmd.Context(), summary)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nstored run %d in %s\n", id, sweepDB)

	return nil
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic zircon spectrum table for demos and testing",
		Args:  cobra.NoArgs,
		RunE:  runGenerateCmd,
	}

	cmd.Flags().StringVar(&generateOut, "out", "synthetic.csv", "output file")
	cmd.Flags().IntVar(&generateColumns, "columns", 3, "number of spectrum columns")
	cmd.Flags().IntVar(&generateSamples, "samples", 2001, "samples per spectrum")
	cmd.Flags().Float64Var(&generateNoise, "noise", 0.01, "additive Gaussian noise sigma")
	cmd.Flags().Int64Var(&generateSeed, "seed", 1, "random seed")

	return cmd
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	if generateColumns < 1 {
		return fmt.Errorf("--columns must be >= 1")
	}

	// The seven zircon bands on a shallow linear background.
	peaks := []spectrum.PeakSpec{
		{Center: 1008, Amplitude: 1.0, Sigma: 4},
		{Center: 975, Amplitude: 0.55, Sigma: 3},
		{Center: 439, Amplitude: 0.4, Sigma: 5},
		{Center: 356, Amplitude: 0.3, Sigma: 4},
		{Center: 224, Amplitude: 0.25, Sigma: 3},
		{Center: 214, Amplitude: 0.2, Sigma: 3},
		{Center: 202, Amplitude: 0.2, Sigma: 3.5},
	}

	cfg := spectrum.SyntheticConfig{
		Start:             150,
		End:               1200,
		Samples:           generateSamples,
		Peaks:             peaks,
		BaselineIntercept: 0.2,
		BaselineSlope:     5e-4,
		NoiseSigma:        generateNoise,
	}

	columns := make([]spectrum.Spectrum, generateColumns)

	for i := range columns {
		gen := spectrum.NewGenerator(spectrum.WithSeed(generateSeed + int64(i)))

		spec, err := gen.Synthetic(cfg)
		if err != nil {
			return err
		}

		columns[i] = spec
	}

	err := writeFile(generateOut, func(w io.Writer) error {
		cw := csv.NewWriter(w)

		header := make([]string, 0, generateColumns+1)
		header = append(header, "wavenumber")

		for i := range columns {
			header = append(header, fmt.Sprintf("g%d_p1", i+1))
		}

		if err := cw.Write(header); err != nil {
			return err
		}

		row := make([]string, generateColumns+1)
		for s := 0; s < generateSamples; s++ {
			row[0] = strconv.FormatFloat(columns[0].Wavenumbers[s], 'f', 4, 64)
			for i := range columns {
				row[i+1] = strconv.FormatFloat(columns[i].Intensities[s], 'f', 6, 64)
			}

			if err := cw.Write(row); err != nil {
				return err
			}
		}

		cw.Flush()

		return cw.Error()
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d columns, %d samples)\n",
		generateOut, generateColumns, generateSamples)

	return nil
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List the selectable methods and the zircon band regions",
		Args:  cobra.NoArgs,
		RunE:  runMethodsCmd,
	}
}

func runMethodsCmd(cmd *cobra.Command, _ []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "kind\tname\n")

	for _, m := range baseline.Methods() {
		fmt.Fprintf(tw, "baseline\t%s\n", m)
	}

	for _, m := range normalize.Methods() {
		fmt.Fprintf(tw, "normalization\t%s\n", m)
	}

	for _, m := range smooth.Methods() {
		fmt.Fprintf(tw, "smoothing\t%s\n", m)
	}

	for _, m := range peakfit.Methods() {
		fmt.Fprintf(tw, "fitting\t%s\n", m)
	}

	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "region\tinterval [cm⁻¹]\n")

	for _, iv := range zircon.Intervals() {
		closing := ")"
		if iv.HighInclusive {
			closing = "]"
		}

		fmt.Fprintf(tw, "%s\t[%g, %g%s\n", iv.Region, iv.Low, iv.High, closing)
	}

	fmt.Fprintln(tw)

	intercept := zircon.Dose(0)
	slope := zircon.Dose(1) - intercept
	fmt.Fprintf(tw, "dose calibration\t%.4f + %.5f·FWHM (10¹⁸ α-decays/g, from nu3 FWHM)\n", intercept, slope)

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write listing: %w", err)
	}

	return nil
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted runs",
		Args:  cobra.NoArgs,
		RunE:  runRunsCmd,
	}

	cmd.Flags().StringVar(&runsDB, "db", "", "SQLite database to read")

	return cmd
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	if runsDB == "" {
		return fmt.Errorf("--db is required")
	}

	st, err := store.Open(runsDB)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Printf("warning: closing database: %v", cerr)
		}
	}()

	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id\tcreated\tkind\tcombination\tpeaks\toutliers\tprocessed\tskipped\tfits failed\n")

	for _, run := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"), run.Kind,
			run.Combination, run.TotalPeaks, run.RemovedOutliers,
			run.SpectraProcessed, run.SpectraSkipped, run.FitsFailed)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write listing: %w", err)
	}

	return nil
}

// loadPipelineConfig merges the optional TOML file onto the compiled
// defaults, logging the file's unknown-method warnings.
func loadPipelineConfig(path string) (pipeline.Config, error) {
	fc, err := config.Load(path)
	if err != nil {
		return pipeline.Config{}, err
	}

	cfg, warnings := config.Apply(pipeline.DefaultConfig(), fc)
	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}

	return cfg, nil
}

func readTables(paths []string, delimiter string) ([]spectrum.Table, error) {
	d, err := parseDelimiter(delimiter)
	if err != nil {
		return nil, err
	}

	tables := make([]spectrum.Table, 0, len(paths))

	for _, path := range paths {
		table, err := spectrum.ReadTableFile(path, spectrum.WithDelimiter(d))
		if err != nil {
			return nil, err
		}

		tables = append(tables, table)
	}

	return tables, nil
}

func parseDelimiter(s string) (rune, error) {
	if s == "tab" || s == "\\t" || s == "\t" {
		return '\t', nil
	}

	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("--delimiter must be a single character or \"tab\", got %q", s)
	}

	return runes[0], nil
}

// writeFile writes one output file, reporting close errors as write
// failures.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
