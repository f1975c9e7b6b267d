package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/san-kum/cardiosim/internal/config"
	"github.com/san-kum/cardiosim/internal/experiment"
	"github.com/san-kum/cardiosim/internal/optim"
	"github.com/san-kum/cardiosim/internal/storage"
)

var (
	dataDir  string
	storeDSN string
	logLevel string

	// Config file and preset
	configFile string
	preset     string

	// Pacing
	s1        float64
	ns1       int
	s1Start   float64
	s2        float64
	stimDur   float64
	stimMag   float64
	s2Mag     float64
	timestep  float64
	rule      string
	factor    float64
	setParams []string

	// Sweep
	s2From   float64
	s2To     float64
	s2Step   float64
	s2Values []float64
	workers  int
	sweepOut string

	// Fit
	fitParams []string
	fitValue  string
	fitTarget float64

	noSave   bool
	asJSON   bool
	showAll  bool
	outPath  string
	logger   *slog.Logger
	registry = experiment.NewRegistry()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cardiosim",
		Short:         "cardiac cell electrophysiology simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(os.Stderr, logLevel)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".cardiosim", "data directory")
	rootCmd.PersistentFlags().StringVar(&storeDSN, "store", "", "run catalog: a directory or sqlite:<path> (default: --data)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run one paced simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "S1-S2 restitution sweep over coupling intervals",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&s2From, "s2-from", 300, "first S2 coupling interval (ms)")
	sweepCmd.Flags().Float64Var(&s2To, "s2-to", 1000, "last S2 coupling interval (ms)")
	sweepCmd.Flags().Float64Var(&s2Step, "s2-step", 50, "S2 increment (ms)")
	sweepCmd.Flags().Float64SliceVar(&s2Values, "s2-values", nil, "explicit S2 values, overrides the range")
	sweepCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "parallel runs")
	sweepCmd.Flags().StringVarP(&sweepOut, "output", "o", "", "write the restitution curve to a CSV file")

	fitCmd := &cobra.Command{
		Use:   "fit [model]",
		Short: "grid search model parameters against a reported value",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFit,
	}
	addRunFlags(fitCmd)
	fitCmd.Flags().StringArrayVar(&fitParams, "param", nil, "parameter grid, name=from:to:step (repeatable)")
	fitCmd.Flags().StringVar(&fitValue, "value", "apd.last", "reported value to score")
	fitCmd.Flags().Float64Var(&fitTarget, "target", 0, "target for the value (default: minimize it)")
	fitCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "parallel runs")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "print the run record as JSON")
	showCmd.Flags().BoolVar(&showAll, "params", false, "include the full parameter set")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a stored trace to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list registered models",
		Args:  cobra.NoArgs,
		RunE:  listModels,
	}

	rootCmd.AddCommand(runCmd, sweepCmd, fitCmd, listCmd, showCmd, exportCSVCmd, presetsCmd, modelsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle(os.Stderr).Render("error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&s1, "s1", 0, "S1 pacing interval (ms)")
	cmd.Flags().IntVar(&ns1, "ns1", 0, "number of S1 stimuli")
	cmd.Flags().Float64Var(&s1Start, "s1-start", 0, "time of the first S1 stimulus (ms)")
	cmd.Flags().Float64Var(&s2, "s2", 0, "S2 coupling interval (ms)")
	cmd.Flags().Float64Var(&stimDur, "stimdur", 0, "stimulus duration (ms)")
	cmd.Flags().Float64Var(&stimMag, "stimmag", 0, "stimulus magnitude (negative depolarizes)")
	cmd.Flags().Float64Var(&s2Mag, "s2mag", 0, "S2 stimulus magnitude (default stimmag)")
	cmd.Flags().Float64Var(&timestep, "dt", 0, "timestep (ms)")
	cmd.Flags().StringVar(&rule, "rule", "", "iteration rule (overshoot or exact)")
	cmd.Flags().Float64Var(&factor, "factor", 0, "overshoot factor")
	cmd.Flags().StringArrayVar(&setParams, "set", nil, "override a model parameter, name=value (repeatable)")
}

// resolveConfig builds the run config: defaults, then preset, then config
// file, then any flag set on the command line.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	model := ""
	if len(args) > 0 {
		model = args[0]
		cfg.Model = model
	}

	if preset != "" {
		if model == "" {
			model = cfg.Model
		}
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = fileCfg
		if model != "" {
			cfg.Model = model
		}
	}

	f := cmd.Flags()
	setFloat := func(name string, dst **float64, v float64) {
		if f.Changed(name) {
			*dst = config.Float(v)
		}
	}
	setFloat("s1", &cfg.Pacing.S1, s1)
	setFloat("s1-start", &cfg.Pacing.S1Start, s1Start)
	setFloat("s2", &cfg.Pacing.S2, s2)
	setFloat("stimdur", &cfg.Pacing.StimDuration, stimDur)
	setFloat("stimmag", &cfg.Pacing.StimMagnitude, stimMag)
	setFloat("s2mag", &cfg.Pacing.S2Magnitude, s2Mag)
	setFloat("dt", &cfg.Pacing.Timestep, timestep)
	if f.Changed("ns1") {
		cfg.Pacing.NS1 = config.Int(ns1)
	}
	if f.Changed("rule") {
		cfg.Iterations.Rule = rule
	}
	if f.Changed("factor") {
		cfg.Iterations.Factor = factor
	}

	for _, kv := range setParams {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want name=value", kv)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("--set %s: %w", name, err)
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		cfg.Params[name] = v
	}
	return cfg, nil
}

func openStore(ctx context.Context) (storage.Store, error) {
	dsn := storeDSN
	if dsn == "" {
		dsn = dataDir
	}
	st, err := storage.Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	runner := experiment.NewRunner(registry, logger)
	out, err := runner.Run(ctx, cfg)
	if err != nil {
		return err
	}

	runID := ""
	if !noSave {
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, trace := storage.NewRecord(out)
		if runID, err = st.Save(ctx, rec, trace); err != nil {
			return err
		}
	}

	w := os.Stdout
	fmt.Fprintln(w, titleStyle(w).Render(fmt.Sprintf("%s run", out.Model)))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if runID != "" {
		fmt.Fprintf(tw, "run id\t%s\n", runID)
	}
	fmt.Fprintf(tw, "rule\t%s\n", out.Rule)
	fmt.Fprintf(tw, "steps\t%s\n", humanize.Comma(int64(out.Iterations)))
	fmt.Fprintf(tw, "elapsed\t%v\n", out.Elapsed.Round(time.Millisecond))
	if err := tw.Flush(); err != nil {
		return err
	}
	return printValues(w, out.Values)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("s2-values") {
		cfg.Sweep.S2Values = s2Values
	}
	rangeSet := f.Changed("s2-from") || f.Changed("s2-to") || f.Changed("s2-step")
	if !f.Changed("s2-values") && (rangeSet || (len(cfg.Sweep.S2Values) == 0 && cfg.Sweep.S2Step == 0)) {
		cfg.Sweep.S2Values = nil
		cfg.Sweep.S2From, cfg.Sweep.S2To, cfg.Sweep.S2Step = s2From, s2To, s2Step
	}
	if f.Changed("workers") || cfg.Sweep.Workers == 0 {
		cfg.Sweep.Workers = workers
	}

	runner := experiment.NewRunner(registry, logger)
	res, err := sweepWithProgress(ctx, runner, cfg, os.Stdout)
	if err != nil {
		return err
	}

	w := os.Stdout
	fmt.Fprintln(w, titleStyle(w).Render(fmt.Sprintf("%s restitution", res.Model)))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "S2\tCOUPLING\tS1 APD\tDI\tS2 APD\t")
	for _, p := range res.Points {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			formatValue(p.S2), formatValue(p.Coupling), formatValue(p.S1APD), formatValue(p.DI), formatValue(p.S2APD))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nslope %s  intercept %s  max slope %s  (%d runs in %v)\n",
		formatValue(res.Slope), formatValue(res.Intercept), formatValue(res.MaxSlope),
		len(res.Points), res.Elapsed.Round(time.Millisecond))

	if sweepOut != "" {
		return writeCurve(sweepOut, res)
	}
	return nil
}

func writeCurve(path string, res *experiment.SweepResult) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"s2", "coupling", "s1_apd", "di", "s2_apd"}); err != nil {
		return err
	}
	for _, p := range res.Points {
		row := []string{
			strconv.FormatFloat(p.S2, 'g', -1, 64),
			strconv.FormatFloat(p.Coupling, 'g', -1, 64),
			strconv.FormatFloat(p.S1APD, 'g', -1, 64),
			strconv.FormatFloat(p.DI, 'g', -1, 64),
			strconv.FormatFloat(p.S2APD, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func runFit(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(fitParams) == 0 {
		return fmt.Errorf("fit needs at least one --param")
	}

	names := make([]string, len(fitParams))
	ranges := make([][]float64, len(fitParams))
	for i, spec := range fitParams {
		name, bounds, ok := strings.Cut(spec, "=")
		parts := strings.Split(bounds, ":")
		if !ok || len(parts) != 3 {
			return fmt.Errorf("--param %q: want name=from:to:step", spec)
		}
		var lim [3]float64
		for j, part := range parts {
			if lim[j], err = strconv.ParseFloat(part, 64); err != nil {
				return fmt.Errorf("--param %s: %w", name, err)
			}
		}
		if ranges[i], err = optim.Range(lim[0], lim[1], lim[2]); err != nil {
			return fmt.Errorf("--param %s: %w", name, err)
		}
		names[i] = name
	}

	objective := optim.Minimize(fitValue)
	if cmd.Flags().Changed("target") {
		objective = optim.Target(fitValue, fitTarget)
	}

	g := optim.NewGridSearch(names, ranges)
	g.SetWorkers(workers)
	logger.Info("grid search starting", "model", cfg.Model, "points", g.Size(), "value", fitValue)

	best, all, err := g.Search(cmd.Context(), experiment.NewRunner(registry, logger), cfg, objective)
	if err != nil && !errors.Is(err, optim.ErrNoCandidate) {
		return err
	}

	w := os.Stdout
	fmt.Fprintln(w, titleStyle(w).Render(fmt.Sprintf("%s fit of %s", cfg.Model, fitValue)))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(names, "\t")+"\t"+strings.ToUpper(fitValue)+"\tSCORE\t")
	for _, c := range all {
		for _, n := range names {
			fmt.Fprintf(tw, "%s\t", formatValue(c.Params[n]))
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", formatValue(c.Values[fitValue]), formatValue(c.Score))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if best == nil {
		return err
	}

	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%s", n, formatValue(best.Params[n]))
	}
	fmt.Fprintf(w, "\nbest %s  %s %s\n", strings.Join(parts, " "), fitValue, formatValue(best.Values[fitValue]))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tCREATED\tSTEPS\tRULE\tELAPSED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\n",
			run.ID,
			run.Model,
			humanize.Time(run.Created),
			humanize.Comma(int64(run.Iterations)),
			run.Rule,
			run.Elapsed.Round(time.Millisecond),
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	w := os.Stdout
	fmt.Fprintln(w, titleStyle(w).Render(rec.ID))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "model\t%s\n", rec.Model)
	fmt.Fprintf(tw, "created\t%s (%s)\n", rec.Created.Format("2006-01-02 15:04:05"), humanize.Time(rec.Created))
	fmt.Fprintf(tw, "rule\t%s\n", rec.Rule)
	fmt.Fprintf(tw, "steps\t%s\n", humanize.Comma(int64(rec.Iterations)))
	fmt.Fprintf(tw, "elapsed\t%v\n", rec.Elapsed.Round(time.Millisecond))
	if rec.Config != nil {
		kinds := make([]string, len(rec.Config.Analyzers))
		for i, a := range rec.Config.Analyzers {
			kinds[i] = a.Kind
		}
		fmt.Fprintf(tw, "analyzers\t%s\n", strings.Join(kinds, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if showAll {
		fmt.Fprintln(w, "\n"+headingStyle(w).Render("params"))
		if err := printTable(w, rec.Params); err != nil {
			return err
		}
	}
	return printValues(w, rec.Values)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	series, err := st.LoadTrace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if series.Len() == 0 {
		return fmt.Errorf("run %s has no trace to export", args[0])
	}

	if outPath == "" {
		return storage.WriteCSV(os.Stdout, series)
	}
	file, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := storage.WriteCSV(file, series); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s samples to %s\n", humanize.Comma(int64(series.Len())), outPath)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	models := config.ListPresetModels()
	if len(args) > 0 {
		models = args
	}
	for _, m := range models {
		presets := config.ListPresets(m)
		if len(presets) == 0 {
			fmt.Printf("no presets for model: %s\n", m)
			continue
		}
		fmt.Printf("presets for %s:\n", m)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVARS\tVOLTAGE\tTHRESHOLD\tRULE\tDESCRIPTION")
	for _, name := range registry.ListModels() {
		m, err := registry.GetModel(name)
		if err != nil {
			return err
		}
		info, err := registry.Info(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%g\t%s\t%s\n",
			name, m.Layout().Len(), info.Voltage, info.Threshold, info.Rule, info.Description)
	}
	return w.Flush()
}

func printValues(w io.Writer, values map[string]float64) error {
	if len(values) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\n"+headingStyle(w).Render("values"))
	return printTable(w, values)
}

func printTable(w io.Writer, values map[string]float64) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%s\n", k, formatValue(values[k]))
	}
	return tw.Flush()
}
