package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/flocksim/internal/analysis"
	"github.com/san-kum/flocksim/internal/automation"
	"github.com/san-kum/flocksim/internal/calibrate"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/experiment"
	"github.com/san-kum/flocksim/internal/optim"
	"github.com/san-kum/flocksim/internal/sim"
	"github.com/san-kum/flocksim/internal/storage"
	"github.com/san-kum/flocksim/internal/viz"
)

var (
	dataDir    string
	configFile string
	verbose    bool
	logger     = zap.NewNop()

	preset    string
	particles int
	boundary  float64
	noise     float64
	speed     float64
	timestep  float64
	threshold float64
	seed      uint64
	steps     int
	timeEnd   float64

	metricNames []string
	watch       bool
	useGrid     bool
	noiseFrom   float64
	noiseTo     float64
	noisePoints int
	runs        int
	spectrum    bool
	outPath     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "flocksim",
		Short:         "vicsek flocking simulation and critical noise calibration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".flocksim", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a flock for a number of steps",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addParamFlags(runCmd)
	runCmd.Flags().StringSliceVar(&metricNames, "metrics", nil, "metrics to record (default: all)")

	stationaryCmd := &cobra.Command{
		Use:   "stationary",
		Short: "estimate the stationary order parameter",
		Args:  cobra.NoArgs,
		RunE:  runStationary,
	}
	addParamFlags(stationaryCmd)

	calibrateCmd := &cobra.Command{
		Use:   "calibrate [target_noise]",
		Short: "find threshold and speed placing the transition at a target noise",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCalibrate,
	}
	addParamFlags(calibrateCmd)
	calibrateCmd.Flags().BoolVar(&watch, "watch", false, "show live progress")
	calibrateCmd.Flags().BoolVar(&useGrid, "grid", false, "coarse grid search before the simplex")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "stationary order versus noise",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addParamFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&noiseFrom, "from", 0.0, "lowest noise")
	sweepCmd.Flags().Float64Var(&noiseTo, "to", 1.0, "highest noise")
	sweepCmd.Flags().IntVar(&noisePoints, "points", 11, "number of noise values")
	sweepCmd.Flags().IntVar(&runs, "runs", 4, "replicas per noise value")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&spectrum, "spectrum", false, "plot the amplitude spectrum of the order series")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "export particle positions and headings as json",
		Args:  cobra.NoArgs,
		RunE:  exportSnapshot,
	}
	addParamFlags(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPARTICLES\tBOUNDARY\tNOISE\tSPEED\tTIMESTEP\tTHRESHOLD")
			for _, name := range config.ListPresets() {
				c := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%g\t%g\t%g\t%g\t%g\n",
					name, c.Particles, c.Boundary, c.Noise, c.Speed, c.Timestep, c.Threshold)
			}
			return w.Flush()
		},
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of experiments",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	rootCmd.AddCommand(runCmd, stationaryCmd, calibrateCmd, sweepCmd, listCmd, plotCmd, snapshotCmd, presetsCmd, scenarioCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func addParamFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVarP(&particles, "particles", "n", d.Particles, "number of particles")
	cmd.Flags().Float64VarP(&boundary, "boundary", "L", d.Boundary, "side length of the periodic domain")
	cmd.Flags().Float64Var(&noise, "noise", d.Noise, "noise amplitude")
	cmd.Flags().Float64Var(&speed, "speed", d.Speed, "particle speed")
	cmd.Flags().Float64Var(&timestep, "dt", d.Timestep, "timestep")
	cmd.Flags().Float64Var(&threshold, "threshold", d.Threshold, "neighbor distance threshold")
	cmd.Flags().Uint64Var(&seed, "seed", d.Seed, "random seed")
	cmd.Flags().IntVar(&steps, "steps", d.Steps, "number of steps")
	cmd.Flags().Float64Var(&timeEnd, "until", 0, "run until this simulation time instead of a step count")
}

// resolveConfig layers defaults, preset, config file and explicit flags, in
// that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadOnto(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("particles") {
		cfg.Particles = particles
	}
	if flags.Changed("boundary") {
		cfg.Boundary = boundary
	}
	if flags.Changed("noise") {
		cfg.Noise = noise
	}
	if flags.Changed("speed") {
		cfg.Speed = speed
	}
	if flags.Changed("dt") {
		cfg.Timestep = timestep
	}
	if flags.Changed("threshold") {
		cfg.Threshold = threshold
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("until") {
		cfg.TimeEnd = timeEnd
	}

	logger.Debug("configuration resolved",
		zap.String("preset", preset),
		zap.String("config", configFile),
		zap.Int("particles", cfg.Particles),
		zap.Float64("noise", cfg.Noise))

	return cfg, nil
}

func newExperiment(cmd *cobra.Command, l *zap.Logger) (*experiment.Experiment, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	return experiment.New(cfg,
		experiment.WithStore(storage.New(dataDir)),
		experiment.WithLogger(l))
}

func runSimulation(cmd *cobra.Command, args []string) error {
	e, err := newExperiment(cmd, logger)
	if err != nil {
		return err
	}

	report, err := e.Run(cmd.Context(), metricNames)
	if err != nil {
		return err
	}

	fmt.Println(viz.Summary(report.Result.Final))
	fmt.Println(viz.MetricsPanel(report.Result.Metrics))
	fmt.Println(viz.OrderChart(report.Result.Orders, "order parameter", 70, 10))
	fmt.Printf("\ncompleted in %v\n", report.Elapsed)
	fmt.Printf("run id: %s\n", report.ID)
	return nil
}

func runStationary(cmd *cobra.Command, args []string) error {
	e, err := newExperiment(cmd, logger)
	if err != nil {
		return err
	}

	report, err := e.Stationary(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("stationary order: %.6f\n", report.Order)
	fmt.Printf("run id: %s\n", report.ID)
	return nil
}

func defaultGrid(cfg *config.Config) *calibrate.GridConfig {
	return &calibrate.GridConfig{
		Thresholds: analysis.Linspace(0.25*cfg.Boundary/5, cfg.Boundary/2, 5),
		Speeds:     analysis.Linspace(0.1, 2.0, 5),
	}
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		target, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid target noise %q: %w", args[0], err)
		}
		cfg.Calibration.TargetNoise = target
	}

	var grid *calibrate.GridConfig
	if useGrid {
		grid = defaultGrid(cfg)
	}

	l := logger
	if watch {
		l = zap.NewNop()
	}
	e, err := experiment.New(cfg, experiment.WithStore(storage.New(dataDir)), experiment.WithLogger(l))
	if err != nil {
		return err
	}

	var report *experiment.CalibrationReport
	if watch {
		report, err = watchCalibration(cmd.Context(), e, grid, cfg.Calibration.MaxIterations)
	} else {
		report, err = e.Calibrate(cmd.Context(), grid, nil)
	}
	if err != nil {
		return err
	}

	res := report.Result
	fmt.Printf("target noise: %g\n", cfg.Calibration.TargetNoise)
	fmt.Printf("threshold:    %.6f\n", float64(res.Threshold))
	fmt.Printf("speed:        %.6f\n", float64(res.Speed))
	fmt.Printf("residual:     %.6f\n", res.Residual)
	fmt.Printf("iterations:   %d (converged: %t)\n", res.Iterations, res.Converged)
	fmt.Printf("run id: %s\n", report.ID)
	return nil
}

func watchCalibration(ctx context.Context, e *experiment.Experiment, grid *calibrate.GridConfig, maxIterations int) (*experiment.CalibrationReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(viz.NewProgressModel(maxIterations, cancel))
	reports := make(chan *experiment.CalibrationReport, 1)

	go func() {
		report, err := e.Calibrate(ctx, grid, func(it optim.Iteration) {
			p.Send(viz.IterationMsg(it))
		})
		reports <- report
		var res *calibrate.Result
		if report != nil {
			res = report.Result
		}
		p.Send(viz.DoneMsg{Result: res, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	m := final.(viz.ProgressModel)
	if m.Canceled() {
		return nil, context.Canceled
	}
	if _, err := m.Result(); err != nil {
		return nil, err
	}
	return <-reports, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	e, err := newExperiment(cmd, logger)
	if err != nil {
		return err
	}

	noises := analysis.Linspace(noiseFrom, noiseTo, noisePoints)
	report, err := e.Sweep(cmd.Context(), noises, runs)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(report.Points))
	means := make([]float64, 0, len(report.Points))
	for _, p := range report.Points {
		rows = append(rows, []string{
			fmt.Sprintf("%.4f", float64(p.Noise)),
			fmt.Sprintf("%.4f", p.Mean),
			fmt.Sprintf("%.4f", p.Std),
		})
		means = append(means, p.Mean)
	}

	fmt.Println(viz.Table([]string{"NOISE", "ORDER", "STD"}, rows))
	fmt.Println(viz.OrderChart(means, "stationary order vs noise", 70, 10))
	if report.Critical >= 0 {
		fmt.Printf("\ncritical noise estimate: %.4f\n", report.Critical)
	}
	fmt.Printf("run id: %s\n", report.ID)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tN\tL\tNOISE\tSPEED\tTHRESHOLD")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%g\t%g\t%g\n",
			run.ID,
			run.Kind,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Params.Boundary,
			run.Params.Noise,
			run.Params.Speed,
			run.Params.Threshold,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	series, err := st.LoadSeries(runID)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("run %s has no series to plot", runID)
	}
	if err != nil {
		return err
	}
	if len(series.Rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("kind: %s\n", meta.Kind)
	fmt.Printf("samples: %d\n\n", len(series.Rows))

	if spectrum {
		orders, err := series.Column("order")
		if err != nil {
			return err
		}
		fmt.Println(viz.Chart(analysis.OrderSpectrum(orders), "order amplitude spectrum", 70, 12))
		return nil
	}

	for _, name := range series.Columns[1:] {
		data, err := series.Column(name)
		if err != nil {
			return err
		}
		fmt.Println(viz.Chart(data, fmt.Sprintf("%s vs %s", name, series.Columns[0]), 70, 10))
		fmt.Println()
	}
	return nil
}

func exportSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	s, err := sim.New(cfg.Particles, cfg.Params(), sim.WithSeed(cfg.Seed))
	if err != nil {
		return err
	}
	res, err := cfg.Horizon(cmd.Context(), s)
	if err != nil {
		return err
	}

	if outPath == "" {
		return storage.ExportSnapshotTo(os.Stdout, res.Final)
	}
	if err := storage.ExportSnapshot(outPath, res.Final); err != nil {
		return err
	}
	logger.Info("snapshot written", zap.String("path", outPath), zap.Float64("time", float64(res.Final.Time())))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	outcomes, err := automation.RunScenario(cmd.Context(), sc, storage.New(dataDir), logger)

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{o.Step, string(o.Kind), fmt.Sprintf("%.6f", o.Value), o.ID})
	}
	if len(rows) > 0 {
		fmt.Println(viz.Table([]string{"STEP", "KIND", "VALUE", "RUN ID"}, rows))
	}
	return err
}
