package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/hemolab/pulsim/internal/analysis"
	"github.com/hemolab/pulsim/internal/circ"
	"github.com/hemolab/pulsim/internal/config"
	"github.com/hemolab/pulsim/internal/cycle"
	"github.com/hemolab/pulsim/internal/export"
	"github.com/hemolab/pulsim/internal/metrics"
	"github.com/hemolab/pulsim/internal/models"
	"github.com/hemolab/pulsim/internal/sim"
	"github.com/hemolab/pulsim/internal/solver"
	"github.com/hemolab/pulsim/internal/storage"
	"github.com/hemolab/pulsim/internal/tui"
	"github.com/hemolab/pulsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	// Scheme controls
	dt          float64
	numSteps    int
	thetaOST    float64
	initialBE   bool
	recordEvery int
	// Newton controls
	maxIter int
	tolRes  float64
	tolInc  float64
	// Periodicity controls
	epsPeriodic float64
	checkType   string
	// Perturbation schedule
	perturbType  string
	perturbFac   float64
	perturbAfter int
	// Named overrides, "name=value"
	paramFlags []string
	icFlags    []string
	// Config file and preset
	configFile string
	preset     string
	// Plot selection
	plotVars   string
	chamber    string
	analyzeVar string
	svgVar     string
	svgLoop    bool
	svgOut     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pulsim",
		Short: "closed-loop lumped-parameter circulation simulator",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pulsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a simulation",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run a simulation with a live terminal monitor",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot stored traces",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotVars, "vars", "", "comma-separated column names (default: first pressures)")

	pvCmd := &cobra.Command{
		Use:   "pv [run_id]",
		Short: "pressure-volume loop of one ventricle",
		Args:  cobra.ExactArgs(1),
		RunE:  pvLoop,
	}
	pvCmd.Flags().StringVar(&chamber, "chamber", "l", "ventricle: l or r")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of one trace",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&analyzeVar, "var", "p_ar_sys", "column to analyze")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "print the full run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "print the trace as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render one trace or loop as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&svgVar, "var", "p_ar_sys", "column to render")
	exportSVGCmd.Flags().BoolVar(&svgLoop, "loop", false, "render the ventricular pressure-volume loop instead")
	exportSVGCmd.Flags().StringVar(&chamber, "chamber", "l", "ventricle for --loop: l or r")
	exportSVGCmd.Flags().StringVar(&svgOut, "out", "", "output file (default: stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list available topologies",
		Run: func(cmd *cobra.Command, args []string) {
			for _, tag := range models.List() {
				fmt.Println(tag)
			}
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, pvCmd, analyzeCmd,
		exportCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, presetsCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "time step")
	cmd.Flags().IntVar(&numSteps, "steps", config.DefaultNumSteps, "maximum number of steps")
	cmd.Flags().Float64Var(&thetaOST, "theta", config.DefaultTheta, "one-step-theta weight (0.5 trapezoidal, 1 backward Euler)")
	cmd.Flags().BoolVar(&initialBE, "initial-be", true, "take the first step with backward Euler")
	cmd.Flags().IntVar(&recordEvery, "record-every", 1, "record every n-th step")
	cmd.Flags().IntVar(&maxIter, "maxiter", config.DefaultMaxIter, "Newton iteration budget per step")
	cmd.Flags().Float64Var(&tolRes, "tol-res", config.DefaultTol, "Newton residual tolerance")
	cmd.Flags().Float64Var(&tolInc, "tol-inc", config.DefaultTol, "Newton increment tolerance")
	cmd.Flags().Float64Var(&epsPeriodic, "eps", config.DefaultEps, "periodicity tolerance")
	cmd.Flags().StringVar(&checkType, "check", "allvar", "periodicity check: allvar or pressure")
	cmd.Flags().StringVar(&perturbType, "perturb", "", "perturbation type (e.g. bleed)")
	cmd.Flags().Float64Var(&perturbFac, "perturb-factor", 0, "perturbation factor")
	cmd.Flags().IntVar(&perturbAfter, "perturb-after", 0, "fire the perturbation after this cycle")
	cmd.Flags().StringArrayVar(&paramFlags, "param", nil, "parameter override name=value (repeatable)")
	cmd.Flags().StringArrayVar(&icFlags, "ic", nil, "initial condition name=value (repeatable)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use a preset configuration")
}

// buildConfig merges preset, config file, and command-line flags, in
// that order of increasing precedence.
func buildConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		c := *p
		cfg = &c
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		cfg.Model = model
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("steps") {
		cfg.NumSteps = numSteps
	}
	if cmd.Flags().Changed("theta") {
		cfg.Theta = thetaOST
	}
	if cmd.Flags().Changed("initial-be") {
		cfg.InitialBE = initialBE
	}
	if cmd.Flags().Changed("record-every") {
		cfg.RecordEvery = recordEvery
	}
	if cmd.Flags().Changed("maxiter") {
		cfg.Solver.MaxIter = maxIter
	}
	if cmd.Flags().Changed("tol-res") {
		cfg.Solver.TolRes = tolRes
	}
	if cmd.Flags().Changed("tol-inc") {
		cfg.Solver.TolInc = tolInc
	}
	if cmd.Flags().Changed("eps") {
		cfg.Periodic.Eps = epsPeriodic
	}
	if cmd.Flags().Changed("check") {
		cfg.Periodic.Check = checkType
	}
	if cmd.Flags().Changed("perturb") {
		cfg.Perturbation.Type = perturbType
	}
	if cmd.Flags().Changed("perturb-factor") {
		cfg.Perturbation.Factor = perturbFac
	}
	if cmd.Flags().Changed("perturb-after") {
		cfg.Perturbation.AfterCycle = perturbAfter
	}

	if len(paramFlags) > 0 {
		if cfg.Parameters == nil {
			cfg.Parameters = make(map[string]float64)
		}
		if err := parseKV(paramFlags, cfg.Parameters); err != nil {
			return nil, err
		}
	}
	if len(icFlags) > 0 {
		if cfg.InitialConditions == nil {
			cfg.InitialConditions = make(map[string]float64)
		}
		if err := parseKV(icFlags, cfg.InitialConditions); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseKV(pairs []string, dst map[string]float64) error {
	for _, pair := range pairs {
		name, valStr, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("expected name=value, got %q", pair)
		}
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return fmt.Errorf("bad value in %q: %w", pair, err)
		}
		dst[strings.TrimSpace(name)] = val
	}
	return nil
}

func buildModel(cfg *config.Config) (circ.Model, error) {
	var drive *models.Drive
	if cfg.Coupling.Kind != "" {
		amp, period := cfg.Coupling.Amplitude, cfg.Coupling.Period
		d := models.Drive{
			Kind: models.CouplingKind(cfg.Coupling.Kind),
			Curve: func(t float64) float64 {
				q := math.Sin(2 * math.Pi * t / period)
				if q < 0 {
					return 0
				}
				return amp * q
			},
		}
		drive = &d
	}
	return models.New(cfg.Model, cfg.Parameters, drive)
}

func simConfig(cfg *config.Config) sim.Config {
	return sim.Config{
		Dt:          cfg.Dt,
		NumSteps:    cfg.NumSteps,
		Theta:       cfg.Theta,
		InitialBE:   cfg.InitialBE,
		RecordEvery: cfg.RecordEvery,
		Newton: solver.Config{
			MaxIter: cfg.Solver.MaxIter,
			TolRes:  cfg.Solver.TolRes,
			TolInc:  cfg.Solver.TolInc,
		},
		Cycle: cycle.Config{
			Eps:               cfg.Periodic.Eps,
			Check:             cycle.CheckType(cfg.Periodic.Check),
			PerturbType:       cfg.Perturbation.Type,
			PerturbFactor:     cfg.Perturbation.Factor,
			PerturbAfterCycle: cfg.Perturbation.AfterCycle,
		},
	}
}

// initialConditions overlays the configured overrides on the
// topology's documented baseline state.
func initialConditions(cfg *config.Config) map[string]float64 {
	ic := make(map[string]float64)
	if cfg.Model == models.TagSyspul {
		for name, val := range models.DefaultSyspulInit() {
			ic[name] = val
		}
	}
	for name, val := range cfg.InitialConditions {
		ic[name] = val
	}
	return ic
}

// attachMetrics registers the closed-loop summary metrics: mass
// conservation, mean arterial pressure, and left ventricular stroke
// volume.
func attachMetrics(sm *sim.Simulator, m circ.Model) {
	names := m.Names()
	auxNames := m.AuxNames()

	volIdx := make([]int, 0, len(auxNames))
	for i, name := range auxNames {
		if strings.HasPrefix(name, "V_") {
			volIdx = append(volIdx, i)
		}
	}
	if len(volIdx) > 0 {
		sm.AddMetric(metrics.NewTotalVolumeDrift(volIdx))
	}

	for i, name := range names {
		if name == "p_ar_sys" {
			sm.AddMetric(metrics.NewMeanPressure("mean_p_ar_sys", i))
		}
	}
	for i, name := range auxNames {
		if name == "V_v_l" {
			sm.AddMetric(metrics.NewStrokeVolume(i))
		}
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	m, err := buildModel(cfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	sm, err := sim.New(m, simConfig(cfg))
	if err != nil {
		return err
	}
	attachMetrics(sm, m)

	fmt.Printf("running %s...\n", cfg.Model)
	start := time.Now()

	result, err := sm.Run(context.Background(), initialConditions(cfg))
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(cfg.Model, cfg.Dt, cfg.Theta, m.Names(), m.AuxNames(), result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Println(viz.Summary(cfg.Model, result.StepsTaken, result.Cycles, result.CycleError, result.Periodic))
	if len(result.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		for name, val := range result.Metrics {
			fmt.Printf("  %s: %.6g\n", name, val)
		}
	}

	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	m, err := buildModel(cfg)
	if err != nil {
		return err
	}

	result, err := tui.Run(context.Background(), cfg.Model, m, simConfig(cfg), initialConditions(cfg))
	if err != nil {
		return err
	}
	if result != nil {
		fmt.Println(viz.Summary(cfg.Model, result.StepsTaken, result.Cycles, result.CycleError, result.Periodic))
	}
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
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tSTEPS\tCYCLES\tCYCLE_ERR\tPERIODIC")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.3g\t%t\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Cycles,
			run.CycleError,
			run.Periodic,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	header, _, rows, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d\n\n", len(rows))

	var selected []string
	if plotVars != "" {
		selected = strings.Split(plotVars, ",")
	} else {
		// Default to pressure columns, capped to keep the output sane.
		for _, name := range header {
			if strings.HasPrefix(name, "p_") {
				selected = append(selected, name)
			}
			if len(selected) == 6 {
				break
			}
		}
		if len(selected) == 0 && len(header) > 0 {
			selected = header[:1]
		}
	}

	for _, name := range selected {
		name = strings.TrimSpace(name)
		data, err := storage.Column(header, rows, name)
		if err != nil {
			return err
		}
		fmt.Println(viz.Trace(data, name, 80, 10))
	}

	return nil
}

func pvLoop(cmd *cobra.Command, args []string) error {
	if chamber != "l" && chamber != "r" {
		return fmt.Errorf("chamber must be l or r, got %q", chamber)
	}

	st := storage.New(dataDir)
	header, _, rows, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}

	pName := "p_v_" + chamber
	vName := "V_v_" + chamber
	ps, err := storage.Column(header, rows, pName)
	if err != nil {
		return err
	}
	vs, err := storage.Column(header, rows, vName)
	if err != nil {
		return err
	}

	fmt.Println(viz.Loop(vs, ps, fmt.Sprintf("%s vs %s", pName, vName), vName, pName, 60, 20))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	header, times, rows, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}
	if len(times) < 4 {
		return fmt.Errorf("not enough samples")
	}

	data, err := storage.Column(header, rows, analyzeVar)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("model: %s, variable: %s\n\n", meta.Model, analyzeVar)

	ps := analysis.PowerSpectrum(analysis.PadPow2(data))
	plotData := ps
	if len(ps) > 64 {
		plotData = ps[:len(ps)/4]
	}
	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum"),
	)
	fmt.Println(graph)
	fmt.Println()

	// The recorded spacing, not meta.Dt: the trace may be thinned.
	sampleDt := times[1] - times[0]
	freq, power := analysis.DominantFrequency(data, sampleDt)
	fmt.Printf("dominant frequency: %.3f Hz (power %.3g)\n", freq, power)
	if freq > 0 {
		fmt.Printf("period: %.3f s, rate: %.0f bpm\n", 1.0/freq, 60*freq)
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	header, times, rows, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}

	result := &sim.Result{
		Times:      times,
		States:     make([]circ.State, len(rows)),
		StepsTaken: meta.Steps,
		Cycles:     meta.Cycles,
		CycleError: meta.CycleError,
		Periodic:   meta.Periodic,
		Metrics:    meta.Metrics,
	}
	for i, row := range rows {
		result.States[i] = circ.State(row)
	}

	return storage.WriteJSON(os.Stdout, meta.Model, meta.Dt, meta.Theta, header, nil, result)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	header, times, rows, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write(append([]string{"time"}, header...)); err != nil {
		return err
	}
	for i := range rows {
		row := []string{strconv.FormatFloat(times[i], 'g', 12, 64)}
		for _, val := range rows[i] {
			row = append(row, strconv.FormatFloat(val, 'g', 12, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	header, times, rows, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}

	var svg string
	if svgLoop {
		ps, err := storage.Column(header, rows, "p_v_"+chamber)
		if err != nil {
			return err
		}
		vs, err := storage.Column(header, rows, "V_v_"+chamber)
		if err != nil {
			return err
		}
		svg = export.LoopToSVG(vs, ps, 600, 600, "#aa2222")
	} else {
		data, err := storage.Column(header, rows, svgVar)
		if err != nil {
			return err
		}
		svg = export.SeriesToSVG(times, data, 800, 300, "#2222aa")
	}
	if svg == "" {
		return fmt.Errorf("nothing to render")
	}

	if svgOut == "" {
		fmt.Println(svg)
		return nil
	}
	return os.WriteFile(svgOut, []byte(svg), 0644)
}
