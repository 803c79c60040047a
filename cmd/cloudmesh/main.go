// Command cloudmesh turns a point cloud file into a triangle mesh.
//
// It normalizes the input, drops IQR outliers, refines the geometry,
// smooths it and reconstructs a planar Delaunay surface or an alpha shape.
// Run history can be recorded in SQLite and each run can emit an HTML
// report and a wireframe image.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/cloudmesh/internal/codec"
	"github.com/banshee-data/cloudmesh/internal/config"
	"github.com/banshee-data/cloudmesh/internal/db"
	"github.com/banshee-data/cloudmesh/internal/monitoring"
	"github.com/banshee-data/cloudmesh/internal/pipeline"
	"github.com/banshee-data/cloudmesh/internal/pointcloud"
	"github.com/banshee-data/cloudmesh/internal/report"
	"github.com/banshee-data/cloudmesh/internal/version"
)

// Config holds the command-line options.
type Config struct {
	Inputs     []string
	Out        string
	PointsOut  string
	ConfigPath string
	DBPath     string
	ReportPath string
	PlotPath   string
	JSON       bool
	Timeout    time.Duration
	Verbose    bool
	ListRuns   int
	ShowRun    string
	Version    bool

	// Overrides applied on top of the config file. Only flags given on the
	// command line are set.
	Overrides config.PipelineConfig
}

func parseFlags(args []string, stderr io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("cloudmesh", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := &Config{}
	in := fs.String("in", "", "Input point cloud (.pcd, .ply, .obj, .xyz, .asc); further inputs may follow as arguments")
	fs.StringVar(&cfg.Out, "out", "", "Output mesh (.ply or .obj); a directory when several inputs are given")
	fs.StringVar(&cfg.PointsOut, "points-out", "", "Optional output for the cloud handed to reconstruction")
	fs.StringVar(&cfg.ConfigPath, "config", "", "Pipeline config file (.json or .yaml)")
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite run history database (disabled when empty)")
	fs.StringVar(&cfg.ReportPath, "report", "", "Write an HTML report to this path")
	fs.StringVar(&cfg.PlotPath, "plot", "", "Write a wireframe image (.png, .svg, .pdf) to this path")
	fs.BoolVar(&cfg.JSON, "json", false, "Print the run summary as JSON")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "Abort processing after this long (0 for no limit)")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Log stage start and file read/write events")
	fs.IntVar(&cfg.ListRuns, "list-runs", 0, "List the N most recent runs from -db and exit")
	fs.StringVar(&cfg.ShowRun, "show-run", "", "Print one stored run from -db as JSON and exit")
	fs.BoolVar(&cfg.Version, "version", false, "Print version and exit")

	strategy := fs.String("strategy", "", "Refinement strategy: reprojection or radius_prune")
	gamma := fs.Float64("gamma", 0, "radius_prune distance threshold")
	maxIter := fs.Int("max-iterations", 0, "Reprojection solver iteration budget")
	tolerance := fs.Float64("tolerance", 0, "Reprojection solver RMS tolerance")
	camera := fs.String("camera", "", "Initial camera as six comma separated values: f,cx,cy,k1,k2,reserved")
	fallback := fs.Bool("refine-fallback", false, "Continue with unrefined points when the solver does not converge")
	q := fs.Float64("process-noise", 0, "Smoother process noise covariance")
	r := fs.Float64("measurement-noise", 0, "Smoother measurement noise covariance")
	skipSmooth := fs.Bool("skip-smoothing", false, "Bypass the smoother")
	meshMode := fs.String("mesh-mode", "", "Reconstruction: planar_delaunay or alpha_shape")
	alpha := fs.Float64("alpha", 0, "Alpha shape radius (<= 0 yields the convex hull)")
	maxEdge := fs.Float64("max-edge", 0, "Drop faces with an edge longer than this (0 disables)")
	minArea := fs.Float64("min-area", 0, "Flag faces smaller than this area (0 disables)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var cameraErr error
	o := &cfg.Overrides
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "strategy":
			o.RefinementStrategy = strategy
		case "gamma":
			o.Gamma = gamma
		case "max-iterations":
			o.SolverMaxIterations = maxIter
		case "tolerance":
			o.SolverTolerance = tolerance
		case "camera":
			o.InitialCamera, cameraErr = parseCamera(*camera)
		case "refine-fallback":
			o.RefineFallback = fallback
		case "process-noise":
			o.ProcessNoiseCov = q
		case "measurement-noise":
			o.MeasurementNoiseCov = r
		case "skip-smoothing":
			o.SkipSmoothing = skipSmooth
		case "mesh-mode":
			o.MeshMode = meshMode
		case "alpha":
			o.AlphaRadius = alpha
		case "max-edge":
			o.MaxEdgeLength = maxEdge
		case "min-area":
			o.MinFaceArea = minArea
		}
	})
	if cameraErr != nil {
		return nil, cameraErr
	}

	if *in != "" {
		cfg.Inputs = append(cfg.Inputs, *in)
	}
	cfg.Inputs = append(cfg.Inputs, fs.Args()...)

	if cfg.Version {
		return cfg, nil
	}
	if cfg.ListRuns > 0 || cfg.ShowRun != "" {
		if cfg.DBPath == "" {
			return nil, errors.New("-list-runs and -show-run need -db")
		}
		return cfg, nil
	}
	if len(cfg.Inputs) == 0 {
		return nil, errors.New("no input given; use -in")
	}
	if len(cfg.Inputs) > 1 && (cfg.PointsOut != "" || cfg.ReportPath != "" || cfg.PlotPath != "") {
		return nil, errors.New("-points-out, -report and -plot take a single input")
	}
	return cfg, nil
}

func parseCamera(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != config.CameraParamCount {
		return nil, fmt.Errorf("-camera needs %d values, got %d", config.CameraParamCount, len(parts))
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%g", &out[i]); err != nil {
			return nil, fmt.Errorf("-camera value %d: %q is not a number", i, p)
		}
	}
	return out, nil
}

// pipelineConfig loads the config file (or defaults) and applies flag
// overrides.
func pipelineConfig(c *Config) (*config.PipelineConfig, error) {
	base := config.EmptyPipelineConfig()
	if c.ConfigPath != "" {
		loaded, err := config.LoadPipelineConfig(c.ConfigPath)
		if err != nil {
			return nil, err
		}
		base = loaded
	}

	o := c.Overrides
	if o.RefinementStrategy != nil {
		base.RefinementStrategy = o.RefinementStrategy
	}
	if o.Gamma != nil {
		base.Gamma = o.Gamma
	}
	if o.SolverMaxIterations != nil {
		base.SolverMaxIterations = o.SolverMaxIterations
	}
	if o.SolverTolerance != nil {
		base.SolverTolerance = o.SolverTolerance
	}
	if o.InitialCamera != nil {
		base.InitialCamera = o.InitialCamera
	}
	if o.RefineFallback != nil {
		base.RefineFallback = o.RefineFallback
	}
	if o.ProcessNoiseCov != nil {
		base.ProcessNoiseCov = o.ProcessNoiseCov
	}
	if o.MeasurementNoiseCov != nil {
		base.MeasurementNoiseCov = o.MeasurementNoiseCov
	}
	if o.SkipSmoothing != nil {
		base.SkipSmoothing = o.SkipSmoothing
	}
	if o.MeshMode != nil {
		base.MeshMode = o.MeshMode
	}
	if o.AlphaRadius != nil {
		base.AlphaRadius = o.AlphaRadius
	}
	if o.MaxEdgeLength != nil {
		base.MaxEdgeLength = o.MaxEdgeLength
	}
	if o.MinFaceArea != nil {
		base.MinFaceArea = o.MinFaceArea
	}
	return base, base.Validate()
}

func meshPath(c *Config, input string) string {
	if c.Out == "" {
		return ""
	}
	if len(c.Inputs) == 1 {
		return c.Out
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(c.Out, base+".ply")
}

func run(ctx context.Context, c *Config, stdout io.Writer) error {
	if c.Verbose {
		monitoring.SetVerbose(true)
	}

	var store *db.DB
	if c.DBPath != "" {
		var err error
		store, err = db.NewDB(c.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open run database: %w", err)
		}
		defer store.Close()
	}

	if c.ListRuns > 0 {
		return listRuns(ctx, store, c.ListRuns, stdout)
	}
	if c.ShowRun != "" {
		rec, err := store.GetRun(ctx, c.ShowRun)
		if err != nil {
			return err
		}
		return writeJSON(stdout, rec)
	}

	pcfg, err := pipelineConfig(c)
	if err != nil {
		return err
	}
	p, err := pipeline.New(pcfg, pipeline.WithObserver(pipeline.LogObserver{}))
	if err != nil {
		return err
	}
	cfgJSON, err := json.Marshal(p.Config())
	if err != nil {
		return err
	}

	sets := make([]pointcloud.PointSet, len(c.Inputs))
	for i, in := range c.Inputs {
		if sets[i], err = codec.ReadPoints(in); err != nil {
			return err
		}
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var results []*pipeline.Result
	if len(sets) == 1 {
		res, runErr := p.Run(ctx, sets[0])
		results, err = []*pipeline.Result{res}, runErr
	} else {
		results, err = p.RunAll(ctx, sets)
	}

	for i, res := range results {
		if res == nil {
			continue
		}
		rec := db.RunRecord{
			Summary:    res.Summary(),
			InputPath:  c.Inputs[i],
			ConfigJSON: string(cfgJSON),
		}
		if res.Completed {
			if out := meshPath(c, c.Inputs[i]); out != "" {
				if werr := codec.WriteMesh(out, res.Mesh); werr != nil {
					return werr
				}
				rec.OutputPath = out
				monitoring.Logf("Wrote mesh with %d faces to %s", len(res.Mesh.Faces), out)
			}
		} else if err != nil {
			rec.Error = err.Error()
		}
		if store != nil {
			if serr := store.InsertRun(ctx, rec); serr != nil {
				monitoring.Logf("failed to record run %s: %v", res.RunID, serr)
			}
		}
		if res.Completed {
			if werr := writeArtifacts(c, res); werr != nil {
				return werr
			}
			if c.JSON {
				if werr := writeJSON(stdout, res.Summary()); werr != nil {
					return werr
				}
			} else {
				printSummary(stdout, c.Inputs[i], res)
			}
		}
	}
	return err
}

func writeArtifacts(c *Config, res *pipeline.Result) error {
	if c.PointsOut != "" {
		if err := codec.WritePoints(c.PointsOut, res.MeshInput()); err != nil {
			return err
		}
	}
	if c.ReportPath != "" {
		if err := report.WriteHTML(c.ReportPath, res); err != nil {
			return err
		}
	}
	if c.PlotPath != "" {
		title := fmt.Sprintf("%s: %d faces", res.MeshMode, len(res.Mesh.Faces))
		if err := report.SaveWireframe(c.PlotPath, res.Mesh, res.SmallFaces, title); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, input string, res *pipeline.Result) {
	s := res.Summary()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "input\t%s\n", input)
	fmt.Fprintf(tw, "run\t%s\n", s.RunID)
	fmt.Fprintf(tw, "points\t%d in, %d after filter, %d after refine\n", s.InputPoints, s.FilteredPoints, s.RefinedPoints)
	fmt.Fprintf(tw, "mesh\t%s, %d vertices, %d faces, area %.4f\n", s.MeshMode, s.Vertices, s.Faces, s.SurfaceArea)
	if s.SmallFaces > 0 {
		fmt.Fprintf(tw, "small faces\t%d\n", s.SmallFaces)
	}
	if s.RefineFallback {
		fmt.Fprintf(tw, "refine\tfell back: %s\n", s.RefineError)
	}
	for _, st := range s.Stages {
		fmt.Fprintf(tw, "  %s\t%d -> %d\t%.3f ms\n", st.Stage, st.InputSize, st.OutputSize, st.DurationMS)
	}
	tw.Flush()
}

func listRuns(ctx context.Context, store *db.DB, n int, w io.Writer) error {
	runs, err := store.ListRuns(ctx, n)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTRATEGY\tMODE\tPOINTS\tFACES\tSTATUS")
	for _, r := range runs {
		status := "ok"
		switch {
		case r.Error != "":
			status = "failed"
		case r.RefineFallback:
			status = "fallback"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n", r.RunID, r.StartedAt.Format(time.RFC3339),
			r.Strategy, r.MeshMode, r.InputPoints, r.Faces, status)
	}
	return tw.Flush()
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("cloudmesh: %v", err)
	}
	if cfg.Version {
		fmt.Println(version.String("cloudmesh"))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		log.Fatalf("cloudmesh: %v", err)
	}
}
