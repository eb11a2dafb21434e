// Command triplclust finds curves in a 2D or 3D point cloud.
//
// It reads one point per line, clusters the points into curves and writes
// each point with its cluster ids as CSV (or a gnuplot script). Optional
// outputs are an interactive HTML plot, a SQLite run archive and debug
// artifacts of every pipeline stage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/banshee-data/triplclust/internal/config"
	"github.com/banshee-data/triplclust/internal/debug"
	"github.com/banshee-data/triplclust/internal/fsutil"
	"github.com/banshee-data/triplclust/internal/pcio"
	"github.com/banshee-data/triplclust/internal/store"
	"github.com/banshee-data/triplclust/internal/triplclust"
	"github.com/banshee-data/triplclust/internal/version"
	"github.com/banshee-data/triplclust/internal/visualiser"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "triplclust: %v\n", err)
		os.Exit(1)
	}
}

// options holds everything that is not a clustering parameter.
type options struct {
	in, out, format string
	configPath      string
	htmlPath        string
	dbPath          string
	debugDir        string
	delim           string
	skip            int
	ordered         bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("triplclust", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.in, "in", "", "Input point cloud (x y [z] per line)")
	fs.StringVar(&o.out, "out", "", "Output file; empty or - writes to stdout")
	fs.StringVar(&o.format, "format", "csv", "Output format: csv or gnuplot")
	fs.StringVar(&o.configPath, "config", "", "JSON tuning config (see "+config.DefaultConfigPath+")")
	fs.StringVar(&o.htmlPath, "html", "", "Write an interactive HTML scatter plot to this file")
	fs.StringVar(&o.dbPath, "db", "", "Archive the run in this SQLite database")
	fs.StringVar(&o.debugDir, "debug-dir", "", "Write debug artifacts into this directory (implies -v 2)")
	fs.StringVar(&o.delim, "delim", "", "Input field delimiter; empty splits on whitespace and commas")
	fs.IntVar(&o.skip, "skip", 0, "Number of header lines to skip")
	fs.BoolVar(&o.ordered, "ordered", false, "Points are in chronological order")
	showVersion := fs.Bool("version", false, "Print version and exit")

	// Parameter overrides. Only flags given on the command line replace
	// values from the config file.
	radius := fs.String("r", "", "Smoothing radius, absolute or e.g. 2dnn; 0 disables smoothing")
	neighbours := fs.Int("k", triplclust.DefaultNeighbours, "Neighbours examined per point")
	maxTriplets := fs.Int("n", triplclust.DefaultMaxTriplets, "Triplets kept per point")
	maxAngleCos := fs.Float64("a", triplclust.DefaultMaxAngleCos, "Max branch angle, as 1 - cos(angle)")
	scale := fs.String("s", "", "Triplet distance scale, absolute or e.g. 0.3dnn")
	threshold := fs.Float64("t", triplclust.DefaultThreshold, "Cut threshold; disables the automatic threshold unless -auto is set")
	auto := fs.Bool("auto", true, "Derive the cut threshold from the merge heights")
	linkage := fs.String("link", triplclust.LinkageSingle, "Linkage: single, complete or average")
	linkRadius := fs.String("link-radius", "", "Triplet pair search radius, absolute or e.g. 10dnn")
	maxGap := fs.String("dmax", "none", "Max gap inside a curve, absolute or e.g. 3dnn; none disables")
	minSize := fs.Int("m", triplclust.DefaultMinSize, "Minimum triplets per curve")
	workers := fs.Int("workers", 0, "Parallel workers; 0 uses every CPU")
	verbosity := fs.Int("v", 0, "Verbosity: 1 progress, 2 debug artifacts")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	if o.in == "" && fs.NArg() == 1 {
		o.in = fs.Arg(0)
	}
	if o.in == "" {
		fs.Usage()
		return errors.New("no input file given")
	}

	cfg := config.EmptyTuningConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(o.configPath); err != nil {
			return err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "r":
			cfg.SmoothingRadius = radius
		case "k":
			cfg.Neighbours = neighbours
		case "n":
			cfg.MaxTriplets = maxTriplets
		case "a":
			cfg.MaxAngleCos = maxAngleCos
		case "s":
			cfg.Scale = scale
		case "t":
			cfg.Threshold = threshold
			if !isSet(fs, "auto") {
				off := false
				cfg.AutoThreshold = &off
			}
		case "auto":
			cfg.AutoThreshold = auto
		case "link":
			cfg.Linkage = linkage
		case "link-radius":
			cfg.LinkRadius = linkRadius
		case "dmax":
			cfg.MaxGap = maxGap
		case "m":
			cfg.MinSize = minSize
		case "workers":
			cfg.Workers = workers
		case "v":
			cfg.Verbosity = verbosity
		}
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	params, err := cfg.ToParams()
	if err != nil {
		return err
	}

	if params.Verbosity > 1 && o.debugDir == "" {
		o.debugDir = "."
	}
	if o.debugDir != "" && params.Verbosity < 2 {
		params.Verbosity = 2
	}

	format, err := pcio.ParseFormat(o.format)
	if err != nil {
		return err
	}
	readOpts := pcio.ReadOptions{Skip: o.skip, Ordered: o.ordered}
	if o.delim != "" {
		r, size := utf8.DecodeRuneInString(o.delim)
		if size != len(o.delim) {
			return fmt.Errorf("delimiter must be a single character, got %q", o.delim)
		}
		readOpts.Delimiter = r
	}

	osfs := fsutil.OSFileSystem{}
	pc, err := pcio.Load(osfs, o.in, readOpts)
	if err != nil {
		return err
	}

	c := triplclust.NewClusterer(params)
	if o.debugDir != "" {
		c.SetDiagnostics(debug.NewWriter(osfs, o.debugDir))
	}
	res, err := c.Cluster(pc)
	if err != nil {
		return err
	}

	summary := stdout
	if o.out == "" || o.out == "-" {
		if err := pcio.Write(stdout, res.Labels, format); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		summary = stderr
	} else if err := pcio.Save(osfs, o.out, res.Labels, format); err != nil {
		return fmt.Errorf("write %s: %w", o.out, err)
	}

	if o.htmlPath != "" {
		vo := visualiser.DefaultOptions()
		vo.Title = "TriplClust: " + o.in
		err := fsutil.WriteFileWith(osfs, o.htmlPath, func(w io.Writer) error {
			return visualiser.Render(w, res.Labels, vo)
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", o.htmlPath, err)
		}
	}

	runID := ""
	if o.dbPath != "" {
		s, err := store.Open(o.dbPath)
		if err != nil {
			return err
		}
		runID, err = s.SaveRun(ctx, o.in, params, res)
		if cerr := s.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("archive run: %w", err)
		}
	}

	printSummary(summary, o.in, params, res, runID)
	return nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func printSummary(w io.Writer, source string, p triplclust.Params, res *triplclust.Result, runID string) {
	st := res.Stats
	fmt.Fprintf(w, "%s: %d points, %d curves, %d noise points\n", source, st.Points, st.Clusters, st.Noise)
	fmt.Fprintf(w, "  dnn=%.4g threshold=%.4g linkage=%s triplets=%d elapsed=%s\n",
		st.DNN, st.Threshold, p.Linkage, st.Triplets, st.Elapsed)
	for _, id := range res.Labels.ClusterIDs() {
		fmt.Fprintf(w, "  curve %d: %d points\n", id, len(res.Labels.Members(id)))
	}
	if runID != "" {
		fmt.Fprintf(w, "  run id: %s\n", runID)
	}
}
