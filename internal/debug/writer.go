// Package debug writes intermediate clustering results to disk for offline
// inspection: CSV dumps, a gnuplot script comparing the raw and smoothed
// clouds, and PNG projections of every cluster stage.
//
// The Writer implements triplclust.Diagnostics. Every artifact is written
// independently; a failed artifact does not stop the others and all errors
// are returned together.
package debug

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strconv"

	"go.uber.org/multierr"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/triplclust/internal/cloud"
	"github.com/banshee-data/triplclust/internal/fsutil"
	"github.com/banshee-data/triplclust/internal/palette"
	"github.com/banshee-data/triplclust/internal/triplclust"
)

// Artifact file names, relative to the writer's directory.
const (
	RawCSVFile        = "debug_raw.csv"
	SmoothedCSVFile   = "debug_smoothed.csv"
	SmoothedPlotFile  = "debug_smoothed.gnuplot"
	SmoothedPNGFile   = "debug_smoothed.png"
	TripletsCSVFile   = "debug_triplets.csv"
	clustersCSVFormat = "debug_clusters_%s.csv"
	clustersPNGFormat = "debug_clusters_%s.png"
)

// Default PNG size.
const (
	defaultWidth  = 8 * vg.Inch
	defaultHeight = 8 * vg.Inch
)

// Writer writes debug artifacts into one directory.
type Writer struct {
	fs     fsutil.FileSystem
	dir    string
	Width  vg.Length
	Height vg.Length
}

// NewWriter creates a writer for dir on fsys. The directory is created on
// first use.
func NewWriter(fsys fsutil.FileSystem, dir string) *Writer {
	return &Writer{fs: fsys, dir: dir, Width: defaultWidth, Height: defaultHeight}
}

var _ triplclust.Diagnostics = (*Writer)(nil)

func (w *Writer) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *Writer) ensureDir() error {
	if w.dir == "" || w.dir == "." {
		return nil
	}
	return w.fs.MkdirAll(w.dir, 0755)
}

// RecordSmoothing writes both clouds as CSV, a gnuplot script overlaying
// them and a PNG of the same overlay.
func (w *Writer) RecordSmoothing(raw, smoothed *cloud.PointCloud) error {
	if err := w.ensureDir(); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}
	var errs error
	errs = multierr.Append(errs, w.writeCloudCSV(RawCSVFile, raw))
	errs = multierr.Append(errs, w.writeCloudCSV(SmoothedCSVFile, smoothed))
	errs = multierr.Append(errs, fsutil.WriteFileWith(w.fs, w.path(SmoothedPlotFile), func(out io.Writer) error {
		return writeGnuplotScript(out, smoothed.Is2D(), smoothed.Ordered())
	}))
	errs = multierr.Append(errs, w.writeSmoothingPNG(raw, smoothed))
	return errs
}

// RecordTriplets writes one CSV row per triplet.
func (w *Writer) RecordTriplets(_ *cloud.PointCloud, triplets []triplclust.Triplet) error {
	if err := w.ensureDir(); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}
	return fsutil.WriteFileWith(w.fs, w.path(TripletsCSVFile), func(out io.Writer) error {
		cw := csv.NewWriter(out)
		cw.Write([]string{"a", "b", "c", "cx", "cy", "cz", "ux", "uy", "uz", "span", "error"})
		for _, t := range triplets {
			cw.Write([]string{
				strconv.Itoa(t.A), strconv.Itoa(t.B), strconv.Itoa(t.C),
				formatFloat(t.Center.X), formatFloat(t.Center.Y), formatFloat(t.Center.Z),
				formatFloat(t.Direction.X), formatFloat(t.Direction.Y), formatFloat(t.Direction.Z),
				formatFloat(t.Span), formatFloat(t.Error),
			})
		}
		cw.Flush()
		return cw.Error()
	})
}

// RecordClusters writes the point membership of one stage as CSV and a PNG
// projection onto the x-y plane.
func (w *Writer) RecordClusters(stage string, pc *cloud.PointCloud, _ []triplclust.Triplet, group triplclust.ClusterGroup) error {
	if err := w.ensureDir(); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}
	var errs error
	errs = multierr.Append(errs, fsutil.WriteFileWith(w.fs, w.path(fmt.Sprintf(clustersCSVFormat, fsutil.SanitizeFilename(stage))), func(out io.Writer) error {
		cw := csv.NewWriter(out)
		cw.Write([]string{"cluster", "point", "x", "y", "z", "triplets"})
		for id, c := range group {
			for _, i := range c.Points {
				p := pc.At(i)
				cw.Write([]string{
					strconv.Itoa(id), strconv.Itoa(i),
					formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z),
					strconv.Itoa(len(c.Triplets)),
				})
			}
		}
		cw.Flush()
		return cw.Error()
	}))
	errs = multierr.Append(errs, w.writeClustersPNG(stage, pc, group))
	return errs
}

func (w *Writer) writeCloudCSV(name string, pc *cloud.PointCloud) error {
	return fsutil.WriteFileWith(w.fs, w.path(name), func(out io.Writer) error {
		cw := csv.NewWriter(out)
		cw.Write([]string{"x", "y", "z", "index"})
		for i := 0; i < pc.Len(); i++ {
			p := pc.At(i)
			cw.Write([]string{formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z), strconv.Itoa(p.Index)})
		}
		cw.Flush()
		return cw.Error()
	})
}

// writeGnuplotScript emits a script that overlays the raw and smoothed CSV
// dumps. Ordered clouds are drawn as connected lines.
func writeGnuplotScript(out io.Writer, is2D, ordered bool) error {
	style := "points pt 7 ps 0.4"
	if ordered {
		style = "linespoints pt 7 ps 0.4"
	}
	plotCmd, cols := "splot", "1:2:3"
	if is2D {
		plotCmd, cols = "plot", "1:2"
	}
	_, err := fmt.Fprintf(out, `set datafile separator ","
set key autotitle columnhead
set title "raw vs smoothed"
%s '%s' using %s with %s lc rgb "gray" title "raw", \
     '%s' using %s with %s lc rgb "red" title "smoothed"
pause mouse close
`, plotCmd, RawCSVFile, cols, style, SmoothedCSVFile, cols, style)
	return err
}

func (w *Writer) writeSmoothingPNG(raw, smoothed *cloud.PointCloud) error {
	p := plot.New()
	p.Title.Text = "Raw vs smoothed (x-y projection)"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	for _, series := range []struct {
		name  string
		pc    *cloud.PointCloud
		color color.Color
	}{{"raw", raw, palette.Noise}, {"smoothed", smoothed, palette.Highlight}} {
		s, err := plotter.NewScatter(xyProjection(series.pc, nil))
		if err != nil {
			return fmt.Errorf("%s scatter: %w", series.name, err)
		}
		s.GlyphStyle.Color = series.color
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add(series.name, s)
	}
	p.Legend.Top = true
	return w.savePNG(p, SmoothedPNGFile)
}

func (w *Writer) writeClustersPNG(stage string, pc *cloud.PointCloud, group triplclust.ClusterGroup) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Clusters after %s (%d)", stage, len(group))
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	colors := palette.Generate(len(group))
	for id, c := range group {
		if len(c.Points) == 0 {
			continue
		}
		s, err := plotter.NewScatter(xyProjection(pc, c.Points))
		if err != nil {
			return fmt.Errorf("cluster %d scatter: %w", id, err)
		}
		s.GlyphStyle.Color = colors[id]
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
	}
	return w.savePNG(p, fmt.Sprintf(clustersPNGFormat, fsutil.SanitizeFilename(stage)))
}

func (w *Writer) savePNG(p *plot.Plot, name string) error {
	wt, err := p.WriterTo(w.Width, w.Height, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return fsutil.WriteFileWith(w.fs, w.path(name), func(out io.Writer) error {
		_, err := wt.WriteTo(out)
		return err
	})
}

// xyProjection returns the x-y coordinates of the given points, or of the
// whole cloud when indices is nil.
func xyProjection(pc *cloud.PointCloud, indices []int) plotter.XYs {
	if indices == nil {
		pts := make(plotter.XYs, pc.Len())
		for i := range pts {
			p := pc.At(i)
			pts[i] = plotter.XY{X: p.X, Y: p.Y}
		}
		return pts
	}
	pts := make(plotter.XYs, len(indices))
	for k, i := range indices {
		p := pc.At(i)
		pts[k] = plotter.XY{X: p.X, Y: p.Y}
	}
	return pts
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
