package pcio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/triplclust/internal/cloud"
	"github.com/banshee-data/triplclust/internal/fsutil"
)

// NoiseLabel is written for points that belong to no cluster.
const NoiseLabel = "-1"

// Format selects the output encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatGnuplot Format = "gnuplot"
)

// ParseFormat returns the format named s.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatGnuplot:
		return FormatGnuplot, nil
	}
	return "", fmt.Errorf("unknown output format %q (want csv or gnuplot)", s)
}

// Save writes labels to the named file in the given format.
func Save(fsys fsutil.FileSystem, name string, labels *cloud.ClusterPointCloud, format Format) error {
	return fsutil.WriteFileWith(fsys, name, func(w io.Writer) error {
		return Write(w, labels, format)
	})
}

// Write encodes labels in the given format.
func Write(w io.Writer, labels *cloud.ClusterPointCloud, format Format) error {
	switch format {
	case FormatGnuplot:
		return WriteGnuplot(w, labels)
	case FormatCSV, "":
		return WriteCSV(w, labels)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// WriteCSV writes one row per point: the coordinates and the point's
// cluster ids joined by ';', or -1 for noise.
func WriteCSV(w io.Writer, labels *cloud.ClusterPointCloud) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"# x", "y", "z", "cluster_ids"}); err != nil {
		return err
	}
	for i := 0; i < labels.Len(); i++ {
		p := labels.Cloud.At(i)
		if err := cw.Write([]string{
			formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z),
			JoinIDs(labels.Clusters(i)),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// JoinIDs renders a membership list. An empty list, or one holding only the
// noise sentinel, is noise.
func JoinIDs(ids []cloud.ClusterID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if !cloud.IsNoiseID(id) {
			parts = append(parts, strconv.Itoa(int(id)))
		}
	}
	if len(parts) == 0 {
		return NoiseLabel
	}
	return strings.Join(parts, ";")
}

// WriteGnuplot writes a self-contained gnuplot script with inline data: one
// data block per cluster and a final grey block for noise. A point in
// several clusters appears in each of their blocks.
func WriteGnuplot(w io.Writer, labels *cloud.ClusterPointCloud) error {
	plotCmd := "splot"
	if labels.Cloud != nil && labels.Cloud.Is2D() {
		plotCmd = "plot"
	}
	ids := labels.ClusterIDs()
	noise := labels.NoiseCount()

	var series []string
	for _, id := range ids {
		series = append(series, fmt.Sprintf("'-' with points pt 7 ps 0.6 lc %d title 'curve %d'", int(id)+1, id))
	}
	if noise > 0 {
		series = append(series, "'-' with points pt 7 ps 0.4 lc rgb 'gray' title 'noise'")
	}
	if len(series) == 0 {
		_, err := fmt.Fprintln(w, "# empty point cloud")
		return err
	}

	bw := &errWriter{w: w}
	bw.printf("set title '%d curves, %d noise points'\n", len(ids), noise)
	bw.printf("%s %s\n", plotCmd, strings.Join(series, ", \\\n  "))
	writePoint := func(i int) {
		p := labels.Cloud.At(i)
		if plotCmd == "plot" {
			bw.printf("%s %s\n", formatFloat(p.X), formatFloat(p.Y))
			return
		}
		bw.printf("%s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	for _, id := range ids {
		for _, i := range labels.Members(id) {
			writePoint(i)
		}
		bw.printf("e\n")
	}
	if noise > 0 {
		for i := 0; i < labels.Len(); i++ {
			if labels.IsNoise(i) {
				writePoint(i)
			}
		}
		bw.printf("e\n")
	}
	bw.printf("pause mouse close\n")
	return bw.err
}

// errWriter remembers the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
