// Package pcio reads point clouds from text files and writes clustering
// results back out.
//
// The input format is one point per line with two or three coordinates
// separated by whitespace, commas or a chosen delimiter. Blank lines and
// lines starting with '#' are ignored. A file with two columns is read as a
// 2D cloud.
package pcio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/banshee-data/triplclust/internal/cloud"
	"github.com/banshee-data/triplclust/internal/fsutil"
)

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// ReadOptions controls parsing.
type ReadOptions struct {
	Delimiter rune // 0 splits on whitespace and commas
	Skip      int  // data lines to skip before reading, e.g. a header
	Ordered   bool // mark the cloud as chronologically ordered
}

// Load reads the named file from fsys.
func Load(fsys fsutil.FileSystem, name string, opts ReadOptions) (*cloud.PointCloud, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open point cloud: %w", err)
	}
	defer f.Close()

	pc, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return pc, nil
}

// Read parses a point cloud from r. Every point's Index is its position in
// the input.
func Read(r io.Reader, opts ReadOptions) (*cloud.PointCloud, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		pc      *cloud.PointCloud
		columns int
		skipped int
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if skipped < opts.Skip {
			skipped++
			continue
		}

		fields := splitFields(line, opts.Delimiter)
		if columns == 0 {
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: need at least 2 coordinates, got %d", lineNo, len(fields))
			}
			columns = min(len(fields), 3)
			pc = cloud.New(columns == 2, opts.Ordered)
		}
		if len(fields) < columns {
			return nil, fmt.Errorf("line %d: expected %d coordinates, got %d", lineNo, columns, len(fields))
		}

		var xyz [3]float64
		for c := 0; c < columns; c++ {
			v, err := strconv.ParseFloat(fields[c], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", lineNo, c+1, err)
			}
			xyz[c] = v
		}
		pc.Append(cloud.Point{X: xyz[0], Y: xyz[1], Z: xyz[2], Index: pc.Len()})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read point cloud: %w", err)
	}
	if pc == nil {
		pc = cloud.New(false, opts.Ordered)
	}
	return pc, nil
}

func splitFields(line string, delim rune) []string {
	if delim == 0 {
		return strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ';' || unicode.IsSpace(r)
		})
	}
	parts := strings.Split(line, string(delim))
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
