// Package export writes run artefacts: plain-text data files, JSON results
// and PNG charts.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/snow-ghost/wolfpack/problems/wsn"
)

// File names of the WSN data set.
const (
	NodesFile   = "data_nodes.txt"
	HeadsFile   = "data_chs.txt"
	HistoryFile = "data_history.txt"
)

// WritePoints writes one "x y" line per point with four decimals.
func WritePoints(w io.Writer, points []wsn.Point) error {
	bw := bufio.NewWriter(w)
	for _, p := range points {
		if _, err := fmt.Fprintf(bw, "%.4f %.4f\n", p.X, p.Y); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteHistory writes one "generation fitness" line per entry, counting
// generations from 1.
func WriteHistory(w io.Writer, history []float64) error {
	bw := bufio.NewWriter(w)
	for i, v := range history {
		if _, err := fmt.Fprintf(bw, "%d %.4f\n", i+1, v); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadHistory parses the WriteHistory format.
func ReadHistory(r io.Reader) ([]float64, error) {
	var history []float64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("history line %d: want 2 fields, got %d", line, len(fields))
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("history line %d: %w", line, err)
		}
		history = append(history, v)
	}
	return history, sc.Err()
}

// WriteWSN writes the node, cluster-head and history files into dir.
func WriteWSN(dir string, nodes, heads []wsn.Point, history []float64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{NodesFile, func(w io.Writer) error { return WritePoints(w, nodes) }},
		{HeadsFile, func(w io.Writer) error { return WritePoints(w, heads) }},
		{HistoryFile, func(w io.Writer) error { return WriteHistory(w, history) }},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), f.write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
