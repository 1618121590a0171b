package store

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// FormatValue renders v with six significant digits, writing non-finite
// values as nan, inf and -inf.
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// FormatRow writes one tab separated line.
func FormatRow(w io.Writer, row []float64) error {
	var b strings.Builder
	for i, v := range row {
		if i != 0 {
			b.WriteByte('\t')
		}
		b.WriteString(FormatValue(v))
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func writeRows(f *os.File, rows [][]float64) error {
	w := bufio.NewWriter(f)
	for _, row := range rows {
		if err := FormatRow(w, row); err != nil {
			return err
		}
	}
	return w.Flush()
}

// WriteMatrix writes rows to path, replacing any existing file. There is no
// header; axes must be rebuilt from the sweep parameters.
func WriteMatrix(path string, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeRows(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// AppendRows adds rows at the end of path, creating it if needed.
func AppendRows(path string, rows [][]float64) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if err := writeRows(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return f.Close()
}

// ReadMatrix parses a file written by WriteMatrix or AppendRows.
func ReadMatrix(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseMatrix(f)
}

func ParseMatrix(r io.Reader) ([][]float64, error) {
	rows := make([][]float64, 0)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		row := make([]float64, len(fields))
		for i, s := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, i+1, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
