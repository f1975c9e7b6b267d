package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes s with a header row of "time" followed by its columns.
func WriteCSV(w io.Writer, s *Series) error {
	cw := csv.NewWriter(w)

	header := append([]string{"time"}, s.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, t := range s.Times {
		row[0] = formatFloat(t)
		for j, v := range s.Rows[i] {
			row[j+1] = formatFloat(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a series written by WriteCSV.
func ReadCSV(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return &Series{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) == 0 || header[0] != "time" {
		return nil, fmt.Errorf("storage: trace header must start with time, got %v", header)
	}

	s := &Series{Columns: header[1:]}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("storage: trace line %d: %w", line, err)
		}
		row := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			if row[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("storage: trace line %d column %s: %w", line, header[j+1], err)
			}
		}
		s.Times = append(s.Times, t)
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
