package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/RyanBlaney/sonido-spectrogram/spectrogram"
)

type writeFunc func(w io.Writer, source string, s *spectrogram.Spectrogram) error

func writerFor(format string) (writeFunc, error) {
	switch format {
	case "json":
		return writeJSON, nil
	case "csv":
		return writeCSV, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// jsonResult tags a spectrogram with the file it came from.
type jsonResult struct {
	Source string `json:"source"`
	*spectrogram.Spectrogram
}

func writeJSON(w io.Writer, source string, s *spectrogram.Spectrogram) error {
	return json.NewEncoder(w).Encode(jsonResult{Source: source, Spectrogram: s})
}

// writeCSV writes a header of frame times followed by one row per
// frequency, its first column the frequency in Hz.
func writeCSV(w io.Writer, _ string, s *spectrogram.Spectrogram) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(s.Times)+1)
	header = append(header, "frequency_hz")
	for _, t := range s.Times {
		header = append(header, formatFloat(t))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(s.Times)+1)
	for f, row := range s.Matrix {
		record[0] = formatFloat(s.Frequencies[f])
		for t, v := range row {
			record[t+1] = formatFloat(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
