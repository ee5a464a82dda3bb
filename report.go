package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/codesenberg/pulse/internal"
)

var csvHeader = []string{
	"API", "Threads", "Connections", "Latency (ms)", "Requests/sec",
}

// csvReport is the per-run CSV file, one row per phase.
type csvReport struct {
	path string
}

// newCSVReport creates the directory if needed and truncates
// {dir}/{name}.csv down to the header line.
func newCSVReport(dir, name string) (*csvReport, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	r := &csvReport{path: filepath.Join(dir, name+".csv")}
	f, err := os.Create(r.path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, err
	}
	return r, f.Close()
}

func (r *csvReport) append(info internal.PhaseInfo) error {
	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(reportRow(info)); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func reportRow(info internal.PhaseInfo) []string {
	avg := int64(0)
	if ls := info.Result.LatencyStats(); ls != nil {
		avg = int64(ls.Avg / time.Millisecond)
	}
	conns := strconv.FormatUint(info.Spec.NumberOfConnections, decBase)
	return []string{
		info.Spec.Target,
		conns,
		conns,
		strconv.FormatInt(avg, decBase),
		fmt.Sprintf("%.2f", info.RequestsPerSecond()),
	}
}
