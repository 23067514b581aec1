package observability

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// WriteMetrics writes every family collected by gatherer in the prometheus
// text format. A nil gatherer uses the default registry.
func WriteMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	buf := bufio.NewWriter(w)
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(buf, family); err != nil {
			return fmt.Errorf("encode metric %s: %w", family.GetName(), err)
		}
	}
	return buf.Flush()
}

// WriteMetricsFile replaces path with the current metrics snapshot.
func WriteMetricsFile(path string, gatherer prometheus.Gatherer) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := WriteMetrics(f, gatherer); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
