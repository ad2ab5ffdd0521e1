package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes all registered metrics to path in the Prometheus
// text exposition format, for pickup by the node exporter's textfile
// collector. The file is replaced atomically.
//
// taxsim runs as a batch command rather than a server, so metrics are
// exported once at exit instead of being scraped:
//
//	defer collector.WriteTextfile(cfg.Telemetry.Metrics.TextfilePath)
func (c *Collector) WriteTextfile(path string) error {
	if !c.config.Enabled || path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

