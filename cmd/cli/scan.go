package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/gabrier01/tcpscan01/internal/config"
	"github.com/gabrier01/tcpscan01/internal/logging"
	"github.com/gabrier01/tcpscan01/internal/metrics"
	"github.com/gabrier01/tcpscan01/internal/resolve"
	"github.com/gabrier01/tcpscan01/internal/scanning"
)

// runScan performs one scan, writing results to stdout and diagnostics to
// stderr.
func runScan(ctx context.Context, cfg config.Config, summary bool, stdout, stderr io.Writer) error {
	logger, err := newLogger(cfg.Logging, stderr)
	if err != nil {
		return err
	}

	m := metrics.NewPrometheusMetrics()
	result, err := newScanner(cfg, stdout, logger, m).Run(ctx)
	if werr := writeMetrics(cfg, m, logger); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return err
	}

	if !summary {
		return nil
	}
	// JSON lines on stdout stay parseable.
	out := stdout
	if cfg.JSON {
		out = stderr
	}
	return renderSummary(out, result)
}

// newLogger creates the diagnostic logger. The default output is the
// command's stderr.
func newLogger(cfg logging.Config, stderr io.Writer) (*logging.Logger, error) {
	var logger *logging.Logger
	switch cfg.Output {
	case "", "stderr":
		logger = logging.NewWithWriter(cfg, stderr)
	default:
		var err error
		logger, err = logging.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	}
	logging.SetDefault(logger)
	return logger, nil
}

// newScanner wires the resolver, reporter and recorder chosen by cfg.
func newScanner(cfg config.Config, stdout io.Writer, logger *logging.Logger, recorder metrics.Recorder) *scanning.Scanner {
	return scanning.NewScanner(cfg, newResolver(cfg, logger), newReporter(cfg, stdout),
		scanning.WithLogger(logger),
		scanning.WithRecorder(recorder),
	)
}

func newResolver(cfg config.Config, logger *logging.Logger) scanning.Resolver {
	if cfg.DNSServer != "" {
		return resolve.NewDNS(cfg.DNSServer, resolve.DefaultDNSTimeout).WithLogger(logger)
	}
	return resolve.NewSystem().WithLogger(logger)
}

func newReporter(cfg config.Config, w io.Writer) scanning.Reporter {
	if cfg.JSON {
		return scanning.NewJSONReporter(w)
	}
	return scanning.NewTextReporter(w)
}

// writeMetrics exports the registry for the node_exporter textfile
// collector when a metrics file is configured.
func writeMetrics(cfg config.Config, m *metrics.PrometheusMetrics, logger *logging.Logger) error {
	if cfg.Metrics.File == "" {
		return nil
	}
	if err := m.WriteToTextfile(cfg.Metrics.File); err != nil {
		logger.Error("Failed to write metrics file", "path", cfg.Metrics.File, "error", err)
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	logger.Debug("Metrics written", "path", cfg.Metrics.File)
	return nil
}

// renderSummary prints the counters of a finished scan as a table.
func renderSummary(w io.Writer, s *scanning.Summary) error {
	table := tablewriter.NewWriter(w)
	table.Header("Scan", "Host", "Addresses", "Probes", "Open", "Closed", "Workers", "Duration")

	scanID := s.ScanID
	if len(scanID) > 8 {
		scanID = scanID[:8]
	}
	if err := table.Append([]string{
		scanID,
		s.Host,
		strconv.Itoa(s.Addresses),
		strconv.Itoa(s.Probes),
		strconv.FormatInt(s.Open, 10),
		strconv.FormatInt(s.Closed, 10),
		fmt.Sprintf("%d/%d", s.PeakWorkers, s.Workers),
		s.Duration.Round(time.Millisecond).String(),
	}); err != nil {
		return err
	}
	return table.Render()
}
