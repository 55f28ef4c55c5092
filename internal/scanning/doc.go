// Package scanning provides the TCP connect scan engine for tcpscan.
//
// A scan resolves one host name to a list of addresses, queues one Target
// for every address and port pair, and drains that queue with a fixed number
// of workers. Each worker probes one Target at a time and reports the result
// as soon as it is known.
//
// # Main Components
//
//   - Candidate and Target: immutable resolved addresses and probe targets.
//   - Prober: one connect attempt bounded by the configured timeout, with an
//     optional single banner read.
//   - Scanner: builds the work queue, runs the worker pool and returns a
//     Summary once every worker has finished.
//   - Reporter: receives events. TextReporter writes the line format,
//     JSONReporter writes one JSON object per line.
//
// # Usage
//
//	cfg := config.Default()
//	cfg.Host = "scanme.example"
//	cfg.Ports = []uint16{22, 80, 443}
//
//	scanner := scanning.NewScanner(cfg, resolve.NewSystem(),
//		scanning.NewTextReporter(os.Stdout))
//	summary, err := scanner.Run(ctx)
//	if err != nil {
//		return err
//	}
//	fmt.Printf("%d open\n", summary.Open)
//
// # Outcomes
//
// A probe is open when the TCP handshake completes within the timeout and
// closed otherwise. Refused, timed out, reset and unreachable targets are
// not told apart. Closed results reach the Reporter only in verbose mode.
//
// # Errors
//
// Per-target failures are never errors. Run returns an error only for
// resolution failures and for local resource exhaustion (file descriptors,
// buffers or memory), which stop the remaining workers.
package scanning

//go:generate mockgen -source=scanner.go -destination=mocks/resolver.go -package=mocks
//go:generate mockgen -source=report.go -destination=mocks/reporter.go -package=mocks
