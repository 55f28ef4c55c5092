package scanning

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Plan describes a scan once its host has been resolved.
type Plan struct {
	ScanID    string
	Host      string
	Addresses []Candidate
	Threads   int
	Probes    int
	Timeout   time.Duration
	IPv6      bool
	Banner    bool
}

// Reporter receives scan events. Implementations must be safe for concurrent
// use: Result is called from every worker.
type Reporter interface {
	// Start is called once, before the host is resolved, when verbose
	// output is on.
	Start(scanID, host string)
	// Header is called once the host is resolved, before any Try, when
	// verbose output is on.
	Header(plan Plan)
	// Try is called for each target as it is queued, when verbose output is on.
	Try(target Target)
	// Result is called by the worker that probed the target.
	Result(result Result)
}

// TextReporter writes the human readable line format.
type TextReporter struct {
	mu     sync.Mutex
	w      io.Writer
	trying bool
}

// NewTextReporter creates a reporter writing to w.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

// Start writes the Hostname line.
func (r *TextReporter) Start(_, host string) {
	r.write("Hostname: " + host + "\n")
}

// Header writes the scan summary lines.
func (r *TextReporter) Header(plan Plan) {
	var b strings.Builder
	fmt.Fprintf(&b, "IPs resolved: %d\n", len(plan.Addresses))
	fmt.Fprintf(&b, "Using threads: %d\n", plan.Threads)
	fmt.Fprintf(&b, "Sockets to be tested: %d\n", plan.Probes)
	fmt.Fprintf(&b, "Connection timeout: %dms\n", plan.Timeout.Milliseconds())
	if plan.IPv6 {
		b.WriteString("IPv6 enabled\n")
	}
	if plan.Banner {
		b.WriteString("Banner grabbing enabled\n")
	}

	r.write(b.String())
}

// Try writes a [TRY] line. The first one is preceded by a section heading.
func (r *TextReporter) Try(target Target) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.trying {
		r.trying = true
		_, _ = io.WriteString(r.w, "\nWill try:\n")
	}
	_, _ = io.WriteString(r.w, "[TRY] "+endpoint(target)+"\n")
}

// Result writes an [OPEN] or [CLOSED] line.
func (r *TextReporter) Result(result Result) {
	var line string
	switch {
	case !result.Open():
		line = "[CLOSED] | " + endpoint(result.Target)
	case result.Banner != "":
		line = "[OPEN] | " + result.Banner + " | " + endpoint(result.Target)
	default:
		line = "[OPEN] | " + endpoint(result.Target)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.trying {
		r.trying = false
		_, _ = io.WriteString(r.w, "\n")
	}
	_, _ = io.WriteString(r.w, line+"\n")
}

func (r *TextReporter) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.w, s)
}

// endpoint formats a target as "<addr> <port>".
func endpoint(t Target) string {
	return fmt.Sprintf("%s %d", t.Addr(), t.Port())
}

// JSONReporter writes one JSON object per line.
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONReporter creates a reporter writing JSON lines to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

type jsonStart struct {
	Event  string `json:"event"`
	ScanID string `json:"scan_id,omitempty"`
	Host   string `json:"host"`
}

type jsonHeader struct {
	Event     string   `json:"event"`
	ScanID    string   `json:"scan_id,omitempty"`
	Host      string   `json:"host"`
	Addresses []string `json:"addresses"`
	Threads   int      `json:"threads"`
	Probes    int      `json:"probes"`
	TimeoutMS int64    `json:"timeout_ms"`
	IPv6      bool     `json:"ipv6"`
	Banner    bool     `json:"banner"`
}

type jsonTarget struct {
	Event   string `json:"event"`
	Address string `json:"address"`
	Port    uint16 `json:"port"`
	Family  string `json:"family"`
}

type jsonResult struct {
	Event      string `json:"event"`
	Status     string `json:"status"`
	Address    string `json:"address"`
	Port       uint16 `json:"port"`
	Banner     string `json:"banner,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Start implements Reporter.
func (r *JSONReporter) Start(scanID, host string) {
	r.encode(jsonStart{Event: "start", ScanID: scanID, Host: host})
}

// Header implements Reporter.
func (r *JSONReporter) Header(plan Plan) {
	addrs := make([]string, len(plan.Addresses))
	for i, c := range plan.Addresses {
		addrs[i] = c.String()
	}
	r.encode(jsonHeader{
		Event:     "header",
		ScanID:    plan.ScanID,
		Host:      plan.Host,
		Addresses: addrs,
		Threads:   plan.Threads,
		Probes:    plan.Probes,
		TimeoutMS: plan.Timeout.Milliseconds(),
		IPv6:      plan.IPv6,
		Banner:    plan.Banner,
	})
}

// Try implements Reporter.
func (r *JSONReporter) Try(target Target) {
	r.encode(jsonTarget{
		Event:   "try",
		Address: target.Addr().String(),
		Port:    target.Port(),
		Family:  target.Family.String(),
	})
}

// Result implements Reporter.
func (r *JSONReporter) Result(result Result) {
	r.encode(jsonResult{
		Event:      "result",
		Status:     string(result.Outcome),
		Address:    result.Target.Addr().String(),
		Port:       result.Target.Port(),
		Banner:     result.Banner,
		DurationMS: result.Duration.Milliseconds(),
	})
}

func (r *JSONReporter) encode(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(v)
}
