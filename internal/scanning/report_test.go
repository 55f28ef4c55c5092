package scanning

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTarget(addr string, port uint16) Target {
	return NewCandidate(netip.MustParseAddr(addr)).WithPort(port)
}

func TestTextReporterResult(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{
			name:   "open",
			result: Result{Target: testTarget("192.0.2.1", 80), Outcome: OutcomeOpen},
			want:   "[OPEN] | 192.0.2.1 80\n",
		},
		{
			name:   "open with banner",
			result: Result{Target: testTarget("192.0.2.1", 22), Outcome: OutcomeOpen, Banner: "SSH-2.0-Test"},
			want:   "[OPEN] | SSH-2.0-Test | 192.0.2.1 22\n",
		},
		{
			name:   "closed",
			result: Result{Target: testTarget("2001:db8::1", 443), Outcome: OutcomeClosed},
			want:   "[CLOSED] | 2001:db8::1 443\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewTextReporter(&buf).Result(tt.result)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestTextReporterVerboseLayout(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextReporter(&buf)

	r.Start("scan-1", "scanme.example")
	r.Header(Plan{
		Host:      "scanme.example",
		Addresses: []Candidate{NewCandidate(netip.MustParseAddr("192.0.2.1"))},
		Threads:   5,
		Probes:    2,
		Timeout:   100 * time.Millisecond,
		IPv6:      true,
		Banner:    true,
	})
	r.Try(testTarget("192.0.2.1", 80))
	r.Try(testTarget("192.0.2.1", 443))
	r.Result(Result{Target: testTarget("192.0.2.1", 443), Outcome: OutcomeClosed})
	r.Result(Result{Target: testTarget("192.0.2.1", 80), Outcome: OutcomeOpen})

	want := strings.Join([]string{
		"Hostname: scanme.example",
		"IPs resolved: 1",
		"Using threads: 5",
		"Sockets to be tested: 2",
		"Connection timeout: 100ms",
		"IPv6 enabled",
		"Banner grabbing enabled",
		"",
		"Will try:",
		"[TRY] 192.0.2.1 80",
		"[TRY] 192.0.2.1 443",
		"",
		"[CLOSED] | 192.0.2.1 443",
		"[OPEN] | 192.0.2.1 80",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestTextReporterHeaderOmitsDisabledOptions(t *testing.T) {
	var buf bytes.Buffer
	NewTextReporter(&buf).Header(Plan{Host: "h", Threads: 1, Timeout: time.Second})

	out := buf.String()
	assert.NotContains(t, out, "Hostname:")
	assert.Contains(t, out, "Connection timeout: 1000ms\n")
	assert.NotContains(t, out, "IPv6 enabled")
	assert.NotContains(t, out, "Banner grabbing enabled")
}

func TestTextReporterConcurrentLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextReporter(&buf)

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(port uint16) {
			defer wg.Done()
			r.Result(Result{Target: testTarget("192.0.2.1", port), Outcome: OutcomeOpen, Banner: "banner"})
		}(uint16(i + 1))
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, n)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "[OPEN] | banner | 192.0.2.1 "), line)
	}
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(&buf)

	r.Start("scan-1", "scanme.example")
	r.Header(Plan{
		ScanID:    "scan-1",
		Host:      "scanme.example",
		Addresses: []Candidate{NewCandidate(netip.MustParseAddr("192.0.2.1"))},
		Threads:   2,
		Probes:    1,
		Timeout:   250 * time.Millisecond,
	})
	r.Try(testTarget("192.0.2.1", 22))
	r.Result(Result{
		Target:   testTarget("192.0.2.1", 22),
		Outcome:  OutcomeOpen,
		Banner:   "SSH-2.0-Test",
		Duration: 3 * time.Millisecond,
	})

	var events []map[string]any
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 4)

	assert.Equal(t, "start", events[0]["event"])
	assert.Equal(t, "scan-1", events[0]["scan_id"])
	assert.Equal(t, "scanme.example", events[0]["host"])

	assert.Equal(t, "header", events[1]["event"])
	assert.Equal(t, "scan-1", events[1]["scan_id"])
	assert.Equal(t, []any{"192.0.2.1"}, events[1]["addresses"])
	assert.Equal(t, float64(250), events[1]["timeout_ms"])

	assert.Equal(t, "try", events[2]["event"])
	assert.Equal(t, "ipv4", events[2]["family"])

	assert.Equal(t, "result", events[3]["event"])
	assert.Equal(t, "open", events[3]["status"])
	assert.Equal(t, "192.0.2.1", events[3]["address"])
	assert.Equal(t, float64(22), events[3]["port"])
	assert.Equal(t, "SSH-2.0-Test", events[3]["banner"])
}

func TestJSONReporterClosedOmitsBanner(t *testing.T) {
	var buf bytes.Buffer
	NewJSONReporter(&buf).Result(Result{Target: testTarget("192.0.2.1", 443), Outcome: OutcomeClosed})

	var ev map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ev))
	assert.Equal(t, "closed", ev["status"])
	_, hasBanner := ev["banner"]
	assert.False(t, hasBanner)
}
