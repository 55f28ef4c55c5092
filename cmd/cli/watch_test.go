package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrier01/tcpscan01/internal/config"
	"github.com/gabrier01/tcpscan01/internal/errors"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func watchConfig(t *testing.T, port int) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Ports = []uint16{uint16(port)}
	cfg.Timeout = time.Second
	cfg.Watch.Schedule = "@every 1h"
	require.NoError(t, cfg.Validate())
	return cfg
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestWatchRunsImmediately(t *testing.T) {
	open, _ := loopbackPorts(t)
	cfg := watchConfig(t, open)

	var stdout, stderr syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, cfg, &stdout, &stderr) }()

	want := fmt.Sprintf("[OPEN] | 127.0.0.1 %d\n", open)
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), want)
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Equal(t, 1, strings.Count(stdout.String(), want))
}

func TestWatchServesStatus(t *testing.T) {
	open, _ := loopbackPorts(t)
	cfg := watchConfig(t, open)
	cfg.Watch.ListenAddr = freeAddr(t)

	var stdout, stderr syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, cfg, &stdout, &stderr) }()

	url := "http://" + cfg.Watch.ListenAddr + "/status"
	var body struct {
		Jobs []struct {
			Schedule string `json:"schedule"`
			Runs     int    `json:"runs"`
			Last     *struct {
				Open int64 `json:"open"`
			} `json:"last_summary"`
		} `json:"jobs"`
	}
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return false
		}
		return len(body.Jobs) == 1 && body.Jobs[0].Runs == 1
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, "@every 1h", body.Jobs[0].Schedule)
	require.NotNil(t, body.Jobs[0].Last)
	assert.Equal(t, int64(1), body.Jobs[0].Last.Open)

	resp, err := http.Get("http://" + cfg.Watch.ListenAddr + "/metrics")
	require.NoError(t, err)
	metrics, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `tcpscan_probe_total{outcome="open"} 1`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchRejectsInvalidSchedule(t *testing.T) {
	res := runCLI(t, "watch", "-H", "127.0.0.1", "-p", "80", "--schedule", "every tuesday")

	assert.Equal(t, errors.ExitConfig, res.code)
	assert.Contains(t, res.stderr, "Usage:")
	assert.Contains(t, res.stderr, "watch")
}
