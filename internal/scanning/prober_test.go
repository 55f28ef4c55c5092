package scanning

import (
	"context"
	"net"
	"net/netip"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrier01/tcpscan01/internal/errors"
)

const testTimeout = 200 * time.Millisecond

// listen starts a loopback listener that hands each accepted connection to
// handle. It returns the target for the listener.
func listen(t *testing.T, handle func(net.Conn)) Target {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				handle(conn)
			}()
		}
	}()

	return targetFor(t, ln.Addr())
}

// closedTarget returns a loopback target that nothing listens on.
func closedTarget(t *testing.T) Target {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	target := targetFor(t, ln.Addr())
	require.NoError(t, ln.Close())
	return target
}

func targetFor(t *testing.T, addr net.Addr) Target {
	t.Helper()
	ap, err := netip.ParseAddrPort(addr.String())
	require.NoError(t, err)
	return NewCandidate(ap.Addr()).WithPort(ap.Port())
}

// silent holds the connection open without writing.
func silent(conn net.Conn) {
	buf := make([]byte, 1)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _ = conn.Read(buf)
}

func TestProbeOpen(t *testing.T) {
	target := listen(t, silent)
	prober := NewProber(ProberConfig{Timeout: testTimeout})

	for i := 0; i < 2; i++ {
		result, err := prober.Probe(context.Background(), target)
		require.NoError(t, err)
		assert.Equal(t, OutcomeOpen, result.Outcome)
		assert.True(t, result.Open())
		assert.Empty(t, result.Banner)
		assert.Equal(t, target, result.Target)
	}
}

func TestProbeClosed(t *testing.T) {
	target := closedTarget(t)
	prober := NewProber(ProberConfig{Timeout: testTimeout, Banner: true})

	for i := 0; i < 2; i++ {
		result, err := prober.Probe(context.Background(), target)
		require.NoError(t, err)
		assert.Equal(t, OutcomeClosed, result.Outcome)
		assert.Empty(t, result.Banner)
	}
}

func TestProbeBanner(t *testing.T) {
	target := listen(t, func(conn net.Conn) {
		_, _ = conn.Write([]byte("SSH-2.0-Test\r\n"))
		silent(conn)
	})
	prober := NewProber(ProberConfig{Timeout: testTimeout, Banner: true})

	result, err := prober.Probe(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOpen, result.Outcome)
	assert.Equal(t, "SSH-2.0-Test", result.Banner)
}

func TestProbeBannerDisabled(t *testing.T) {
	target := listen(t, func(conn net.Conn) {
		_, _ = conn.Write([]byte("220 ready\r\n"))
		silent(conn)
	})
	prober := NewProber(ProberConfig{Timeout: testTimeout})

	result, err := prober.Probe(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOpen, result.Outcome)
	assert.Empty(t, result.Banner)
}

func TestProbeSilentServiceHasNoBanner(t *testing.T) {
	target := listen(t, silent)
	timeout := 50 * time.Millisecond
	prober := NewProber(ProberConfig{Timeout: timeout, Banner: true})

	start := time.Now()
	result, err := prober.Probe(context.Background(), target)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, OutcomeOpen, result.Outcome)
	assert.Empty(t, result.Banner)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+time.Second)
}

func TestProbeServerClosesWithoutData(t *testing.T) {
	target := listen(t, func(net.Conn) {})
	prober := NewProber(ProberConfig{Timeout: testTimeout, Banner: true})

	result, err := prober.Probe(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOpen, result.Outcome)
	assert.Empty(t, result.Banner)
}

// fakeDialer fails every dial with err.
type fakeDialer struct {
	err error
}

func (d fakeDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	return nil, d.err
}

func TestProbeResourceExhaustion(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.EMFILE, syscall.ENFILE, syscall.ENOBUFS, syscall.ENOMEM} {
		t.Run(errno.Error(), func(t *testing.T) {
			dialErr := &net.OpError{Op: "dial", Net: "tcp4", Err: os.NewSyscallError("socket", errno)}
			prober := NewProberWithDialer(ProberConfig{Timeout: testTimeout}, fakeDialer{err: dialErr})

			_, err := prober.Probe(context.Background(), closedTarget(t))
			require.Error(t, err)
			assert.True(t, errors.IsResource(err))
			assert.True(t, errors.IsCode(err, errors.CodeSocketExhaustion))
			assert.ErrorIs(t, err, errno)
		})
	}
}

func TestProbeRefusedIsNotAnError(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp4", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	prober := NewProberWithDialer(ProberConfig{Timeout: testTimeout}, fakeDialer{err: dialErr})

	result, err := prober.Probe(context.Background(), closedTarget(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeClosed, result.Outcome)
}

// stallingDialer blocks until ctx is done, like a host that drops SYNs.
type stallingDialer struct{}

func (stallingDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Second):
		return nil, syscall.ETIMEDOUT
	}
}

func TestProbeConnectTimeout(t *testing.T) {
	timeout := 50 * time.Millisecond
	prober := NewProberWithDialer(ProberConfig{Timeout: timeout}, stallingDialer{})

	start := time.Now()
	result, err := prober.Probe(context.Background(), closedTarget(t))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, OutcomeClosed, result.Outcome)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+time.Second)
}

func TestProbeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := NewProberWithDialer(ProberConfig{Timeout: testTimeout}, fakeDialer{err: context.Canceled})
	_, err := prober.Probe(ctx, closedTarget(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestTrimBanner(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SSH-2.0-OpenSSH\r\n", "SSH-2.0-OpenSSH"},
		{"220 ready\n", "220 ready"},
		{"no terminator", "no terminator"},
		{"line\r\n\r\n", "line"},
		{"\r\n", ""},
		{"multi\r\nline\r\n", "multi\r\nline"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, trimBanner([]byte(tt.in)))
	}
}
