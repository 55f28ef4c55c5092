package scanning

import (
	"net"
	"strings"
	"time"
)

// maxBannerSize bounds the single read performed after a successful connect.
const maxBannerSize = 1024

// readBanner performs one bounded read on conn. Errors, timeouts and empty
// reads all yield an empty banner.
func readBanner(conn net.Conn, timeout time.Duration) string {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return ""
	}

	buf := make([]byte, maxBannerSize)
	n, _ := conn.Read(buf)
	if n <= 0 {
		return ""
	}
	return trimBanner(buf[:n])
}

// trimBanner drops trailing line terminators.
func trimBanner(b []byte) string {
	return strings.TrimRight(string(b), "\r\n")
}
