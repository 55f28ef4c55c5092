package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gabrier01/tcpscan01/internal/errors"
)

const (
	minPort = 1
	maxPort = 65535

	expectedPortRangeParts = 2
)

// ParsePorts parses a comma separated port list such as "21,22,80" or
// "8000-8002,22". Order and duplicates are preserved; ranges expand in
// ascending order.
func ParsePorts(list string) ([]uint16, error) {
	if strings.TrimSpace(list) == "" {
		return nil, errors.ErrConfigMissing("ports")
	}

	var ports []uint16
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, portError("empty entry in port list", list)
		}

		if strings.Contains(part, "-") {
			expanded, err := parsePortRange(part)
			if err != nil {
				return nil, err
			}
			ports = append(ports, expanded...)
			continue
		}

		port, err := parsePort(part)
		if err != nil {
			return nil, err
		}
		ports = append(ports, port)
	}

	return ports, nil
}

func parsePortRange(part string) ([]uint16, error) {
	bounds := strings.Split(part, "-")
	if len(bounds) != expectedPortRangeParts {
		return nil, portError("invalid port range", part)
	}

	start, err := parsePort(strings.TrimSpace(bounds[0]))
	if err != nil {
		return nil, err
	}
	end, err := parsePort(strings.TrimSpace(bounds[1]))
	if err != nil {
		return nil, err
	}
	if start > end {
		return nil, portError("range start greater than end", part)
	}

	ports := make([]uint16, 0, int(end-start)+1)
	for p := int(start); p <= int(end); p++ {
		ports = append(ports, uint16(p))
	}
	return ports, nil
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, portError("port is not a number", s)
	}
	if n < minPort || n > maxPort {
		return 0, portError(fmt.Sprintf("port must be in [%d..%d]", minPort, maxPort), s)
	}
	return uint16(n), nil
}

func portError(msg, value string) *errors.ConfigError {
	return errors.ErrConfigInvalid("ports", msg, value)
}

// FormatPorts renders ports back into the comma separated form.
func FormatPorts(ports []uint16) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(int(p))
	}
	return strings.Join(parts, ",")
}
