package core

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shrek82/gpdb/dialect"
)

// ParseAddress turns a host string into connection params. A string with a
// path separator is a socket path; otherwise it is "host" or "host:port",
// with defaultPort used when the port is omitted.
func ParseAddress(host string, defaultPort int) (dialect.Params, error) {
	if strings.ContainsAny(host, "/"+string(filepath.Separator)) {
		return dialect.Params{Socket: host}, nil
	}

	if strings.HasPrefix(host, "[") {
		if strings.HasSuffix(host, "]") {
			return dialect.Params{Host: strings.Trim(host, "[]"), Port: defaultPort}, nil
		}
		h, p, err := net.SplitHostPort(host)
		if err != nil {
			return dialect.Params{}, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, host, err)
		}
		port, err := parsePort(host, p)
		if err != nil {
			return dialect.Params{}, err
		}
		return dialect.Params{Host: h, Port: port}, nil
	}

	pair := strings.Split(host, ":")
	if len(pair) == 2 {
		port, err := parsePort(host, pair[1])
		if err != nil {
			return dialect.Params{}, err
		}
		return dialect.Params{Host: pair[0], Port: port}, nil
	}
	// a bare host, or an unbracketed IPv6 literal
	return dialect.Params{Host: host, Port: defaultPort}, nil
}

func parsePort(host, s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("%w: %q: bad port %q", ErrInvalidAddress, host, s)
	}
	return port, nil
}
