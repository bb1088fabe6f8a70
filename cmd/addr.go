package cmd

import (
	"flag"
	"fmt"
	"net"
	"strconv"
)

const defaultServeAddr = "127.0.0.1:8080"

// parseServeAddr resolves the listen address for the serve command.
// The address may be given as a positional argument or via -addr;
// the positional form wins when both are present.
func parseServeAddr(args []string) (string, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addrFlag := fs.String("addr", defaultServeAddr, "listen address (host:port)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	addr := *addrFlag
	if fs.NArg() > 0 {
		addr = fs.Arg(0)
	}
	if err := validateAddr(addr); err != nil {
		return "", err
	}
	return addr, nil
}

// validateAddr checks that addr is a usable host:port pair.
func validateAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if host == "" {
		return fmt.Errorf("invalid address %q: missing host", addr)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid address %q: port must be numeric", addr)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("invalid address %q: port out of range", addr)
	}
	return nil
}
