package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var (
	ErrConfig       = errors.New("config error")
	ErrMissingField = fmt.Errorf("%w: missing field from configuration file", ErrConfig)
	ErrUnreadable   = fmt.Errorf("%w: unable to load configuration file", ErrConfig)
)

// DefaultHost is the address the server binds to unless overridden.
const DefaultHost = "127.0.0.1"

// Keys required in the configuration file, one per line.
var requiredKeys = []string{"staticfiles", "cgibin", "port", "exec"}

type Config struct {
	Host          string
	Port          int
	StaticRoot    string
	CGIRoot       string
	CGIExecutable string
}

// Addr returns host:port for net.Listen.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Load reads the key=value file at path. The file must hold exactly the four
// required keys, one per line.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	props := make(map[string]string)
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines++
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: malformed line %q", ErrMissingField, line)
		}
		props[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	if lines != len(requiredKeys) {
		return nil, fmt.Errorf("%w: want %d lines, got %d", ErrMissingField, len(requiredKeys), lines)
	}
	for _, k := range requiredKeys {
		if props[k] == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, k)
		}
	}

	port, err := strconv.Atoi(props["port"])
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: invalid port %q", ErrMissingField, props["port"])
	}

	return &Config{
		Host:          DefaultHost,
		Port:          port,
		StaticRoot:    props["staticfiles"],
		CGIRoot:       props["cgibin"],
		CGIExecutable: props["exec"],
	}, nil
}
