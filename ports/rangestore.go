package ports

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mosaicnet/subnet-launcher/interfaces"
)

// RangeFileName is the name of the range config file inside the data directory.
const RangeFileName = "port_range.env"

const (
	startPortKey = "START_PORT"
	endPortKey   = "END_PORT"
)

// RangeStore persists the port allocation interval as a KEY=VALUE file with
// START_PORT and END_PORT keys. Writes replace the whole file atomically so
// a concurrent reader never observes a torn config.
type RangeStore struct {
	path string
	log  *slog.Logger
}

// NewRangeStore creates a range store inside baseDir, creating the
// directory if needed.
func NewRangeStore(baseDir string, log *slog.Logger) (*RangeStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &RangeStore{path: filepath.Join(baseDir, RangeFileName), log: log}, nil
}

// Get returns the configured range, falling back to the default for a
// missing file or missing keys. Comment lines and unknown keys are ignored;
// an unparseable value keeps its default.
func (s *RangeStore) Get() (interfaces.PortRange, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return interfaces.DefaultPortRange(), nil
		}
		return interfaces.PortRange{}, fmt.Errorf("failed to read range config: %w", err)
	}

	rng := interfaces.DefaultPortRange()
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			s.log.Debug("Skipping unparseable range config line", slog.String("line", line))
			continue
		}

		switch strings.TrimSpace(key) {
		case startPortKey:
			rng.Start = port
		case endPortKey:
			rng.End = port
		}
	}

	return rng, nil
}

// Set validates the range and atomically replaces the config file via a
// temp file and rename in the same directory. Port assignments made under
// the previous range are left untouched.
func (s *RangeStore) Set(rng interfaces.PortRange) error {
	if err := rng.Validate(); err != nil {
		return err
	}

	content := fmt.Sprintf("%s=%d\n%s=%d\n", startPortKey, rng.Start, endPortKey, rng.End)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "port_range-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp config: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace range config: %w", err)
	}

	s.log.Info("Port range configured", slog.String("range", rng.String()))
	return nil
}
