package config

import "time"

// DebounceDuration parses the daemon debounce window.
func (c *Config) DebounceDuration() (time.Duration, error) {
	return parseDurationOrZero(c.Daemon.Debounce)
}

// RebuildInterval parses the periodic rebuild interval; zero disables it.
func (c *Config) RebuildInterval() (time.Duration, error) {
	return parseDurationOrZero(c.Daemon.RebuildInterval)
}

// CellTimeoutDuration returns the per-cell converter timeout.
func (c *Config) CellTimeoutDuration() time.Duration {
	return time.Duration(c.CellTimeout) * time.Second
}

func parseDurationOrZero(raw string) (time.Duration, error) {
	if raw == "" || raw == "0" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}
