// Package config loads server configuration from a JSON file with
// environment variable overrides.
package config

import (
	"encoding/json"
	"os"

	"github.com/termio/termio/internal/logger"
)

// Server holds the termio-server process configuration.
type Server struct {
	Addr    string        `json:"addr"`
	NATSURL string        `json:"nats_url"`
	Log     logger.Config `json:"log"`
}

// DefaultServer returns the defaults used when no config file exists.
func DefaultServer() Server {
	return Server{
		Addr: ":8080",
		Log:  logger.DefaultConfig(),
	}
}

// LoadServer reads the config file at path, falling back to defaults when
// the file is absent, then applies TERMIO_ADDR and NATS_URL overrides.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()
	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	if addr := os.Getenv("TERMIO_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		cfg.NATSURL = natsURL
	}
	return cfg, nil
}
