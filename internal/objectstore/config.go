package objectstore

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoBackend is returned when the endpoint names no supported backend.
var ErrNoBackend = errors.New("storage endpoint must be http://, https:// or file://<path>")

// Config captures how to reach the object store.
type Config struct {
	// EndpointURL selects the backend: http(s):// uses S3Client, file://
	// uses LocalStore. There is no default.
	EndpointURL     string
	Region          string
	UseSSL          bool
	AccessKeyID     string
	SecretAccessKey string
	// RootPath overrides the LocalStore directory of a file:// endpoint.
	RootPath string
}

// Validate reports whether cfg selects a backend explicitly.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNoBackend
	}
	switch {
	case c.isS3():
		return nil
	case strings.HasPrefix(c.EndpointURL, "file://"):
		if c.localRoot() == "" {
			return fmt.Errorf("%w: %q has no path", ErrNoBackend, c.EndpointURL)
		}
		return nil
	case c.EndpointURL == "":
		return ErrNoBackend
	default:
		return fmt.Errorf("%w: got %q", ErrNoBackend, c.EndpointURL)
	}
}

// Open returns the ObjectStore selected by cfg.EndpointURL.
func Open(cfg *Config) (ObjectStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.isS3() {
		return NewS3Client(cfg)
	}
	return NewLocalStore(cfg.localRoot()), nil
}

func (c *Config) isS3() bool {
	return strings.HasPrefix(c.EndpointURL, "http://") || strings.HasPrefix(c.EndpointURL, "https://")
}

func (c *Config) localRoot() string {
	if c.RootPath != "" {
		return c.RootPath
	}
	if u, err := url.Parse(c.EndpointURL); err == nil {
		return u.Path
	}
	return ""
}
