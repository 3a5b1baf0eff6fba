// Package objectstore fetches dataset files from S3-compatible storage.
package objectstore

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Config holds connection settings for an S3-compatible endpoint.
// Decoded from a named entry in credentials.yml.
type Config struct {
	Endpoint  string `mapstructure:"endpoint_url"`
	AccessKey string `mapstructure:"key"`
	SecretKey string `mapstructure:"secret"`
	Region    string `mapstructure:"region"`
	UseSSL    *bool  `mapstructure:"use_ssl"`
}

// Normalize strips the scheme from Endpoint and derives UseSSL from it
// when UseSSL is unset. An empty endpoint means AWS S3.
func (c *Config) Normalize() {
	if c.Endpoint == "" {
		c.Endpoint = "s3.amazonaws.com"
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	secure := true
	switch {
	case strings.HasPrefix(c.Endpoint, "http://"):
		secure = false
		c.Endpoint = strings.TrimPrefix(c.Endpoint, "http://")
	case strings.HasPrefix(c.Endpoint, "https://"):
		c.Endpoint = strings.TrimPrefix(c.Endpoint, "https://")
	}
	c.Endpoint = strings.TrimSuffix(c.Endpoint, "/")
	if c.UseSSL == nil {
		c.UseSSL = &secure
	}
}

// Validate checks the normalized config.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.New("key and secret must be set together")
	}
	return nil
}

// IsRemote reports whether a catalog filepath points at object storage.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "s3a://")
}

// ParseURL splits s3://bucket/key into its bucket and key.
func ParseURL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid object url %q: %w", raw, err)
	}
	if u.Scheme != "s3" && u.Scheme != "s3a" {
		return "", "", fmt.Errorf("unsupported object url scheme %q", u.Scheme)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("object url %q must include bucket and key", raw)
	}
	return bucket, key, nil
}
