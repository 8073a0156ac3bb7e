// Package plugin provides connector plugins implementing the opaque
// source/destination staging contract, plus the object-store transport
// used by file importers for bucket URIs.
package plugin

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds object-store connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool

	// Bucket and Prefix scope the named source/destination plugins.
	// Optional: without a bucket only the s3 transport is usable.
	Bucket string
	Prefix string
}

// Enabled reports whether object-store settings are present in the
// environment at all. An absent store is a legal deployment, distinct
// from a misconfigured one.
func Enabled() bool {
	return envString("TD_STORE_ACCESS_KEY", "") != ""
}

// ConfigFromEnv reads object-store settings from TD_STORE_* variables.
func ConfigFromEnv() (Config, error) {
	useSSL, err := envBool("TD_STORE_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:  envString("TD_STORE_ENDPOINT", "localhost:9000"),
		AccessKey: envString("TD_STORE_ACCESS_KEY", ""),
		SecretKey: envString("TD_STORE_SECRET_KEY", ""),
		Region:    envString("TD_STORE_REGION", "us-east-1"),
		UseSSL:    useSSL,
		Bucket:    envString("TD_STORE_BUCKET", ""),
		Prefix:    envString("TD_STORE_PREFIX", ""),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return errors.New("endpoint must not include a scheme")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	return nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
