package engine

import (
	"bytes"
	"errors"
	"fmt"
	"hurlfix/pkg/fixture"
	"hurlfix/pkg/models"
	"hurlfix/pkg/utils/fs"
	"hurlfix/pkg/utils/system"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by InitConfig when it would overwrite a file.
var ErrConfigExists = errors.New("config file already exists")

// InitConfig writes a starter config to configPath on a free local port.
func InitConfig(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, configPath)
	}

	host := "127.0.0.1"
	freePort, err := system.GetFreePort(host)
	if err != nil {
		return fmt.Errorf("unable to find a free port: %w", err)
	}

	requests := int64(100)
	window := time.Minute

	defaultConfig := &models.HurlfixConfig{
		Log: &models.LogConfig{
			ToStdout: true,
			Level:    "info",
		},
		Server: &models.ServerConfig{
			Host:  host,
			Port:  uint16(freePort),
			Watch: true,
		},
		Journal: &models.JournalConfig{
			Enabled:  true,
			Storage:  models.JOURNAL_STORAGE_MEMORY,
			Capacity: defaultJournalSize,
			Ttl:      time.Hour,
		},
		RateLimit: &models.RateLimitConfig{
			Enabled:  false,
			Requests: &requests,
			Window:   &window,
			KeyBy:    []string{"ip"},
		},
		Fixtures: []models.FixtureConfig{
			{
				Name:        "example-binary",
				Path:        "/example/binary",
				ContentType: fixture.ContentTypeOctetStream,
				Body:        "hex,deadbeef;",
			},
			{
				Name:    "example-created",
				Method:  "POST",
				Path:    "/example/items",
				Status:  201,
				Headers: map[string]string{"Location": "/example/items/1"},
				Body:    `{"id":1}`,
			},
		},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(defaultConfig); err != nil {
		return fmt.Errorf("unable to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("unable to encode config: %w", err)
	}

	if err := fs.EnsureDir(filepath.Dir(configPath)); err != nil {
		return err
	}
	return fs.WriteFileAtomic(configPath, buf.Bytes(), 0o644)
}
