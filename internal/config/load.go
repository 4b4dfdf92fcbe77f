package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileNames are searched in the working directory, then in ConfigDir.
var fileNames = []string{"tilekit.yaml", "tilekit.yml", "tilekit.toml"}

// Load builds the configuration: defaults < file < flags. The file is the
// -config flag when given, otherwise the first of fileNames found.
func Load(f *Flags) (*Config, string, error) {
	cfg := Default()

	path := ""
	if f != nil && f.Config != "" {
		p, err := homedir.Expand(f.Config)
		if err != nil {
			return nil, "", err
		}
		path = p
	} else {
		path = findConfigFile()
	}

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, "", fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	f.apply(cfg)
	if err := cfg.expandPaths(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func findConfigFile() string {
	candidates := slices.Clone(fileNames)
	if dir, err := ConfigDir(); err == nil {
		for _, name := range fileNames {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns ~/.config/tilekit, honouring XDG_CONFIG_HOME.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tilekit"), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tilekit"), nil
}

// loadFromFile merges the file at path into cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return decode(cfg, data, path)
}

func decode(cfg *Config, data []byte, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".yaml", ".yml", "":
		return yaml.Unmarshal(data, cfg)
	}
	return errors.New("unsupported config format " + filepath.Ext(path))
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Tileset.Dir, &c.Overlay.TMS.URL, &c.Logging.LogFile, &c.Preview.Snapshot} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}
