package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// FileNames are the config files searched in the working directory, in
// order.
var FileNames = []string{"cms.json", "cms.jsonc", "cms.yaml", "cms.yml"}

// Environment variables that override the config file.
const (
	EnvContentRoot = "CMS_CONTENT_ROOT"
	EnvRepo        = "CMS_REPO"
)

// LoadInput holds the inputs for [Load].
type LoadInput struct {
	WorkDir    string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath string            // -c/--config flag value; if empty, FileNames are searched
	Env        map[string]string // environment variables

	Options []NormalizeOption
}

// Load reads and normalizes the config with the following precedence
// (highest wins):
//  1. Defaults
//  2. Config file (explicit path, or the first of [FileNames] in WorkDir)
//  3. Environment ($CMS_CONTENT_ROOT, $CMS_REPO)
//
// A relative content path from the file is resolved against the file's
// directory; one from the environment against the working directory.
func Load(in LoadInput) (*Config, error) {
	workDir := in.WorkDir
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	path, err := findConfigFile(workDir, in.ConfigPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrConfigFileRead, path, err)
	}

	raw, err := ParseRaw(path, data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrConfigFileInvalid, path, err)
	}

	if repo := in.Env[EnvRepo]; repo != "" {
		raw.Repo = repo
	}

	if root := in.Env[EnvContentRoot]; root != "" {
		if !filepath.IsAbs(root) {
			root = filepath.Join(workDir, root)
		}

		raw.ContentPath = root
	}

	opts := append([]NormalizeOption{WithBaseDir(filepath.Dir(path))}, in.Options...)

	cfg, err := Normalize(raw, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.Source = path

	return cfg, nil
}

// ParseRaw decodes a config file. YAML is chosen by the .yaml/.yml
// extension; everything else is parsed as JSON with comments and trailing
// commas allowed.
func ParseRaw(path string, data []byte) (Raw, error) {
	var raw Raw

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Raw{}, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		standardized, err := hujson.Standardize(data)
		if err != nil {
			return Raw{}, fmt.Errorf("invalid JSONC: %w", err)
		}

		if err := json.Unmarshal(standardized, &raw); err != nil {
			return Raw{}, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	return raw, nil
}

func findConfigFile(workDir, configPath string) (string, error) {
	if configPath != "" {
		path := configPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}

		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}

		return path, nil
	}

	for _, name := range FileNames {
		path := filepath.Join(workDir, name)

		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}

		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w %s: %w", ErrConfigFileRead, path, err)
		}
	}

	return "", fmt.Errorf("%w: none of %s in %s", ErrConfigFileNotFound, strings.Join(FileNames, ", "), workDir)
}
