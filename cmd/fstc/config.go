package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// configFileName is the default config file looked up in the working
// directory when no explicit paths are given.
const configFileName = ".fstc.json"

// storeConfig locates a store's two files. Relative paths are resolved
// against the config file's directory.
type storeConfig struct {
	Index  string `json:"index"`
	Values string `json:"values"`
}

// resolveStorePaths decides where the store lives: explicit flags win, then
// an explicit config file, then .fstc.json in the working directory.
func resolveStorePaths(index, values, configPath string) (string, string, error) {
	if index != "" && values != "" {
		return index, values, nil
	}

	if index != "" || values != "" {
		return "", "", errors.New("--index and --values must be given together")
	}

	if configPath == "" {
		configPath = configFileName

		if _, err := os.Stat(configPath); err != nil {
			return "", "", errors.New("no store given: use --index/--values, --config, or an .fstc.json")
		}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return "", "", err
	}

	dir := filepath.Dir(configPath)

	return resolveAgainst(dir, cfg.Index), resolveAgainst(dir, cfg.Values), nil
}

// loadConfig reads a JWCC config file: JSON with comments and trailing
// commas permitted, standardized before decoding.
func loadConfig(path string) (storeConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return storeConfig{}, fmt.Errorf("read config: %w", err)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return storeConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	var cfg storeConfig

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return storeConfig{}, fmt.Errorf("decode config %s: %w", path, err)
	}

	if cfg.Index == "" || cfg.Values == "" {
		return storeConfig{}, fmt.Errorf("config %s must set both index and values", path)
	}

	return cfg, nil
}

func resolveAgainst(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(dir, path)
}
