// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// # Downstream Registry

// Registry maps a downstream service name to its base URL.
type Registry map[string]string

// registryFile is the on-disk YAML layout.
//
//	services:
//	  media: http://media.internal:8080
//	  notifications: ${NOTIFICATIONS_URL}
type registryFile struct {
	Services map[string]string `yaml:"services"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

/*
LoadRegistry builds the downstream registry for the queue.

Entries from the YAML file at [Queue.RegistryPath] are loaded first, when the path
is set, and entries from QUEUE_DOWNSTREAM_SERVICES override them by name.
*/
func LoadRegistry(cfg *Queue) (Registry, error) {
	reg := Registry{}

	if cfg.RegistryPath != "" {
		fromFile, err := ReadRegistryFile(cfg.RegistryPath)
		if err != nil {
			return nil, err
		}
		for name, base := range fromFile {
			reg[name] = base
		}
	}

	for name, base := range cfg.DownstreamServices {
		reg[strings.TrimSpace(name)] = strings.TrimSpace(base)
	}

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// ReadRegistryFile parses a YAML registry file, expanding ${VAR} references first.
func ReadRegistryFile(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading registry file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var file registryFile
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("config: parsing registry file: %w", err)
	}

	return Registry(file.Services), nil
}

// Validate checks that every entry names an absolute http(s) URL.
func (r Registry) Validate() error {
	for name, base := range r {
		if name == "" {
			return fmt.Errorf("config: registry entry with empty service name")
		}
		parsed, err := url.Parse(base)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("config: registry entry %q has invalid base url %q", name, base)
		}
	}
	return nil
}

// Lookup returns the base URL of a service without a trailing slash.
func (r Registry) Lookup(name string) (string, bool) {
	base, ok := r[name]
	if !ok {
		return "", false
	}
	return strings.TrimRight(base, "/"), true
}

// expandEnvVars replaces ${VAR} with the variable's value, or the empty string when unset.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}
