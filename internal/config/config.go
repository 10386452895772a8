// Package config parses the `.service` files named in spec.md §6's
// configuration collaborator contract and converts them into the
// (service-name, instance, port, TXT pairs, target-host) tuples the engine's
// publish step expects. It knows nothing about the wire protocol or the
// record store; it only turns YAML on disk into plain Go values.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Service is one `.service` file's contents: an instance of service-name
// advertised on port, resolving to target-host, with arbitrary TXT metadata.
type Service struct {
	Name       string            `yaml:"service"`
	Instance   string            `yaml:"instance"`
	Port       uint16            `yaml:"port"`
	TargetHost string            `yaml:"target_host"`
	Addresses  []string          `yaml:"addresses"`
	TXT        map[string]string `yaml:"txt"`
}

// Validate reports the first structural problem found in s, before it is
// handed to the engine.
func (s Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("config: service name is required")
	}
	if strings.TrimSpace(s.Instance) == "" {
		return fmt.Errorf("config: instance is required for service %q", s.Name)
	}
	if s.Port == 0 {
		return fmt.Errorf("config: port is required for service %q", s.Name)
	}
	if strings.TrimSpace(s.TargetHost) == "" {
		return fmt.Errorf("config: target_host is required for service %q", s.Name)
	}
	for _, addr := range s.Addresses {
		if net.ParseIP(addr) == nil {
			return fmt.Errorf("config: %q is not a valid address for service %q", addr, s.Name)
		}
	}
	return nil
}

// TXTPairs flattens the TXT map into the "key=value" strings spec.md's
// collaborator contract and message.TXTData both expect, sorted by key so
// repeated loads of the same file produce byte-identical records.
func (s Service) TXTPairs() []string {
	keys := make([]string, 0, len(s.TXT))
	for k := range s.TXT {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+s.TXT[k])
	}
	return pairs
}

// Load parses a single `.service` YAML file.
func Load(path string) (Service, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Service{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var svc Service
	if err := yaml.Unmarshal(buf, &svc); err != nil {
		return Service{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := svc.Validate(); err != nil {
		return Service{}, err
	}
	return svc, nil
}

// LoadDir parses every `*.service` file in dir, the layout cmd/beacond
// expects for its --services-dir flag.
func LoadDir(dir string) ([]Service, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("config: read dir %s: %w", dir, err)
	}
	var out []Service
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".service") {
			continue
		}
		svc, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, nil
}
