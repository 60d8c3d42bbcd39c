// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"go.astrophena.name/ramses/protocol"
)

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func nodeErr(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

func boolValue(n *yaml.Node) (bool, error) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!bool" {
		return false, nodeErr(n, "expected a bool, got %q", n.Value)
	}
	var b bool
	err := n.Decode(&b)
	return b, err
}

func intValue(n *yaml.Node) (int64, error) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!int" {
		return 0, nodeErr(n, "expected an integer, got %q", n.Value)
	}
	return strconv.ParseInt(n.Value, 0, 64)
}

// decodeFields decodes a mapping by hand, with a function per known key.
func decodeFields(n *yaml.Node, fields map[string]func(*yaml.Node) error, required []string) error {
	if n.Kind != yaml.MappingNode {
		return nodeErr(n, "expected a mapping")
	}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		f, ok := fields[k.Value]
		if !ok {
			return nodeErr(k, "field %s not found", k.Value)
		}
		if err := f(v); err != nil {
			return fmt.Errorf("%s: %w", k.Value, err)
		}
		seen[k.Value] = true
	}
	for _, key := range required {
		if !seen[key] {
			return nodeErr(n, "required key %s not provided", key)
		}
	}
	return nil
}

// mapping returns the key/value pairs of a mapping node.
func mapping(n *yaml.Node) map[string]*yaml.Node {
	m := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		m[n.Content[i].Value] = n.Content[i+1]
	}
	return m
}

var (
	tcsKeys = []string{"system", "stored_hotwater", "underfloor_heating", "orphans", "zones", "is_tcs"}
	vcsKeys = []string{"remotes", "sensors"}
)

// checkShape checks what the typed decoding lets through: nulls where a
// value is needed, mixed system kinds and unquoted zone indexes.
func checkShape(root *yaml.Node) error {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("expected a mapping")
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nodeErr(top, "expected a mapping")
	}
	// Systems are decoded inline, where duplicates go unnoticed.
	seen := make(map[string]int)
	for i := 0; i+1 < len(top.Content); i += 2 {
		k := top.Content[i]
		if line, ok := seen[k.Value]; ok {
			return nodeErr(k, "mapping key %q already defined at line %d", k.Value, line)
		}
		seen[k.Value] = k.Line
	}
	for key, v := range mapping(top) {
		switch key {
		case "config":
			if v.Kind != yaml.MappingNode {
				return nodeErr(v, "config: expected a mapping")
			}
			for k, cv := range mapping(v) {
				if isNull(cv) && k != "evofw_flag" && k != "use_regex" {
					return nodeErr(cv, "config: %s: expected a value", k)
				}
			}
		case "known_list", "block_list":
			if !isNull(v) && v.Kind != yaml.MappingNode {
				return nodeErr(v, "%s: expected a mapping", key)
			}
		case "serial_port", "main_tcs", "orphans_heat", "orphans_hvac", "restore_cache", "packet_log":
		default:
			if _, err := protocol.ParseAddress(key); err != nil {
				return nodeErr(v, "unknown key %q", key)
			}
			if err := checkSystemShape(protocol.Address(key), v); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}

func checkSystemShape(id protocol.Address, v *yaml.Node) error {
	if v.Kind != yaml.MappingNode {
		return nodeErr(v, "expected a mapping")
	}
	m := mapping(v)
	var hasTCS, hasVCS bool
	for _, k := range tcsKeys {
		_, ok := m[k]
		hasTCS = hasTCS || ok
	}
	for _, k := range vcsKeys {
		_, ok := m[k]
		hasVCS = hasVCS || ok
	}
	isCTL := id.Type() == "01" || id.Type() == "23"
	switch {
	case hasTCS && hasVCS:
		return nodeErr(v, "a system is either for heating or for ventilation")
	case !isCTL && !hasVCS:
		return nodeErr(v, "the ventilation control system schema must include at least one of remotes, sensors")
	}
	for _, k := range []string{"system", "stored_hotwater", "underfloor_heating", "zones"} {
		if n, ok := m[k]; ok && n.Kind != yaml.MappingNode {
			return nodeErr(n, "%s: expected a mapping", k)
		}
	}
	if zones, ok := m["zones"]; ok {
		for i := 0; i+1 < len(zones.Content); i += 2 {
			k, z := zones.Content[i], zones.Content[i+1]
			if k.ShortTag() != "!!str" {
				return nodeErr(k, "zones: zone index %s must be a quoted string", k.Value)
			}
			if z.Kind != yaml.MappingNode {
				return nodeErr(z, "zones: %s: expected a mapping", k.Value)
			}
		}
	}
	return nil
}
