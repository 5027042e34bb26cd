// SPDX-License-Identifier: AGPL-3.0-or-later
// ZelloFNEGateway - Bridge a Zello PTT channel to a P25/DMR FNE peer
// Copyright (C) 2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/USA-RedDragon/ZelloFNEGateway>

// Package aliasmap loads a YAML file mapping radio IDs to human-readable
// aliases and resolves the reverse, alias-to-RID lookup used to translate a
// Zello page destination into a numeric radio ID.
package aliasmap

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one {rid, alias} pair as it appears in the alias file.
type Entry struct {
	RID   uint32 `yaml:"rid"`
	Alias string `yaml:"alias"`
}

type aliasFile struct {
	ZelloAliases []Entry `yaml:"zelloAliases"`
}

// Map resolves a normalized alias to a radio ID.
type Map struct {
	byAlias map[string]uint32
}

// New builds a Map directly from entries, skipping disk I/O. Exposed so
// callers that already have entries (tests, or an alternate loader) don't
// need to round-trip through YAML.
func New(entries []Entry) *Map {
	m := &Map{byAlias: make(map[string]uint32, len(entries))}
	for _, e := range entries {
		key := normalize(e.Alias)
		if key == "" {
			continue
		}
		// Last-write-wins on collision; no collision policy is specified.
		m.byAlias[key] = e.RID
	}
	return m
}

// Load reads and parses a zelloAliases YAML file from disk.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("aliasmap: reading %s: %w", path, err)
	}
	var parsed aliasFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("aliasmap: parsing %s: %w", path, err)
	}
	return New(parsed.ZelloAliases), nil
}

// Lookup returns the RID for name, or 0 if name is empty or not found.
// Lookup is case- and space-insensitive.
func (m *Map) Lookup(name string) uint32 {
	if m == nil {
		return 0
	}
	key := normalize(name)
	if key == "" {
		return 0
	}
	return m.byAlias[key]
}

func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
