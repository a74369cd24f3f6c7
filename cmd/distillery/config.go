// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// serveConfig is the yaml layout for the serve command. Flags override
// whatever the file provides.
type serveConfig struct {
	Listen        string `yaml:"listen"`
	DB            string `yaml:"db"`
	SpoolDir      string `yaml:"spool_dir"`
	MaxConcurrent int    `yaml:"max_concurrent"`

	AI struct {
		Provider      string `yaml:"provider"`
		Host          string `yaml:"host"`
		Model         string `yaml:"model"`
		APIKey        string `yaml:"api_key"`
		MaxInputChars int    `yaml:"max_input_chars"`
	} `yaml:"ai"`
}

func defaultServeConfig() *serveConfig {
	return &serveConfig{
		Listen:        ":8080",
		DB:            "distillery-data",
		MaxConcurrent: 1,
	}
}

// loadServeConfig reads a yaml config file over the defaults. An empty path
// returns the defaults untouched.
func loadServeConfig(path string) (*serveConfig, error) {
	cfg := defaultServeConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
