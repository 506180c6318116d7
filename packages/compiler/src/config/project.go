package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultProjectFile is looked up by the CLI when no --config is given.
const DefaultProjectFile = "sveltec.yaml"

// ProjectConfig is the project file. JSON files parse as well since YAML is
// a superset.
type ProjectConfig struct {
	CompilerOptions CompilerOptions `yaml:"compilerOptions"`
	Include         []string        `yaml:"include"`
	Exclude         []string        `yaml:"exclude"`
	OutDir          string          `yaml:"outDir"`

	root string
}

// CompilerOptions mirrors CompilerConfig in the project file. Pointers
// distinguish unset options from false.
type CompilerOptions struct {
	Dev                *bool  `yaml:"dev"`
	Hydratable         *bool  `yaml:"hydratable"`
	CSS                string `yaml:"css"`
	Accessors          *bool  `yaml:"accessors"`
	RuntimePath        string `yaml:"runtimePath"`
	PreserveWhitespace *bool  `yaml:"preserveWhitespace"`
}

// ParseProjectConfig reads and parses a project file
func ParseProjectConfig(path string) (*ProjectConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	config, err := UnmarshalProjectConfig(data)
	if err != nil {
		return nil, err
	}
	config.root = filepath.Dir(absPath)
	return config, nil
}

// UnmarshalProjectConfig parses project file contents
func UnmarshalProjectConfig(data []byte) (*ProjectConfig, error) {
	var config ProjectConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}
	if _, err := ParseCSSMode(config.CompilerOptions.CSS); err != nil {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}
	return &config, nil
}

// ProjectRoot returns the directory containing the project file
func (c *ProjectConfig) ProjectRoot() string {
	return c.root
}

// Options converts the project settings into compiler options. Options
// given later override them.
func (c *ProjectConfig) Options() []CompilerConfigOption {
	o := c.CompilerOptions
	var opts []CompilerConfigOption
	if o.Dev != nil {
		opts = append(opts, WithDev(*o.Dev))
	}
	if o.Hydratable != nil {
		opts = append(opts, WithHydratable(*o.Hydratable))
	}
	if o.CSS != "" {
		mode, _ := ParseCSSMode(o.CSS)
		opts = append(opts, WithCSS(mode))
	}
	if o.Accessors != nil {
		opts = append(opts, WithAccessors(*o.Accessors))
	}
	if o.RuntimePath != "" {
		opts = append(opts, WithRuntimePath(o.RuntimePath))
	}
	if o.PreserveWhitespace != nil {
		opts = append(opts, WithPreserveWhitespace(*o.PreserveWhitespace))
	}
	return opts
}

// CompilerConfig builds the configuration for one component file.
func (c *ProjectConfig) CompilerConfig(filename string, extra ...CompilerConfigOption) *CompilerConfig {
	opts := append([]CompilerConfigOption{WithFilename(filename)}, c.Options()...)
	return NewCompilerConfig(append(opts, extra...)...)
}

// Matches reports whether a path relative to the project root is selected
// by the include and exclude globs. An empty include list selects every
// file.
func (c *ProjectConfig) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	included := len(c.Include) == 0
	for _, pattern := range c.Include {
		if ok, _ := filepath.Match(pattern, rel); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range c.Exclude {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return false
		}
	}
	return true
}
