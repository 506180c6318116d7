package config

import "fmt"

// CSSMode says what happens to the component stylesheet.
type CSSMode string

const (
	// CSSInjected emits an add_css function that appends the styles to the
	// document when the first instance is created.
	CSSInjected CSSMode = "injected"
	// CSSExternal returns the styles separately in the compile result.
	CSSExternal CSSMode = "external"
	// CSSNone drops the styles. Scoping classes are still applied.
	CSSNone CSSMode = "none"
)

// ParseCSSMode validates a CSS mode name.
func ParseCSSMode(name string) (CSSMode, error) {
	switch mode := CSSMode(name); mode {
	case CSSInjected, CSSExternal, CSSNone:
		return mode, nil
	case "":
		return CSSInjected, nil
	}
	return "", fmt.Errorf("unknown css mode %q (want injected, external or none)", name)
}

// CompilerConfig represents the compiler configuration
type CompilerConfig struct {
	// Name is the component class name. Empty derives it from Filename.
	Name     string
	Filename string
	// Dev adds runtime checks such as each-block key validation and
	// extends SvelteComponentDev.
	Dev bool
	// Hydratable emits claim and hydrate phases.
	Hydratable bool
	CSS        CSSMode
	// Accessors emits getters and setters for exported props.
	Accessors bool
	// RuntimePath is the module the generated code imports helpers from.
	RuntimePath        string
	PreserveWhitespace bool
}

// NewCompilerConfig creates a new CompilerConfig with optional parameters
func NewCompilerConfig(opts ...CompilerConfigOption) *CompilerConfig {
	config := &CompilerConfig{
		Filename:    "Component.svelte",
		CSS:         CSSInjected,
		RuntimePath: "svelte/internal",
	}

	for _, opt := range opts {
		opt(config)
	}

	return config
}

// CompilerConfigOption is a function that modifies CompilerConfig
type CompilerConfigOption func(*CompilerConfig)

// WithName sets the component class name
func WithName(name string) CompilerConfigOption {
	return func(c *CompilerConfig) {
		c.Name = name
	}
}

// WithFilename sets the file name used in diagnostics
func WithFilename(filename string) CompilerConfigOption {
	return func(c *CompilerConfig) {
		c.Filename = filename
	}
}

// WithDev enables development checks
func WithDev(dev bool) CompilerConfigOption {
	return func(c *CompilerConfig) {
		c.Dev = dev
	}
}

// WithHydratable enables claim and hydrate phases
func WithHydratable(hydratable bool) CompilerConfigOption {
	return func(c *CompilerConfig) {
		c.Hydratable = hydratable
	}
}

// WithCSS sets the stylesheet mode
func WithCSS(mode CSSMode) CompilerConfigOption {
	return func(c *CompilerConfig) {
		c.CSS = mode
	}
}

// WithAccessors enables prop accessors on the component class
func WithAccessors(accessors bool) CompilerConfigOption {
	return func(c *CompilerConfig) {
		c.Accessors = accessors
	}
}

// WithRuntimePath sets the module helpers are imported from
func WithRuntimePath(path string) CompilerConfigOption {
	return func(c *CompilerConfig) {
		c.RuntimePath = path
	}
}

// WithPreserveWhitespace keeps whitespace-only text nodes and runs of
// whitespace as written
func WithPreserveWhitespace(preserve bool) CompilerConfigOption {
	return func(c *CompilerConfig) {
		c.PreserveWhitespace = preserve
	}
}
