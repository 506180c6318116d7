package compiler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sveltec-go/packages/compiler/src/config"
)

// ComponentExt is the extension of component source files.
const ComponentExt = ".svelte"

// Compiler compiles every component of a project.
type Compiler struct {
	project     *config.ProjectConfig
	projectRoot string
	extra       []config.CompilerConfigOption
}

// FileResult is the output of one component of a project.
type FileResult struct {
	// Path is the component file relative to the project root.
	Path   string
	Result *Result
	Err    error
}

// NewCompiler loads a project file. Options in extra override the
// project's compiler options.
func NewCompiler(configPath string, extra ...config.CompilerConfigOption) (*Compiler, error) {
	cfg, err := config.ParseProjectConfig(configPath)
	if err != nil {
		return nil, err
	}
	return &Compiler{
		project:     cfg,
		projectRoot: cfg.ProjectRoot(),
		extra:       extra,
	}, nil
}

// NewCompilerForProject compiles an already loaded project rooted at root.
func NewCompilerForProject(project *config.ProjectConfig, root string, extra ...config.CompilerConfigOption) *Compiler {
	return &Compiler{project: project, projectRoot: root, extra: extra}
}

// ProjectRoot returns the directory components are discovered in.
func (c *Compiler) ProjectRoot() string {
	return c.projectRoot
}

// OutDir returns the output directory, absolute or relative to the project
// root. Empty means next to each component.
func (c *Compiler) OutDir() string {
	if c.project.OutDir == "" || filepath.IsAbs(c.project.OutDir) {
		return c.project.OutDir
	}
	return filepath.Join(c.projectRoot, c.project.OutDir)
}

// DiscoverFiles lists the component files the project selects, relative
// to the project root and sorted.
func (c *Compiler) DiscoverFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(c.projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != c.projectRoot && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ComponentExt) {
			return nil
		}
		rel, err := filepath.Rel(c.projectRoot, path)
		if err != nil {
			return err
		}
		if c.project.Matches(rel) {
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Compile compiles every discovered component. A component that fails is
// reported in its FileResult and does not stop the others.
func (c *Compiler) Compile() ([]*FileResult, error) {
	files, err := c.DiscoverFiles()
	if err != nil {
		return nil, err
	}
	results := make([]*FileResult, 0, len(files))
	for _, rel := range files {
		path := filepath.Join(c.projectRoot, filepath.FromSlash(rel))
		res, err := CompileFile(path, c.project.CompilerConfig(path, c.extra...))
		results = append(results, &FileResult{Path: rel, Result: res, Err: err})
	}
	return results, nil
}

// WriteOutput writes the module of a component, and its stylesheet when
// it was emitted separately, into dir. It returns the paths written.
func WriteOutput(dir, name string, res *Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	js := filepath.Join(dir, name+".js")
	if err := os.WriteFile(js, []byte(res.JS), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write module: %w", err)
	}
	written := []string{js}
	if res.CSS != "" {
		css := filepath.Join(dir, name+".css")
		if err := os.WriteFile(css, []byte(res.CSS), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write stylesheet: %w", err)
		}
		written = append(written, css)
	}
	return written, nil
}
