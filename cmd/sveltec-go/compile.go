package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	compiler "sveltec-go/packages/compiler/src"
	"sveltec-go/packages/compiler/src/config"
	"sveltec-go/packages/compiler/src/template"
	"sveltec-go/packages/compiler/src/util"
)

func compileCommand() *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "Compile component files, or every component of a project",
		ArgsUsage: "FILES...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    outKey,
				Aliases: []string{"o"},
				Usage:   "Output directory (default: next to each component)",
			},
			&cli.BoolFlag{
				Name:  devKey,
				Usage: "Emit development checks",
			},
			&cli.BoolFlag{
				Name:  hydratableKey,
				Usage: "Emit claim code for hydration",
			},
			&cli.StringFlag{
				Name:  cssKey,
				Usage: "Stylesheet handling: injected, external or none",
			},
			&cli.BoolFlag{
				Name:  accessorsKey,
				Usage: "Emit getters and setters for props",
			},
			&cli.StringFlag{
				Name:  runtimeKey,
				Usage: "Module the runtime helpers are imported from",
			},
			&cli.StringFlag{
				Name:    configKey,
				Aliases: []string{"c"},
				Usage:   "Project file; compiles every component it selects",
			},
			&cli.BoolFlag{
				Name:  statsKey,
				Usage: "Print a table of block and output statistics",
			},
		},
		Action: compileAction,
	}
}

// overrides turns the flags that were set into compiler options. They
// take precedence over the project file.
func overrides(cmd *cli.Command) ([]config.CompilerConfigOption, error) {
	var opts []config.CompilerConfigOption
	if cmd.IsSet(devKey) {
		opts = append(opts, config.WithDev(cmd.Bool(devKey)))
	}
	if cmd.IsSet(hydratableKey) {
		opts = append(opts, config.WithHydratable(cmd.Bool(hydratableKey)))
	}
	if cmd.IsSet(accessorsKey) {
		opts = append(opts, config.WithAccessors(cmd.Bool(accessorsKey)))
	}
	if cmd.IsSet(cssKey) {
		mode, err := config.ParseCSSMode(cmd.String(cssKey))
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.WithCSS(mode))
	}
	if cmd.IsSet(runtimeKey) {
		opts = append(opts, config.WithRuntimePath(cmd.String(runtimeKey)))
	}
	return opts, nil
}

// compiled is one component ready to be written.
type compiled struct {
	path   string
	name   string
	outDir string
	result *compiler.Result
	err    error
}

func compileAction(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	opts, err := overrides(cmd)
	if err != nil {
		return err
	}

	var units []*compiled
	if path := cmd.String(configKey); path != "" {
		if units, err = compileProject(path, cmd.String(outKey), opts); err != nil {
			return err
		}
	} else {
		files := cmd.Args().Slice()
		if len(files) == 0 {
			return errors.New("no component files given")
		}
		units = compileFiles(files, cmd.String(outKey), opts)
	}

	failed := 0
	for _, u := range units {
		if u.err != nil {
			failed++
			report(u.path, u.err)
			continue
		}
		if len(u.result.Warnings) > 0 {
			fmt.Fprint(os.Stderr, util.FormatDiagnostics(u.result.Warnings))
		}
		written, err := compiler.WriteOutput(u.outDir, u.name, u.result)
		if err != nil {
			failed++
			report(u.path, err)
			continue
		}
		for _, w := range written {
			log.Printf("wrote %s", w)
		}
	}

	if cmd.Bool(statsKey) {
		renderStats(os.Stdout, units)
	}
	log.Printf("compiled %d of %d components in %v", len(units)-failed, len(units), time.Since(start).Round(time.Millisecond))
	if failed > 0 {
		return fmt.Errorf("%d components failed", failed)
	}
	return nil
}

func compileFiles(files []string, out string, opts []config.CompilerConfigOption) []*compiled {
	units := make([]*compiled, 0, len(files))
	for _, path := range files {
		dir := out
		if dir == "" {
			dir = filepath.Dir(path)
		}
		res, err := compiler.CompileFile(path, config.NewCompilerConfig(opts...))
		units = append(units, &compiled{
			path:   path,
			name:   template.ComponentName(path),
			outDir: dir,
			result: res,
			err:    err,
		})
	}
	return units
}

func compileProject(path, out string, opts []config.CompilerConfigOption) ([]*compiled, error) {
	c, err := compiler.NewCompiler(path, opts...)
	if err != nil {
		return nil, err
	}
	results, err := c.Compile()
	if err != nil {
		return nil, err
	}
	base := out
	if base == "" {
		base = c.OutDir()
	}
	units := make([]*compiled, 0, len(results))
	for _, r := range results {
		rel := filepath.FromSlash(r.Path)
		dir := filepath.Join(c.ProjectRoot(), filepath.Dir(rel))
		if base != "" {
			dir = filepath.Join(base, filepath.Dir(rel))
		}
		units = append(units, &compiled{
			path:   filepath.Join(c.ProjectRoot(), rel),
			name:   template.ComponentName(rel),
			outDir: dir,
			result: r.Result,
			err:    r.Err,
		})
	}
	return units, nil
}

func report(path string, err error) {
	var perr *util.ParseError
	if errors.As(err, &perr) {
		fmt.Fprint(os.Stderr, util.FormatDiagnostics([]*util.ParseError{perr}))
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
}
