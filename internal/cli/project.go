package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/microsoft/typescript-go/shim/ast"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/microsoft/typescript-go/shim/vfs"

	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/typewire/typewire/internal/analyzer"
	"github.com/typewire/typewire/internal/compiler"
	"github.com/typewire/typewire/internal/config"
)

// project is a parsed TypeScript project, ready to build into a program.
// Opening stops after the tsconfig parse so callers can decide cheaply
// whether a full build is needed.
type project struct {
	fs           vfs.FS
	host         shimcompiler.CompilerHost
	parsed       *tsoptions.ParsedCommandLine
	tsconfigPath string
	sourcePath   string
}

// openProject locates the source file and its tsconfig and parses the
// latter. The source path and tsconfig path come back normalized.
func openProject(cwd string, cfg *config.Config) (*project, error) {
	tsFS := compiler.CreateDefaultFS()
	sourcePath := tspath.ResolvePath(cwd, cfg.Source)
	if !tsFS.FileExists(sourcePath) {
		return nil, fmt.Errorf("source file %s does not exist", cfg.Source)
	}

	tsconfigPath, err := resolveTSConfig(tsFS, cwd, cfg)
	if err != nil {
		return nil, err
	}

	host := compiler.CreateDefaultHost(cwd, tsFS)
	parsed, diags, err := compiler.ParseTSConfig(tsFS, cwd, tsconfigPath, host)
	if err != nil {
		return nil, err
	}
	if len(diags) > 0 {
		return nil, fmt.Errorf("parsing %s:\n%s", tsconfigPath, compiler.FormatDiagnostics(diags))
	}

	return &project{
		fs:           tsFS,
		host:         host,
		parsed:       parsed,
		tsconfigPath: tsconfigPath,
		sourcePath:   sourcePath,
	}, nil
}

// analysis holds a built program's checker-bound walker. Close releases the
// checker; everything read from the walker must happen before that.
type analysis struct {
	SourceFile *ast.SourceFile
	Walker     *analyzer.AppWalker
	Close      func()
}

// buildAnalyzer compiles the project and binds an application walker to its
// type checker. sourceDisplay names the source file in errors the way the
// user wrote it.
func (p *project) buildAnalyzer(sourceDisplay string) (*analysis, error) {
	program, diags, err := compiler.CreateProgramFromConfig(p.parsed, p.host)
	if err != nil {
		return nil, err
	}
	if len(diags) > 0 {
		return nil, fmt.Errorf("building program from %s:\n%s", p.tsconfigPath, compiler.FormatDiagnostics(diags))
	}

	checker, release := shimcompiler.Program_GetTypeChecker(program, context.Background())
	if checker == nil {
		return nil, errors.New("could not get type checker")
	}

	sf := program.GetSourceFile(p.sourcePath)
	if sf == nil {
		release()
		return nil, fmt.Errorf("source file %s is not part of the program described by %s", sourceDisplay, p.tsconfigPath)
	}

	return &analysis{
		SourceFile: sf,
		Walker:     analyzer.NewAppWalker(checker, nil),
		Close:      release,
	}, nil
}

// resolveTSConfig returns the tsconfig path for a run. An explicit path must
// exist; otherwise the source file's directory and its parents are searched
// for a tsconfig.json.
func resolveTSConfig(fs vfs.FS, cwd string, cfg *config.Config) (string, error) {
	if cfg.TSConfig != "" {
		resolved := tspath.ResolvePath(cwd, cfg.TSConfig)
		if !fs.FileExists(resolved) {
			return "", fmt.Errorf("could not find tsconfig at %s", cfg.TSConfig)
		}
		return resolved, nil
	}
	start := tspath.GetDirectoryPath(tspath.ResolvePath(cwd, cfg.Source))
	dir := start
	for {
		candidate := tspath.CombinePaths(dir, "tsconfig.json")
		if fs.FileExists(candidate) {
			return candidate, nil
		}
		parent := tspath.GetDirectoryPath(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("no tsconfig.json found in %s or any parent directory", start)
}
