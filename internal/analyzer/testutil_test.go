package analyzer_test

import (
	"context"
	"path"
	"runtime"
	"testing"

	"github.com/microsoft/typescript-go/shim/ast"
	"github.com/microsoft/typescript-go/shim/bundled"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/core"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/typewire/typewire/internal/analyzer"
	"github.com/typewire/typewire/internal/shape"
	"github.com/typewire/typewire/internal/testutil"
	"golang.org/x/tools/txtar"
)

// projectTestDir returns the absolute path to testdata/project/, the fixture
// directory whose tsconfig.json every checker-backed test compiles against.
func projectTestDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return path.Join(path.Dir(filename), "..", "..", "testdata", "project")
}

// checkerEnv holds a tsgo program, checker and entry source file for tests
// that need real checker types.
type checkerEnv struct {
	program    *shimcompiler.Program
	checker    *shimchecker.Checker
	sourceFile *ast.SourceFile
}

// newCheckerEnv creates a program from one inline TypeScript source file.
func newCheckerEnv(t *testing.T, source string) *checkerEnv {
	t.Helper()
	return newCheckerEnvFiles(t, "main.ts", map[string]string{"main.ts": source})
}

// newCheckerEnvFiles creates a program from several virtual files laid over
// the fixture directory. entry names the file lookups run against.
func newCheckerEnvFiles(t *testing.T, entry string, files map[string]string) *checkerEnv {
	t.Helper()

	rootDir := projectTestDir()
	virtualFiles := make(map[string]string, len(files))
	for name, src := range files {
		virtualFiles[tspath.ResolvePath(rootDir, name)] = src
	}
	fs := testutil.NewDefaultOverlayVFS(virtualFiles)
	host := shimcompiler.NewCompilerHost(rootDir, fs, bundled.LibPath(), nil, nil)

	configParseResult, diags := tsoptions.GetParsedCommandLineOfConfigFile(
		"tsconfig.json", &core.CompilerOptions{}, nil, host, nil,
	)
	if len(diags) > 0 {
		t.Fatalf("tsconfig parse errors: %v", diags[0].String())
	}

	program := shimcompiler.NewProgram(shimcompiler.ProgramOptions{
		Config:                      configParseResult,
		SingleThreaded:              core.TSTrue,
		Host:                        host,
		UseSourceOfProjectReference: true,
	})
	if program == nil {
		t.Fatal("failed to create program")
	}
	program.BindSourceFiles()

	sourceFile := program.GetSourceFile(entry)
	if sourceFile == nil {
		t.Fatalf("source file %q not found in program", entry)
	}

	checker, release := shimcompiler.Program_GetTypeChecker(program, context.Background())
	if checker == nil {
		t.Fatal("failed to get type checker")
	}
	t.Cleanup(release)

	return &checkerEnv{program: program, checker: checker, sourceFile: sourceFile}
}

// newArchiveEnv creates a program from a txtar archive under
// testdata/project/. The archive's first file is the entry file.
func newArchiveEnv(t *testing.T, archiveName string) *checkerEnv {
	t.Helper()

	archive, err := txtar.ParseFile(path.Join(projectTestDir(), archiveName))
	if err != nil {
		t.Fatalf("reading fixture archive: %v", err)
	}
	if len(archive.Files) == 0 {
		t.Fatalf("fixture archive %s has no files", archiveName)
	}
	files := make(map[string]string, len(archive.Files))
	for _, f := range archive.Files {
		files[f.Name] = string(f.Data)
	}
	return newCheckerEnvFiles(t, archive.Files[0].Name, files)
}

// typeOf resolves the checker type of a top-level declaration by name.
func (env *checkerEnv) typeOf(t *testing.T, name string) *shimchecker.Type {
	t.Helper()

	for _, stmt := range env.sourceFile.Statements.Nodes {
		switch stmt.Kind {
		case ast.KindTypeAliasDeclaration:
			decl := stmt.AsTypeAliasDeclaration()
			if decl.Name().Text() == name {
				return shimchecker.Checker_getTypeFromTypeNode(env.checker, decl.Type)
			}
		case ast.KindInterfaceDeclaration:
			decl := stmt.AsInterfaceDeclaration()
			if decl.Name().Text() == name {
				return env.declaredTypeOf(t, decl.Name())
			}
		case ast.KindEnumDeclaration:
			decl := stmt.AsEnumDeclaration()
			if decl.Name().Text() == name {
				return env.declaredTypeOf(t, decl.Name())
			}
		case ast.KindClassDeclaration:
			decl := stmt.AsClassDeclaration()
			if decl.Name() != nil && decl.Name().Text() == name {
				return env.declaredTypeOf(t, decl.Name())
			}
		}
	}

	t.Fatalf("no declaration named %q in %s", name, env.sourceFile.FileName())
	return nil
}

func (env *checkerEnv) declaredTypeOf(t *testing.T, nameNode *ast.Node) *shimchecker.Type {
	t.Helper()
	sym := env.checker.GetSymbolAtLocation(nameNode)
	if sym == nil {
		t.Fatal("no symbol for declaration name")
	}
	return shimchecker.Checker_getDeclaredTypeOfSymbol(env.checker, sym)
}

// classify walks the named declaration's type through a fresh ShapeWalker.
func (env *checkerEnv) classify(t *testing.T, typeName string) (shape.Shape, *analyzer.ShapeWalker) {
	t.Helper()
	walker := analyzer.NewShapeWalker(env.checker, nil)
	s := walker.WalkType(env.typeOf(t, typeName))
	return s, walker
}

// resolve follows a ref shape into the walker's registry.
func resolve(t *testing.T, w *analyzer.ShapeWalker, s shape.Shape) shape.Shape {
	t.Helper()
	if s.Kind != shape.KindRef {
		return s
	}
	target := w.Registry().Get(s.Ref)
	if target == nil {
		t.Fatalf("ref %q not in registry", s.Ref)
	}
	return *target
}

// walkApp resolves the application declaration and walks its route tree.
func (env *checkerEnv) walkApp(t *testing.T, symbol string) (*analyzer.AppWalker, *analyzer.ApplicationTypes, []analyzer.RouteOperation) {
	t.Helper()

	aw := analyzer.NewAppWalker(env.checker, nil)
	app, err := aw.ResolveApplication(env.sourceFile, symbol)
	if err != nil {
		t.Fatalf("ResolveApplication: %v", err)
	}
	ops, err := aw.WalkRoutes(app.Routes)
	if err != nil {
		t.Fatalf("WalkRoutes: %v", err)
	}
	return aw, app, ops
}

// findOp returns the operation with the given method and path.
func findOp(t *testing.T, ops []analyzer.RouteOperation, method, path string) analyzer.RouteOperation {
	t.Helper()
	for _, op := range ops {
		if op.Method == method && op.Path == path {
			return op
		}
	}
	t.Fatalf("no %s %s operation, have %v", method, path, opKeys(ops))
	return analyzer.RouteOperation{}
}

func opKeys(ops []analyzer.RouteOperation) []string {
	keys := make([]string, 0, len(ops))
	for _, op := range ops {
		keys = append(keys, op.Method+" "+op.Path)
	}
	return keys
}

// responsesByStatus indexes a handler's extracted responses by status key.
// Extraction order is a worklist order callers must not rely on.
func responsesByStatus(rs []analyzer.ResponseShape) map[string]analyzer.ResponseShape {
	m := make(map[string]analyzer.ResponseShape, len(rs))
	for _, r := range rs {
		m[r.Status] = r
	}
	return m
}

// apiPrelude declares the route-tree generics the application fixtures
// instantiate: the application generic with its four error slots, route
// handlers, the response envelope and the four-slot request contract.
const apiPrelude = `
interface Reply<Status, Body, Headers> {
  readonly status: Status;
  readonly body: Body;
  readonly headers: Headers;
}

interface Handler<Responses, In> {
  readonly responses: Responses;
  readonly input: In;
}

interface Input<Headers, Params, Query, Body> {
  readonly headers: Headers;
  readonly params: Params;
  readonly query: Query;
  readonly body: Body;
}

interface Api<Routes, InternalError, NotFound, MethodNotAllowed, BadRequest> {
  readonly routes: Routes;
  readonly internalError: InternalError;
  readonly notFound: NotFound;
  readonly methodNotAllowed: MethodNotAllowed;
  readonly badRequest: BadRequest;
}
`
