package openapi

import (
	"context"
	"path"
	"runtime"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/microsoft/typescript-go/shim/bundled"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/core"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/typewire/typewire/internal/analyzer"
	"github.com/typewire/typewire/internal/testutil"
)

// fixtureProjectDir returns the absolute path to testdata/project/, whose
// tsconfig.json the end-to-end fixtures compile against.
func fixtureProjectDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return path.Join(path.Dir(filename), "..", "..", "testdata", "project")
}

// compileApplication builds a program from one virtual source file and walks
// the named application declaration's route tree.
func compileApplication(t *testing.T, source, symbol string) (*analyzer.AppWalker, *analyzer.ApplicationTypes, []analyzer.RouteOperation) {
	t.Helper()

	rootDir := fixtureProjectDir()
	fs := testutil.NewDefaultOverlayVFS(map[string]string{
		tspath.ResolvePath(rootDir, "main.ts"): source,
	})
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

	sourceFile := program.GetSourceFile("main.ts")
	if sourceFile == nil {
		t.Fatal("entry file not found in program")
	}

	checker, release := shimcompiler.Program_GetTypeChecker(program, context.Background())
	if checker == nil {
		t.Fatal("failed to get type checker")
	}
	t.Cleanup(release)

	aw := analyzer.NewAppWalker(checker, nil)
	app, err := aw.ResolveApplication(sourceFile, symbol)
	if err != nil {
		t.Fatalf("ResolveApplication: %v", err)
	}
	ops, err := aw.WalkRoutes(app.Routes)
	if err != nil {
		t.Fatalf("WalkRoutes: %v", err)
	}
	return aw, app, ops
}

// servicePrelude declares the route-tree generics the end-to-end fixture
// instantiates.
const servicePrelude = `
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

// calcAppSource is a small service with one unconstrained route and one
// route that declares a request body plus its own 400 response.
const calcAppSource = servicePrelude + `
interface ApiError {
  message: string;
  code: number;
}

export type App = Api<{
  path: "/";
  children: [
    {
      path: "/ping";
      methods: {
        get: Handler<Reply<200, { message: string }, undefined>, Input<undefined, undefined, undefined, undefined>>;
      };
    },
    {
      path: "/sum";
      methods: {
        post: Handler<
          Reply<200, { result: number }, undefined> | Reply<400, { error: string }, undefined>,
          Input<undefined, undefined, undefined, { a: number; b: number }>
        >;
      };
    }
  ];
}, ApiError, ApiError, ApiError, ApiError>;
`

// buildServiceDocument compiles the fixture and runs the whole pipeline up
// to the assembled document.
func buildServiceDocument(t *testing.T) *Document {
	t.Helper()

	aw, app, ops := compileApplication(t, calcAppSource, "App")

	builder := NewDocumentBuilder(NewSchemaBuilder(aw.Registry()), Info{Title: "Calc Service", Version: "1.2.3"})
	builder.ConfigureErrors(
		aw.ErrorShape(app.InternalError),
		aw.ErrorShape(app.NotFound),
		aw.ErrorShape(app.MethodNotAllowed),
		aw.ErrorShape(app.BadRequest),
	)
	for _, op := range ops {
		builder.AddOperation(op)
	}
	return builder.Document()
}

func TestGenerateDocumentEndToEnd(t *testing.T) {
	doc := buildServiceDocument(t)

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("openapi = %q, want 3.1.0", doc.OpenAPI)
	}
	if !sameKeys(pathKeys(doc), []string{"/ping", "/sum"}) {
		t.Fatalf("paths = %v, want /ping and /sum", pathKeys(doc))
	}

	ping := doc.Paths["/ping"]["get"]
	if ping == nil {
		t.Fatal("no get operation on /ping")
	}
	if ping.OperationID != "getPing" {
		t.Errorf("operationId = %q, want getPing", ping.OperationID)
	}
	if len(ping.Parameters) != 0 {
		t.Errorf("unexpected parameters on /ping: %v", ping.Parameters)
	}
	if ping.RequestBody != nil {
		t.Error("unexpected request body on /ping")
	}
	if !sameKeys(responseKeys(ping), []string{"200", "500"}) {
		t.Fatalf("/ping responses = %v, want 200 and 500 only", responseKeys(ping))
	}
	success := ping.Responses["200"]
	if success.Description != "HTTP 200" {
		t.Errorf("200 description = %q", success.Description)
	}
	body := success.Content[jsonMediaType].Schema
	if body.Type != "object" || body.Properties["message"] == nil || body.Properties["message"].Type != "string" {
		t.Errorf("200 body schema = %+v, want object with string message", body)
	}
	internal := ping.Responses["500"]
	if internal.Description != "Internal Server Error" {
		t.Errorf("500 description = %q", internal.Description)
	}
	if ref := internal.Content[jsonMediaType].Schema.Ref; ref != "#/components/schemas/ApiError" {
		t.Errorf("500 body ref = %q", ref)
	}

	sum := doc.Paths["/sum"]["post"]
	if sum == nil {
		t.Fatal("no post operation on /sum")
	}
	if sum.OperationID != "postSum" {
		t.Errorf("operationId = %q, want postSum", sum.OperationID)
	}
	if sum.RequestBody == nil {
		t.Fatal("missing request body on /sum")
	}
	if !sum.RequestBody.Required {
		t.Error("request body should be required")
	}
	reqSchema := sum.RequestBody.Content[jsonMediaType].Schema
	if reqSchema.Type != "object" || reqSchema.Properties["a"] == nil || reqSchema.Properties["b"] == nil {
		t.Errorf("request body schema = %+v, want object with a and b", reqSchema)
	}
	if len(reqSchema.Required) != 2 {
		t.Errorf("request body required = %v, want both properties", reqSchema.Required)
	}
	if !sameKeys(responseKeys(sum), []string{"200", "400", "500"}) {
		t.Fatalf("/sum responses = %v, want 200, 400 and 500", responseKeys(sum))
	}

	badRequest := sum.Responses["400"]
	if badRequest.Description != "Validation Error" {
		t.Errorf("400 description = %q, want Validation Error", badRequest.Description)
	}
	merged := badRequest.Content[jsonMediaType].Schema
	if len(merged.OneOf) != 2 {
		t.Fatalf("400 body oneOf has %d members, want 2", len(merged.OneOf))
	}
	if merged.OneOf[0].Properties["error"] == nil {
		t.Errorf("first 400 alternative = %+v, want the handler's error object", merged.OneOf[0])
	}
	if merged.OneOf[1].Ref != "#/components/schemas/ApiError" {
		t.Errorf("second 400 alternative ref = %q", merged.OneOf[1].Ref)
	}

	if len(doc.Components.Schemas) != 1 {
		t.Errorf("component schemas = %v, want ApiError only", doc.Components.Schemas)
	}
	apiErr := doc.Components.Schemas["ApiError"]
	if apiErr == nil {
		t.Fatal("ApiError component missing")
	}
	if apiErr.Properties["message"] == nil || apiErr.Properties["code"] == nil || len(apiErr.Required) != 2 {
		t.Errorf("ApiError schema = %+v", apiErr)
	}
	shared := make([]string, 0, len(doc.Components.Responses))
	for name := range doc.Components.Responses {
		shared = append(shared, name)
	}
	if !sameKeys(shared, []string{"NotFound", "MethodNotAllowed", "ValidationError"}) {
		t.Errorf("shared responses = %v", shared)
	}

	if errs := ValidateDocument(doc); len(errs) != 0 {
		t.Errorf("generated document fails validation: %v", errs)
	}
}

func TestGeneratedJSONCrossCheck(t *testing.T) {
	doc := buildServiceDocument(t)
	data, err := doc.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !strings.HasSuffix(string(data), "}\n") {
		t.Error("serialized document must end with a trailing newline")
	}
	errs, err := ValidateJSON(data)
	if err != nil {
		t.Fatalf("reparsing serialized document: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("serialized document fails validation: %v", errs)
	}

	kdoc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		t.Fatalf("kin-openapi rejected the document: %v", err)
	}
	if kdoc.OpenAPI != "3.1.0" {
		t.Errorf("kin-openapi read version %q", kdoc.OpenAPI)
	}
	if len(kdoc.Paths) != 2 {
		t.Fatalf("kin-openapi read %d paths, want 2", len(kdoc.Paths))
	}

	ping := kdoc.Paths["/ping"]
	if ping == nil || ping.Get == nil {
		t.Fatal("kin-openapi did not read get /ping")
	}
	if ping.Get.OperationID != "getPing" {
		t.Errorf("operationId = %q", ping.Get.OperationID)
	}
	internal := ping.Get.Responses["500"]
	if internal == nil || internal.Value == nil {
		t.Fatal("kin-openapi did not read the 500 response")
	}
	if internal.Value.Description == nil || *internal.Value.Description != "Internal Server Error" {
		t.Errorf("500 description = %v", internal.Value.Description)
	}
	errSchema := internal.Value.Content[jsonMediaType].Schema
	if errSchema.Ref != "#/components/schemas/ApiError" {
		t.Errorf("500 schema ref = %q", errSchema.Ref)
	}
	if errSchema.Value == nil || errSchema.Value.Properties["message"] == nil {
		t.Error("kin-openapi did not resolve the ApiError reference")
	}

	sum := kdoc.Paths["/sum"]
	if sum == nil || sum.Post == nil {
		t.Fatal("kin-openapi did not read post /sum")
	}
	rb := sum.Post.RequestBody
	if rb == nil || rb.Value == nil || !rb.Value.Required {
		t.Fatal("kin-openapi did not read the required request body")
	}
	reqSchema := rb.Value.Content[jsonMediaType].Schema.Value
	if reqSchema.Type != "object" || reqSchema.Properties["a"] == nil || reqSchema.Properties["b"] == nil {
		t.Errorf("request body schema = %+v", reqSchema)
	}
	if len(sum.Post.Responses) != 3 {
		t.Errorf("kin-openapi read %d responses on /sum, want 3", len(sum.Post.Responses))
	}
	badRequest := sum.Post.Responses["400"]
	if badRequest == nil || badRequest.Value == nil {
		t.Fatal("kin-openapi did not read the 400 response")
	}
	oneOf := badRequest.Value.Content[jsonMediaType].Schema.Value.OneOf
	if len(oneOf) != 2 {
		t.Fatalf("400 oneOf has %d members, want 2", len(oneOf))
	}
	if oneOf[0].Value == nil || oneOf[0].Value.Properties["error"] == nil {
		t.Error("first 400 alternative should be the handler's error object")
	}
	if oneOf[1].Ref != "#/components/schemas/ApiError" {
		t.Errorf("second 400 alternative ref = %q", oneOf[1].Ref)
	}

	if kdoc.Components == nil {
		t.Fatal("kin-openapi read no components")
	}
	if kdoc.Components.Schemas["ApiError"] == nil {
		t.Error("ApiError component missing after round trip")
	}
	for _, name := range []string{"NotFound", "MethodNotAllowed", "ValidationError"} {
		if kdoc.Components.Responses[name] == nil {
			t.Errorf("shared response %s missing after round trip", name)
		}
	}
}
