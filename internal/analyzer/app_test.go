package analyzer_test

import (
	"reflect"
	"testing"

	"github.com/typewire/typewire/internal/shape"
)

// The application type may assemble routes, handlers and bodies imported
// from sibling modules; resolution follows the program's module graph.
func TestWalkApplicationAcrossModules(t *testing.T) {
	env := newArchiveEnv(t, "widgets.txtar")

	aw, app, ops := env.walkApp(t, "App")

	want := []string{
		"get /widgets",
		"post /widgets",
		"get /widgets/:widgetId",
	}
	if got := opKeys(ops); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected operations %v, got %v", want, got)
	}

	list := findOp(t, ops, "get", "/widgets")
	body := list.Responses[0].Body
	if body == nil || body.Kind != shape.KindArray {
		t.Fatalf("expected array body, got %+v", body)
	}
	if body.Element.Kind != shape.KindRef || body.Element.Ref != "Widget" {
		t.Fatalf("expected Widget elements, got %+v", body.Element)
	}

	byID := findOp(t, ops, "get", "/widgets/:widgetId")
	rs := responsesByStatus(byID.Responses)
	if _, ok := rs["200"]; !ok {
		t.Fatalf("missing 200 response, got %v", statusKeys(byID.Responses))
	}
	notFound, ok := rs["404"]
	if !ok {
		t.Fatalf("missing 404 response, got %v", statusKeys(byID.Responses))
	}
	if notFound.Body == nil || notFound.Body.Ref != "ProblemDetails" {
		t.Fatalf("expected ProblemDetails body, got %+v", notFound.Body)
	}
	if len(byID.Request.Parameters) != 1 || byID.Request.Parameters[0].Name != "widgetId" {
		t.Fatalf("expected the declared widgetId parameter, got %+v", byID.Request.Parameters)
	}

	if !aw.Registry().Has("Widget") {
		t.Fatal("expected Widget in the registry")
	}

	if s := aw.ErrorShape(app.InternalError); s == nil || s.Ref != "ProblemDetails" {
		t.Fatalf("expected ProblemDetails internal error shape, got %+v", s)
	}
	if s := aw.ErrorShape(app.MethodNotAllowed); s != nil {
		t.Fatalf("undefined slot should yield nil, got %+v", s)
	}
}
