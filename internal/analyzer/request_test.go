package analyzer_test

import (
	"testing"

	"github.com/typewire/typewire/internal/shape"
)

func TestExtractRequestParameterSlots(t *testing.T) {
	env := newCheckerEnv(t, apiPrelude+`
export type App = Api<{
  path: "/users/:id";
  methods: {
    get: Handler<
      Reply<200, { name: string }, undefined>,
      Input<{ authorization: string; trace?: string }, { id: number }, { limit?: number }, undefined>
    >;
  };
}, undefined, undefined, undefined, undefined>;
`)

	_, _, ops := env.walkApp(t, "App")
	req := findOp(t, ops, "get", "/users/:id").Request

	if !req.Constrained {
		t.Fatal("expected a constrained request")
	}
	if req.Body != nil {
		t.Fatalf("expected no body, got %+v", req.Body)
	}

	want := []struct {
		name     string
		in       string
		required bool
		atomic   string
	}{
		{"authorization", "header", true, "string"},
		{"trace", "header", false, "string"},
		{"id", "path", true, "number"},
		{"limit", "query", false, "number"},
	}
	if len(req.Parameters) != len(want) {
		t.Fatalf("expected %d parameters, got %+v", len(want), req.Parameters)
	}
	for i, w := range want {
		p := req.Parameters[i]
		if p.Name != w.name || p.In != w.in || p.Required != w.required {
			t.Errorf("parameter %d: expected %+v, got %+v", i, w, p)
		}
		if p.Type.Kind != shape.KindAtomic || p.Type.Atomic != w.atomic {
			t.Errorf("parameter %s: expected atomic %s, got %+v", w.name, w.atomic, p.Type)
		}
	}
}

// Placeholders without a declared path parameter are back-filled as required
// strings; declared ones keep their type and are not duplicated.
func TestExtractRequestPathBackfill(t *testing.T) {
	env := newCheckerEnv(t, apiPrelude+`
export type App = Api<{
  path: "/users/:id/:action";
  methods: {
    post: Handler<
      Reply<200, { done: boolean }, undefined>,
      Input<undefined, { id: number }, undefined, undefined>
    >;
  };
}, undefined, undefined, undefined, undefined>;
`)

	_, _, ops := env.walkApp(t, "App")
	req := findOp(t, ops, "post", "/users/:id/:action").Request

	if len(req.Parameters) != 2 {
		t.Fatalf("expected declared id plus back-filled action, got %+v", req.Parameters)
	}

	id := req.Parameters[0]
	if id.Name != "id" || id.In != "path" || !id.Required {
		t.Fatalf("unexpected id parameter: %+v", id)
	}
	if id.Type.Atomic != "number" {
		t.Fatalf("declared id should keep its number type, got %+v", id.Type)
	}

	action := req.Parameters[1]
	if action.Name != "action" || action.In != "path" || !action.Required {
		t.Fatalf("unexpected action parameter: %+v", action)
	}
	if action.Type.Kind != shape.KindAtomic || action.Type.Atomic != "string" {
		t.Fatalf("back-filled parameters are strings, got %+v", action.Type)
	}
}

// Path parameters are always required even when the declaration marks them
// optional.
func TestExtractRequestPathParamsForcedRequired(t *testing.T) {
	env := newCheckerEnv(t, apiPrelude+`
export type App = Api<{
  path: "/files/:name";
  methods: {
    get: Handler<
      Reply<200, { data: string }, undefined>,
      Input<undefined, { name?: string }, undefined, undefined>
    >;
  };
}, undefined, undefined, undefined, undefined>;
`)

	_, _, ops := env.walkApp(t, "App")
	req := findOp(t, ops, "get", "/files/:name").Request

	if len(req.Parameters) != 1 {
		t.Fatalf("expected one parameter, got %+v", req.Parameters)
	}
	if !req.Parameters[0].Required {
		t.Fatal("path parameters must be required")
	}
}

func TestExtractRequestUnconstrainedSlots(t *testing.T) {
	env := newCheckerEnv(t, apiPrelude+`
interface EmptyQuery {}
export type App = Api<{
  path: "/";
  methods: {
    get: Handler<Reply<200, { ok: boolean }, undefined>, Input<undefined, undefined, undefined, undefined>>;
    put: Handler<Reply<200, { ok: boolean }, undefined>, Input<unknown, unknown, unknown, unknown>>;
    post: Handler<Reply<200, { ok: boolean }, undefined>, Input<undefined, undefined, EmptyQuery, undefined>>;
    patch: Handler<Reply<200, { ok: boolean }, undefined>, unknown>;
  };
}, undefined, undefined, undefined, undefined>;
`)

	_, _, ops := env.walkApp(t, "App")

	for _, method := range []string{"get", "put", "post", "patch"} {
		req := findOp(t, ops, method, "/").Request
		if req.Constrained {
			t.Errorf("%s: expected an unconstrained request", method)
		}
		if len(req.Parameters) != 0 {
			t.Errorf("%s: expected no parameters, got %+v", method, req.Parameters)
		}
		if req.Body != nil {
			t.Errorf("%s: expected no body, got %+v", method, req.Body)
		}
	}
}

func TestExtractRequestBodies(t *testing.T) {
	env := newCheckerEnv(t, apiPrelude+`
interface User { name: string; }
interface CreateOrder { item: string; }
interface UpdateOrder { quantity: number; }
export type App = Api<{
  path: "/";
  children: [
    { path: "/a"; methods: { post: Handler<Reply<201, { id: number }, undefined>, Input<undefined, undefined, undefined, { name: string }>> } },
    { path: "/b"; methods: { post: Handler<Reply<201, { id: number }, undefined>, Input<undefined, undefined, undefined, User | undefined>> } },
    { path: "/c"; methods: { post: Handler<Reply<201, { id: number }, undefined>, Input<undefined, undefined, undefined, CreateOrder | UpdateOrder>> } },
    { path: "/d"; methods: { post: Handler<Reply<201, { id: number }, undefined>, Input<undefined, undefined, undefined, {} | undefined>> } },
  ];
}, undefined, undefined, undefined, undefined>;
`)

	_, _, ops := env.walkApp(t, "App")

	a := findOp(t, ops, "post", "/a").Request
	if a.Body == nil || len(a.Body.Members) != 1 || a.Body.Optional {
		t.Fatalf("expected one required body member, got %+v", a.Body)
	}
	if a.Body.Members[0].Kind != shape.KindObject {
		t.Fatalf("expected inline object member, got %+v", a.Body.Members[0])
	}
	if !a.Constrained {
		t.Fatal("a body makes the request constrained")
	}

	b := findOp(t, ops, "post", "/b").Request
	if b.Body == nil || len(b.Body.Members) != 1 || !b.Body.Optional {
		t.Fatalf("expected one optional body member, got %+v", b.Body)
	}
	if b.Body.Members[0].Kind != shape.KindRef || b.Body.Members[0].Ref != "User" {
		t.Fatalf("expected ref to User, got %+v", b.Body.Members[0])
	}

	c := findOp(t, ops, "post", "/c").Request
	if c.Body == nil || len(c.Body.Members) != 2 || c.Body.Optional {
		t.Fatalf("expected two required body members, got %+v", c.Body)
	}
	refs := map[string]bool{}
	for _, m := range c.Body.Members {
		if m.Kind != shape.KindRef {
			t.Fatalf("expected ref members, got %+v", m)
		}
		refs[m.Ref] = true
	}
	if !refs["CreateOrder"] || !refs["UpdateOrder"] {
		t.Fatalf("expected CreateOrder and UpdateOrder members, got %v", refs)
	}

	d := findOp(t, ops, "post", "/d").Request
	if d.Body != nil {
		t.Fatalf("a body with no meaningful members should be nil, got %+v", d.Body)
	}
	if d.Constrained {
		t.Fatal("an empty body alternative should not constrain the request")
	}
}

// A body alone constrains the request even when every parameter slot is
// absent; the distinction drives validation-error injection downstream.
func TestExtractRequestConstrainedByBodyOnly(t *testing.T) {
	env := newCheckerEnv(t, apiPrelude+`
export type App = Api<{
  path: "/sum";
  methods: {
    post: Handler<Reply<200, { total: number }, undefined>, Input<undefined, undefined, undefined, { a: number; b: number }>>;
  };
}, undefined, undefined, undefined, undefined>;
`)

	_, _, ops := env.walkApp(t, "App")
	req := findOp(t, ops, "post", "/sum").Request

	if len(req.Parameters) != 0 {
		t.Fatalf("expected no parameters, got %+v", req.Parameters)
	}
	if req.Body == nil || !req.Constrained {
		t.Fatalf("expected body-only request to be constrained, got %+v", req)
	}
}
