package analyzer

import (
	"strconv"

	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	"github.com/typewire/typewire/internal/shape"
)

// replyTypeName is the symbol name of the response envelope generic. A
// handler's response slot documents only members shaped Reply<Status, Body,
// Headers>; everything else in that position is ignored.
const replyTypeName = "Reply"

// ResponseShape is one documented response of a handler: the status key it
// files under, an optional body shape and the declared response headers.
type ResponseShape struct {
	// Status is the responses-map key: the decimal status code when the
	// envelope's first argument is a number literal, "default" otherwise.
	Status string

	// Body is the classified body shape, nil when the envelope declared
	// no body (undefined or omitted).
	Body *shape.Shape

	// Headers holds the declared named headers. HasHeaders distinguishes
	// an empty-but-present headers object (an index signature with no
	// named properties) from no headers at all.
	Headers    []HeaderShape
	HasHeaders bool
}

// HeaderShape is one declared response header.
type HeaderShape struct {
	Name     string
	Required bool
	Type     shape.Shape
}

// extractResponses decomposes a handler's response type into the envelope
// instances it contains. Unions are expanded and Promise wrappers unwrapped
// via a worklist; the most recently discovered member is processed first.
// Leaf types that are not response envelopes are dropped.
func (aw *AppWalker) extractResponses(t *shimchecker.Type) []ResponseShape {
	var out []ResponseShape
	stack := []*shimchecker.Type{t}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == nil {
			continue
		}
		if cur.Flags()&shimchecker.TypeFlagsUnion != 0 {
			stack = append(stack, cur.Types()...)
			continue
		}
		if inner, ok := aw.promiseInner(cur); ok {
			if inner != nil {
				stack = append(stack, inner)
			}
			continue
		}
		if args, ok := aw.replyArguments(cur); ok {
			out = append(out, aw.buildResponse(args))
		}
	}
	return out
}

// promiseInner reports whether t is a Promise instantiation and returns its
// resolved type argument.
func (aw *AppWalker) promiseInner(t *shimchecker.Type) (*shimchecker.Type, bool) {
	if t.Flags()&shimchecker.TypeFlagsObject == 0 {
		return nil, false
	}
	sym := t.Symbol()
	if sym == nil || sym.Name != "Promise" {
		return nil, false
	}
	args := shimchecker.Checker_getTypeArguments(aw.checker, t)
	if len(args) == 0 {
		return nil, true
	}
	return args[0], true
}

// replyArguments returns the (status, body, headers) type arguments when t
// is a response envelope instantiation. The envelope may be declared as an
// interface or as a type alias; both carry the Reply name.
func (aw *AppWalker) replyArguments(t *shimchecker.Type) ([]*shimchecker.Type, bool) {
	if t.Flags()&shimchecker.TypeFlagsObject == 0 {
		return nil, false
	}
	if alias := shimchecker.Type_alias(t); alias != nil && alias.Symbol() != nil && alias.Symbol().Name == replyTypeName {
		if args := alias.TypeArguments(); len(args) == 3 {
			return args, true
		}
	}
	if sym := t.Symbol(); sym != nil && sym.Name == replyTypeName {
		if args := shimchecker.Checker_getTypeArguments(aw.checker, t); len(args) == 3 {
			return args, true
		}
	}
	return nil, false
}

func (aw *AppWalker) buildResponse(args []*shimchecker.Type) ResponseShape {
	rs := ResponseShape{Status: aw.statusKey(args[0])}

	body := aw.walker.WalkType(args[1])
	body.Optional = false
	if body.Kind != shape.KindUndefined {
		rs.Body = &body
	}

	rs.Headers, rs.HasHeaders = aw.headerShapes(args[2])
	return rs
}

// statusKey renders the envelope's status argument as a responses-map key.
func (aw *AppWalker) statusKey(t *shimchecker.Type) string {
	if t != nil && t.Flags()&shimchecker.TypeFlagsNumberLiteral != 0 {
		if v, ok := normalizeLiteralValue(t.AsLiteralType().Value()).(float64); ok {
			return strconv.Itoa(int(v))
		}
	}
	return "default"
}

// headerShapes converts the envelope's headers argument into header entries.
// A headers object with zero named properties and no index signature is
// treated as absent; one carrying only an index signature stays present but
// contributes no named headers.
func (aw *AppWalker) headerShapes(t *shimchecker.Type) ([]HeaderShape, bool) {
	if t == nil {
		return nil, false
	}
	s := aw.walker.WalkType(t)
	obj := aw.resolveObject(&s)
	if obj == nil {
		return nil, false
	}
	if len(obj.Properties) == 0 && obj.IndexSignature == nil {
		return nil, false
	}
	headers := make([]HeaderShape, 0, len(obj.Properties))
	for _, p := range obj.Properties {
		headers = append(headers, HeaderShape{Name: p.Name, Required: p.Required, Type: p.Type})
	}
	return headers, true
}

// resolveObject follows one level of ref indirection and returns the object
// shape behind s, or nil when s is not object-shaped.
func (aw *AppWalker) resolveObject(s *shape.Shape) *shape.Shape {
	if s == nil {
		return nil
	}
	if s.Kind == shape.KindRef {
		s = aw.walker.Registry().Get(s.Ref)
		if s == nil {
			return nil
		}
	}
	if s.Kind != shape.KindObject {
		return nil
	}
	return s
}
