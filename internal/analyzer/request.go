package analyzer

import (
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	"github.com/typewire/typewire/internal/shape"
)

// RequestParam is one operation parameter derived from the request type's
// headers, params or query slot, or back-filled from a path placeholder.
type RequestParam struct {
	Name     string
	In       string // "header", "path" or "query"
	Required bool
	Type     shape.Shape
}

// RequestBodyShape holds the meaningful request body alternatives left
// after stripping undefined and trivial members.
type RequestBodyShape struct {
	Members  []shape.Shape
	Optional bool
}

// RequestShape is everything an operation documents about its input.
type RequestShape struct {
	Parameters []RequestParam
	Body       *RequestBodyShape

	// Constrained reports whether any of the four request slots carried a
	// non-trivial type. Only constrained requests receive an injected
	// validation-error response.
	Constrained bool
}

// requestSlotLocations maps the first three positional request slots to
// their parameter locations. The fourth slot is the body.
var requestSlotLocations = [3]string{"header", "path", "query"}

// extractRequest decomposes a handler's request type. The request generic
// carries four positional slots (headers, path params, query, body); absent
// slots count as unconstrained. Path placeholders without a declared path
// parameter are appended as required string parameters.
func (aw *AppWalker) extractRequest(t *shimchecker.Type, path string) RequestShape {
	var slots [4]*shimchecker.Type
	for i, arg := range aw.typeArgsOf(t) {
		if i == len(slots) {
			break
		}
		slots[i] = arg
	}

	var req RequestShape
	declaredPath := make(map[string]bool)
	for i, loc := range requestSlotLocations {
		st := slots[i]
		if st == nil {
			continue
		}
		s := aw.walker.WalkType(st)
		s.Optional = false
		if !aw.walker.Registry().Trivial(&s) {
			req.Constrained = true
		}
		obj := aw.resolveObject(&s)
		if obj == nil {
			continue
		}
		for _, p := range obj.Properties {
			required := p.Required
			if loc == "path" {
				required = true
				declaredPath[p.Name] = true
			}
			req.Parameters = append(req.Parameters, RequestParam{Name: p.Name, In: loc, Required: required, Type: p.Type})
		}
	}

	for _, name := range PathPlaceholders(path) {
		if declaredPath[name] {
			continue
		}
		req.Parameters = append(req.Parameters, RequestParam{
			Name:     name,
			In:       "path",
			Required: true,
			Type:     shape.Shape{Kind: shape.KindAtomic, Atomic: "string"},
		})
	}

	if slots[3] != nil {
		req.Body = aw.bodyShape(slots[3], &req.Constrained)
	}
	return req
}

// bodyShape splits the body slot into union members, classifies each one
// and keeps the meaningful ones. An undefined member makes the body
// optional instead of contributing a schema. Returns nil when nothing
// meaningful remains.
func (aw *AppWalker) bodyShape(t *shimchecker.Type, constrained *bool) *RequestBodyShape {
	members := []*shimchecker.Type{t}
	if t.Flags()&shimchecker.TypeFlagsUnion != 0 {
		members = t.Types()
	}
	body := RequestBodyShape{}
	for _, m := range members {
		if m.Flags()&shimchecker.TypeFlagsUndefined != 0 {
			body.Optional = true
			continue
		}
		s := aw.walker.WalkType(m)
		s.Optional = false
		if aw.walker.Registry().Trivial(&s) {
			continue
		}
		*constrained = true
		body.Members = append(body.Members, s)
	}
	if len(body.Members) == 0 {
		return nil
	}
	return &body
}
