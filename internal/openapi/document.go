package openapi

import (
	"regexp"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/typewire/typewire/internal/analyzer"
	"github.com/typewire/typewire/internal/shape"
)

const (
	openAPIVersion = "3.1.0"
	jsonMediaType  = "application/json"
)

// Document represents an OpenAPI 3.1 document.
type Document struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
}

// Info holds API metadata. Title and version come from the caller, never
// from the analyzed source.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// PathItem maps lowercased HTTP methods to their operations.
type PathItem map[string]*Operation

// Operation represents one HTTP operation.
type Operation struct {
	OperationID string       `json:"operationId"`
	Parameters  []Parameter  `json:"parameters,omitempty"`
	RequestBody *RequestBody `json:"requestBody,omitzero"`
	Responses   Responses    `json:"responses"`
}

// Parameter represents an operation parameter (header, path or query).
type Parameter struct {
	Name     string  `json:"name"`
	In       string  `json:"in"`
	Required bool    `json:"required"`
	Schema   *Schema `json:"schema"`
}

// RequestBody represents an operation request body.
type RequestBody struct {
	Required bool                 `json:"required"`
	Content  map[string]MediaType `json:"content"`
}

// MediaType holds the schema for one content type.
type MediaType struct {
	Schema *Schema `json:"schema"`
}

// Responses maps status-code keys (or "default") to response objects.
type Responses map[string]*Response

// Response represents one response entry. Headers distinguishes nil (no
// headers declared) from an empty map (a headers object declared with no
// named entries), so it serializes whenever non-nil.
type Response struct {
	Description string               `json:"description"`
	Headers     map[string]*Header   `json:"headers,omitzero"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// Header represents one declared response header.
type Header struct {
	Required bool    `json:"required,omitzero"`
	Schema   *Schema `json:"schema"`
}

// Components holds the reusable pieces of the document: the schema table
// plus the shared routing-level error responses when any are configured.
type Components struct {
	Schemas   map[string]*Schema   `json:"schemas"`
	Responses map[string]*Response `json:"responses,omitempty"`
}

// DocumentBuilder accumulates operations and assembles the final document.
// One builder serves one generation run and owns its component table; it is
// discarded after serialization.
type DocumentBuilder struct {
	schemas *SchemaBuilder
	doc     *Document

	internalError    *Response
	validationError  *Response
	notFound         *Response
	methodNotAllowed *Response
}

// NewDocumentBuilder creates a builder for one generation run.
func NewDocumentBuilder(schemas *SchemaBuilder, info Info) *DocumentBuilder {
	if schemas == nil {
		schemas = NewSchemaBuilder(nil)
	}
	return &DocumentBuilder{
		schemas: schemas,
		doc: &Document{
			OpenAPI: openAPIVersion,
			Info:    info,
			Paths:   make(map[string]PathItem),
		},
	}
}

// ConfigureErrors installs the application's configured error body shapes.
// A nil shape means that error is not documented. The internal-error
// response is appended to every operation; the validation-error response to
// operations with a constrained request; not-found and method-not-allowed
// become shared components only, since the routing layer owns them.
func (d *DocumentBuilder) ConfigureErrors(internal, notFound, methodNotAllowed, validation *shape.Shape) {
	if internal != nil {
		d.internalError = d.errorResponse("Internal Server Error", internal)
	}
	if notFound != nil {
		d.notFound = d.errorResponse("Not Found", notFound)
	}
	if methodNotAllowed != nil {
		d.methodNotAllowed = d.errorResponse("Method Not Allowed", methodNotAllowed)
	}
	if validation != nil {
		d.validationError = d.errorResponse("Validation Error", validation)
	}
}

func (d *DocumentBuilder) errorResponse(description string, s *shape.Shape) *Response {
	return &Response{
		Description: description,
		Content:     map[string]MediaType{jsonMediaType: {Schema: d.schemas.SchemaFor(s)}},
	}
}

// AddOperation emits one route operation into the document, splicing in the
// configured error responses. A second operation for an existing
// (path, method) key merges into the first one's response map.
func (d *DocumentBuilder) AddOperation(ro analyzer.RouteOperation) {
	path := convertPath(ro.Path)
	pathItem, ok := d.doc.Paths[path]
	if !ok {
		pathItem = PathItem{}
		d.doc.Paths[path] = pathItem
	}

	op, ok := pathItem[ro.Method]
	if !ok {
		op = &Operation{
			OperationID: operationID(ro.Method, ro.Path),
			Responses:   make(Responses),
		}
		for _, p := range ro.Request.Parameters {
			op.Parameters = append(op.Parameters, Parameter{
				Name:     p.Name,
				In:       p.In,
				Required: p.Required,
				Schema:   d.schemas.SchemaFor(&p.Type),
			})
		}
		if ro.Request.Body != nil {
			op.RequestBody = &RequestBody{
				Required: !ro.Request.Body.Optional,
				Content: map[string]MediaType{
					jsonMediaType: {Schema: d.schemas.SchemaForAlternatives(ro.Request.Body.Members)},
				},
			}
		}
		pathItem[ro.Method] = op
	}

	for _, rs := range ro.Responses {
		addResponse(op.Responses, rs.Status, d.responseFor(rs))
	}
	if d.internalError != nil {
		addResponse(op.Responses, "500", cloneResponse(d.internalError))
	}
	if d.validationError != nil && ro.Request.Constrained {
		addResponse(op.Responses, "400", cloneResponse(d.validationError))
	}
}

// responseFor converts an extracted response shape into a response object
// with the synthesized "HTTP <status>" description.
func (d *DocumentBuilder) responseFor(rs analyzer.ResponseShape) *Response {
	resp := &Response{Description: "HTTP " + rs.Status}
	if rs.Body != nil {
		resp.Content = map[string]MediaType{jsonMediaType: {Schema: d.schemas.SchemaFor(rs.Body)}}
	}
	if rs.HasHeaders {
		resp.Headers = make(map[string]*Header, len(rs.Headers))
		for _, h := range rs.Headers {
			resp.Headers[h.Name] = &Header{Required: h.Required, Schema: d.schemas.SchemaFor(&h.Type)}
		}
	}
	return resp
}

// Document finalizes and returns the assembled document: the component
// table is completed and the shared error responses attached.
func (d *DocumentBuilder) Document() *Document {
	d.schemas.BuildAll()
	d.doc.Components.Schemas = d.schemas.Schemas()

	shared := make(map[string]*Response)
	if d.notFound != nil {
		shared["NotFound"] = d.notFound
	}
	if d.methodNotAllowed != nil {
		shared["MethodNotAllowed"] = d.methodNotAllowed
	}
	if d.validationError != nil {
		shared["ValidationError"] = d.validationError
	}
	if len(shared) > 0 {
		d.doc.Components.Responses = shared
	}
	return d.doc
}

// genericDescription matches the synthesized descriptions that merged
// responses may overwrite.
var genericDescription = regexp.MustCompile(`^HTTP (\d+|default)$`)

// addResponse files a response under its status key, merging with an
// existing entry: headers shallow-merge with the later write winning,
// bodies combine into a oneOf when both exist, and the description keeps
// the first non-generic value encountered.
func addResponse(responses Responses, status string, incoming *Response) {
	existing, ok := responses[status]
	if !ok {
		responses[status] = incoming
		return
	}

	if len(incoming.Headers) > 0 {
		if existing.Headers == nil {
			existing.Headers = make(map[string]*Header, len(incoming.Headers))
		}
		for name, h := range incoming.Headers {
			existing.Headers[name] = h
		}
	}

	switch {
	case existing.Content == nil:
		existing.Content = incoming.Content
	case incoming.Content != nil:
		merged := &Schema{OneOf: []*Schema{
			existing.Content[jsonMediaType].Schema,
			incoming.Content[jsonMediaType].Schema,
		}}
		existing.Content = map[string]MediaType{jsonMediaType: {Schema: merged}}
	}

	existing.Description = mergeDescription(existing.Description, incoming.Description, status)
}

func mergeDescription(existing, incoming, status string) string {
	if existing != "" && !genericDescription.MatchString(existing) {
		return existing
	}
	if incoming != "" {
		return incoming
	}
	if existing != "" {
		return existing
	}
	return "HTTP " + status
}

func cloneResponse(r *Response) *Response {
	clone := &Response{Description: r.Description}
	if r.Content != nil {
		clone.Content = make(map[string]MediaType, len(r.Content))
		for k, v := range r.Content {
			clone.Content[k] = v
		}
	}
	if r.Headers != nil {
		clone.Headers = make(map[string]*Header, len(r.Headers))
		for k, v := range r.Headers {
			clone.Headers[k] = v
		}
	}
	return clone
}

// convertPath rewrites :param segments into OpenAPI {param} form.
// e.g. "/users/:id" becomes "/users/{id}".
func convertPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, ":") && len(part) > 1 {
			parts[i] = "{" + part[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

var segmentCaser = cases.Title(language.English, cases.NoLower)

// operationID derives a camelCase operation id from the method and route
// path: "GET /users/:id" becomes "getUsersById", the root path becomes
// "<method>Root".
func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	wrote := false
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if seg[0] == ':' {
			if len(seg) == 1 {
				continue
			}
			b.WriteString("By")
			seg = seg[1:]
		}
		if word := titleSegment(seg); word != "" {
			b.WriteString(word)
			wrote = true
		}
	}
	if !wrote {
		b.WriteString("Root")
	}
	return b.String()
}

// titleSegment title-cases each alphanumeric run of a path segment and
// joins them, so "user-profiles" becomes "UserProfiles".
func titleSegment(seg string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(seg, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) {
		b.WriteString(segmentCaser.String(part))
	}
	return b.String()
}

// ToJSON serializes the document: two-space indentation, deterministic key
// order for map-backed members, UTF-8, trailing newline.
func (doc *Document) ToJSON() ([]byte, error) {
	data, err := json.Marshal(doc, json.Deterministic(true), jsontext.WithIndent("  "))
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
