package openapi

import (
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"
)

// ValidationError represents one OpenAPI compliance problem.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// knownMethods are the HTTP methods a path item may carry.
var knownMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

// ValidateDocument checks a document for OpenAPI 3.1 structural compliance:
// required top-level fields, path shapes, parameter rules, response
// descriptions and $ref resolution. Returns nil when the document is valid.
func ValidateDocument(doc *Document) []ValidationError {
	var errors []ValidationError

	if doc.OpenAPI == "" {
		errors = append(errors, ValidationError{Path: "openapi", Message: "required field missing"})
	} else if !strings.HasPrefix(doc.OpenAPI, "3.1") {
		errors = append(errors, ValidationError{Path: "openapi", Message: fmt.Sprintf("expected 3.1.x, got %q", doc.OpenAPI)})
	}

	if doc.Info.Title == "" {
		errors = append(errors, ValidationError{Path: "info.title", Message: "required field missing"})
	}
	if doc.Info.Version == "" {
		errors = append(errors, ValidationError{Path: "info.version", Message: "required field missing"})
	}

	if doc.Paths == nil {
		errors = append(errors, ValidationError{Path: "paths", Message: "required field missing"})
	}

	for path, item := range doc.Paths {
		if !strings.HasPrefix(path, "/") {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("paths[%q]", path),
				Message: "path must begin with /",
			})
		}
		for method, op := range item {
			prefix := fmt.Sprintf("paths[%q].%s", path, method)
			if !knownMethods[method] {
				errors = append(errors, ValidationError{Path: prefix, Message: "unknown HTTP method"})
			}
			if op == nil {
				continue
			}
			errors = append(errors, validateOperation(prefix, op, doc)...)
		}
	}

	for name, schema := range doc.Components.Schemas {
		errors = append(errors, validateSchema("components.schemas."+name, schema, doc)...)
	}
	for name, resp := range doc.Components.Responses {
		errors = append(errors, validateResponse("components.responses."+name, resp, doc)...)
	}

	return errors
}

func validateOperation(prefix string, op *Operation, doc *Document) []ValidationError {
	var errors []ValidationError

	if len(op.Responses) == 0 {
		errors = append(errors, ValidationError{
			Path:    prefix + ".responses",
			Message: "at least one response is required",
		})
	}

	for i, param := range op.Parameters {
		paramPath := fmt.Sprintf("%s.parameters[%d]", prefix, i)
		if param.Name == "" {
			errors = append(errors, ValidationError{Path: paramPath + ".name", Message: "required field missing"})
		}
		if param.In == "" {
			errors = append(errors, ValidationError{Path: paramPath + ".in", Message: "required field missing"})
		} else if param.In != "query" && param.In != "path" && param.In != "header" && param.In != "cookie" {
			errors = append(errors, ValidationError{
				Path:    paramPath + ".in",
				Message: fmt.Sprintf("invalid value %q, must be query/path/header/cookie", param.In),
			})
		}
		if param.In == "path" && !param.Required {
			errors = append(errors, ValidationError{
				Path:    paramPath + ".required",
				Message: "path parameters must be required",
			})
		}
		errors = append(errors, validateSchema(paramPath+".schema", param.Schema, doc)...)
	}

	if op.RequestBody != nil {
		for mediaType, media := range op.RequestBody.Content {
			errors = append(errors, validateSchema(fmt.Sprintf("%s.requestBody.content[%q].schema", prefix, mediaType), media.Schema, doc)...)
		}
	}

	for code, resp := range op.Responses {
		errors = append(errors, validateResponse(fmt.Sprintf("%s.responses[%s]", prefix, code), resp, doc)...)
	}

	return errors
}

func validateResponse(prefix string, resp *Response, doc *Document) []ValidationError {
	var errors []ValidationError
	if resp == nil {
		return []ValidationError{{Path: prefix, Message: "response object missing"}}
	}
	if resp.Description == "" {
		errors = append(errors, ValidationError{Path: prefix + ".description", Message: "required field missing"})
	}
	for name, header := range resp.Headers {
		if header == nil {
			continue
		}
		errors = append(errors, validateSchema(fmt.Sprintf("%s.headers[%q].schema", prefix, name), header.Schema, doc)...)
	}
	for mediaType, media := range resp.Content {
		errors = append(errors, validateSchema(fmt.Sprintf("%s.content[%q].schema", prefix, mediaType), media.Schema, doc)...)
	}
	return errors
}

// validateSchema walks a schema fragment checking $ref hygiene: refs must
// resolve inside the document's component table and must not be combined
// with an inline type. Component internals reference each other by name,
// never by pointer, so the recursion terminates.
func validateSchema(prefix string, schema *Schema, doc *Document) []ValidationError {
	var errors []ValidationError
	if schema == nil {
		return nil
	}

	if schema.Ref != "" {
		if schema.Type != "" {
			errors = append(errors, ValidationError{
				Path:    prefix,
				Message: "$ref should not be combined with type",
			})
		}
		name, ok := strings.CutPrefix(schema.Ref, "#/components/schemas/")
		if !ok {
			errors = append(errors, ValidationError{
				Path:    prefix + ".$ref",
				Message: fmt.Sprintf("unsupported reference target %q", schema.Ref),
			})
		} else if _, exists := doc.Components.Schemas[name]; !exists {
			errors = append(errors, ValidationError{
				Path:    prefix + ".$ref",
				Message: fmt.Sprintf("unresolved reference %q", schema.Ref),
			})
		}
	}

	for name, prop := range schema.Properties {
		errors = append(errors, validateSchema(fmt.Sprintf("%s.properties[%q]", prefix, name), prop, doc)...)
	}
	errors = append(errors, validateSchema(prefix+".items", schema.Items, doc)...)
	errors = append(errors, validateSchema(prefix+".additionalProperties", schema.AdditionalProperties, doc)...)
	errors = append(errors, validateSchema(prefix+".not", schema.Not, doc)...)
	for i, sub := range schema.PrefixItems {
		errors = append(errors, validateSchema(fmt.Sprintf("%s.prefixItems[%d]", prefix, i), sub, doc)...)
	}
	for i, sub := range schema.OneOf {
		errors = append(errors, validateSchema(fmt.Sprintf("%s.oneOf[%d]", prefix, i), sub, doc)...)
	}
	for i, sub := range schema.AllOf {
		errors = append(errors, validateSchema(fmt.Sprintf("%s.allOf[%d]", prefix, i), sub, doc)...)
	}

	return errors
}

// ValidateJSON validates raw JSON against the same structural requirements.
func ValidateJSON(jsonData []byte) ([]ValidationError, error) {
	var doc Document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return ValidateDocument(&doc), nil
}
