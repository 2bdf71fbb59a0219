// Package analyzer resolves an application type from a TypeScript program
// and extracts the route operations and named shapes needed to document it.
//
// The entry point is AppWalker: given a checker it finds the application
// declaration (a type alias or annotated variable instantiating the
// application generic), walks the route tree carried by its first type
// argument and classifies every type it meets into shape.Shape values.
package analyzer

import (
	"fmt"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	"github.com/typewire/typewire/internal/shape"
)

// ApplicationTypes are the five type arguments of a resolved application
// declaration: the route tree and the configured 500/404/405/400 body
// shapes.
type ApplicationTypes struct {
	Routes           *shimchecker.Type
	InternalError    *shimchecker.Type
	NotFound         *shimchecker.Type
	MethodNotAllowed *shimchecker.Type
	BadRequest       *shimchecker.Type
}

// AppWalker drives extraction for one application type: it resolves the
// declaration, walks the route tree and turns each handler into a route
// operation. One AppWalker serves one generation run; the registry it
// accumulates is not reusable across programs.
type AppWalker struct {
	checker  *shimchecker.Checker
	walker   *ShapeWalker
	warnings *WarningCollector
}

// NewAppWalker creates a walker bound to a checker. A nil warnings
// collector is replaced with a fresh one.
func NewAppWalker(checker *shimchecker.Checker, warnings *WarningCollector) *AppWalker {
	if warnings == nil {
		warnings = NewWarningCollector()
	}
	return &AppWalker{
		checker:  checker,
		walker:   NewShapeWalker(checker, warnings),
		warnings: warnings,
	}
}

// Registry exposes the named shapes collected while walking.
func (aw *AppWalker) Registry() *shape.Registry { return aw.walker.Registry() }

// Warnings exposes the collected analysis warnings.
func (aw *AppWalker) Warnings() *WarningCollector { return aw.warnings }

// ResolveApplication finds the declaration named symbolName in sf and
// returns its five type arguments. The declaration may be a type alias
// (type App = Api<...>) or a variable (const app: Api<...> = ...).
func (aw *AppWalker) ResolveApplication(sf *ast.SourceFile, symbolName string) (*ApplicationTypes, error) {
	t := aw.declaredType(sf, symbolName)
	if t == nil {
		return nil, fmt.Errorf("no declaration named %q in %s", symbolName, sf.FileName())
	}
	args := aw.typeArgsOf(t)
	if len(args) < 5 {
		return nil, fmt.Errorf("%s must instantiate the application generic with five type arguments (routes plus the 500, 404, 405 and 400 shapes), found %d", symbolName, len(args))
	}
	return &ApplicationTypes{
		Routes:           args[0],
		InternalError:    args[1],
		NotFound:         args[2],
		MethodNotAllowed: args[3],
		BadRequest:       args[4],
	}, nil
}

// ErrorShape classifies one configured error body slot. A trivial slot
// means the application does not document that error, so injection for it
// is skipped.
func (aw *AppWalker) ErrorShape(t *shimchecker.Type) *shape.Shape {
	if t == nil {
		return nil
	}
	s := aw.walker.WalkType(t)
	s.Optional = false
	if aw.walker.Registry().Trivial(&s) {
		return nil
	}
	return &s
}

// declaredType resolves the checker type of a top-level declaration. Type
// aliases resolve through their type node; variables prefer the annotation
// and fall back to the symbol's inferred type.
func (aw *AppWalker) declaredType(sf *ast.SourceFile, name string) *shimchecker.Type {
	for _, stmt := range sf.Statements.Nodes {
		switch stmt.Kind {
		case ast.KindTypeAliasDeclaration:
			decl := stmt.AsTypeAliasDeclaration()
			if decl.Name().Text() != name {
				continue
			}
			return shimchecker.Checker_getTypeFromTypeNode(aw.checker, decl.Type)
		case ast.KindVariableStatement:
			list := stmt.AsVariableStatement().DeclarationList
			if list == nil {
				continue
			}
			for _, d := range list.AsVariableDeclarationList().Declarations.Nodes {
				decl := d.AsVariableDeclaration()
				if decl.Name() == nil || decl.Name().Text() != name {
					continue
				}
				if decl.Type != nil {
					return shimchecker.Checker_getTypeFromTypeNode(aw.checker, decl.Type)
				}
				if sym := aw.checker.GetSymbolAtLocation(decl.Name()); sym != nil {
					return shimchecker.Checker_getTypeOfSymbol(aw.checker, sym)
				}
			}
		}
	}
	return nil
}

// typeArgsOf returns the type arguments of an instantiated generic, whether
// the generic was declared as an interface or as a type alias. Returns nil
// for types that are not generic instantiations.
func (aw *AppWalker) typeArgsOf(t *shimchecker.Type) []*shimchecker.Type {
	if t == nil || t.Flags()&shimchecker.TypeFlagsObject == 0 {
		return nil
	}
	if alias := shimchecker.Type_alias(t); alias != nil {
		if args := alias.TypeArguments(); len(args) > 0 {
			return args
		}
	}
	if shimchecker.Type_objectFlags(t)&shimchecker.ObjectFlagsAnonymous != 0 {
		return nil
	}
	return shimchecker.Checker_getTypeArguments(aw.checker, t)
}
