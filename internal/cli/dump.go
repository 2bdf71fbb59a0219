package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/typewire/typewire/internal/analyzer"
	"github.com/typewire/typewire/internal/config"
	"github.com/typewire/typewire/internal/shape"
)

// shapeDump is the JSON document emitted by dump-shapes: every operation's
// classified request and response shapes, the configured error shapes, and
// the named-shape registry accumulated while walking.
type shapeDump struct {
	Symbol     string                  `json:"symbol"`
	Operations []operationDump         `json:"operations"`
	Errors     map[string]*shape.Shape `json:"errors,omitempty"`
	Shapes     map[string]*shape.Shape `json:"shapes"`
}

type operationDump struct {
	Method    string         `json:"method"`
	Path      string         `json:"path"`
	Responses []responseDump `json:"responses"`
	Request   requestDump    `json:"request"`
}

type responseDump struct {
	Status  string       `json:"status"`
	Body    *shape.Shape `json:"body,omitempty"`
	Headers []headerDump `json:"headers,omitempty"`
}

type headerDump struct {
	Name     string      `json:"name"`
	Required bool        `json:"required"`
	Type     shape.Shape `json:"type"`
}

type requestDump struct {
	Parameters  []parameterDump `json:"parameters,omitempty"`
	Body        *bodyDump       `json:"body,omitempty"`
	Constrained bool            `json:"constrained"`
}

type parameterDump struct {
	Name     string      `json:"name"`
	In       string      `json:"in"`
	Required bool        `json:"required"`
	Type     shape.Shape `json:"type"`
}

type bodyDump struct {
	Members  []shape.Shape `json:"members"`
	Optional bool          `json:"optional"`
}

func newDumpShapesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump-shapes <source-file> <symbol>",
		Short: "Dump the classified shapes of an application type as JSON",
		Long: "Resolve the application type named <symbol> and print the classified " +
			"request, response and error shapes of every route as JSON, before any " +
			"OpenAPI conversion. Useful for debugging unexpected schemas.",
		Example: strings.TrimSpace(`  typewire dump-shapes src/app.ts MyApp
  typewire dump-shapes src/app.ts MyApp --tsconfig tsconfig.build.json`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDumpShapes(cmd, args)
		},
	}

	cmd.Flags().String("tsconfig", "", "Path to tsconfig.json (discovered from the source directory when omitted)")

	return cmd
}

func runDumpShapes(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	cfg := config.Default()
	cfg.Source = strings.TrimSpace(args[0])
	cfg.Symbol = strings.TrimSpace(args[1])
	if tsconfig, err := cmd.Flags().GetString("tsconfig"); err == nil {
		cfg.TSConfig = strings.TrimSpace(tsconfig)
	}

	proj, err := openProject(cwd, &cfg)
	if err != nil {
		return err
	}
	an, err := proj.buildAnalyzer(cfg.Source)
	if err != nil {
		return err
	}
	defer an.Close()

	aw := an.Walker
	app, err := aw.ResolveApplication(an.SourceFile, cfg.Symbol)
	if err != nil {
		return err
	}
	ops, err := aw.WalkRoutes(app.Routes)
	if err != nil {
		return err
	}

	dump := shapeDump{
		Symbol:     cfg.Symbol,
		Operations: make([]operationDump, 0, len(ops)),
		Shapes:     aw.Registry().Shapes,
	}
	for _, op := range ops {
		dump.Operations = append(dump.Operations, dumpOperation(op))
	}

	errorShapes := map[string]*shape.Shape{
		"500": aw.ErrorShape(app.InternalError),
		"404": aw.ErrorShape(app.NotFound),
		"405": aw.ErrorShape(app.MethodNotAllowed),
		"400": aw.ErrorShape(app.BadRequest),
	}
	for status, s := range errorShapes {
		if s == nil {
			delete(errorShapes, status)
		}
	}
	if len(errorShapes) > 0 {
		dump.Errors = errorShapes
	}

	data, err := json.Marshal(dump, json.Deterministic(true), jsontext.WithIndent("  "))
	if err != nil {
		return fmt.Errorf("encoding shape dump: %w", err)
	}
	data = append(data, '\n')
	_, err = os.Stdout.Write(data)
	return err
}

func dumpOperation(op analyzer.RouteOperation) operationDump {
	out := operationDump{
		Method:    op.Method,
		Path:      op.Path,
		Responses: make([]responseDump, 0, len(op.Responses)),
		Request: requestDump{
			Constrained: op.Request.Constrained,
		},
	}
	for _, rs := range op.Responses {
		rd := responseDump{Status: rs.Status, Body: rs.Body}
		for _, h := range rs.Headers {
			rd.Headers = append(rd.Headers, headerDump{Name: h.Name, Required: h.Required, Type: h.Type})
		}
		out.Responses = append(out.Responses, rd)
	}
	for _, p := range op.Request.Parameters {
		out.Request.Parameters = append(out.Request.Parameters, parameterDump{
			Name:     p.Name,
			In:       p.In,
			Required: p.Required,
			Type:     p.Type,
		})
	}
	if op.Request.Body != nil {
		out.Request.Body = &bodyDump{
			Members:  op.Request.Body.Members,
			Optional: op.Request.Body.Optional,
		}
	}
	return out
}
