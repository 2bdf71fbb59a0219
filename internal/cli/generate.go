package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/typewire/typewire/internal/analyzer"
	"github.com/typewire/typewire/internal/compiler"
	"github.com/typewire/typewire/internal/config"
	"github.com/typewire/typewire/internal/diagnostic"
	"github.com/typewire/typewire/internal/gencache"
	"github.com/typewire/typewire/internal/openapi"
	"github.com/typewire/typewire/internal/watcher"
)

// generateOptions captures all inputs that influence one generation run after
// merging defaults, config file values, positional arguments and flag
// overrides.
type generateOptions struct {
	cfg            *config.Config
	configPath     string // absolute path of the loaded config file, if any
	configWarnings []string
	quiet          bool
	strict         bool
	watch          bool
	check          bool
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <source-file> <symbol> [output]",
		Short: "Generate an OpenAPI 3.1 document from an application type",
		Long: "Generate an OpenAPI 3.1 document for the application type named <symbol>, " +
			"declared in <source-file>. The route tree, response envelopes and request " +
			"shapes are read from type metadata alone. Options can be provided via " +
			"flags, a config file, or defaults.",
		Example: strings.TrimSpace(`  typewire generate src/app.ts MyApp
  typewire generate src/app.ts MyApp api/openapi.json --title "Billing API"
  typewire generate --config typewire.yaml --watch`),
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveGenerateOptions(cmd, args)
			if err != nil {
				return err
			}
			return generateRunner(opts)
		},
	}

	flags := cmd.Flags()
	flags.String("tsconfig", "", "Path to tsconfig.json (discovered from the source directory when omitted)")
	flags.String("config", "", "typewire config file (JSON or YAML)")
	flags.String("title", "", "Document info.title")
	flags.String("doc-version", "", "Document info.version")
	flags.Bool("cache", false, "Skip regeneration when inputs are unchanged")
	flags.Bool("watch", false, "Watch source files and regenerate on change")
	flags.Bool("check", false, "Run the compliance validator on the assembled document before writing")

	return cmd
}

func resolveGenerateOptions(cmd *cobra.Command, args []string) (*generateOptions, error) {
	flags := cmd.Flags()

	cfg := config.Default()
	opts := &generateOptions{cfg: &cfg}

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, newUsageError(fmt.Sprintf("generate: %v", err))
		}
		opts.cfg = loaded
		opts.configPath = configPath
		if abs, err := filepath.Abs(configPath); err == nil {
			opts.configPath = abs
		}
	}

	// Positional arguments override the config file.
	if len(args) > 0 {
		opts.cfg.Source = strings.TrimSpace(args[0])
	}
	if len(args) > 1 {
		opts.cfg.Symbol = strings.TrimSpace(args[1])
	}
	if len(args) > 2 {
		opts.cfg.Output = strings.TrimSpace(args[2])
	}

	// Flags override everything else.
	if err := applyFlagOverrides(flags, opts.cfg); err != nil {
		return nil, err
	}
	if opts.watch, err = flags.GetBool("watch"); err != nil {
		return nil, err
	}
	if opts.check, err = flags.GetBool("check"); err != nil {
		return nil, err
	}
	if opts.quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}
	if opts.strict, err = flags.GetBool("strict"); err != nil {
		return nil, err
	}

	result := opts.cfg.ValidateDetailed()
	if !result.IsValid() {
		return nil, newUsageError("generate: " + strings.Join(result.Errors, "; "))
	}
	opts.configWarnings = result.Warnings

	return opts, nil
}

// applyFlagOverrides copies explicitly-set flag values over the merged
// config. Unset flags leave file and default values alone.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("tsconfig") {
		value, err := flags.GetString("tsconfig")
		if err != nil {
			return err
		}
		cfg.TSConfig = strings.TrimSpace(value)
	}
	if flags.Changed("title") {
		value, err := flags.GetString("title")
		if err != nil {
			return err
		}
		cfg.Document.Title = strings.TrimSpace(value)
	}
	if flags.Changed("doc-version") {
		value, err := flags.GetString("doc-version")
		if err != nil {
			return err
		}
		cfg.Document.Version = strings.TrimSpace(value)
	}
	if flags.Changed("cache") {
		value, err := flags.GetBool("cache")
		if err != nil {
			return err
		}
		cfg.Cache.Enabled = value
	}
	return nil
}

func runGenerate(opts *generateOptions) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	if opts.watch {
		return runWatch(opts, cwd)
	}
	return generateOnce(opts, cwd)
}

// generateOnce runs the full pipeline: open the project, build the program,
// resolve the application type, walk its routes, assemble the document and
// write it. With caching enabled, an unchanged inputs digest skips
// everything after the tsconfig parse.
func generateOnce(opts *generateOptions, cwd string) error {
	cfg := opts.cfg

	proj, err := openProject(cwd, cfg)
	if err != nil {
		return err
	}

	outputPath := cfg.Output
	if outputPath == "" {
		outputPath = config.DefaultOutput(cfg.Symbol)
	}
	if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(cwd, outputPath)
	}

	var cachePath, inputsHash string
	if cfg.Cache.Enabled {
		seed := strings.Join([]string{
			Version,
			cfg.Symbol,
			cfg.Document.Title,
			cfg.Document.Description,
			cfg.Document.Version,
			outputPath,
		}, "\x00")
		inputs := append([]string(nil), proj.parsed.FileNames()...)
		inputs = append(inputs, proj.tsconfigPath)
		if opts.configPath != "" {
			inputs = append(inputs, opts.configPath)
		}
		inputsHash = gencache.HashInputs(seed, inputs)
		cachePath = gencache.CachePath(cfg.Cache.Dir, outputPath)
		if entry := gencache.Load(cachePath); entry.IsValid(inputsHash) {
			fmt.Fprintln(os.Stderr, "inputs unchanged, skipping generation")
			fmt.Println(displayPath(outputPath, cwd))
			return nil
		}
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
	fmt.Fprintf(os.Stderr, "found %d route(s) on %s\n", len(ops), cfg.Symbol)

	builder := openapi.NewSchemaBuilder(aw.Registry())
	docBuilder := openapi.NewDocumentBuilder(builder, openapi.Info{
		Title:       cfg.Document.Title,
		Description: cfg.Document.Description,
		Version:     cfg.Document.Version,
	})
	docBuilder.ConfigureErrors(
		aw.ErrorShape(app.InternalError),
		aw.ErrorShape(app.NotFound),
		aw.ErrorShape(app.MethodNotAllowed),
		aw.ErrorShape(app.BadRequest),
	)
	for _, op := range ops {
		docBuilder.AddOperation(op)
	}
	doc := docBuilder.Document()

	collector := diagnostic.NewCollector(opts.strict, opts.quiet)
	for _, w := range opts.configWarnings {
		collector.Warn(diagnostic.CategoryConfigInvalid, "", 0, w)
	}
	for _, w := range aw.Warnings().Warnings {
		collector.Warn(diagnostic.CategoryForKind(w.Kind), w.File, 0, w.Message)
	}
	if out := collector.FormatAll(); out != "" {
		fmt.Fprint(os.Stderr, out)
	}
	if collector.HasErrors() {
		return fmt.Errorf("aborting, %s in strict mode", collector.Summary())
	}

	if opts.check {
		if problems := openapi.ValidateDocument(doc); len(problems) > 0 {
			for _, p := range problems {
				fmt.Fprintf(os.Stderr, "check: %s\n", p.Error())
			}
			return fmt.Errorf("document failed compliance check with %d problem(s)", len(problems))
		}
	}

	data, err := doc.ToJSON()
	if err != nil {
		return fmt.Errorf("serializing document: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}

	if cfg.Cache.Enabled {
		if err := gencache.New(inputsHash, outputPath).Save(cachePath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	fmt.Println(displayPath(outputPath, cwd))
	return nil
}

// runWatch generates once, then keeps regenerating whenever the source tree,
// the tsconfig or the config file changes. Generation failures are reported
// and watching continues.
func runWatch(opts *generateOptions, cwd string) error {
	regen := func(events []watcher.Event) {
		fmt.Fprintf(os.Stderr, "detected %d change(s), regenerating...\n", len(events))
		if err := generateOnce(opts, cwd); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}

	if err := generateOnce(opts, cwd); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	sourceDir := filepath.Dir(tspath.ResolvePath(cwd, opts.cfg.Source))
	w := watcher.New(
		[]string{sourceDir},
		[]string{".ts", ".tsx", ".mts", ".cts"},
		100*time.Millisecond,
		regen,
	)
	if tsconfigPath, err := resolveTSConfig(compiler.CreateDefaultFS(), cwd, opts.cfg); err == nil {
		w.WatchFile(tsconfigPath)
	}
	if opts.configPath != "" {
		w.WatchFile(opts.configPath)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nshutting down...")
		w.Stop()
	}()

	fmt.Fprintln(os.Stderr, "watching for changes...")
	return w.Watch()
}

// displayPath prefers a path relative to the working directory for output,
// falling back to the absolute path when outside it.
func displayPath(path, cwd string) string {
	rel, err := filepath.Rel(cwd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
