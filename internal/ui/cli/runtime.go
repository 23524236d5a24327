package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "gridnote/internal/core/app"
	"gridnote/internal/core/config"
	"gridnote/internal/core/ports"
	"gridnote/internal/data/document"
	"gridnote/internal/data/history"
	"gridnote/internal/shared/observability"
	"gridnote/internal/shared/util"
	"gridnote/internal/ui/report"
)

const (
	diagramMarker   = "refs"
	shutdownTimeout = 5 * time.Second
)

func Run(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.version {
		fmt.Printf("gridnote v%s\n", versionString)
		return 0
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	config.ApplyEnvOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		slog.Error("invalid configuration after environment overrides", "error", err)
		return 1
	}

	if err := applyModeOptions(&opts, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		slog.Error("failed to resolve runtime paths", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	historyStore, err := openHistoryStoreIfEnabled(cfg, paths)
	if err != nil {
		slog.Error("history setup failed", "error", err)
		return 1
	}
	appOpts := make([]coreapp.Option, 0, 1)
	if historyStore != nil {
		appOpts = append(appOpts, coreapp.WithHistory(history.NewAdapter(historyStore)))
	}

	app, err := coreapp.New(cfg, documentName(opts), appOpts...)
	if err != nil {
		if historyStore != nil {
			_ = historyStore.Close()
		}
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Close(cctx); err != nil {
			slog.Warn("shutdown incomplete", "error", err)
		}
	}()

	if err := openInitialDocument(ctx, app, opts); err != nil {
		slog.Error("failed to open document", "error", err)
		return 1
	}

	if cfg.Observability.MetricsAddress != "" {
		server := observability.NewMetricsServer(cfg.Observability.MetricsAddress)
		server.SetHealthHandler(coreapp.NewHealthService(app))
		server.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = server.Stop(sctx)
		}()
	}

	if err := applyAssignments(ctx, app, opts); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	if opts.hasSingleCommand() {
		return runSingleCommand(ctx, app, cfg, opts)
	}

	if !opts.ui {
		fmt.Print(renderSummary(app))
	}
	if opts.once || (len(opts.sets) > 0 && !opts.ui) {
		return 0
	}

	if err := app.StartWatcher(paths.WatchPaths); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}

	if cfgPath != "" {
		cfgWatcher := config.NewWatcher(cfgPath, func(next *config.Config) {
			if err := app.ApplyConfig(next); err != nil {
				slog.Warn("config reload rejected", "error", err)
			}
		})
		if err := cfgWatcher.Start(ctx); err != nil {
			slog.Warn("config watcher unavailable", "path", cfgPath, "error", err)
		} else {
			defer cfgWatcher.Stop()
		}
	}

	if opts.ui {
		if err := runUI(ctx, app, opts.doc); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	}

	app.SetUpdateHandler(func(u ports.Update) {
		slog.Info("sheet updated", "document", u.Document, "reason", u.Reason, "mode", u.Mode, "affected", u.Affected, "cycles", len(u.Cycles))
		fmt.Print(renderSummary(app))
	})
	slog.Info("watching for document changes", "paths", paths.WatchPaths)
	<-ctx.Done()
	return 0
}

// runSingleCommand executes every requested one-shot command in a fixed
// order and stops at the first failure.
func runSingleCommand(ctx context.Context, app *coreapp.App, cfg *config.Config, opts cliOptions) int {
	if opts.documents {
		docs, err := app.Documents(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
		fmt.Print(formatDocuments(docs))
	}

	if opts.impact != "" {
		impact, err := app.Impact(strings.ToUpper(strings.TrimSpace(opts.impact)))
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
		fmt.Print(formatImpactReport(app.Codec(), impact))
	}

	if opts.export != "" {
		if err := exportSheet(app, cfg, opts.export); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
		fmt.Printf("exported %s\n", opts.export)
	}

	if opts.injectMermaid != "" {
		if err := report.InjectSheetDiagram(opts.injectMermaid, diagramMarker, report.SheetFrom(app)); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
		fmt.Printf("updated reference diagram in %s\n", opts.injectMermaid)
	}

	if opts.revisionsTSV != "" || opts.revisionsJSON != "" {
		if err := writeRevisions(ctx, app, opts); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
	}
	return 0
}

func exportSheet(app *coreapp.App, cfg *config.Config, path string) error {
	format, err := report.FormatForPath(path)
	if err != nil {
		return err
	}
	out, err := report.Render(format, report.SheetFrom(app), report.MarkdownReportOptions{
		DocumentPath:    app.DocumentPath(),
		Version:         versionString,
		ErrorToken:      cfg.Grid.ErrorToken,
		Verbosity:       "detailed",
		TableOfContents: true,
		IncludeMermaid:  true,
	})
	if err != nil {
		return err
	}
	return writeBytes(path, []byte(out))
}

func writeRevisions(ctx context.Context, app *coreapp.App, opts cliOptions) error {
	revs, err := app.Revisions(ctx)
	if err != nil {
		return err
	}
	name := app.DocumentName()
	if opts.revisionsTSV != "" {
		data, err := report.RenderRevisionsTSV(name, revs)
		if err != nil {
			return err
		}
		if err := writeBytes(opts.revisionsTSV, data); err != nil {
			return err
		}
	}
	if opts.revisionsJSON != "" {
		data, err := report.RenderRevisionsJSON(name, revs)
		if err != nil {
			return err
		}
		if err := writeBytes(opts.revisionsJSON, data); err != nil {
			return err
		}
	}
	return nil
}

// applyAssignments runs every -set edit, then writes the result back to the
// document file (and history) so scripted edits persist.
func applyAssignments(ctx context.Context, app *coreapp.App, opts cliOptions) error {
	if len(opts.sets) == 0 {
		return nil
	}
	for _, set := range opts.sets {
		if _, err := app.Edit(ctx, set.ref, set.content); err != nil {
			return fmt.Errorf("set %s: %w", set.ref, err)
		}
	}
	if opts.doc != "" {
		if err := app.ExportFile(opts.doc); err != nil {
			return err
		}
	}
	if opts.open != "" {
		if _, err := app.Save(ctx); err != nil {
			return err
		}
	}
	return nil
}

// documentName names the initial document: the -open name, the -doc file
// name, or "untitled".
func documentName(opts cliOptions) string {
	switch {
	case opts.open != "":
		return opts.open
	case opts.doc != "":
		return document.NameFromPath(opts.doc)
	default:
		return "untitled"
	}
}

func openInitialDocument(ctx context.Context, app *coreapp.App, opts cliOptions) error {
	if opts.open != "" {
		return app.Open(ctx, opts.open)
	}
	if opts.doc == "" {
		return nil
	}
	if _, err := os.Stat(opts.doc); err != nil {
		if os.IsNotExist(err) {
			slog.Info("document does not exist yet; starting empty", "path", opts.doc)
			return nil
		}
		return err
	}
	return app.LoadFile(opts.doc)
}

func loadConfig(path, cwd string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	candidates, err := discoverDefaultConfig(cwd)
	if err != nil {
		return nil, "", err
	}

	for _, candidate := range candidates {
		cfg, loadErr := config.Load(candidate)
		if loadErr == nil {
			return cfg, candidate, nil
		}
		if os.IsNotExist(loadErr) {
			continue
		}
		return nil, "", loadErr
	}

	slog.Debug("no config file found; using defaults", "cwd", cwd)
	return config.DefaultConfig(), "", nil
}

func discoverDefaultConfig(cwd string) ([]string, error) {
	if strings.TrimSpace(cwd) == "" {
		return nil, fmt.Errorf("cwd must not be empty")
	}
	return []string{
		filepath.Clean(filepath.Join(cwd, "data/config/gridnote.toml")),
		filepath.Clean(filepath.Join(cwd, "gridnote.toml")),
		filepath.Clean(filepath.Join(cwd, "data/config/gridnote.example.toml")),
		filepath.Clean(filepath.Join(cwd, "gridnote.example.toml")),
	}, nil
}

func applyModeOptions(opts *cliOptions, cfg *config.Config) error {
	if len(opts.args) > 1 {
		return fmt.Errorf("at most one positional document path is accepted")
	}
	if len(opts.args) == 1 {
		if opts.doc != "" {
			return fmt.Errorf("--doc and a positional document path cannot be combined")
		}
		opts.doc = opts.args[0]
	}

	if opts.doc != "" && opts.open != "" {
		return fmt.Errorf("--doc and --open cannot be combined")
	}
	if opts.ui && opts.once {
		return fmt.Errorf("--ui and --once cannot be combined")
	}
	if opts.ui && opts.hasSingleCommand() {
		return fmt.Errorf("--ui cannot be combined with one-shot commands")
	}

	needsHistory := opts.open != "" || opts.documents || opts.revisionsTSV != "" || opts.revisionsJSON != ""
	if needsHistory && !cfg.DB.Enabled {
		return fmt.Errorf("--open, --documents and --revisions-* require db.enabled = true")
	}

	if opts.export != "" {
		if _, err := report.FormatForPath(opts.export); err != nil {
			return err
		}
	}
	return nil
}

func writeBytes(path string, data []byte) error {
	return util.WriteFileWithDirs(path, data, 0o644)
}

func openHistoryStoreIfEnabled(cfg *config.Config, paths config.ResolvedPaths) (*history.Store, error) {
	if !cfg.DB.Enabled {
		return nil, nil
	}

	store, err := history.Open(paths.DBPath, cfg.DB.BusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return store, nil
}

func configureLogging(uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stderr
	var closeFn func() = func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
				if err == nil {
					output = f
					closeFn = func() { _ = f.Close() }
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "gridnote", "gridnote.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "gridnote", "gridnote.log")
	}

	return "gridnote.log"
}
