package commands

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/sqlinline/internal/cli/output"
	"github.com/leapstack-labs/sqlinline/pkg/esbuildplugin"
	"github.com/leapstack-labs/sqlinline/pkg/inline"
	"github.com/spf13/cobra"
)

// defaultDebounce is the quiet period after the last change before rebuilding.
const defaultDebounce = 100 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [entry...]",
		Short: "Rebuild whenever sources or SQL files change",
		Long: `Build once, then watch the project root and rebuild when a source file or
a .sql file changes. Changed SQL files are dropped from the content cache so
the next build reads them again.

node_modules, hidden directories and the output location are not watched.
Build errors are printed and the watch continues. Stop with Ctrl+C.`,
		Example: `  # Watch the configured entry points
  sqlinline watch

  # Watch with a longer quiet period
  sqlinline watch src/index.ts --debounce 500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, debounce)
		},
	}

	addBuildFlags(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "Quiet period before rebuilding")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string, debounce time.Duration) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	entries, err := absPaths(args)
	if err != nil {
		return err
	}
	buildCfg := cmdCtx.Cfg.EsbuildConfig(entries)

	builder, err := esbuildplugin.NewBuilder(buildCfg, cmdCtx.Transformer, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer builder.Dispose()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	ignore := []string{buildCfg.Outdir, buildCfg.Outfile}
	s := &watchSession{
		builder:  builder,
		cache:    cmdCtx.Transformer.Cache(),
		logger:   cmdCtx.Logger,
		root:     cmdCtx.Cfg.ProjectRoot,
		ignore:   ignore,
		debounce: debounce,
		onBuild: func(report *esbuildplugin.BuildReport, err error) {
			reportWatchBuild(r, cmdCtx.Cfg.ProjectRoot, report, err)
		},
	}

	if err := s.watchDir(watcher, s.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.root, err)
	}

	s.build(ctx)
	r.Println(r.Muted(fmt.Sprintf("Watching %s for changes. Press Ctrl+C to stop.", s.root)))

	s.watchLoop(ctx, watcher)
	return nil
}

// rebuilder runs one incremental build.
type rebuilder interface {
	Rebuild(ctx context.Context) (*esbuildplugin.BuildReport, error)
}

// watchSession turns file system events into debounced rebuilds.
type watchSession struct {
	builder  rebuilder
	cache    *inline.ContentCache
	logger   *slog.Logger
	root     string
	ignore   []string // paths whose events are dropped, e.g. the build output
	debounce time.Duration
	onBuild  func(*esbuildplugin.BuildReport, error)
}

// watchDir recursively adds a directory to the watcher.
func (s *watchSession) watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if (path != dir && skipDir(d.Name())) || s.ignored(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// skipDir reports whether a directory is never watched.
func skipDir(name string) bool {
	return name == "node_modules" || strings.HasPrefix(name, ".")
}

func (s *watchSession) ignored(path string) bool {
	for _, p := range s.ignore {
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// watchLoop handles file system events until ctx is done. Rebuilds run on
// this goroutine so they never overlap.
func (s *watchSession) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !s.handleEvent(watcher, event) {
				continue
			}
			timer.Reset(s.debounce)

		case <-timer.C:
			s.build(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

// handleEvent reacts to one event and reports whether it calls for a rebuild.
func (s *watchSession) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if s.ignored(event.Name) {
		return false
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !skipDir(info.Name()) {
				if err := s.watchDir(watcher, event.Name); err != nil {
					s.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
				}
			}
			return false
		}
	}

	ext := filepath.Ext(event.Name)
	switch {
	case ext == ".sql":
		if s.cache != nil {
			s.cache.Invalidate(event.Name)
		}
	case slices.Contains(sourceExtensions, ext):
	default:
		return false
	}

	s.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
	return true
}

func (s *watchSession) build(ctx context.Context) {
	report, err := s.builder.Rebuild(ctx)
	if ctx.Err() != nil {
		return
	}
	if s.onBuild != nil {
		s.onBuild(report, err)
	}
}

func reportWatchBuild(r *output.Renderer, root string, report *esbuildplugin.BuildReport, err error) {
	if report != nil {
		for _, w := range report.Warnings {
			r.Warning(w)
		}
	}
	if err != nil {
		r.Error(err.Error())
		return
	}
	r.Success(fmt.Sprintf("%s rebuilt: inlined %d call sites into %d outputs in %s",
		time.Now().Format(time.TimeOnly), report.Rewritten(), len(report.Outputs),
		report.Duration.Round(time.Millisecond)))
	for _, f := range report.Files {
		if f.Warnings > 0 {
			r.Println(r.Muted(fmt.Sprintf("  %s: %d warnings", relPath(root, f.Path), f.Warnings)))
		}
	}
}
