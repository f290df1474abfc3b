// Command editor-monitor runs the featured image heuristic against a saved
// snapshot of the editor page and writes the updated page back out.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/upb/publish-guard/internal/editormonitor"
	"github.com/upb/publish-guard/internal/editormonitor/htmldom"
	"github.com/upb/publish-guard/internal/i18n"
	"github.com/upb/publish-guard/internal/observability"
	"github.com/upb/publish-guard/models"
)

type options struct {
	server    string
	item      string
	token     string
	imageBase string
	snapshot  string
	out       string
	interval  time.Duration
	ticks     int
	minWidth  int
	minHeight int
	locale    string
	logLevel  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "editor-monitor",
		Short: "Check an editor page snapshot for a usable featured image",
		Long: `editor-monitor loads a saved HTML snapshot of the post editor and runs the
featured image check on it: a notice is added and the publish control is
disabled while the image is missing or looks too small.

The guard settings come from the API when --server and --item are set.
Otherwise --min-width, --min-height and --locale describe them.

Example:
  editor-monitor --snapshot edit.html --server http://localhost:8080 \
    --item 6f1c... --token "$TOKEN" --ticks 3 --out edit.checked.html`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context(), cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.snapshot, "snapshot", "", "HTML snapshot of the editor page")
	f.StringVar(&opts.out, "out", "", "write the checked page to this file")
	f.StringVar(&opts.server, "server", "", "publish guard API base url")
	f.StringVar(&opts.item, "item", "", "content item id for the bootstrap request")
	f.StringVar(&opts.token, "token", "", "bearer token for the API")
	f.StringVar(&opts.imageBase, "image-base", "", "base url for relative image sources (default: --server)")
	f.DurationVar(&opts.interval, "interval", editormonitor.DefaultInterval, "time between checks")
	f.IntVar(&opts.ticks, "ticks", 3, "number of checks to run, 0 runs until interrupted")
	f.IntVar(&opts.minWidth, "min-width", models.ActivationMinimumSize.Width, "minimum width without a server")
	f.IntVar(&opts.minHeight, "min-height", models.ActivationMinimumSize.Height, "minimum height without a server")
	f.StringVar(&opts.locale, "locale", i18n.BaseLocale, "notice language without a server")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	_ = cmd.MarkFlagRequired("snapshot")

	return cmd
}

func runMonitor(ctx context.Context, cmd *cobra.Command, opts *options) error {
	if opts.ticks < 0 {
		return fmt.Errorf("--ticks must not be negative")
	}
	if (opts.server == "") != (opts.item == "") {
		return fmt.Errorf("--server and --item go together")
	}

	logger, err := observability.NewLogger(opts.logLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	page, err := loadSnapshot(opts.snapshot)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	boot, err := resolveBootstrap(ctx, client, opts)
	if err != nil {
		return err
	}

	base := opts.imageBase
	if base == "" {
		base = opts.server
	}
	prober, err := editormonitor.NewHTTPProber(client, base, logger.Named("prober"))
	if err != nil {
		return err
	}
	defer prober.Close()

	monitor := editormonitor.New(page, prober, boot,
		editormonitor.WithInterval(opts.interval),
		editormonitor.WithLogger(logger.Named("monitor")))

	enc := json.NewEncoder(cmd.OutOrStdout())
	if !boot.Enforced {
		logger.Info("featured image is not enforced for this item")
		if err := enc.Encode(editormonitor.Status{}); err != nil {
			return err
		}
		return writePage(page, opts.out)
	}

	if opts.ticks == 0 {
		if err := monitor.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		monitor.Stop()
		if err := enc.Encode(monitor.Last()); err != nil {
			return err
		}
		return writePage(page, opts.out)
	}

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()
	for i := 0; i < opts.ticks; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return writePage(page, opts.out)
			case <-ticker.C:
			}
		}
		status := monitor.Tick()
		if err := enc.Encode(status); err != nil {
			return err
		}
		// let the first image load settle so later checks see its size
		prober.Wait()
	}

	return writePage(page, opts.out)
}

func loadSnapshot(path string) (*htmldom.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return htmldom.Parse(f)
}

func resolveBootstrap(ctx context.Context, client *http.Client, opts *options) (editormonitor.Bootstrap, error) {
	if opts.server != "" {
		return editormonitor.FetchBootstrap(ctx, client, opts.server, opts.item, opts.token)
	}

	tag, ok := i18n.ParseTag(opts.locale)
	if !ok {
		return editormonitor.Bootstrap{}, fmt.Errorf("unsupported locale %q", opts.locale)
	}
	size := models.MinimumSize{Width: opts.minWidth, Height: opts.minHeight}
	if size.Width < 0 || size.Height < 0 {
		return editormonitor.Bootstrap{}, fmt.Errorf("minimum size must not be negative")
	}
	return editormonitor.Bootstrap{
		Enforced:            true,
		MissingImageMessage: i18n.EditorNoImageNotice(tag),
		TooSmallMessage:     i18n.EditorTooSmallNotice(tag, size),
		MinWidth:            size.Width,
		MinHeight:           size.Height,
	}, nil
}

func writePage(page *htmldom.Page, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := page.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}
