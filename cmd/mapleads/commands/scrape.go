package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/mapleads/cmd/mapleads/chrome"
	"github.com/jmylchreest/mapleads/internal/logger"
	"github.com/jmylchreest/mapleads/internal/output"
	"github.com/jmylchreest/mapleads/internal/store"
	"github.com/jmylchreest/mapleads/pkg/mapleads"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [query]",
	Short: "Search Google Maps and export the listings",
	Long: `Search Google Maps for a query of the form "<category> in <location>",
collect up to --total listings and write them to
<output-dir>/<YYYY-MM-DD>/<query>.<ext>.

The query can be given with --query or as positional arguments. Every
flag can also be set in the config file or through MAPLEADS_* variables,
e.g. MAPLEADS_EMAIL_FETCH=static.

Examples:
  mapleads scrape "restaurants in Paris" -n 50
  mapleads scrape -q "plumbers in Cork" --format csv --concurrency 3`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()

	// Search settings
	flags.String("query", "", `search query, e.g. "restaurants in Paris"`)
	flags.IntP("total", "n", defaultTotal, "number of listings to collect (10-200)")

	// Output settings
	flags.StringP("format", "f", defaultFormat, "output format: excel, csv, json, jsonl, yaml")
	flags.StringP("output-dir", "o", defaultOutputDir, "base output directory")

	// Browser settings
	flags.Bool("headless", true, "run Chrome without a window")
	flags.Bool("stealth", false, "enable anti-bot detection evasion")
	flags.String("chrome-path", "", "Chrome binary (default: search PATH)")
	flags.String("locale", defaultLocale, "browser locale")

	// Extraction settings
	flags.IntP("concurrency", "c", defaultConcurrency, "listings extracted at once")
	flags.String("email-fetch", defaultEmailFetch, "email lookup: browser, static, off")
	flags.Bool("follow-contact", false, "scan contact pages when the homepage has no email")
	flags.Float64("pacing-scale", 1, "multiply every randomized delay")
	flags.Float64("pacing-rate", 0, "max paced actions per second across workers (0=unlimited)")

	// Bind to viper
	_ = viper.BindPFlag("query", flags.Lookup("query"))
	_ = viper.BindPFlag("total", flags.Lookup("total"))
	_ = viper.BindPFlag("format", flags.Lookup("format"))
	_ = viper.BindPFlag("output.base_dir", flags.Lookup("output-dir"))
	_ = viper.BindPFlag("headless", flags.Lookup("headless"))
	_ = viper.BindPFlag("stealth", flags.Lookup("stealth"))
	_ = viper.BindPFlag("chrome_path", flags.Lookup("chrome-path"))
	_ = viper.BindPFlag("locale", flags.Lookup("locale"))
	_ = viper.BindPFlag("concurrency", flags.Lookup("concurrency"))
	_ = viper.BindPFlag("email.fetch", flags.Lookup("email-fetch"))
	_ = viper.BindPFlag("email.follow_contact", flags.Lookup("follow-contact"))
	_ = viper.BindPFlag("pacing.scale", flags.Lookup("pacing-scale"))
	_ = viper.BindPFlag("pacing.rate", flags.Lookup("pacing-rate"))
}

func runScrape(cmd *cobra.Command, args []string) error {
	initLogger()

	opts, err := loadScrapeOptions(viper.GetViper(), args)
	if err != nil {
		return err
	}
	logger.Debug("scrape options", "query", opts.Query, "total", opts.Total, "format", opts.Format,
		"headless", opts.Headless, "concurrency", opts.Concurrency, "email_fetch", opts.EmailFetch)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var history *store.Store
	if opts.StorePath != "" {
		history, err = store.Open(opts.StorePath)
		if err != nil {
			logger.Error("failed to open run history", "path", opts.StorePath, "error", err)
			return err
		}
		defer func() { _ = history.Close() }()
	}

	session, err := chrome.Launch(ctx, opts.chromeConfig())
	if err != nil {
		logger.Error("failed to launch browser", "error", err)
		return err
	}
	defer func() { _ = session.Close() }()

	p := opts.pacer()
	scraper, err := mapleads.New(session,
		mapleads.WithSelectors(opts.selectors()),
		mapleads.WithPacer(p),
		mapleads.WithEmailFinder(opts.emailFinder(session, p)),
		mapleads.WithConcurrency(opts.Concurrency),
	)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}

	logger.Info("starting scrape", "query", opts.Query, "total", opts.Total)
	res, err := scraper.Run(ctx, mapleads.Request{Query: opts.Query, Total: opts.Total})
	if err != nil {
		if errors.Is(err, mapleads.ErrNoListings) {
			logger.Error("no listings found", "query", opts.Query)
		} else {
			logger.Error("scrape failed", "error", err)
		}
		return err
	}

	path, err := output.Save(output.DatedDir(opts.OutputDir, res.StartedAt), res.Query.Slug(), opts.format(), res.Records)
	if err != nil {
		logger.Error("failed to write output", "error", err)
		return err
	}

	if history != nil {
		run := &store.Run{
			Query:      opts.Query,
			Category:   res.Query.Category,
			Location:   res.Query.Location,
			Total:      opts.Total,
			Found:      res.Found,
			Saved:      len(res.Records),
			Failed:     res.Failed,
			OutputPath: path,
			StartedAt:  res.StartedAt,
			FinishedAt: res.FinishedAt,
		}
		// The export already exists; a history failure does not fail the run.
		if _, err := history.SaveRun(ctx, run, res.Records); err != nil {
			logger.Warn("failed to record run", "error", err)
		}
	}

	var size int64
	if fi, err := os.Stat(path); err == nil {
		size = fi.Size()
	}
	logInfo("%s", summary(res, path, size))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// summary describes a finished run for the terminal.
func summary(res *mapleads.Result, path string, size int64) string {
	s := fmt.Sprintf("Saved %s %s to %s (%s) in %s",
		humanize.Comma(int64(len(res.Records))),
		plural(len(res.Records), "business", "businesses"),
		path,
		humanize.Bytes(uint64(max(size, 0))),
		res.Duration().Round(time.Second))
	if res.Failed > 0 || res.Duplicates > 0 {
		s += fmt.Sprintf(" [%d found, %d failed, %d duplicate]", res.Found, res.Failed, res.Duplicates)
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
