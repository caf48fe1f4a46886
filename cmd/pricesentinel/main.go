package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"PriceSentinel/internal/analyzer"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/scheduler"
	"PriceSentinel/internal/server"
)

var version = "dev"

func main() {
	cliApp := &cli.App{
		Name:    "pricesentinel",
		Usage:   "Compare ingredient purchases against online market prices",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/config.yaml",
				Usage:   "Path to YAML config",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			compareCommand(),
			analyzeCommand(),
			reportCommand(),
			refreshCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withApp loads config, wires components and runs fn.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API, scheduled jobs and Telegram bot",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "refresh-on-start", Usage: "Refresh stale purchases immediately", EnvVars: []string{"RUN_ON_START"}},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				sched := scheduler.NewScheduler(ctx, a.tracker, a.telegram)
				if err := sched.RegisterAll(a.cfg.Schedule.RefreshCron, a.cfg.Schedule.ReportCron); err != nil {
					return err
				}
				sched.Start()
				defer sched.Stop()

				go a.telegram.StartPolling(ctx, sched.HandleCommand)

				if c.Bool("refresh-on-start") {
					go func() {
						if _, err := sched.RunRefreshNow(ctx); err != nil {
							log.Error().Err(err).Msg("refresh on start")
						}
					}()
				}

				srv := &http.Server{
					Addr:              a.cfg.Server.Addr,
					Handler:           server.New(a.analyzer, a.tracker, a.coster, a.cfg.Server.WriteTimeout),
					ReadHeaderTimeout: 10 * time.Second,
				}
				errCh := make(chan error, 1)
				go func() {
					log.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting PriceSentinel")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
					close(errCh)
				}()

				select {
				case err := <-errCh:
					if err != nil {
						return fmt.Errorf("http server: %w", err)
					}
				case <-ctx.Done():
					log.Info().Msg("shutdown signal received, stopping")
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		},
	}
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Compare one purchase against the market",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "item", Aliases: []string{"i"}, Required: true, Usage: "Item name, e.g. 양파"},
			&cli.Float64Flag{Name: "price", Aliases: []string{"p"}, Required: true, Usage: "Total price paid (KRW)"},
			&cli.Float64Flag{Name: "amount", Aliases: []string{"a"}, Value: 1, Usage: "Quantity bought"},
			&cli.StringFlag{Name: "unit", Aliases: []string{"u"}, Value: "개", Usage: "Unit of the quantity"},
			&cli.BoolFlag{Name: "save", Usage: "Record the purchase and its analysis"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				item := model.PurchaseItem{
					Name:   c.String("item"),
					Price:  c.Float64("price"),
					Amount: c.Float64("amount"),
					Unit:   c.String("unit"),
				}
				if c.Bool("save") {
					p, err := a.tracker.Record(ctx, item, time.Time{})
					if err != nil {
						return err
					}
					results, err := a.tracker.Refresh(ctx, []model.PurchaseRecord{*p})
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, results[0])
				}
				return printJSON(c.App.Writer, a.analyzer.AnalyzeItem(ctx, item))
			})
		},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze a JSON array of purchase items and print the report",
		ArgsUsage: "[items.json]",
		Action: func(c *cli.Context) error {
			var r io.Reader = os.Stdin
			if path := c.Args().First(); path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open items: %w", err)
				}
				defer f.Close()
				r = f
			}
			var items []model.PurchaseItem
			if err := json.NewDecoder(r).Decode(&items); err != nil {
				return fmt.Errorf("decode items: %w", err)
			}
			return withApp(c, func(ctx context.Context, a *app) error {
				_, lines := a.analyzer.Report(ctx, items)
				for _, l := range lines {
					fmt.Fprintln(c.App.Writer, l)
				}
				return nil
			})
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Build the weekly report from recorded purchases",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "send", Usage: "Send the report to Telegram instead of printing it"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				sched := scheduler.NewScheduler(ctx, a.tracker, a.telegram)
				msg, err := sched.BuildReport(ctx)
				if err != nil {
					return err
				}
				if c.Bool("send") {
					return a.telegram.SendWithRetry(ctx, msg, 3)
				}
				fmt.Fprintln(c.App.Writer, msg)
				return nil
			})
		},
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Re-analyze purchases whose market snapshot is stale",
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				results, err := a.tracker.RefreshStale(ctx)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, summarize(results))
			})
		},
	}
}

type refreshSummary struct {
	Refreshed int `json:"refreshed"`
	WithData  int `json:"with_data"`
}

func summarize(results []analyzer.ItemResult) refreshSummary {
	s := refreshSummary{Refreshed: len(results)}
	for _, r := range results {
		if r.Result.HasAnalysis() {
			s.WithData++
		}
	}
	return s
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
