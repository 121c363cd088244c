package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	"github.com/starford/raido/internal/export"
	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/runservice"
	pkgconfig "github.com/starford/raido/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file",
		Value:   "config/config.yaml",
		Sources: cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func convertFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.BoolFlag{
			Name:  "only-new",
			Usage: "Skip notes already converted in a recorded run",
		},
		&cli.StringFlag{
			Name:  "naming-preset",
			Usage: "Name of a saved naming preset to apply",
		},
		&cli.StringFlag{
			Name:  "formatting-preset",
			Usage: "Name of a saved formatting preset to apply",
		},
		&cli.StringFlag{
			Name:  "zip",
			Usage: "Also write the converted files to a zip archive at this path",
		},
	}
}

// applyPreset merges a stored preset over target and remembers it as
// the last selected one of its kind.
func applyPreset[T any](db *history.DB, kind, name, settingKey string, target *T) error {
	options, err := db.GetPreset(kind, name)
	if err != nil {
		return fmt.Errorf("%s preset %q: %w", kind, name, err)
	}
	if err := json.Unmarshal([]byte(options), target); err != nil {
		return fmt.Errorf("%s preset %q: %w", kind, name, err)
	}
	return db.SetSetting(settingKey, name)
}

func runConversion(ctx context.Context, cmd *cli.Command, preview bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := internal.Bootstrap(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	naming := cfg.Naming
	formatting := cfg.Formatting
	if name := cmd.String("naming-preset"); name != "" {
		if err := applyPreset(a.DB, history.PresetNaming, name, history.SettingLastNamingPreset, &naming); err != nil {
			return err
		}
	}
	if name := cmd.String("formatting-preset"); name != "" {
		if err := applyPreset(a.DB, history.PresetFormatting, name, history.SettingLastFormattingPreset, &formatting); err != nil {
			return err
		}
	}

	res, err := a.Service.Convert(ctx, runservice.Request{
		Paths:      cmd.Args().Slice(),
		Naming:     naming,
		Formatting: formatting,
		Preview:    preview,
		OnlyNew:    cmd.Bool("only-new"),
	})
	if err != nil {
		return err
	}

	printResult(res, preview)

	if zipPath := cmd.String("zip"); zipPath != "" && !preview {
		f, err := os.Create(zipPath)
		if err != nil {
			return fmt.Errorf("create zip: %w", err)
		}
		defer f.Close()
		if err := export.ToZip(f, res.Outcome.Files); err != nil {
			return err
		}
		fmt.Printf("archive written to %s\n", zipPath)
	}
	return nil
}

func printResult(res runservice.Result, preview bool) {
	if preview {
		fmt.Printf("preview: %d file(s)\n", len(res.Outcome.Files))
	} else {
		fmt.Printf("converted: %d file(s)\n", len(res.Outcome.Files))
	}
	for _, f := range res.Outcome.Files {
		fmt.Printf("  %s -> %s\n", f.OriginalPath, f.NewPath)
	}
	for _, skip := range res.Outcome.Skipped {
		fmt.Printf("  skipped %s: %v\n", skip.Path, skip.Err)
	}
	sum := res.Summary
	fmt.Printf("history: %d new, %d previously converted (%s)\n", sum.New, sum.Existing, sum.Kind)
	if !preview && res.RunID != 0 {
		fmt.Printf("recorded run %d\n", res.RunID)
	}
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := internal.Bootstrap(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	batch, _, err := a.Service.LoadBatch(ctx, cmd.Args().Slice())
	if err != nil {
		return err
	}
	sum, err := a.Service.CheckDuplicates(batch)
	if err != nil {
		return err
	}
	fmt.Printf("%d file(s): %d new, %d previously converted (%s)\n", sum.Total, sum.New, sum.Existing, sum.Kind)
	if sum.ExactRun != nil {
		fmt.Printf("exact match of run %d from %s\n", sum.ExactRun.ID, sum.ExactRun.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runHistoryList(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := internal.Bootstrap(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.DB.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("run %d  %s  %d file(s)  %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.FileCount, shortHash(r.BatchHash))
	}
	return nil
}

func runHistoryClear(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := internal.Bootstrap(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.DB.ClearRuns(); err != nil {
		return err
	}
	fmt.Println("run history cleared")
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func withConfigAction(run func(ctx context.Context, opts ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := run(ctx, internal.WithConfig(cfg)); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Convert Google Keep HTML exports into Obsidian-ready Markdown with run history for incremental re-imports",
		Commands: []*cli.Command{
			{
				Name:      "convert",
				Usage:     "Convert exports, write them into the vault, and record the run",
				ArgsUsage: "[export paths...]",
				Flags:     convertFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runConversion(ctx, cmd, false)
				},
			},
			{
				Name:      "preview",
				Usage:     "Convert exports in memory and show the resulting filenames without writing anything",
				ArgsUsage: "[export paths...]",
				Flags:     convertFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runConversion(ctx, cmd, true)
				},
			},
			{
				Name:      "check",
				Usage:     "Classify exports against the run history without converting",
				ArgsUsage: "[export paths...]",
				Flags:     []cli.Flag{configFlag()},
				Action:    runCheck,
			},
			{
				Name:  "history",
				Usage: "Inspect or clear the recorded run history",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List recorded runs, newest first",
						Flags:  []cli.Flag{configFlag()},
						Action: runHistoryList,
					},
					{
						Name:   "clear",
						Usage:  "Delete the entire run history",
						Flags:  []cli.Flag{configFlag()},
						Action: runHistoryClear,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with SSE events and the source directory watcher",
				Flags:  []cli.Flag{configFlag()},
				Action: withConfigAction(internal.Run),
			},
			{
				Name:   "watch",
				Usage:  "Watch the source directory and classify exports as they land",
				Flags:  []cli.Flag{configFlag()},
				Action: withConfigAction(internal.RunWatch),
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP stdio server exposing conversion tools",
				Flags:  []cli.Flag{configFlag()},
				Action: withConfigAction(internal.RunMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
