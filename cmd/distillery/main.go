// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/distillery"
	"github.com/poiesic/distillery/ai"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/httpapi"
	"github.com/poiesic/distillery/ingest"
)

// pollInterval paces terminal-state polling for waiting commands.
const pollInterval = 250 * time.Millisecond

func main() {
	app := &cli.App{
		Name:  "distillery",
		Usage: "Distill web pages, videos, files and text into dense summaries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the database directory",
				Value:   "distillery-data",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the REST server",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to a yaml config file",
					},
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Listen address, overrides the config file",
					},
					&cli.IntFlag{
						Name:  "max-concurrent",
						Usage: "Concurrent distillation bound (1-10), overrides the config file",
					},
					&cli.StringFlag{
						Name:  "ai-host",
						Usage: "Model service host URL, overrides the config file",
					},
					&cli.StringFlag{
						Name:  "ai-model",
						Usage: "Model name, overrides the config file",
					},
					&cli.StringFlag{
						Name:  "ai-provider",
						Usage: "Provider kind (openai, ollama), overrides the config file",
					},
				},
			},
			{
				Name:      "submit",
				Usage:     "Submit a url, file or text and wait for the result",
				ArgsUsage: "<url | path | text>",
				Action:    submitCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Force the submission kind (url, file, text); default guesses",
					},
					&cli.StringFlag{
						Name:  "ai-host",
						Usage: "Model service host URL",
					},
					&cli.StringFlag{
						Name:  "ai-model",
						Usage: "Model name",
					},
					&cli.StringFlag{
						Name:  "ai-provider",
						Usage: "Provider kind (openai, ollama)",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List distillations, active first",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"q"},
						Usage:   "Filter by title or content",
					},
				},
			},
			{
				Name:      "show",
				Usage:     "Show one distillation in full",
				ArgsUsage: "<id>",
				Action:    showCommand,
			},
			{
				Name:      "retry",
				Usage:     "Retry a completed, failed or stopped distillation",
				ArgsUsage: "<id>",
				Action:    retryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "ai-host",
						Usage: "Model service host URL",
					},
					&cli.StringFlag{
						Name:  "ai-model",
						Usage: "Model name",
					},
					&cli.StringFlag{
						Name:  "ai-provider",
						Usage: "Provider kind (openai, ollama)",
					},
				},
			},
			{
				Name:      "stop",
				Usage:     "Request cancellation of an in-flight distillation",
				ArgsUsage: "<id>",
				Action:    stopCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete a distillation",
				ArgsUsage: "<id>",
				Action:    deleteCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadServeConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}
	if c.IsSet("db") {
		cfg.DB = c.String("db")
	}
	if c.IsSet("max-concurrent") {
		cfg.MaxConcurrent = c.Int("max-concurrent")
	}
	if c.IsSet("ai-host") {
		cfg.AI.Host = c.String("ai-host")
	}
	if c.IsSet("ai-model") {
		cfg.AI.Model = c.String("ai-model")
	}
	if c.IsSet("ai-provider") {
		cfg.AI.Provider = c.String("ai-provider")
	}

	aiConfig := aiConfigFrom(cfg)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	libOpts := []distillery.LibraryOption{
		distillery.WithAIConfig(aiConfig),
		distillery.WithMaxConcurrent(cfg.MaxConcurrent),
	}
	if cfg.SpoolDir != "" {
		libOpts = append(libOpts, distillery.WithSpoolDir(cfg.SpoolDir))
	}
	lib, err := distillery.NewLibrary(cfg.DB, libOpts...)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer lib.Close()

	app := httpapi.NewServer(lib).App()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Listen)
	}()
	slog.Info("serving", "listen", cfg.Listen, "db", cfg.DB)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
		return app.Shutdown()
	}
}

func submitCommand(c *cli.Context) error {
	arg := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if arg == "" {
		return fmt.Errorf("nothing to submit")
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	ctx := context.Background()
	receipt, err := submitGuessing(ctx, lib, c.String("kind"), arg)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "queued %s\n", receipt.ID)

	return waitAndPrint(ctx, lib, receipt.ID)
}

// submitGuessing routes the argument by explicit kind, or guesses: an
// absolute http(s) URL is a url, an existing file path is a file, anything
// else is inline text.
func submitGuessing(ctx context.Context, lib *distillery.Library, kind, arg string) (*ingest.Receipt, error) {
	switch kind {
	case "url":
		return lib.SubmitURL(ctx, arg)
	case "file":
		return submitFilePath(ctx, lib, arg)
	case "text":
		return lib.SubmitText(ctx, arg)
	case "":
	default:
		return nil, fmt.Errorf("unknown kind %q: must be url, file or text", kind)
	}

	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return lib.SubmitURL(ctx, arg)
	}
	if info, statErr := os.Stat(arg); statErr == nil && !info.IsDir() {
		return submitFilePath(ctx, lib, arg)
	}
	return lib.SubmitText(ctx, arg)
}

func submitFilePath(ctx context.Context, lib *distillery.Library, path string) (*ingest.Receipt, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lib.SubmitFile(ctx, path, contents)
}

// waitAndPrint polls until the record reaches a terminal state, then prints
// the outcome. Queued work dies with the process, so waiting is the only
// useful behavior for a one-shot command.
func waitAndPrint(ctx context.Context, lib *distillery.Library, id string) error {
	lastStatus := core.Status("")
	for {
		d, err := lib.Get(ctx, id)
		if err != nil {
			return err
		}
		if d.Status != lastStatus {
			fmt.Fprintf(os.Stderr, "%s\n", d.Status)
			lastStatus = d.Status
		}
		if d.Status.Terminal() {
			return printOutcome(d)
		}
		time.Sleep(pollInterval)
	}
}

func printOutcome(d *core.Distillation) error {
	switch d.Status {
	case core.StatusCompleted:
		fmt.Printf("%s\n\n%s\n", d.Title, d.Content)
		fmt.Fprintf(os.Stderr, "\n%d words in %s\n", d.WordCount, d.ElapsedTime().Round(time.Millisecond))
		return nil
	case core.StatusError:
		return fmt.Errorf("distillation failed: %s", d.Error)
	case core.StatusStopped:
		fmt.Fprintln(os.Stderr, "stopped")
		return nil
	}
	return nil
}

func listCommand(c *cli.Context) error {
	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	ctx := context.Background()
	var records []*core.Distillation
	if q := c.String("search"); q != "" {
		records, err = lib.Search(ctx, q)
	} else {
		records, err = lib.List(ctx)
	}
	if err != nil {
		return err
	}

	for _, d := range records {
		fmt.Printf("%s  %-10s  %-8s  %s\n", d.ID, d.Status, d.SourceType, d.Title)
	}
	fmt.Fprintf(os.Stderr, "%d distillations\n", len(records))
	return nil
}

func showCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("id is required")
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	d, err := lib.Get(context.Background(), id)
	if err != nil {
		return err
	}

	fmt.Printf("id:          %s\n", d.ID)
	fmt.Printf("title:       %s\n", d.Title)
	fmt.Printf("source:      %s (%s)\n", d.SourceRef, d.SourceType)
	fmt.Printf("status:      %s\n", d.Status)
	fmt.Printf("created:     %s\n", d.CreatedAt.Format(time.RFC3339))
	if !d.CompletedAt.IsZero() {
		fmt.Printf("completed:   %s\n", d.CompletedAt.Format(time.RFC3339))
	}
	fmt.Printf("elapsed:     %s\n", d.ElapsedTime().Round(time.Millisecond))
	if d.WordCount > 0 {
		fmt.Printf("words:       %d\n", d.WordCount)
	}
	if d.Error != "" {
		fmt.Printf("error:       %s\n", d.Error)
	}
	for k, v := range d.ExtractionMetadata {
		fmt.Printf("meta.%s: %s\n", k, v)
	}
	if len(d.Logs) > 0 {
		fmt.Println("log:")
		for _, entry := range d.Logs {
			fmt.Printf("  %s  %s\n", entry.Time.Format(time.RFC3339), entry.Message)
		}
	}
	if d.Content != "" {
		fmt.Printf("\n%s\n", d.Content)
	}
	return nil
}

func retryCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("id is required")
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	ctx := context.Background()
	receipt, err := lib.Retry(ctx, id)
	if err != nil {
		return err
	}
	if receipt.Reextracted {
		fmt.Fprintln(os.Stderr, "re-extracting from source")
	}
	return waitAndPrint(ctx, lib, id)
}

func stopCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("id is required")
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	if err := lib.Stop(context.Background(), id); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "stop requested")
	return nil
}

func deleteCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("id is required")
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	if err := lib.Delete(context.Background(), id); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "deleted")
	return nil
}

// openLibrary builds a library from the global db flag and any per-command
// AI overrides.
func openLibrary(c *cli.Context) (*distillery.Library, error) {
	opts := []distillery.LibraryOption{}

	aiConfig := ai.NewConfig()
	if c.IsSet("ai-host") {
		aiConfig.Host = c.String("ai-host")
	}
	if c.IsSet("ai-model") {
		aiConfig.Model = c.String("ai-model")
	}
	if c.IsSet("ai-provider") {
		aiConfig.Provider = ai.ProviderKind(c.String("ai-provider"))
	}
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	opts = append(opts, distillery.WithAIConfig(aiConfig))

	lib, err := distillery.NewLibrary(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	return lib, nil
}

func aiConfigFrom(cfg *serveConfig) *ai.Config {
	aiOpts := []ai.ConfigOption{}
	if cfg.AI.Provider != "" {
		aiOpts = append(aiOpts, ai.WithProvider(ai.ProviderKind(cfg.AI.Provider)))
	}
	if cfg.AI.Host != "" {
		aiOpts = append(aiOpts, ai.WithHost(cfg.AI.Host))
	}
	if cfg.AI.Model != "" {
		aiOpts = append(aiOpts, ai.WithModel(cfg.AI.Model))
	}
	if cfg.AI.APIKey != "" {
		aiOpts = append(aiOpts, ai.WithAPIKey(cfg.AI.APIKey))
	}
	if cfg.AI.MaxInputChars > 0 {
		aiOpts = append(aiOpts, ai.WithMaxInputChars(cfg.AI.MaxInputChars))
	}
	return ai.NewConfig(aiOpts...)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
