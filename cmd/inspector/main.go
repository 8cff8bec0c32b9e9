// Package main is the offline CLI for the log inspector: it parses
// controller logs, YAML resources or extracted archives from the filesystem
// or stdin and prints the normalized result as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/app"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/archive"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/config"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/domain"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/merge"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/parser"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/pkg/logger"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/yamlconv"
)

// version is set via -ldflags at release build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "inspector",
		Short:         "Normalize migration-controller logs and resources",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logLevel, "console")
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newParseCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newParseCmd() *cobra.Command {
	var (
		asYAML  bool
		compact bool
	)

	cmd := &cobra.Command{
		Use:   "parse [file...]",
		Short: "Parse log/YAML files (or stdin) into one normalized result",
		Long: `Parse reads each input, classifies it the way the archive dispatcher
would, and merges everything into a single result: stdin or a lone log file
goes through the log pipeline, YAML resources through the converter, and
multiple files are treated as extracted archive members.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := runParse(ctx, args, asYAML)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), result, compact)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "force YAML resource parsing for single inputs")
	cmd.Flags().BoolVar(&compact, "compact", false, "emit compact JSON instead of indented")
	return cmd
}

func runParse(ctx context.Context, args []string, asYAML bool) (*domain.Result, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return parseOne(ctx, string(data), asYAML)
	}

	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, err
		}
		return parseOne(ctx, string(data), asYAML)
	}

	// Several inputs behave like an extracted archive: classified,
	// parsed independently, merged in path order.
	files := make([]archive.File, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, archive.File{Path: path, Content: string(data)})
	}
	return archive.Parse(ctx, files, archive.Options{}), nil
}

func parseOne(ctx context.Context, content string, asYAML bool) (*domain.Result, error) {
	if asYAML || sniffYAML(content) {
		return yamlconv.Parse(content)
	}
	logResult, err := parser.Parse(ctx, content)
	if err != nil {
		return nil, err
	}
	return merge.Results(logResult, nil), nil
}

// sniffYAML mirrors the archive classifier's resource signature so a single
// input routes the same way an archive member would.
func sniffYAML(content string) bool {
	head := content
	if len(head) > archive.DefaultSniffLimit {
		head = head[:archive.DefaultSniffLimit]
	}
	return strings.Contains(head, yamlconv.APIGroup) && strings.Contains(head, "kind:")
}

func writeResult(w io.Writer, result *domain.Result, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the log inspector API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			application, err := app.Bootstrap(cfg)
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				if err := application.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("serve: %w", err)
			case <-ctx.Done():
			}
			return application.Shutdown(context.Background())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the inspector version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
