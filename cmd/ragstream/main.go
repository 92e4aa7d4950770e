package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ragstream/internal/bootstrap"
	corpusdto "ragstream/internal/modules/corpus/dto"
	ingestdto "ragstream/internal/modules/ingest/dto"
	querydto "ragstream/internal/modules/query/dto"
	"ragstream/internal/platform/config"
	apperrors "ragstream/internal/platform/errors"
	"ragstream/internal/platform/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	dataDir    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "ragstream",
		Short:         "Upload documents and stream answers from a RAG service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultFile, "config file (the default may be absent)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "local state directory (overrides config)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log to stderr as well as the log file")

	root.AddCommand(newTUICmd(flags))
	root.AddCommand(newUploadCmd(flags))
	root.AddCommand(newAskCmd(flags))
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newSearchCmd(flags))
	return root
}

// loadApp builds the application. console tees logs to stderr and must stay
// off for the TUI.
func loadApp(flags *rootFlags, console bool) (*bootstrap.App, func(), error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	if flags.dataDir != "" {
		cfg.Storage.DataDir = flags.dataDir
	}
	log, err := logger.New(logger.Options{
		File:       cfg.LogPath(),
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Console:    console && flags.verbose,
	})
	if err != nil {
		return nil, nil, err
	}
	app, err := bootstrap.New(cfg, log)
	if err != nil {
		log.Error("cli", "bootstrap failed", map[string]any{"error": err})
		_ = log.Sync()
		return nil, nil, err
	}
	return app, func() { _ = app.Log.Sync() }, nil
}

func newTUICmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the ragstream terminal UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, done, err := loadApp(flags, false)
			if err != nil {
				return err
			}
			defer done()
			return bootstrap.RunTUI(app)
		},
	}
}

func newUploadCmd(flags *rootFlags) *cobra.Command {
	var fromStdin bool
	var name string
	cmd := &cobra.Command{
		Use:   "upload <path> | upload --stdin --name <file>",
		Short: "Upload a document for querying",
		Args: func(cmd *cobra.Command, args []string) error {
			if fromStdin {
				if name == "" {
					return errors.New("--stdin requires --name")
				}
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := loadApp(flags, true)
			if err != nil {
				return err
			}
			defer done()

			var out ingestdto.AttemptOutput
			if fromStdin {
				content, readErr := io.ReadAll(cmd.InOrStdin())
				if readErr != nil {
					return fmt.Errorf("read stdin: %w", readErr)
				}
				out, err = app.IngestCLI.UploadFile(cmd.Context(), name, mimetype.Detect(content).String(), content)
			} else {
				out, err = app.IngestCLI.Upload(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return printAttempt(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the document from standard input")
	cmd.Flags().StringVar(&name, "name", "", "file name for --stdin (its extension counts toward the type check)")
	return cmd
}

func printAttempt(w io.Writer, out ingestdto.AttemptOutput) error {
	_, _ = fmt.Fprintln(w, out.Message)
	if !out.Succeeded {
		return fmt.Errorf("upload %s: %s", out.FileName, out.Status)
	}
	for _, id := range out.ChunkIDs {
		_, _ = fmt.Fprintf(w, "  %s\n", id)
	}
	return nil
}

func newAskCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <query...>",
		Short: "Stream an answer to a question about the uploaded document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := loadApp(flags, true)
			if err != nil {
				return err
			}
			defer done()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events, unsubscribe := app.QueryCLI.Subscribe(64)
			defer unsubscribe()

			started, err := app.QueryCLI.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				if errors.Is(err, apperrors.ErrNotReady) {
					return errors.New("no document uploaded yet: run `ragstream upload <path>` first")
				}
				return err
			}
			if !started.Started {
				return nil
			}

			final, err := streamAnswer(ctx, cmd.OutOrStdout(), events, started.SessionID, func() {
				app.QueryCLI.Cancel(context.Background())
			})
			if err != nil {
				return err
			}
			if !final.Complete {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\n[incomplete answer: %s]\n", describeTermination(final))
				return fmt.Errorf("answer incomplete: %s", final.Termination)
			}
			return nil
		},
	}
}

// streamAnswer prints the session's answer as it grows. Events carry the
// cumulative answer, so a dropped fragment event never loses text.
func streamAnswer(ctx context.Context, w io.Writer, events <-chan querydto.StreamEvent, sessionID string, cancel func()) (querydto.SessionOutput, error) {
	printed := 0
	interrupted := ctx.Done()
	for {
		select {
		case <-interrupted:
			cancel()
			interrupted = nil
		case ev, ok := <-events:
			if !ok {
				return querydto.SessionOutput{}, errors.New("stream subscription closed")
			}
			if ev.Session.ID != sessionID {
				continue
			}
			if answer := ev.Session.Answer; len(answer) > printed {
				_, _ = io.WriteString(w, answer[printed:])
				printed = len(answer)
			}
			if ev.Closed() {
				if printed > 0 {
					_, _ = fmt.Fprintln(w)
				}
				return ev.Session, nil
			}
		}
	}
}

func describeTermination(s querydto.SessionOutput) string {
	label := strings.ReplaceAll(s.Termination, "_", " ")
	if s.Cause != "" {
		label += ": " + s.Cause
	}
	return label
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest upload and the service's document count",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, done, err := loadApp(flags, true)
			if err != nil {
				return err
			}
			defer done()

			var (
				latest    ingestdto.AttemptOutput
				hasLatest bool
				corpus    corpusdto.StatusOutput
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				out, err := app.IngestCLI.Latest(ctx)
				if errors.Is(err, apperrors.ErrNotFound) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("latest upload: %w", err)
				}
				latest, hasLatest = out, true
				return nil
			})
			g.Go(func() error {
				out, err := app.CorpusCLI.Status(ctx, refresh)
				if err != nil {
					return fmt.Errorf("corpus status: %w", err)
				}
				corpus = out
				return nil
			})
			if err := g.Wait(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if hasLatest {
				_, _ = fmt.Fprintf(w, "latest upload: %s [%s] %s\n", latest.FileName, latest.Status, latest.UpdatedAt.Format("2006-01-02 15:04:05"))
				_, _ = fmt.Fprintf(w, "  %s\n", latest.Message)
				_, _ = fmt.Fprintf(w, "ready: %t\n", latest.Succeeded)
			} else {
				_, _ = fmt.Fprintln(w, "latest upload: none")
				_, _ = fmt.Fprintln(w, "ready: false")
			}
			_, _ = fmt.Fprintf(w, "documents indexed: %d\n", corpus.DocumentCount)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached document count")
	return cmd
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Retrieve the passages most similar to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, done, err := loadApp(flags, true)
			if err != nil {
				return err
			}
			defer done()
			passages, err := app.CorpusCLI.Search(cmd.Context(), strings.Join(args, " "), n)
			if err != nil {
				if detail := apperrors.DetailOf(err); detail != "" {
					return fmt.Errorf("search failed: %s", detail)
				}
				return err
			}
			w := cmd.OutOrStdout()
			if len(passages) == 0 {
				_, _ = fmt.Fprintln(w, "no passages")
				return nil
			}
			for i, p := range passages {
				_, _ = fmt.Fprintf(w, "%d. %s\n%s\n\n", i+1, p.Source, strings.TrimSpace(p.Content))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 2, "number of passages")
	return cmd
}
