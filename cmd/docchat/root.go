package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/csheth/docchat/internal/config"
	"github.com/csheth/docchat/internal/conversation"
	"github.com/csheth/docchat/internal/logging"
	"github.com/csheth/docchat/internal/ragapi"
	"github.com/csheth/docchat/internal/tui"
)

type rootOptions struct {
	configPath  string
	apiURL      string
	results     int
	timeout     time.Duration
	logFile     string
	logLevel    string
	noAltScreen bool
}

// session bundles what every command needs once flags and config are resolved.
type session struct {
	cfg    config.Config
	logger *zap.Logger
	client *ragapi.Client
}

func (s *session) close() {
	_ = s.logger.Sync()
}

func (s *session) newConversation(scope string) *conversation.Controller {
	return conversation.New(conversation.Options{
		Scope:       scope,
		Gateway:     s.client,
		ResultLimit: s.cfg.ResultLimit,
		Timeout:     s.cfg.QueryTimeout,
		Logger:      s.logger,
	})
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "docchat [file-id]",
		Short: "Chat with an indexed document",
		Long: `Ask natural-language questions about a document indexed by the retrieval service
and browse the ranked passages it returns.

Without a file ID the document picker opens first.

Examples:
  docchat
  docchat 3f2a9c
  docchat --api-url http://rag.internal:8000 --results 5 3f2a9c`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			var scope string
			if len(args) > 0 {
				scope = args[0]
			}
			return runTUI(sess, scope, opts.noAltScreen)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file (default $"+config.EnvConfigPath+")")
	flags.StringVar(&opts.apiURL, "api-url", "", "retrieval service base URL (default "+ragapi.DefaultBaseURL+")")
	flags.IntVar(&opts.results, "results", 0, "passages requested per query")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-query timeout, 0 waits indefinitely")
	flags.StringVar(&opts.logFile, "log-file", "", "log file path, empty string disables logging")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	cmd.Flags().BoolVar(&opts.noAltScreen, "no-alt-screen", false, "disable the alternate screen buffer")

	cmd.AddCommand(
		newListCmd(opts),
		newDeleteCmd(opts),
		newQueryCmd(opts),
		newSearchCmd(opts),
		newAskCmd(opts),
	)
	return cmd
}

// open loads configuration, applies flags the user actually set, and builds the logger
// and client.
func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = strings.TrimSpace(o.apiURL)
	}
	if flags.Changed("results") {
		cfg.ResultLimit = o.results
	}
	if flags.Changed("timeout") {
		cfg.QueryTimeout = o.timeout
	}
	if flags.Changed("log-file") {
		cfg.LogFile = o.logFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(o.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{Path: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}
	logger.Info("docchat starting",
		zap.String("command", cmd.Name()),
		zap.String("api", cfg.APIURL),
		zap.Int("results", cfg.ResultLimit),
		zap.Duration("timeout", cfg.QueryTimeout),
	)
	client := ragapi.New(ragapi.Config{
		BaseURL:      cfg.APIURL,
		ListCacheTTL: cfg.ListCacheTTL,
		Logger:       logger,
	})
	return &session{cfg: cfg, logger: logger, client: client}, nil
}

func runTUI(sess *session, scope string, noAltScreen bool) error {
	ctrl := sess.newConversation(scope)
	defer ctrl.Close()

	programOpts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !noAltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Conversation: ctrl,
			Documents:    sess.client,
			Logger:       sess.logger,
		}),
		programOpts...,
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
