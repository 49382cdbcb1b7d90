package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/condexpr/internal/bootstrap"
	"github.com/matthewbaird/condexpr/internal/config"
)

// annotationBackend set to "none" marks commands that need no catalog.
const annotationBackend = "backend"

// app is the state shared by every subcommand.
type app struct {
	configFile  string
	catalogFile string
	dsn         string
	logLevel    string
	jsonOutput  bool

	backend *bootstrap.Backend
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "condexpr <command>",
		Short:         "Build, parse and validate filter expressions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationBackend] == "none" {
				return nil
			}
			return a.open(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.backend != nil {
				a.backend.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "path to condexpr.yaml")
	root.PersistentFlags().StringVar(&a.catalogFile, "catalog", "", "catalog file (overrides catalog.file)")
	root.PersistentFlags().StringVar(&a.dsn, "dsn", "", "database DSN (overrides database.dsn)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "output as JSON")

	root.AddGroup(
		&cobra.Group{ID: "expressions", Title: "Expressions:"},
		&cobra.Group{ID: "catalog", Title: "Catalog:"},
	)
	cobra.EnableCommandSorting = false

	root.AddCommand(newBuildCmd(a))
	root.AddCommand(newParseCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newEntitiesCmd(a))
	root.AddCommand(newFieldsCmd(a))
	root.AddCommand(newOperatorsCmd(a))
	return root
}

// open loads configuration and the backend. Flags win over the config file.
func (a *app) open(ctx context.Context, stderr io.Writer) error {
	var args []string
	if a.configFile != "" {
		args = append(args, "--config", a.configFile)
	}
	if a.logLevel != "" {
		args = append(args, "--log-level", a.logLevel)
	}
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	if a.catalogFile != "" {
		cfg.Catalog.File = a.catalogFile
	}
	if a.dsn != "" {
		cfg.Database.DSN = a.dsn
	}
	if a.logLevel == "" {
		cfg.Logging.Level = "warn"
	}
	logger := cfg.NewLogger(stderr)
	slog.SetDefault(logger)

	a.backend, err = bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
