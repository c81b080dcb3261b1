package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bucket-check/internal/check"
	"bucket-check/internal/config"
	"bucket-check/internal/logging"
	"bucket-check/internal/report"
)

type options struct {
	configPath  string
	manifest    string
	color       string
	format      string
	strict      bool
	only        []string
	ci          bool
	verbose     bool
	noGitignore bool
}

func newRootCmd(stdout, stderr io.Writer, lookup config.LookupFunc) *cobra.Command {
	var opt options
	cmd := &cobra.Command{
		Use:   "bucket-check [root]",
		Short: "Validate a Scoop bucket repository",
		Long: `bucket-check validates a Scoop bucket repository in four passes:

  structure         required paths exist and manifests are discoverable
  main-project      no files from the main Python project leaked in
  package-managers  no Homebrew or VSCode packaging files leaked in
  manifest          every manifest parses, validates and is formatted

Settings come from .bucket-check.yaml in the root (or --config), then the
environment (BUCKET_CHECK_ROOT, BUCKET_CHECK_FORMAT, NO_COLOR, CI,
GITHUB_ACTIONS), then flags.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opt, args, lookup)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			log := logging.New(stderr, opt.verbose)
			defer func() { _ = log.Sync() }()
			log.Debug("config loaded",
				zap.String("root", cfg.Root),
				zap.String("format", cfg.Format),
				zap.Strings("only", cfg.Only),
				zap.Bool("strict", cfg.Strict))

			rep, err := check.Run(cmd.Context(), cfg, log)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}
			ropt := report.Options{Format: cfg.Format, Color: cfg.ColorEnabled(isTerminal(stdout))}
			if err := report.Write(stdout, rep, ropt); err != nil {
				return &ExitError{Code: 2, Err: fmt.Errorf("write report: %w", err)}
			}
			if !rep.OK() {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&opt.configPath, "config", "", "config file (default <root>/"+config.DefaultFile+")")
	f.StringVar(&opt.manifest, "manifest", "", "manifest glob relative to the root (default bucket/*.json)")
	f.StringVar(&opt.color, "color", "", "color output: auto, always or never")
	f.StringVar(&opt.format, "format", "", "report format: text, json or github")
	f.BoolVar(&opt.strict, "strict", false, "treat warnings as errors")
	f.StringSliceVar(&opt.only, "only", nil, "run only the named passes (comma separated)")
	f.BoolVar(&opt.ci, "ci", false, "CI mode: no color in auto mode")
	f.BoolVarP(&opt.verbose, "verbose", "v", false, "log debug diagnostics to stderr")
	f.BoolVar(&opt.noGitignore, "no-gitignore", false, "do not honor the root .gitignore")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "bucket-check", version)
		},
	})
	return cmd
}

// loadConfig layers defaults, file and environment, then the flags the user
// actually set.
func loadConfig(cmd *cobra.Command, opt options, args []string, lookup config.LookupFunc) (*config.Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if len(args) == 1 {
		root, env := args[0], lookup
		lookup = func(k string) (string, bool) {
			if k == "BUCKET_CHECK_ROOT" {
				return root, true
			}
			return env(k)
		}
	}
	cfg, err := config.Load(opt.configPath, lookup)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("manifest") {
		cfg.ManifestGlob = opt.manifest
	}
	if f.Changed("color") {
		cfg.Color = opt.color
	}
	if f.Changed("format") {
		cfg.SetFormat(opt.format)
	}
	if f.Changed("strict") {
		cfg.Strict = opt.strict
	}
	if f.Changed("only") {
		cfg.Only = opt.only
	}
	if f.Changed("ci") {
		cfg.CI = opt.ci
	}
	if f.Changed("no-gitignore") {
		cfg.UseGitignore = !opt.noGitignore
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
