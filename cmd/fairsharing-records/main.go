// Package main provides the CLI that downloads FAIRsharing records to a JSON file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bianchini88/rdmkit/internal/config"
	"github.com/bianchini88/rdmkit/internal/fairsharing"
	"github.com/bianchini88/rdmkit/internal/metrics"
	"github.com/bianchini88/rdmkit/internal/records"
	internalsecrets "github.com/bianchini88/rdmkit/internal/secrets"
	"github.com/bianchini88/rdmkit/pkg/logger"
	"github.com/bianchini88/rdmkit/pkg/secrets"
	"github.com/bianchini88/rdmkit/pkg/utils"
)

// Messages printed on stdout for the two user-facing failures.
const (
	msgLoginFailed = "Could not login into FAIRsharing"
	msgFetchFailed = "Error"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(afero.NewOsFs(), secrets.NewAWSProvider).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// providerFactory builds the secrets provider used to look up stored credentials.
type providerFactory func(ctx context.Context, region string) (secrets.Provider, error)

// flags holds the command-line values; config.Load supplies the defaults.
type flags struct {
	username string
	password string
	reg      bool
	pageSize int
	output   string
	baseURL  string
	dev      bool
}

func newRootCmd(fs afero.Fs, newProvider providerFactory) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "fairsharing-records",
		Short: "Download a page of FAIRsharing records to a JSON file",
		Long: `Download one page of records from the FAIRsharing API and write the
"data" array, pretty-printed with sorted keys, to a local file.

With --reg the tool first signs in with --username/--password and sends
the returned token with the records request. Without it the records are
requested anonymously.

Every flag can also be set through the environment (FAIRSHARING_* variables).

Exit codes:
  0 - Records written
  1 - Any failure (configuration, sign-in, fetch or write)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			f.apply(cmd, cfg)

			logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
			defer logger.Sync()

			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), fs, newProvider, cfg)
		},
	}

	cmd.Flags().StringVar(&f.username, "username", "", "Specify the FAIRsharing username")
	cmd.Flags().StringVar(&f.password, "password", "", "Specify the FAIRsharing password")
	cmd.Flags().BoolVar(&f.reg, "reg", false, "Sign in to FAIRsharing before requesting records")
	cmd.Flags().IntVar(&f.pageSize, "page-size", config.DefaultPageSize, "Number of records to request")
	cmd.Flags().StringVar(&f.output, "output", config.DefaultOutputPath, "File the records are written to")
	cmd.Flags().StringVar(&f.baseURL, "base-url", config.DefaultBaseURL, "FAIRsharing API base URL")
	cmd.Flags().BoolVar(&f.dev, "dev", false, "Use the FAIRsharing development API")

	return cmd
}

// apply overrides cfg with every flag the user set explicitly.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("username") {
		cfg.Username = f.username
	}
	if changed("password") {
		cfg.Password = f.password
	}
	if changed("reg") {
		cfg.AuthEnabled = f.reg
	}
	if changed("page-size") {
		cfg.PageSize = f.pageSize
	}
	if changed("output") {
		cfg.OutputPath = f.output
	}
	if f.dev {
		cfg.BaseURL = config.DevBaseURL
	}
	if changed("base-url") {
		cfg.BaseURL = f.baseURL
	}
}

func run(ctx context.Context, stdout, stderr io.Writer, fs afero.Fs, newProvider providerFactory, cfg *config.Config) error {
	log := logger.L()
	log.Info("starting fairsharing-records",
		zap.String("base_url", utils.MaskURL(cfg.BaseURL)),
		zap.Bool("reg", cfg.AuthEnabled),
		zap.Int("page_size", cfg.PageSize),
		zap.String("output", cfg.OutputPath))

	if cfg.AuthEnabled {
		if err := resolveCredentials(ctx, log, newProvider, cfg); err != nil {
			fmt.Fprintln(stdout, msgLoginFailed)
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rec := metrics.NewRecorder()
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	client := fairsharing.NewClient(log, cfg.BaseURL, httpClient, rec)
	syncer := fairsharing.NewSyncer(log, *cfg, client, records.NewWriter(log, fs), rec)

	res, err := syncer.Run(ctx)
	writeMetrics(log, rec, cfg.MetricsTextfile)
	if err != nil {
		report(stdout, err)
		return err
	}

	log.Info("records saved",
		zap.String("run_id", res.RunID),
		zap.Int("records", res.Records),
		zap.String("path", res.Path))
	return nil
}

// resolveCredentials fills missing credentials from Secrets Manager when a
// secret is configured.
func resolveCredentials(ctx context.Context, log *zap.Logger, newProvider providerFactory, cfg *config.Config) error {
	current := secrets.Credentials{Username: cfg.Username, Password: cfg.Password}
	if current.Complete() || cfg.CredentialsSecret == "" {
		return nil
	}

	provider, err := newProvider(ctx, cfg.AWSRegion)
	if err != nil {
		log.Error("failed to create AWS Secrets Manager provider", zap.Error(err))
		return err
	}

	resolved, err := internalsecrets.NewCredentialResolver(log, provider, cfg.CredentialsSecret).Resolve(ctx, current)
	if err != nil {
		return err
	}
	cfg.Username = resolved.Username
	cfg.Password = resolved.Password
	return nil
}

// report prints the user-facing message for a failed run.
func report(stdout io.Writer, err error) {
	var authErr *fairsharing.AuthError
	var fetchErr *fairsharing.FetchError
	switch {
	case errors.As(err, &authErr):
		fmt.Fprintln(stdout, msgLoginFailed)
	case errors.As(err, &fetchErr):
		fmt.Fprintln(stdout, msgFetchFailed)
		if fetchErr.Body != "" {
			fmt.Fprintln(stdout, fetchErr.Body)
		} else {
			fmt.Fprintln(stdout, fetchErr.Error())
		}
	default:
		fmt.Fprintln(stdout, err.Error())
	}
}

func writeMetrics(log *zap.Logger, rec *metrics.Recorder, path string) {
	if path == "" {
		return
	}
	if err := rec.WriteTextfile(path); err != nil {
		log.Warn("metrics.textfile_write_failed", zap.String("path", path), zap.Error(err))
	}
}
