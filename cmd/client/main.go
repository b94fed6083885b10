// Package main is the StudyDesk command-line client. One-shot subcommands
// call the API directly; `shell` keeps an optimistic working set and saves
// edits in the background.
package main

import (
	"cmp"
	"fmt"
	"os"

	"github.com/atinyakov/StudyDesk/internal/client/api"
	"github.com/atinyakov/StudyDesk/internal/client/storage"
	"github.com/atinyakov/StudyDesk/internal/logger"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version   string
	buildDate string
)

const defaultURL = "http://localhost:8080"

// settings are the resolved connection flags.
type settings struct {
	URL      string `env:"STUDYDESK_URL"`
	Token    string `env:"STUDYDESK_TOKEN"`
	CAFile   string `env:"STUDYDESK_CA"`
	CertFile string `env:"STUDYDESK_CERT"`
	KeyFile  string `env:"STUDYDESK_KEY"`
	LogLevel string `env:"STUDYDESK_LOG_LEVEL"`
	LogFile  string `env:"STUDYDESK_LOG_FILE"`
}

var (
	flags   settings
	profile *storage.Store
	log     = logger.New()
)

var rootCmd = &cobra.Command{
	Use:           "studydesk",
	Short:         "StudyDesk notes, plans and todos from the terminal",
	Version:       fmt.Sprintf("%s (built %s)", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A")),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := resolve(cmd); err != nil {
			return err
		}
		opts := []logger.Option{}
		if flags.LogFile != "" {
			opts = append(opts, logger.WithFile(logger.FileOptions{Path: flags.LogFile}), logger.WithoutConsole())
		}
		return log.Init(flags.LogLevel, opts...)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.URL, "url", "", "server base URL (default "+defaultURL+")")
	pf.StringVar(&flags.Token, "token", "", "bearer token issued by the identity provider")
	pf.StringVar(&flags.CAFile, "ca", "", "CA certificate that signed the server certificate")
	pf.StringVar(&flags.CertFile, "cert", "", "client certificate for mTLS")
	pf.StringVar(&flags.KeyFile, "key", "", "client private key for mTLS")
	pf.StringVar(&flags.LogLevel, "log-level", "warn", "log level")
	pf.StringVar(&flags.LogFile, "log-file", "", "write logs to this file instead of stderr")
}

// resolve fills unset flags from the environment, then from the stored
// profile, then from defaults.
func resolve(cmd *cobra.Command) error {
	path, err := storage.DefaultPath()
	if err != nil {
		return err
	}
	profile = storage.NewStore(path)
	saved, err := profile.Load()
	if err != nil {
		return err
	}

	var fromEnv settings
	if err := env.Parse(&fromEnv); err != nil {
		return err
	}

	pick := func(name string, dst *string, envValue, savedValue, def string) {
		if cmd.Flags().Changed(name) {
			return
		}
		*dst = cmp.Or(envValue, savedValue, *dst, def)
	}
	pick("url", &flags.URL, fromEnv.URL, saved.URL, defaultURL)
	pick("token", &flags.Token, fromEnv.Token, saved.Token, "")
	pick("ca", &flags.CAFile, fromEnv.CAFile, saved.CAFile, "")
	pick("cert", &flags.CertFile, fromEnv.CertFile, saved.CertFile, "")
	pick("key", &flags.KeyFile, fromEnv.KeyFile, saved.KeyFile, "")
	pick("log-level", &flags.LogLevel, fromEnv.LogLevel, "", "warn")
	pick("log-file", &flags.LogFile, fromEnv.LogFile, "", "")
	return nil
}

// newClient builds an API client from the resolved flags.
func newClient() (*api.Client, error) {
	httpClient, err := api.NewHTTPClient(api.TLSOptions{
		CAFile:   flags.CAFile,
		CertFile: flags.CertFile,
		KeyFile:  flags.KeyFile,
	})
	if err != nil {
		return nil, err
	}
	return api.New(flags.URL, api.WithHTTPClient(httpClient), api.WithToken(flags.Token)), nil
}

func main() {
	defer func() { _ = log.Log.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		log.Log.Debug("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
