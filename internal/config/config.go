// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address" env:"SERVER_ADDRESS"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn" env:"DATABASE_DSN"`

	// Config is the path to the Config file.
	Config string `json:"-" env:"CONFIG"`

	// JWTSecret verifies HS256 bearer tokens issued by the identity provider.
	JWTSecret string `json:"jwt_secret" env:"JWT_SECRET"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" env:"TLS_CERT"`
	TLSKey  string `json:"tls_key" env:"TLS_KEY"`
	// TLSClientCA, when set, lets clients authenticate with a certificate
	// signed by this CA instead of a bearer token.
	TLSClientCA string `json:"tls_client_ca" env:"TLS_CLIENT_CA"`

	LogLevel string `json:"log_level" env:"LOG_LEVEL"`
	LogFile  string `json:"log_file" env:"LOG_FILE"`
}

func defaults() Options {
	return Options{
		Port:     "localhost:8080",
		Config:   "config.json",
		LogLevel: "info",
	}
}

// Parse reads the process arguments and environment. It exits on malformed
// input, like flag.Parse does.
func Parse() *Options {
	_ = godotenv.Load()

	opts, err := Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return opts
}

// Load resolves options from args and the current environment. Later
// sources override earlier ones: defaults, JSON file, environment, flags.
func Load(args []string) (*Options, error) {
	fs := flag.NewFlagSet("studydesk", flag.ContinueOnError)
	var fl Options
	fs.StringVar(&fl.Port, "a", "", "run on ip:port server")
	fs.StringVar(&fl.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&fl.Config, "config", "", "path to config file")
	fs.StringVar(&fl.Config, "c", "", "path to config file (shorthand)")
	fs.StringVar(&fl.JWTSecret, "jwt-secret", "", "HS256 secret for bearer tokens")
	fs.StringVar(&fl.TLSCert, "tls-cert", "", "server certificate file")
	fs.StringVar(&fl.TLSKey, "tls-key", "", "server key file")
	fs.StringVar(&fl.TLSClientCA, "tls-client-ca", "", "CA for client certificates")
	fs.StringVar(&fl.LogLevel, "log-level", "", "log level")
	fs.StringVar(&fl.LogFile, "log-file", "", "rotating log file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	options := defaults()

	configPath := options.Config
	if p := os.Getenv("CONFIG"); p != "" {
		configPath = p
	}
	if set["config"] || set["c"] {
		configPath = fl.Config
	}
	if err := loadFile(configPath, &options); err != nil {
		return nil, err
	}
	options.Config = configPath

	if err := env.Parse(&options); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	options.Config = configPath

	override := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	override("a", &options.Port, fl.Port)
	override("d", &options.DatabaseDSN, fl.DatabaseDSN)
	override("jwt-secret", &options.JWTSecret, fl.JWTSecret)
	override("tls-cert", &options.TLSCert, fl.TLSCert)
	override("tls-key", &options.TLSKey, fl.TLSKey)
	override("tls-client-ca", &options.TLSClientCA, fl.TLSClientCA)
	override("log-level", &options.LogLevel, fl.LogLevel)
	override("log-file", &options.LogFile, fl.LogFile)

	return &options, nil
}

// loadFile merges the JSON file at path into options. A missing file is
// not an error.
func loadFile(path string, options *Options) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, options); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

// TLSEnabled reports whether the server should listen with HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}
