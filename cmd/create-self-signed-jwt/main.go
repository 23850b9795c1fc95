package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/DinoChiesa/Apigee-Sample-Jwt-Bearer-Token-Exchange/internal/assertion"
	"github.com/DinoChiesa/Apigee-Sample-Jwt-Bearer-Token-Exchange/internal/key"
)

var version = "dev"

type CLI struct {
	PrivateKey string `name:"privatekey" placeholder:"PATH" help:"File containing PEM-encoded private key. Default: the latest key in the keys directory."`
	Issuer     string `help:"Value to use as issuer in the JWT. Default: CLIENT_ID"`
	Audience   string `help:"Audience claim for the JWT. Default: https://APIGEE_HOST/jwt-bearer-oauth"`
	Algorithm  string `default:"RS256" help:"Algorithm, one of the RS* variants."`
	Lifespan   string `default:"299s" help:"Lifespan in an expression like 60s, 15m, 1h, etc."`
	Scope      string `hidden:"" help:"Comma-separated list of scopes."`

	KeysDir     string `name:"keys-dir" hidden:"" default:"${keysDir}" help:"Directory searched for private keys."`
	ClientID    string `name:"client-id" hidden:"" env:"CLIENT_ID"`
	GatewayHost string `name:"apigee-host" hidden:"" env:"APIGEE_HOST"`
	LogLevel    string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level for diagnostics on stderr."`

	Version kong.VersionFlag `help:"Print version and exit."`
}

func (cli *CLI) config() assertion.Config {
	return assertion.Config{
		PrivateKey:  cli.PrivateKey,
		Issuer:      cli.Issuer,
		Audience:    cli.Audience,
		Algorithm:   cli.Algorithm,
		Lifespan:    cli.Lifespan,
		Scope:       cli.Scope,
		ClientID:    cli.ClientID,
		GatewayHost: cli.GatewayHost,
	}
}

func (cli *CLI) Run(logger *slog.Logger, out io.Writer) error {
	report := assertion.NewReporter(out)
	cfg := cli.config()

	if cfg.PrivateKey == "" {
		selected, err := key.Locate(cli.KeysDir)
		if err != nil {
			return fmt.Errorf("%w: %w. Re-run setup", assertion.ErrConfiguration, err)
		}
		report.Notice("selecting the latest key from the keys directory...%s", filepath.Base(selected.Path))
		cfg.PrivateKey = selected.Path
	}

	cfg, notices, err := cfg.Resolve()
	if err != nil {
		return err
	}
	for _, notice := range notices {
		report.Notice("%s", notice)
	}

	claims, err := assertion.BuildClaims(cfg)
	if err != nil {
		return err
	}

	keyPEM, err := key.ReadPrivateKey(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("%w: %w", assertion.ErrSigning, err)
	}
	logger.Debug("read private key", slog.String("path", cfg.PrivateKey))

	signed, err := assertion.NewSigner(logger).Sign(claims, keyPEM, cfg.SigningOptions())
	if err != nil {
		return err
	}

	decoded, err := assertion.Decode(signed.Raw)
	if err != nil {
		return err
	}
	if err := decoded.Match(signed); err != nil {
		return err
	}
	logger.Info("signed JWT",
		slog.String("algorithm", signed.Algorithm),
		slog.String("issuer", signed.Claims.Issuer),
		slog.Time("expires", signed.Claims.ExpiresAt.Time),
	)
	return report.Report(signed.Raw, decoded)
}

// loadDotEnv loads values exported by the setup step. A missing file is fine;
// the real environment takes precedence.
func loadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func cliOptions() []kong.Option {
	return []kong.Option{
		kong.Name("create-self-signed-jwt"),
		kong.Description("Creates a self-signed JWT for use as a client assertion in a JWT-bearer grant."),
		kong.Vars{
			"version": version,
			"keysDir": key.DefaultDir,
		},
	}
}

func main() {
	dotEnvErr := loadDotEnv()

	var cli CLI
	cliCtx := kong.Parse(&cli, cliOptions()...)

	var level slog.Level
	_ = level.UnmarshalText([]byte(cli.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if dotEnvErr != nil {
		logger.Warn("ignoring .env", slog.Any("error", dotEnvErr))
	}

	cliCtx.Bind(logger)
	cliCtx.BindTo(os.Stdout, (*io.Writer)(nil))

	if err := cliCtx.Run(); err != nil {
		logger.Error("failed to create JWT", slog.Any("error", err))
		if errors.Is(err, assertion.ErrMissingIssuer) {
			_ = cliCtx.PrintUsage(false)
		}
		os.Exit(1)
	}
}
