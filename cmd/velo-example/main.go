// Command velo-example drives a single login round trip against a
// running IdP, demonstrating the SDK's flow API end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	velo "github.com/IronVelo/cs-velo-sdk"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	var logger kitlog.Logger
	{
		logger = kitlog.NewJSONLogger(kitlog.NewSyncWriter(os.Stderr))
		logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
		logger = kitlog.With(logger, "caller", kitlog.DefaultCaller)
	}

	var configPath string
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	{
		fs.Bool("example.debug", false, "Enable debug logging")
		fs.String("idp.host", "localhost", "IdP host")
		fs.Int("idp.port", 8443, "IdP port")
		fs.Duration("idp.health-timeout", 3*time.Second, "Timeout for the health probe")
		fs.String("demo.username", "", "Username to log in as")
		fs.String("demo.password", "", "Password to log in with")
		fs.String("demo.otp", "", "One-time code to answer the first MFA challenge with")

		fs.StringVar(&configPath, "config", "", "Path to the config file")
		if err := fs.Parse(os.Args[1:]); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			logger.Log("message", "failed to parse cli flags", "error", err, "source", "cmd/velo-example")
			os.Exit(1)
		}
	}

	if _, err := os.Stat(configPath); configPath != "" && !os.IsNotExist(err) {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			logger.Log("message", "failed to load config file", "error", err, "source", "cmd/velo-example")
			os.Exit(1)
		}
	}
	if err := viper.BindPFlags(fs); err != nil {
		logger.Log("message", "failed to load cli flags", "error", err, "source", "cmd/velo-example")
		os.Exit(1)
	}

	if viper.GetBool("example.debug") {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	client := velo.NewClient(
		viper.GetString("idp.host"),
		viper.GetInt("idp.port"),
		velo.WithLogger(logger),
	)
	defer client.Close()

	var g run.Group
	{
		g.Add(func() error {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			return fmt.Errorf("signal received: %v", <-sig)
		}, func(err error) {
			logger.Log("message", "program was interrupted", "error", err, "source", "cmd/velo-example")
			cancel()
		})
	}
	{
		runCtx, runCancel := context.WithCancel(ctx)
		g.Add(func() error {
			return runDemoLogin(runCtx, client, logger)
		}, func(err error) {
			if err != nil {
				logger.Log("message", "demo login finished", "error", err, "source", "cmd/velo-example")
			}
			runCancel()
		})
	}

	if err := g.Run(); err != nil {
		logger.Log("message", "actors stopped", "error", err, "source", "cmd/velo-example")
	}
}

// runDemoLogin exercises Client.IsHealthy, then Login through its
// first available MFA kind, answering demo.otp as an SMS/Email OTP or
// TOTP code depending on what the IdP offers. It's meant as a minimal,
// readable illustration of the flow API, not a general-purpose CLI.
func runDemoLogin(ctx context.Context, client *velo.Client, logger kitlog.Logger) error {
	healthy, err := client.IsHealthy(viper.GetDuration("idp.health-timeout")).Await(ctx)
	if err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	if healthy.IsErr() {
		return fmt.Errorf("idp reported unhealthy: %v", healthy.UnwrapErr())
	}

	username := viper.GetString("demo.username")
	password, err := velo.ParsePassword(viper.GetString("demo.password"))
	if err != nil {
		return fmt.Errorf("invalid demo password: %w", err)
	}

	initMfa, err := client.Login(ctx, username, password).Await(ctx)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	if initMfa.IsErr() {
		return fmt.Errorf("login rejected: %v", initMfa.UnwrapErr())
	}

	state := initMfa.Unwrap()
	available := state.Available()
	if len(available) == 0 {
		return fmt.Errorf("idp offered no MFA kinds")
	}

	level.Info(logger).Log("message", "login started", "available_mfa", fmt.Sprint(available), "source", "cmd/velo-example")

	switch available[0] {
	case velo.MfaTotp:
		verify := state.Totp(ctx, client)
		if verify.IsErr() {
			return fmt.Errorf("totp not available after all")
		}
		code, err := velo.ParseTotp(viper.GetString("demo.otp"))
		if err != nil {
			return fmt.Errorf("invalid demo otp: %w", err)
		}
		result := verify.Unwrap().Guess(ctx, client, code)
		if result.IsErr() {
			return fmt.Errorf("totp guess rejected, retry available with %v", result.UnwrapErr().Available())
		}
		level.Info(logger).Log("message", "login complete", "source", "cmd/velo-example")
	case velo.MfaSms, velo.MfaEmail:
		verify := state.Sms(ctx, client)
		if verify.IsErr() {
			verify = state.Email(ctx, client)
		}
		if verify.IsErr() {
			return fmt.Errorf("no OTP-based MFA kind available after all")
		}
		otp, err := velo.ParseSimpleOtp(viper.GetString("demo.otp"))
		if err != nil {
			return fmt.Errorf("invalid demo otp: %w", err)
		}
		result := verify.Unwrap().Guess(ctx, client, otp)
		if result.IsErr() {
			return fmt.Errorf("otp guess rejected, retry available with %v", result.UnwrapErr().Available())
		}
		level.Info(logger).Log("message", "login complete", "source", "cmd/velo-example")
	}

	return nil
}
