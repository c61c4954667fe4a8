// Package main provides a CLI reporting toolkit for Microsoft Entra ID. It
// retrieves directory role memberships (direct, PIM-eligible and through
// role-assignable groups), role activation history, application credential
// expiry, Defender secure scores and identity sensors, Teams inventory,
// terms-of-use agreements and usage reports, and can render the collected
// data into a static HTML document.
//
// Authentication methods supported:
//   - Client Secret: standard app registration secret
//   - PFX Certificate: certificate file with private key
//
// All operations are logged to action-specific CSV files in the system temp
// directory for audit purposes.
//
// Example usage:
//
//	entrareport -tenantid "..." -clientid "..." -secret "..." -action roles
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"entrareport/internal/common/logger"
	"entrareport/internal/common/version"
	"entrareport/internal/graph"
)

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

// setupSignalHandling returns a context cancelled on SIGINT or SIGTERM.
func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal. Shutting down gracefully...")
		cancel()
	}()

	return ctx, cancel
}

func run() error {
	ctx, cancel := setupSignalHandling()
	defer cancel()

	config := parseAndConfigureFlags()

	if config.ShowVersion {
		fmt.Printf("Entra ID Reporting Toolkit - Version %s\n", version.Get())
		return nil
	}

	if err := validateConfiguration(config); err != nil {
		fmt.Printf("Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	slogger := logger.SetupLogger(config.VerboseMode, config.LogLevel)
	slogger.Info("Application starting", "version", version.Get(), "action", config.Action)

	csvLogger, err := logger.NewCSVLogger("entrareport", config.Action)
	if err != nil {
		slogger.Warn("Could not initialize CSV audit logging", "error", err)
		csvLogger = nil
	}
	if csvLogger != nil {
		defer csvLogger.Close()
		slogger.Debug("CSV audit log ready", "path", csvLogger.Path())
	}

	client, err := graph.NewClient(ctx, graph.Options{
		TenantID:          config.TenantID,
		ClientID:          config.ClientID,
		Secret:            config.Secret,
		PfxPath:           config.PfxPath,
		PfxPass:           config.PfxPass,
		RequestsPerSecond: config.RequestsPerSecond,
		Logger:            slogger,
	})
	if err != nil {
		return err
	}

	if config.VerboseMode {
		token, err := client.Token(ctx)
		if err != nil {
			slogger.Warn("Could not retrieve token for verbose display", "error", err)
		} else {
			printTokenInfo(token)
		}
	}

	return executeAction(ctx, client, config, slogger, csvLogger)
}
