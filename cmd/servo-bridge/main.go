// cmd/servo-bridge/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tamzrod/servo-bridge/internal/bus/feetech"
	"github.com/tamzrod/servo-bridge/internal/clock"
	"github.com/tamzrod/servo-bridge/internal/config"
	"github.com/tamzrod/servo-bridge/internal/connection"
	"github.com/tamzrod/servo-bridge/internal/dispatch"
	"github.com/tamzrod/servo-bridge/internal/mirror"
	"github.com/tamzrod/servo-bridge/internal/node"
)

func main() {
	os.Exit(run())
}

func run() int {
	// --------------------
	// Settings: env, then flags
	// --------------------

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fs := pflag.NewFlagSet("servo-bridge", pflag.ContinueOnError)
	config.AddFlags(fs, &settings)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger, closeLog, err := newLogger(settings.LogLevel, settings.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	if err := config.Validate(settings); err != nil {
		logger.Error("settings validation failed", "error", err)
		return 1
	}
	config.Normalize(&settings)
	config.LogSettings(logger, settings)

	// --------------------
	// Motor registry
	// --------------------

	motors, err := config.LoadMotors(settings.ConfigPath)
	if err == nil {
		err = config.ValidateMotors(motors)
	}
	if err != nil {
		logger.Error("motor registry invalid", "error", err)
		return 1
	}
	config.LogMotors(logger, motors)

	// --------------------
	// Bus link (first attempt is not fatal)
	// --------------------

	clk := clock.Real()

	conn, handle, err := connection.Build(settings, motors, feetech.Driver{}, clk, logger)
	if err != nil {
		logger.Error("connection setup failed", "error", err)
		return 1
	}

	// --------------------
	// Event stream
	// --------------------

	stream := node.Stdio()
	if settings.Socket != "" {
		stream, err = node.Dial(settings.Socket)
		if err != nil {
			logger.Error("event stream unavailable", "error", err)
			return 1
		}
	}

	d, err := dispatch.New(motors, conn, handle, stream, clk, logger)
	if err != nil {
		logger.Error("dispatcher setup failed", "error", err)
		return 1
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("closing bus", "error", err)
		}
	}()

	// --------------------
	// Optional Modbus mirror
	// --------------------

	m, closeMirror, err := mirror.Build(settings)
	if err != nil {
		// the node works without it
		logger.Warn("mirror disabled", "error", err)
	} else {
		defer closeMirror()
		if m != nil {
			d.SetMirror(m)
		}
	}

	// --------------------
	// Shutdown: cancel the loop, release the stream.
	// A second signal gets the default behaviour.
	// --------------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		stop()
		_ = stream.Close()
	}()

	logger.Info("node running")

	if err := node.Run(ctx, stream, d); err != nil {
		if ctx.Err() != nil {
			logger.Info("interrupted")
			return 0
		}
		logger.Error("event stream failed", "error", err)
		return 1
	}

	logger.Info("node stopped")
	return 0
}
