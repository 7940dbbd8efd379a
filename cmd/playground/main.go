package main

import (
	"log"
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/playground/app"
	"github.com/vkngwrapper/playground/config"
	"golang.org/x/exp/slog"
)

func run() error {
	cfg := config.Default()
	err := cfg.ApplyArgs(os.Args[1:], os.Stdout)
	if errors.Is(err, config.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	playground, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer playground.Destroy()

	return playground.Run()
}

func main() {
	// SDL and the Vulkan surface must stay on the main thread.
	runtime.LockOSThread()

	err := run()
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
