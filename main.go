package main

import (
	"context"
	"fmt"
	"os"

	"rush/domain/mode"
	palargs "rush/infrastructure/PAL/args"
	palsignal "rush/infrastructure/PAL/signal"
	"rush/infrastructure/logging"
	"rush/infrastructure/settings"
	"rush/presentation/cli"
	clientrunner "rush/presentation/runners/client"
	serverrunner "rush/presentation/runners/server"
	"rush/presentation/shutdown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	argsProvider := palargs.NewDefaultProvider()
	args := argsProvider.Args()

	m, err := cli.ParseMode(args)
	if err != nil {
		return err
	}

	logger := logging.NewLogLogger()

	handler := shutdown.NewHandler(shutdown.OSNotifier{}, palsignal.NewDefaultProvider())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		handler.Wait(ctx)
		cancel()
	}()

	switch m {
	case mode.Client:
		username, host, err := cli.ParseClientTarget(args)
		if err != nil {
			return err
		}
		return clientrunner.Run(ctx, clientrunner.Config{
			Username: username,
			Host:     host,
			Logger:   logger,
		})
	case mode.Server:
		return serverrunner.Run(ctx, serverrunner.Config{
			ListenAddr: listenAddr(args),
			Logger:     logger,
		})
	default:
		return fmt.Errorf("unsupported mode %s", m)
	}
}

func listenAddr(args []string) string {
	if len(args) >= 3 {
		return args[2]
	}
	return fmt.Sprintf(":%d", settings.DefaultPort)
}
