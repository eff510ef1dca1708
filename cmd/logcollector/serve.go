package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/slogger"
	"github.com/lixenwraith/slogger/collector"
	"github.com/lixenwraith/slogger/compat"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Accept network sink connections and write received lines",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "TCP address network sinks connect to",
				Value: "127.0.0.1:9514",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "File to append received lines to, stdout when empty",
			},
			&cli.StringFlag{
				Name:  "http",
				Usage: "Address for the /stats and /healthz endpoint, disabled when empty",
			},
			&cli.BoolFlag{
				Name:  "multicore",
				Usage: "Run one event loop per CPU",
			},
			&cli.IntFlag{
				Name:  "max-line",
				Usage: "Longest line held before it is split",
				Value: collector.DefaultMaxLine,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger, err := newDiagnosticsLogger(c.String("log-config"), c.String("log-level"))
			if err != nil {
				return err
			}
			defer logger.Shutdown()

			return serve(ctx, logger, serveOptions{
				listen:    c.String("listen"),
				out:       c.String("out"),
				http:      c.String("http"),
				multicore: c.Bool("multicore"),
				maxLine:   int(c.Int("max-line")),
			})
		},
	}
}

type serveOptions struct {
	listen    string
	out       string
	http      string
	multicore bool
	maxLine   int
}

// newDiagnosticsLogger builds the collector's own stderr logger
func newDiagnosticsLogger(configPath, level string) (*slogger.Logger, error) {
	cfg := slogger.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = slogger.NewConfigFromFile(configPath); err != nil {
			return nil, fmt.Errorf("loading log config: %w", err)
		}
	}
	lvl, err := slogger.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = int64(lvl)
	if !cfg.EnableConsole && !cfg.EnableFile && !cfg.EnableNetwork {
		cfg.EnableConsole = true
		cfg.ConsoleTarget = "stderr"
	}

	logger := slogger.NewLogger()
	if err := logger.ApplyConfig(cfg); err != nil {
		return nil, err
	}
	return logger, nil
}

func serve(ctx context.Context, logger *slogger.Logger, opts serveOptions) error {
	var out io.Writer = os.Stdout
	if opts.out != "" {
		f, err := os.OpenFile(opts.out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening output: %w", err)
		}
		defer f.Close()
		out = f
	}

	adapters := compat.NewBuilder().WithLogger(logger)
	gnetLogger, err := adapters.BuildGnet(compat.WithFatalHandler(func(msg string) {
		logger.Errorf("engine failure: %s", msg)
	}))
	if err != nil {
		return err
	}

	srv, err := collector.New(collector.Options{
		Addr:      "tcp://" + opts.listen,
		Out:       out,
		Multicore: opts.multicore,
		MaxLine:   opts.maxLine,
		Logger:    gnetLogger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run() }()

	var httpServer *fasthttp.Server
	if opts.http != "" {
		httpLogger, err := adapters.BuildFastHTTP()
		if err != nil {
			return err
		}
		httpServer = &fasthttp.Server{
			Handler:      srv.Handler(),
			Logger:       httpLogger,
			Name:         "logcollector",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpServer.ListenAndServe(opts.http); err != nil {
				logger.Errorf("stats endpoint on %s: %v", opts.http, err)
			}
		}()
		logger.Infof("stats endpoint on http://%s/stats", opts.http)
	}

	select {
	case <-srv.Ready():
		logger.Infof("collecting on %s", opts.listen)
	case err := <-runErr:
		return fmt.Errorf("starting receiver: %w", err)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-runErr:
		if err != nil {
			return fmt.Errorf("receiver stopped: %w", err)
		}
		return nil
	}

	if httpServer != nil {
		_ = httpServer.Shutdown()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil && !errors.Is(err, collector.ErrNotRunning) {
		return fmt.Errorf("stopping receiver: %w", err)
	}
	<-runErr

	st := srv.Stats()
	logger.Infof("received %d lines (%d bytes) over %d connections", st.Lines, st.Bytes, st.Accepted)
	return nil
}
