package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/hostlink/internal/link"
	"github.com/danmuck/hostlink/internal/logging"
	"github.com/danmuck/hostlink/internal/wire"
)

func main() {
	configPath := flag.String("config", "cmd/linkctl/ex.config.toml", "config path (.toml or .yaml)")
	safely := flag.Bool("safely", false, "settle with {\"isSafely\":true} when no reply arrives in time")
	safelyMS := flag.Int("safely-ms", 0, "safe-timeout in milliseconds (0 uses the config value)")
	raw := flag.Bool("raw", false, "send string params without serialization")
	single := flag.String("single", "", "pre-encoded params blob, overrides json params")
	wait := flag.Duration("wait", 10*time.Second, "give up waiting for a reply after this long")
	flag.Usage = usage
	flag.Parse()

	logging.ConfigureRuntime()
	cfg, err := loadServiceConfig(*configPath)
	if err != nil {
		fail(err)
	}
	if cfg.HasLogLevel {
		logging.SetLevel(cfg.LogLevel)
	}
	svc, err := link.NewService(cfg.Service)
	if err != nil {
		fail(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	switch args[0] {
	case "serve":
		if err := svc.Run(); err != nil {
			fail(err)
		}
	case "send":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		opts := wire.Options{
			IsRawValue: *raw,
			IsSafely:   *safely,
			SafelyTime: time.Duration(*safelyMS) * time.Millisecond,
		}
		if *single != "" {
			opts.SingleOption = *single
		}
		if len(args) > 2 {
			params := make(map[string]any)
			if err := json.Unmarshal([]byte(args[2]), &params); err != nil {
				fail(fmt.Errorf("params must be a json object: %w", err))
			}
			opts.Params = params
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, *wait)
		defer cancel()
		v, err := svc.Send(ctx, args[1], opts)
		if err != nil {
			fail(err)
		}
		fmt.Println(v.String())
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: linkctl [flags] serve\n       linkctl [flags] send <command> [json-params]\n")
	flag.PrintDefaults()
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "linkctl: %v\n", err)
	os.Exit(1)
}
