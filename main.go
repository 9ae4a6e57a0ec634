package main

import (
	"flag"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/aerc-go/aerc/config"
	"github.com/aerc-go/aerc/coordinator"
	"github.com/aerc-go/aerc/internal/telemetry"
	"github.com/aerc-go/aerc/queue"
	"github.com/aerc-go/aerc/worker"
)

// initLogger builds a JSON gokit-logger set to the verbosity named by
// loglevel, the same shape the teacher builds its process-wide logger.
func initLogger(loglevel string) log.Logger {

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger,
		"ts", log.DefaultTimestampUTC,
		"caller", log.Caller(5),
	)

	switch strings.ToLower(loglevel) {
	case "info":
		logger = level.NewFilter(logger, level.AllowInfo())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowDebug())
	}

	return logger
}

func main() {

	configFlag := flag.String("config", "accounts.toml", "Provide path to the accounts file in TOML syntax.")
	loglevelFlag := flag.String("loglevel", "info", "This flag sets the default logging level.")
	metricsAddrFlag := flag.String("metrics", "", "If non-empty, serve Prometheus metrics on this address.")
	flag.Parse()

	logger := initLogger(*loglevelFlag)

	config.LoadEnv()

	conf, err := config.LoadConfig(*configFlag)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load accounts file", "err", err)
		os.Exit(1)
	}

	metrics := telemetry.NewMetrics()
	if *metricsAddrFlag != "" {
		go telemetry.Serve(logger, *metricsAddrFlag)
	}

	co := coordinator.New(coordinator.NopRenderer{}, logger)

	for name, acctConf := range conf.Accounts {

		inbound := queue.New()
		outbound := queue.New()

		w := worker.NewLoggingWorker(worker.New(name, inbound, outbound), log.With(logger, "component", "worker"))
		w.SetMetrics(metrics)
		go w.Run()

		acct := coordinator.NewAccount(name, inbound, outbound)
		co.AddAccount(acct)

		metrics.ActiveAccounts.Add(1)

		uri := acctConf.URI
		if password, ok := config.PasswordFor(name); ok {
			if u, err := url.Parse(uri); err == nil && u.User != nil {
				u.User = url.UserPassword(u.User.Username(), password)
				uri = u.String()
			}
		}
		acct.Connect(uri)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		level.Info(logger).Log("msg", "shutting down")
		co.Shutdown()
	}()

	co.Run()
}
