// Package cmdutil holds the setup shared by the cli commands.
package cmdutil

import (
	"os"
	"sync"
	"time"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/config"
	"github.com/kartrace/kartrace-go/pkg/utils"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger creates the logger from config.LogFormat, config.LogLevel and
// config.LogConfig and installs it as default.
func SetupLogger() *log.Logger {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if config.LogConfig != "" {
		if cfg, err := log.LoadFilterConfig(config.LogConfig); err != nil {
			log.Warn("could not load log config", log.ErrorField(err))
		} else if opt, err := log.WithFilterRules(cfg.Filter); err != nil {
			log.Warn("invalid log filter", log.ErrorField(err))
		} else {
			opts = append(opts, opt)
		}
	}
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(os.Stderr, ParseLogLevel(config.LogLevel, log.InfoLevel), opts...)
	default:
		logger = log.DevLogger(os.Stderr, ParseLogLevel(config.LogLevel, log.DebugLevel), opts...)
	}
	log.ResetDefault(logger)
	return logger
}

// WaitForRequiredServices blocks until the configured database and nats
// server accept tcp connections.
func WaitForRequiredServices() error {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	addrs := []string{}
	if config.DB != "" {
		if addr := utils.ExtractFromDBURL(config.DB); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	if config.NatsURL != "" {
		if addr := utils.ExtractFromNatsURL(config.NatsURL); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	var wg sync.WaitGroup
	errs := make(chan error, len(addrs))
	for _, addr := range addrs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := utils.WaitForTCP(addr, timeout); err != nil {
				errs <- err
			}
		}()
	}
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return err
	}
	log.Debug("Required services are available")
	return nil
}
