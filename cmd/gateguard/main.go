// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command gateguard sniffs HTTP traffic on an interface, enforces a
// cached policy ruleset and an external URL classifier, and injects a
// spoofed 403 response for anything it blocks.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flag"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tami-bang/GateGuard/internal/audit"
	"github.com/tami-bang/GateGuard/internal/capture"
	"github.com/tami-bang/GateGuard/internal/classifier"
	"github.com/tami-bang/GateGuard/internal/config"
	"github.com/tami-bang/GateGuard/internal/engine"
	gerrors "github.com/tami-bang/GateGuard/internal/errors"
	"github.com/tami-bang/GateGuard/internal/httpevent"
	"github.com/tami-bang/GateGuard/internal/injector"
	"github.com/tami-bang/GateGuard/internal/logging"
	"github.com/tami-bang/GateGuard/internal/metrics"
	"github.com/tami-bang/GateGuard/internal/policy"
	"github.com/tami-bang/GateGuard/internal/rawsock"
)

func main() {
	configPath := flag.String("config", "gateguard.hcl", "Path to HCL config file")
	metricsAddr := flag.String("metrics-listen", ":9090", "Prometheus /metrics listen address")
	flag.Parse()

	ifname := ""
	if args := flag.Args(); len(args) > 0 {
		ifname = args[0]
	}

	log := logging.Default().WithComponent("main")

	if err := run(*configPath, ifname, *metricsAddr, log); err != nil {
		log.Error("gateguard exited with error", "err", err)
		os.Exit(1)
	}
}

func run(configPath, ifnameOverride, metricsAddr string, log *logging.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return gerrors.Wrap(err, gerrors.KindInternal, "load config")
	}
	if ifnameOverride != "" {
		cfg.Interface = ifnameOverride
	}
	if errs := cfg.Validate(); errs.HasErrors() {
		return gerrors.Wrapf(errs, gerrors.KindValidation, "invalid config: %s", errs.Error())
	}

	if cfg.Syslog != nil && cfg.Syslog.Enabled {
		w, err := logging.NewSyslogWriter(logging.SyslogConfig{
			Host:     cfg.Syslog.Host,
			Port:     cfg.Syslog.Port,
			Protocol: cfg.Syslog.Protocol,
			Tag:      cfg.Syslog.Tag,
			Facility: cfg.Syslog.Facility,
		})
		if err != nil {
			return gerrors.Wrap(err, gerrors.KindUnavailable, "connect syslog")
		}
		log.AddWriter(w)
	}

	store, err := audit.Open(cfg.AuditDBPath)
	if err != nil {
		return gerrors.Wrap(err, gerrors.KindUnavailable, "open audit store")
	}
	defer store.Close()

	cache, err := policy.LoadCache(store.DB())
	if err != nil {
		log.Error("policy cache load failed, continuing with an empty cache", "err", err)
		cache = policy.NewCache(nil)
	}
	log.Info("policy cache loaded", "policies", cache.Len())

	classifierClient := classifier.NewClient(classifier.Config{
		Endpoint:       cfg.Classifier.Endpoint,
		Token:          cfg.Classifier.Token,
		ConnectTimeout: time.Duration(cfg.Classifier.ConnectTimeoutMS) * time.Millisecond,
		TotalTimeout:   time.Duration(cfg.Classifier.TimeoutMS) * time.Millisecond,
	})

	sender := rawsock.NewRawSender()
	defer sender.Close()

	inj := injector.New(sender, store)

	m := metrics.New()
	m.Register()
	go serveMetrics(metricsAddr, log)

	dispatcher := engine.New(cache, classifierClient, inj, store, m, cfg.Classifier.Threshold)

	cap, err := capture.Open(cfg.Interface)
	if err != nil {
		return gerrors.Wrap(err, gerrors.KindUnavailable, "open capture")
	}
	defer cap.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("gateguard engine start", "interface", cfg.Interface)

	err = cap.Run(ctx, func(ev *httpevent.Event) {
		dispatcher.Handle(ctx, ev)
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

func serveMetrics(addr string, log *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", "err", err)
	}
}
