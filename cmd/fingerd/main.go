// Package main implements the fingerd daemon: an RFC 1288 finger
// server whose users can be played from a scripted scenario.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/goatkit/fingerd/internal/config"
	"github.com/goatkit/fingerd/internal/fiction"
	"github.com/goatkit/fingerd/internal/finger"
)

var (
	cfgFile     string
	binds       string
	hostname    string
	source      string
	scenario    string
	watch       bool
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "fingerd",
	Short: "Finger daemon with scriptable fictional users",
	Long: `fingerd answers finger (RFC 1288) queries over TCP. Its users come
from a pluggable source: the default dummy source knows nobody, while
the scenario source replays a TOML script of timed logins, logouts
and profile changes, presenting a living machine to whoever fingers
it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "configuration file")
	rootCmd.Flags().StringVarP(&binds, "binds", "b", "", `addresses to listen on (default "localhost:79")`)
	rootCmd.Flags().StringVarP(&hostname, "hostname", "H", "", `hostname to present (default "LOCALHOST")`)
	rootCmd.Flags().StringVar(&source, "source", "", "user source: dummy or scenario")
	rootCmd.Flags().StringVarP(&scenario, "scenario", "s", "", "scenario file to play")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "reload the scenario file when it changes")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlags(cfg)

	logger := log.New(os.Stderr, "", log.LstdFlags)

	// A scenario path alone is enough to select the scenario source.
	if cfg.Source == "" || (cfg.Source == "dummy" && cfg.Scenario != "") {
		cfg.Source = "scenario"
	}

	stopped := make(chan struct{})
	var stopOnce sync.Once
	requestStop := func() {
		stopOnce.Do(func() { close(stopped) })
	}

	var src finger.Source
	var scenarioSource *fiction.ScenarioSource
	switch cfg.Source {
	case "dummy":
		src = finger.DummySource{}
	case "scenario":
		if cfg.Scenario == "" {
			return fmt.Errorf("the scenario source needs a scenario file; pass --scenario")
		}
		sc, err := fiction.LoadScenario(cfg.Scenario)
		if err != nil {
			return err
		}
		scenarioSource, err = fiction.NewScenarioSource(sc,
			fiction.WithLogger(logger),
			fiction.WithOnStop(requestStop),
		)
		if err != nil {
			return err
		}
		src = scenarioSource
	default:
		return fmt.Errorf("unknown user source %q", cfg.Source)
	}

	server, err := finger.NewServer(cfg.Binds, cfg.Hostname,
		finger.WithLogger(logger),
		finger.WithSource(src),
	)
	if err != nil {
		return err
	}

	if scenarioSource != nil {
		if err := scenarioSource.Start(); err != nil {
			return err
		}
		defer scenarioSource.Stop()

		if cfg.Watch {
			watcher, err := fiction.WatchScenario(cfg.Scenario, scenarioSource, logger)
			if err != nil {
				return err
			}
			defer watcher.Close()
		}
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(logger, cfg.MetricsAddr)
	}

	if err := server.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-sig:
		logger.Printf("fingerd: caught signal, shutting down")
	case <-stopped:
		logger.Printf("fingerd: scenario finished, shutting down")
	}

	server.Stop()
	return nil
}

// applyFlags overrides loaded configuration with the flags that were
// actually set.
func applyFlags(cfg *config.Config) {
	if binds != "" {
		cfg.Binds = binds
	}
	if hostname != "" {
		cfg.Hostname = hostname
	}
	if source != "" {
		cfg.Source = source
	}
	if scenario != "" {
		cfg.Scenario = scenario
	}
	if watch {
		cfg.Watch = true
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
}

func serveMetrics(logger *log.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Printf("fingerd: serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Printf("fingerd: metrics server: %v", err)
	}
}
