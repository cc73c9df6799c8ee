package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rxreport/internal/config"
	"rxreport/internal/etl"
	"rxreport/internal/metrics"
	"rxreport/internal/metrics/datadog"
	"rxreport/internal/metrics/prompush"
	"rxreport/internal/rollup"
	"rxreport/internal/selection"
	"rxreport/internal/storage"

	// register all backends with the storage factory.
	_ "rxreport/internal/storage/all"
)

// main loads the pipeline config and the optional .env file, picks a
// metrics backend and runs one report job.
func main() {
	var (
		cfgPath           string
		envPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
		list              bool
	)

	flag.StringVar(&cfgPath, "config", "configs/rx.yaml", "pipeline config path (.json, .yaml or .yml)")
	flag.StringVar(&envPath, "env", ".env", "dotenv file loaded before reading the environment; missing is fine")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&list, "list", false, "list policies, group keys and storage kinds, then exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if list {
		printCatalog()
		return
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fatalf("load %s: %v", envPath, err)
		}
	}

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	p.ApplyDefaults()
	if err := p.ApplyEnv(os.Getenv); err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	flush := setupMetrics(p.Job, metricsBackendFlg, pushGatewayURLFlg, *verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *verbose {
		log.Printf("pipeline: job=%s source=%s policy=%q period=%t xlsx=%t storage=%t",
			p.Job, p.Source.Kind, p.Policy, p.Period != nil, p.Report.XLSX != nil, p.Report.Storage != nil)
	}

	sum, err := etl.Run(ctx, p)
	flush()
	if err != nil {
		log.Fatalf("%v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sum); err != nil {
		log.Printf("summary: %v", err)
	}
	if *verbose {
		log.Printf("completed in %s", sum.Elapsed.Truncate(time.Millisecond))
	}
}

// setupMetrics picks the backend: flag, then env, then none. It returns the
// flush to call once the run is over.
func setupMetrics(job, backendFlg, gwFlg string, verbose bool) func() {
	backendName := backendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	flush := func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}

	switch strings.ToLower(backendName) {
	case "pushgateway":
		gwURL := gwFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, job)
		metrics.SetBackend(b)
		return flush

	case "datadog":
		addr := os.Getenv("DD_AGENT_ADDR")
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, GlobalTags: []string{"job:" + job}})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: addr=%v, backend=%v", addr, backendName)
		metrics.SetBackend(b)
		return flush

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
	return func() {}
}

func printCatalog() {
	fmt.Println("policies:")
	for _, n := range selection.Names() {
		fmt.Println("  " + n)
	}
	fmt.Println("group keys:")
	for _, k := range rollup.AllKeys {
		fmt.Printf("  %-15s %s\n", k, k.Label())
	}
	fmt.Println("storage kinds:")
	for _, k := range storage.Kinds() {
		fmt.Println("  " + k)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
