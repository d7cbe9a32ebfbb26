package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"proxyfinder/internal/shared/config"
	"proxyfinder/internal/shared/logger"
	"proxyfinder/internal/shared/types"
	"proxyfinder/proxypool/filter"
	"proxyfinder/proxypool/model"
	"proxyfinder/proxypool/rotation"
	"proxyfinder/proxypool/storage"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	n := flag.Int("n", 5, "Number of proxies to retrieve")
	countriesArg := flag.String("countries", "", "Comma-separated ISO country codes (e.g. US,DE)")
	anonymity := flag.String("anonymity", "", "Anonymity tier filter: transparent, anonymous or elite")
	one := flag.Bool("one", false, "Return the first valid proxy instead of a rotation set")
	fetchOnly := flag.Bool("fetch-only", false, "List raw candidates without validating them")
	cached := flag.Bool("cached", false, "Serve from the on-disk cache instead of fetching")
	listCountries := flag.Bool("list-countries", false, "Print the recognized country codes and exit")
	flag.Parse()

	iniPath := filepath.Join(*configDir, "proxyfinder.ini")

	cfg := types.DefaultConfig()
	if err := config.LoadIni(cfg, iniPath); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if *listCountries {
		printCountries()
		return
	}

	opts := rotation.Options{Anonymity: model.Anonymity(*anonymity)}
	if *countriesArg != "" {
		for _, c := range strings.Split(*countriesArg, ",") {
			opts.Countries = append(opts.Countries, strings.TrimSpace(c))
		}
	}

	if *cached {
		cache := storage.NewFileCache(cfg.CacheConf.Path, cfg.CacheConf.MaxEntries)
		proxies, err := cache.Load(time.Duration(cfg.CacheConf.MaxAgeHours) * time.Hour)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read proxy cache.")
			os.Exit(1)
		}
		printProxies(proxies)
		return
	}

	manager := rotation.NewFromConfig(cfg)
	ctx := context.Background()

	if *fetchOnly {
		candidates, err := manager.FetchCandidates(ctx, opts, *n)
		if err != nil {
			logger.Error().Err(err).Msg("Fetch failed.")
			os.Exit(1)
		}
		printCandidates(candidates)
		return
	}

	if *one {
		proxy, err := manager.GetOne(ctx, opts)
		if err != nil {
			logger.Error().Err(err).Msg("No proxy found.")
			os.Exit(1)
		}
		printProxies([]model.ValidatedProxy{proxy})
		return
	}

	proxies, err := manager.GetMany(ctx, *n, opts)
	if err != nil {
		logger.Error().Err(err).Msg("No proxies found.")
		os.Exit(1)
	}
	if len(proxies) < *n {
		logger.Warn().Int("found", len(proxies)).Int("wanted", *n).Msg("Attempt budget exhausted with a partial set.")
	}
	printProxies(proxies)
}

func printProxies(proxies []model.ValidatedProxy) {
	if len(proxies) == 0 {
		fmt.Println("No proxies available.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "IP\tPORT\tCOUNTRY\tANONYMITY\tLATENCY\tAUTH\tSTATUS\tVALIDATED AT")
	for _, p := range proxies {
		port := strings.TrimPrefix(p.Address, p.Host()+":")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%v\t%s\t%s\n",
			p.Host(), port, p.Country, p.Anonymity, p.Latency.Seconds(),
			p.RequiresAuth, p.Status, p.ValidatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

func printCandidates(candidates []model.CandidateProxy) {
	if len(candidates) == 0 {
		fmt.Println("No candidates available.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tCOUNTRY\tANONYMITY\tSOURCE")
	for _, c := range candidates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Address, c.CountryHint, c.AnonymityHint, c.Source)
	}
	w.Flush()
}

func printCountries() {
	names := filter.SupportedCountries()
	type entry struct{ name, code string }
	entries := make([]entry, 0, len(names))
	for name, code := range names {
		entries = append(entries, entry{name, code})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tCOUNTRY")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.code, e.name)
	}
	w.Flush()
}
