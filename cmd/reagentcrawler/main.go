package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"github.com/lazuli-inc/reagentcrawler"
	"github.com/lazuli-inc/reagentcrawler/sites"
)

func selectedSites() []string {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	var names []string
	for _, part := range strings.Split(v.GetString("SITES"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	if len(os.Args) > 1 {
		names = os.Args[1:]
	}
	if len(names) == 0 {
		names = sites.Default()
	}
	return names
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	crawler := reagentcrawler.NewReagentCrawler()
	for _, name := range selectedSites() {
		cfg, ok := sites.Lookup(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown site %q, known sites: %s\n", name, strings.Join(sites.Names(), ", "))
			os.Exit(2)
		}
		crawler.AddSite(cfg)
	}

	failed := false
	for _, result := range crawler.Start(ctx) {
		rows := 0
		if len(result.Sheet.Rows) > 0 {
			rows = len(result.Sheet.Rows) - 1
		}
		if result.Err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "%s: %d items, %d warnings, error: %v\n", result.Site, rows, len(result.Warnings), result.Err)
			continue
		}
		fmt.Printf("%s: %d items, %d warnings\n", result.Site, rows, len(result.Warnings))
	}
	if failed {
		os.Exit(1)
	}
}
