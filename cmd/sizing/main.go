// Package main prints which sizing tier each configured strategy applies to
// a set of trader allocations, and the resulting copy size.
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"polycopy/internal/config"
	"polycopy/internal/domain"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	allocs := flag.String("alloc", "0.05,0.12,0.15,0.20,0.35", "Comma-separated trader allocations (fractions)")
	capital := flag.Float64("capital", 1000, "Spendable capital in USD used to resolve ratio sizes")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	samples, err := parseAllocations(*allocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	strategies := make([]domain.StrategyConfig, len(cfg.Strategies))
	for i := range cfg.Strategies {
		strategies[i] = cfg.Strategies[i].Domain()
	}
	if err := report(os.Stdout, strategies, samples, *capital); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
}

func parseAllocations(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("invalid allocation %q", part)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no allocations given")
	}
	return out, nil
}

// report writes one table per strategy: allocation, matched tier and size.
func report(w io.Writer, strategies []domain.StrategyConfig, allocs []float64, capital float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for i := range strategies {
		s := &strategies[i]
		fmt.Fprintf(tw, "%s (%s, %s)\n", s.Label(), s.Type, s.Sizing.Mode)
		fmt.Fprintf(tw, "ALLOC\tTIER\tSIZE\tUSD\n")
		for _, a := range allocs {
			rule, ok := s.Sizing.Lookup(a)
			if !ok {
				fmt.Fprintf(tw, "%s\t-\tno match\t-\n", percent(a))
				continue
			}
			size := rule.Size(s.Sizing.Mode)
			fmt.Fprintf(tw, "%s\t[%s, %s)\t%s\t%.2f\n",
				percent(a), percent(rule.MinTraderAlloc), percent(rule.MaxTraderAlloc), size, size.Resolve(capital))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func percent(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
}
