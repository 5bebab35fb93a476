package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/google/subcommands"

	c "ndx.service/core"
	ex "ndx.service/data/extensions"
	sm "ndx.service/models"
)

type returnsCmd struct {
	sectors string
	tickers string
	weights string
	start   string
	end     string
	chart   string
	kind    string
}

func (*returnsCmd) Name() string     { return "returns" }
func (*returnsCmd) Synopsis() string { return "compute cumulative returns of tickers and their portfolio" }
func (*returnsCmd) Usage() string {
	return `ndx returns -tickers <t1,t2> [-weights <w1,w2>] [-sectors <s1,s2>] [-start <date>] [-end <date>] [-chart <file.png>]

  Computes the cumulative return of each ticker and of the weighted portfolio between
  start and end. Weights follow the order of -tickers and snap to the configured step.
  Sectors default to every sector of the index.
`
}

func (cmd *returnsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.sectors, "sectors", "", "Comma separated GICS sectors (defaults to all)")
	f.StringVar(&cmd.tickers, "tickers", "", "Comma separated tickers")
	f.StringVar(&cmd.weights, "weights", "", "Comma separated weights in [0, 1], one per ticker")
	f.StringVar(&cmd.start, "start", "", "Start date YYYY-MM-DD (defaults to the configured start)")
	f.StringVar(&cmd.end, "end", "", "End date YYYY-MM-DD (defaults to today)")
	f.StringVar(&cmd.chart, "chart", "", "Write a PNG chart to this file")
	f.StringVar(&cmd.kind, "kind", string(c.ChartPortfolio), "Chart kind, portfolio or instruments")
}

func (cmd *returnsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	kind, err := c.ParseChartKind(cmd.kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	tickers := splitList(cmd.tickers)
	weights, err := parseWeights(tickers, cmd.weights, a.sc.Settings.WeightStep)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	sectors := splitList(cmd.sectors)
	if len(sectors) == 0 {
		table, err := a.sc.Reference.Load(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		sectors = c.Sectors(table)
	}

	in, err := a.sc.ParseAnalysisRequest(sm.AnalysisRequest{
		Sectors: sectors,
		Tickers: tickers,
		Weights: weights,
		Start:   cmd.start,
		End:     cmd.end,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	analysis, err := a.sc.RunAnalysis(ctx, in)
	var mse *c.MissingSelectionError
	if errors.As(err, &mse) {
		fmt.Fprintln(os.Stderr, mse.Prompt)
		return subcommands.ExitUsageError
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	printAnalysis(os.Stdout, analysis)

	if cmd.chart != "" {
		png, err := c.RenderChart(analysis, kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := os.WriteFile(cmd.chart, png, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	return subcommands.ExitSuccess
}

// parseWeights pairs the comma separated weights with tickers in order, an empty list
// leaves every ticker on the default weight
func parseWeights(tickers []string, list string, step float64) (map[string]float64, error) {
	values := splitList(list)
	if len(values) == 0 {
		return nil, nil
	}
	if len(values) != len(tickers) {
		return nil, fmt.Errorf("got %d weights for %d tickers", len(values), len(tickers))
	}

	res := make(map[string]float64, len(values))
	for i, v := range values {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q for %s: %w", v, tickers[i], err)
		}
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("weight %v for %s is outside [0, 1]", w, tickers[i])
		}
		res[tickers[i]] = c.SnapWeight(w, step)
	}
	return res, nil
}

// printAnalysis writes the instruments table, one row per date, followed by the summary
func printAnalysis(out io.Writer, a *c.Analysis) {
	tickers := a.Tickers()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "DATE\t")
	for _, t := range tickers {
		fmt.Fprintf(w, "%s\t", t)
	}
	fmt.Fprintln(w, "PORTFOLIO\t")

	for i, p := range a.Portfolio {
		fmt.Fprintf(w, "%s\t", ex.FmtShort(p.Date))
		for _, t := range tickers {
			value := "-"
			if s := a.Instruments[t]; i < len(s) {
				value = sm.FormatPercent(s[i].Value)
			}
			fmt.Fprintf(w, "%s\t", value)
		}
		fmt.Fprintf(w, "%s\t\n", sm.FormatPercent(p.Value))
	}
	w.Flush()

	if len(a.Weights) > 0 {
		fmt.Fprintln(out)
		for _, t := range tickers {
			fmt.Fprintf(out, "weight %s: %s\n", t, sm.FormatPercent(a.Weights[t]))
		}
	}
	for _, warning := range a.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning.Error())
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, sm.FormatSummary(a.Portfolio.Final()))
}
