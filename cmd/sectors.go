package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	c "ndx.service/core"
)

type sectorsCmd struct {
	verbose bool
}

func (*sectorsCmd) Name() string     { return "sectors" }
func (*sectorsCmd) Synopsis() string { return "list the index sectors and their constituents" }
func (*sectorsCmd) Usage() string {
	return `ndx sectors [-v] [sector...]

  Lists the GICS sectors of the index with their constituent count. With -v, or when
  sectors are given, lists the constituents themselves.
`
}

func (cmd *sectorsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.verbose, "v", false, "list constituents of every sector")
}

func (cmd *sectorsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	table, err := a.sc.Reference.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if f.NArg() == 0 && !cmd.verbose {
		for _, sector := range c.Sectors(table) {
			fmt.Fprintf(w, "%s\t%d\n", sector, len(c.FilterBySector(table, []string{sector})))
		}
		return subcommands.ExitSuccess
	}

	if f.NArg() > 0 {
		table = c.FilterBySector(table, f.Args())
		if len(table) == 0 {
			fmt.Fprintln(os.Stderr, "no constituents in", f.Args())
			return subcommands.ExitUsageError
		}
	}

	fmt.Fprintln(w, "TICKER\tCOMPANY\tSECTOR\tSUB-INDUSTRY")
	for _, row := range table {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.Ticker, row.Company, row.Sector, row.SubIndustry)
	}
	return subcommands.ExitSuccess
}
