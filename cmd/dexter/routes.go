package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fd1az/dexter/business/crosschain/app"
	"github.com/fd1az/dexter/business/crosschain/infra/catalog"
	"github.com/fd1az/dexter/internal/logger"
)

var routesToken string

var routesCmd = &cobra.Command{
	Use:   "routes [from] [to]",
	Short: "Print bridge routes between chains",
	Long: `Without arguments, prints the cheapest route for every ordered pair of
chains in the catalog. With two chain IDs, prints that route only.`,
	Args: cobra.MatchAll(cobra.MaximumNArgs(2), func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return fmt.Errorf("need both from and to, got %q", args[0])
		}
		return nil
	}),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Default()
		if err != nil {
			return err
		}
		svc := app.NewService(cat, logger.New(io.Discard, logger.LevelError, "dexter", nil))
		token := strings.ToUpper(routesToken)

		type leg struct{ from, to string }
		var legs []leg
		if len(args) == 2 {
			legs = append(legs, leg{args[0], args[1]})
		} else {
			for _, a := range svc.Chains() {
				for _, b := range svc.Chains() {
					if a.ID != b.ID {
						legs = append(legs, leg{a.ID, b.ID})
					}
				}
			}
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FROM\tTO\tBRIDGES\tFEE\tEST. TIME")
		for _, l := range legs {
			r, err := svc.FindRoute(l.from, l.to, token)
			if err != nil {
				if len(args) == 2 {
					return err
				}
				continue
			}
			names := make([]string, 0, len(r.Bridges))
			for _, b := range r.Bridges {
				names = append(names, b.Name)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s%%\t%s\n",
				l.from, l.to, strings.Join(names, " -> "),
				r.FeeFraction().Mul(decimal.NewFromInt(100)).StringFixed(2), r.EstimatedTime)
		}
		return tw.Flush()
	},
}

func init() {
	routesCmd.Flags().StringVar(&routesToken, "token", "USDC", "Token to bridge")
}
