package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/atinyakov/nexus/internal/client/catalog"
	"github.com/atinyakov/nexus/internal/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newCurrenciesCmd(c *cli) *cobra.Command {
	var (
		search string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "currencies",
		Short: "List the currencies that can be converted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := c.app.Catalog.Get(cmd.Context())
			var stale *catalog.StaleError
			switch {
			case errors.As(err, &stale):
				fmt.Fprintf(c.errOut, "warning: currency list could not be refreshed, showing data from %s\n",
					stale.FetchedAt.Format("2006-01-02 15:04"))
			case err != nil:
				return userError(err, "could not load the currency list")
			}

			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			shown := 0
			for _, rec := range records {
				if !matches(rec, search) {
					continue
				}
				if limit > 0 && shown == limit {
					break
				}
				fmt.Fprintf(w, "%s\t%s\n", rec.ID, rec.DisplayName)
				shown++
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by id or name")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "show at most this many currencies")
	return cmd
}

func matches(rec models.CurrencyRecord, search string) bool {
	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(rec.ID), search) ||
		strings.Contains(strings.ToLower(rec.DisplayName), search)
}

func newConvertCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <currency> <amount>",
		Short: "Price an amount of a currency in BRL and USD",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Conversions.Convert(cmd.Context(), args[0], args[1])
			if err != nil {
				return userError(err, "conversion failed")
			}
			fmt.Fprintf(c.out, "%s %s = R$ %s | US$ %s\n",
				res.Amount.String(), res.CurrencyID, money(res.ConvertedPrimary), money(res.ConvertedSecondary))
			return nil
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show past conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			records, err := c.app.Conversions.History(cmd.Context())
			if err != nil {
				return userError(err, "could not load the conversion history")
			}
			if len(records) == 0 {
				fmt.Fprintln(c.out, "No conversions yet")
				return nil
			}

			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tCURRENCY\tAMOUNT\tBRL\tUSD")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04"), r.CurrencyID, r.Amount.String(),
					money(r.ConvertedPrimary), money(r.ConvertedSecondary))
			}
			return w.Flush()
		},
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
