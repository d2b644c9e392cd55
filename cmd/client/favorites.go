package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFavoritesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage favorite currencies",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// cobra runs only the closest persistent pre-run
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return c.requireSession()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List favorites",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				records, err := c.app.Favorites.Load(cmd.Context())
				if err != nil {
					return userError(err, "could not load favorites")
				}
				if len(records) == 0 {
					fmt.Fprintln(c.out, "No favorites yet")
				}
				for _, r := range records {
					name := r.Name
					if name == "" {
						name = r.CurrencyID
					}
					fmt.Fprintf(c.out, "%s\t%s\n", r.CurrencyID, name)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <currency>",
			Short: "Mark a currency as favorite",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := c.app.Favorites.Add(cmd.Context(), args[0]); err != nil {
					return userError(err, "could not add favorite")
				}
				fmt.Fprintf(c.out, "Added %s to favorites\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <currency>",
			Short: "Remove a currency from favorites",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				// each invocation starts with an empty mirror
				if _, err := c.app.Favorites.Load(cmd.Context()); err != nil {
					return userError(err, "could not load favorites")
				}
				if err := c.app.Favorites.Remove(cmd.Context(), args[0]); err != nil {
					return userError(err, "could not remove favorite")
				}
				fmt.Fprintf(c.out, "Removed %s from favorites\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
