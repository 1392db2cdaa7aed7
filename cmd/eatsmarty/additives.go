package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/franckalain/eatsmarty/internal/catalog"
	"github.com/franckalain/eatsmarty/internal/cli"
)

func additivesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "additives [query]",
		Short: "List food additives, optionally filtered by E-number or name",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load()
			if err != nil {
				return err
			}
			list := cat.Search(strings.Join(args, " "))
			return opts.render(cmd.OutOrStdout(), list, func() string {
				return cli.RenderAdditiveList(list)
			})
		},
	}
}

func additiveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "additive <id>",
		Short: "Show details about an additive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load()
			if err != nil {
				return err
			}
			a := cat.Lookup(args[0])
			return opts.render(cmd.OutOrStdout(), a, func() string {
				return cli.RenderAdditive(a)
			})
		},
	}
}

func categoriesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "categories [slug]",
		Short: "List food categories, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load()
			if err != nil {
				return err
			}
			cats := cat.Categories()
			if len(args) == 1 {
				c, ok := cat.Category(strings.ToLower(args[0]))
				if !ok {
					return errors.New(cli.FormatError("unknown category: " + args[0]))
				}
				cats = []catalog.Category{c}
			}
			return opts.render(cmd.OutOrStdout(), cats, func() string {
				return cli.RenderCategories(cats)
			})
		},
	}
}
