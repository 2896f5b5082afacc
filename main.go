package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "f95engage",
		Short:         "Colour F95Zone latest-update listings by community engagement",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch("")
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default: $CONFIG_FILE)")

	root.AddCommand(watchCmd())
	root.AddCommand(scoreCmd())
	root.AddCommand(calcCmd())
	root.AddCommand(lastCmd())

	return root
}

func watchCmd() *cobra.Command {
	var startURL string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the listing page in Chrome and keep engagement borders up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(startURL)
		},
	}

	cmd.Flags().StringVar(&startURL, "url", "", "page to open (default: TARGET_URL)")
	return cmd
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <page.html>",
		Short: "Score the listings of a saved latest-updates page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(args[0])
		},
	}
	return cmd
}

func calcCmd() *cobra.Command {
	var (
		views  string
		likes  string
		rating float64
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Score a single listing from its metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r *float64
			if cmd.Flags().Changed("rating") {
				r = &rating
			}
			return runCalc(views, likes, r)
		},
	}

	cmd.Flags().StringVar(&views, "views", "0", "view count, shorthand allowed (e.g. 12.3K)")
	cmd.Flags().StringVar(&likes, "likes", "0", "like count, shorthand allowed")
	cmd.Flags().Float64Var(&rating, "rating", 0, "rating 0-5 (omit when the listing has none)")
	return cmd
}

func lastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Print the most recent pass stored in PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLast()
		},
	}
}
