package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trendradar",
		Short:         "Collect, score and relate attention signals from social, news and calendar sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(collectCmd())
	root.AddCommand(reportCmd())
	root.AddCommand(relatedCmd())
	root.AddCommand(booksCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func collectCmd() *cobra.Command {
	var (
		sources    []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run the pipeline once and show scored signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context(), sources, jsonOutput)
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "specific adapters to run (e.g., twitter,news,calendar)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func reportCmd() *cobra.Command {
	var (
		out     string
		collect bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render today's Markdown trend report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), out, collect)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&collect, "collect", false, "run the pipeline before rendering")
	return cmd
}

func relatedCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "related <keyword>",
		Short: "List signals related to a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelated(cmd.Context(), args[0], limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max results (default: from config)")
	return cmd
}

func booksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Show book promotions for current signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBookPromotions(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBooksList()
		},
	})

	var item bookFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a catalog entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBooksAdd(item)
		},
	}
	add.Flags().StringVar(&item.id, "id", "", "entry id (default: generated)")
	add.Flags().StringVar(&item.title, "title", "", "title")
	add.Flags().StringSliceVar(&item.keywords, "keywords", nil, "comma separated keywords")
	add.Flags().StringVar(&item.genre, "genre", "", "genre / category")
	add.Flags().StringVar(&item.url, "url", "", "external URL")
	_ = add.MarkFlagRequired("title")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "suggest",
		Short: "Suggest new titles for trending keywords the catalog misses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBookSuggestions(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBooksDelete(args[0])
		},
	})
	return cmd
}

func historyCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history <keyword>",
		Short: "Show the recorded history and status of a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
