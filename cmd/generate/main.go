package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mnandhu/learningpath/internal/app"
	"github.com/mnandhu/learningpath/internal/queue"
	"github.com/mnandhu/learningpath/internal/util"
	"github.com/mnandhu/learningpath/pkg/config"
	"github.com/mnandhu/learningpath/pkg/logger"
	"github.com/mnandhu/learningpath/pkg/logger/console"

	"github.com/spf13/cobra"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if err := newRootCmd().Execute(); err != nil {
		logger.Error("Command failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		domain string
		limit  int
	)

	cmd := &cobra.Command{
		Use:           "generate",
		Short:         "Build a topic knowledge graph for a domain",
		Long:          "Queries Wikidata for domain topics, enriches them with Wikipedia content, and writes the assembled graph snapshot to the configured sinks.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := resolveConfig(domain, limit)
			return runGeneration(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&domain, "domain", "d", "", "domain to generate (default from KG_DOMAIN)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of topics (default from KG_LIMIT)")

	cmd.AddCommand(newEnqueueCmd())
	cmd.AddCommand(newSearchCmd())

	return cmd
}

func resolveConfig(domain string, limit int) config.Config {
	cfg := config.DefaultsFromEnv()
	if domain != "" {
		cfg.Domain = domain
	}
	if limit > 0 {
		cfg.Limit = limit
	}
	if _, ok := config.Domains[cfg.Domain]; !ok {
		logger.Warn("Unknown domain, using default", "domain", cfg.Domain, "default", config.DefaultDomain)
		cfg.Domain = config.DefaultDomain
	}
	return cfg
}

func runGeneration(ctx context.Context, cfg config.Config) error {
	p, closeFn, err := app.BuildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("Generation complete",
		"run", result.RunID,
		"domain", result.Domain,
		"topics", result.Snapshot.Metadata.TopicCount,
		"edges", result.Snapshot.Metadata.EdgeCount,
		"enriched", result.EnrichedCount,
		"partial", result.Partial,
	)
	return nil
}

func newSearchCmd() *cobra.Command {
	var (
		domain string
		topK   int
	)

	cmd := &cobra.Command{
		Use:           "search <query>",
		Short:         "Find stored topics similar to a query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := resolveConfig(domain, 0)

			topicStore, closeStore, err := app.NewTopicStore(ctx)
			if err != nil {
				return err
			}
			if topicStore == nil {
				return fmt.Errorf("DATABASE_URL is not configured")
			}
			defer closeStore()

			embedder, err := app.NewEmbedder(cfg)
			if err != nil {
				return err
			}
			vector, err := embedder.GenerateEmbedding(ctx, []byte(args[0]))
			if err != nil {
				return err
			}

			hits, err := topicStore.SimilarTopics(ctx, cfg.Domain, vector, topK)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				logger.Info("No similar topics found", "domain", cfg.Domain)
				return nil
			}
			for _, hit := range hits {
				fmt.Printf("%s\t%s\t%.4f\n", hit.TopicID, hit.Title, hit.Similarity)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&domain, "domain", "d", "", "domain to search")
	cmd.Flags().IntVarP(&topK, "top", "k", 5, "number of results")

	return cmd
}

func newEnqueueCmd() *cobra.Command {
	var (
		domain string
		limit  int
	)

	cmd := &cobra.Command{
		Use:           "enqueue",
		Short:         "Queue a generation run for the worker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(domain, limit)

			conn := queue.Init()
			defer conn.Close()
			ch, err := conn.Channel()
			if err != nil {
				return err
			}
			defer ch.Close()

			msg, err := json.Marshal(queue.GenerateMessage{
				Domain: cfg.Domain,
				Limit:  cfg.Limit,
			})
			if err != nil {
				return err
			}
			if err := queue.PublishFIFO(ch, queue.GenerateQueue, msg); err != nil {
				return err
			}
			logger.Info("Generation run queued", "domain", cfg.Domain, "limit", cfg.Limit)
			return nil
		},
	}

	cmd.Flags().StringVarP(&domain, "domain", "d", "", "domain to generate")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of topics")

	return cmd
}
