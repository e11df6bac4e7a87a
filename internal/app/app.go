// Package app wires the indexing pipeline together and runs the NSQ
// consumers that feed it.
package app

import (
	"context"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"knowra/apps/indexer/features/document"
	"knowra/apps/indexer/internal/config"
	"knowra/apps/indexer/internal/indexer"
	"knowra/apps/indexer/internal/splitter"
	"knowra/apps/indexer/internal/worker"
)

type App struct {
	Coordinator *indexer.Coordinator
	Catalog     *document.Service

	cfg       *config.Config
	consumers []*nsq.Consumer
}

func New(cfg *config.Config, deps *Dependencies) *App {
	split := splitter.New(
		splitter.WithWindow(cfg.ChunkSize, cfg.ChunkOverlap),
		splitter.WithToolExamplesPerChunk(cfg.ToolExamplesPerChunk),
	)
	coordinator := indexer.NewCoordinator(deps.Membership, deps.Index, split,
		indexer.WithApplyConcurrency(cfg.ApplyConcurrency))
	catalog := document.NewService(document.NewPostgresRepo(deps.DB))

	return &App{
		Coordinator: coordinator,
		Catalog:     catalog,
		cfg:         cfg,
	}
}

// Run starts the index and admin consumers and blocks until the context is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	if !a.cfg.EnableIndexWorker {
		slog.Info("index worker disabled, nothing to run")
		return nil
	}

	createTopics(a.cfg.NSQDHTTP)

	if err := a.startConsumer(config.TopicIndexRequest, worker.NewIndexConsumer(a.Coordinator, a.Catalog)); err != nil {
		return err
	}
	if err := a.startConsumer(config.TopicIndexAdmin, worker.NewAdminConsumer(a.Coordinator, a.Catalog)); err != nil {
		return err
	}

	slog.Info("indexer started",
		"topics", []string{config.TopicIndexRequest, config.TopicIndexAdmin},
		"nsq_lookupd", a.cfg.NSQLookupd)

	<-ctx.Done()
	slog.Info("shutting down consumers")
	for _, c := range a.consumers {
		c.Stop()
	}
	for _, c := range a.consumers {
		<-c.StopChan
	}
	return nil
}

func (a *App) startConsumer(topic string, handler nsq.Handler) error {
	consumer, err := nsq.NewConsumer(topic, config.ChannelIndexer, nsq.NewConfig())
	if err != nil {
		return err
	}
	consumer.AddHandler(handler)
	if err := consumer.ConnectToNSQLookupd(a.cfg.NSQLookupd); err != nil {
		return err
	}
	a.consumers = append(a.consumers, consumer)
	return nil
}
