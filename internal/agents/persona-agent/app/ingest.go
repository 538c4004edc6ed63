package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/knowledge"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/persona"
	"github.com/spyrux/persona-bot/pkg/runtime"
	"github.com/spyrux/persona-bot/pkg/x/llm"
)

func runIngest(ctx context.Context, o *options, out io.Writer) error {
	logger := o.logger
	if o.dialogueDir == "" && len(o.feeds) == 0 && len(o.htmlFiles) == 0 {
		return errors.New("nothing to ingest: pass --dialogue-dir, --feed or --html")
	}
	for _, u := range o.feeds {
		if err := runtime.ValidateHTTPURL(u); err != nil {
			return fmt.Errorf("feed: %w", err)
		}
	}

	cfg, err := o.agentConfig()
	if err != nil {
		return err
	}
	hc, err := newHTTPClient()
	if err != nil {
		return err
	}
	chatCfg, err := cfg.ChatProviderConfig()
	if err != nil {
		return err
	}
	embedder, err := llm.NewProvider(ctx, hc, chatCfg)
	if err != nil {
		return err
	}
	store, err := knowledge.Open(o.knowledgePath(), embedder, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if o.dialogueDir != "" {
		speaker := ""
		if p, err := persona.Load(o.personaPath); err == nil {
			speaker = p.DialogueSpeaker
		} else {
			logger.Warn("persona unavailable, keeping every speaker", zap.Error(err))
		}
		if err := ingestDialogue(ctx, store, o.dialogueDir, speaker, logger); err != nil {
			return err
		}
	}
	for _, u := range o.feeds {
		docs, err := knowledge.LoadFeed(ctx, hc, u)
		if err != nil {
			return err
		}
		if err := store.AddDocuments(ctx, docs); err != nil {
			return err
		}
		logger.Info("ingested feed", zap.String("url", u), zap.Int("documents", len(docs)))
	}
	for _, path := range o.htmlFiles {
		if err := ingestHTML(ctx, store, path); err != nil {
			return err
		}
		logger.Info("ingested page", zap.String("path", path))
	}

	n, err := store.DocumentCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "knowledge store %s holds %d documents\n", o.knowledgePath(), n)
	return nil
}

func ingestDialogue(ctx context.Context, store *knowledge.Store, dir, speaker string, logger *zap.Logger) error {
	docs, err := knowledge.LoadDialogueDir(dir, speaker)
	if err != nil {
		return err
	}
	if err := store.AddDocuments(ctx, docs); err != nil {
		return fmt.Errorf("ingest %s: %w", dir, err)
	}
	logger.Info("ingested dialogue", zap.String("dir", dir), zap.String("speaker", speaker), zap.Int("documents", len(docs)))
	return nil
}

func ingestHTML(ctx context.Context, store *knowledge.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	docs, err := knowledge.LoadHTML(f, path)
	if err != nil {
		return err
	}
	return store.AddDocuments(ctx, docs)
}
