package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/attention"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/infra"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/knowledge"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/media"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/persona"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/prompt"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/scheduler"
	"github.com/spyrux/persona-bot/pkg/api/twitter"
	"github.com/spyrux/persona-bot/pkg/state"
	"github.com/spyrux/persona-bot/pkg/x/httpx"
	"github.com/spyrux/persona-bot/pkg/x/llm"
)

const shutdownTimeout = 15 * time.Second

func runAgent(ctx context.Context, o *options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := o.logger

	cfg, err := o.agentConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.TimeLocation()
	if err != nil {
		return err
	}
	p, err := persona.Load(o.personaPath)
	if err != nil {
		return err
	}
	who := persona.NewHolder(p)

	hc, err := newHTTPClient()
	if err != nil {
		return err
	}
	chat, gateModel, err := newProviders(ctx, hc, cfg)
	if err != nil {
		return err
	}

	store, err := knowledge.Open(o.knowledgePath(), chat, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if o.dialogueDir != "" {
		if err := ingestDialogue(ctx, store, o.dialogueDir, p.DialogueSpeaker, logger); err != nil {
			return err
		}
	}

	client, err := twitter.NewClient(twitter.Options{
		BearerToken: o.twitterBearer,
		UserAgent:   httpx.RandomBrowserUserAgent(),
	})
	if err != nil {
		return err
	}
	sessionPath := state.SessionFile(infra.ServiceType, firstNonEmpty(o.twitterUsername, p.Username, "default"))
	if err := login(ctx, client, o.credentials(), sessionPath, logger); err != nil {
		return err
	}
	defer closeSession(client, sessionPath, o.keepSession, logger)

	var images scheduler.ImageGenerator
	timing := cfg.Timing()
	if timing.ImagePercent > 0 {
		gen, err := newImageGenerator(cfg.ImageModel, logger)
		if err != nil {
			logger.Warn("image posts disabled", zap.Error(err))
		} else {
			images = gen
		}
	}

	gate := attention.NewGate(
		attention.NewModelEngine(gateModel, attention.DefaultMaxHistory),
		attention.Config{BotNames: botNames(client.Username(), p)},
		logger,
	)
	sched := scheduler.New(scheduler.Deps{
		Platform:  scheduler.NewTwitterPlatform(client),
		Gate:      gate,
		Assembler: prompt.NewAssembler(who, store, logger, prompt.WithLocation(loc)),
		Completer: chat,
		Store:     store,
		Images:    images,
	}, scheduler.Config{Timing: timing, ImageStyle: who.ImageStyle}, logger)

	logger.Info("persona agent started",
		zap.String("persona", p.Name),
		zap.String("account", client.Username()),
		zap.String("timezone", loc.String()),
		zap.Strings("bot_names", gate.BotNames()),
		zap.Int("thread_depth", timing.ThreadDepth),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error {
		if err := persona.Watch(gctx, o.personaPath, who, logger); err != nil {
			logger.Warn("persona hot reload disabled", zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("persona agent stopped")
	return nil
}

func newProviders(ctx context.Context, hc *http.Client, cfg infra.AgentConfig) (chat, gate llm.Provider, err error) {
	chatCfg, err := cfg.ChatProviderConfig()
	if err != nil {
		return nil, nil, err
	}
	chat, err = llm.NewProvider(ctx, hc, chatCfg)
	if err != nil {
		return nil, nil, err
	}
	gateCfg, err := cfg.GateProviderConfig()
	if err != nil {
		return nil, nil, err
	}
	if gateCfg == chatCfg {
		return chat, chat, nil
	}
	gate, err = llm.NewProvider(ctx, hc, gateCfg)
	if err != nil {
		return nil, nil, err
	}
	return chat, gate, nil
}

// newImageGenerator gets its own HTTP client: the shared one times out long
// before an image is drawn. Failures are not retried.
func newImageGenerator(c infra.ImageModelConfig, logger *zap.Logger) (*media.Generator, error) {
	hc, err := httpx.NewClient(httpx.ClientOptions{Timeout: infra.ImageGenerationTimeout, UseEnvProxy: true})
	if err != nil {
		return nil, err
	}
	client, err := llm.NewOpenAIClient(hc, llm.OpenAIConfig{
		BaseURL:        c.BaseURL,
		APIKey:         c.APIKey,
		MaxRetries:     -1,
		RequestTimeout: infra.ImageGenerationTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("image model: %w", err)
	}
	return media.NewGenerator(client, hc, media.GeneratorConfig{Model: c.Model}, logger), nil
}

// login restores the saved session when it still works, otherwise runs
// the login flow and saves the new session.
func login(ctx context.Context, c *twitter.Client, creds twitter.Credentials, sessionPath string, logger *zap.Logger) error {
	if creds.CookieString == "" {
		saved, err := state.LoadJSONFile[twitter.Session](sessionPath)
		if err != nil {
			logger.Warn("ignoring unreadable session file", zap.String("path", sessionPath), zap.Error(err))
		} else if len(saved.Cookies) > 0 {
			c.RestoreSession(saved)
			_, err := c.Me(ctx)
			if err == nil {
				logger.Info("restored saved session", zap.String("account", c.Username()))
				return nil
			}
			logger.Info("saved session rejected, logging in again", zap.Error(err))
			c.RestoreSession(twitter.Session{})
		}
	}

	if err := c.Login(ctx, creds); err != nil {
		return fmt.Errorf("twitter login: %w", err)
	}
	if _, err := c.Me(ctx); err != nil {
		return fmt.Errorf("twitter login: verify session: %w", err)
	}
	if err := state.SaveJSONFile(sessionPath, c.Session()); err != nil {
		logger.Warn("failed to save session", zap.String("path", sessionPath), zap.Error(err))
	}
	logger.Info("logged in", zap.String("account", c.Username()))
	return nil
}

func closeSession(c *twitter.Client, sessionPath string, keep bool, logger *zap.Logger) {
	if keep {
		if err := state.SaveJSONFile(sessionPath, c.Session()); err != nil {
			logger.Warn("failed to save session", zap.Error(err))
		}
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.Logout(ctx); err != nil {
		logger.Warn("logout failed", zap.Error(err))
	}
	if err := os.Remove(sessionPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove session file", zap.Error(err))
	}
}

func botNames(account string, p persona.Persona) []string {
	var out []string
	for _, n := range []string{p.Name, account, p.Username} {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
