// Package app wires the persona agent together behind its command line.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/infra"
	"github.com/spyrux/persona-bot/pkg/api/twitter"
	"github.com/spyrux/persona-bot/pkg/runtime"
	"github.com/spyrux/persona-bot/pkg/state"
)

type options struct {
	verbose     bool
	configPath  string
	personaPath string
	dialogueDir string
	dbPath      string

	replyToMentions bool
	keepSession     bool

	twitterUsername string
	twitterPassword string
	twitterEmail    string
	twitter2FA      string
	twitterCookies  string
	twitterBearer   string

	openAIKey    string
	galadrielKey string
	geminiKey    string

	// ingest only
	feeds     []string
	htmlFiles []string

	logger *zap.Logger
}

func (o *options) credentials() twitter.Credentials {
	return twitter.Credentials{
		Username:      o.twitterUsername,
		Password:      o.twitterPassword,
		Email:         o.twitterEmail,
		TwoFactorCode: o.twitter2FA,
		CookieString:  o.twitterCookies,
	}
}

func (o *options) knowledgePath() string {
	if p := strings.TrimSpace(o.dbPath); p != "" {
		return p
	}
	return state.KnowledgeFile(infra.ServiceType)
}

// Run loads .env files and executes the command line.
func Run() error {
	if err := runtime.LoadDotEnv(nil); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	return NewRootCommand().Execute()
}

func NewRootCommand() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "persona-agent",
		Short:         "Autonomous persona account for x.com",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := runtime.NewLogger(o.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			o.logger = logger.Named(infra.ServiceType)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.logger != nil {
				_ = o.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&o.verbose, "verbose", "v", runtime.EnvBool("PERSONA_VERBOSE", false), "Enable debug logging")
	pf.StringVar(&o.configPath, "config", runtime.EnvOr("PERSONA_CONFIG", ""), "Agent config JSON file")
	pf.StringVar(&o.personaPath, "persona", runtime.EnvOr("PERSONA_FILE", "persona.yaml"), "Persona YAML file")
	pf.StringVar(&o.dbPath, "db", runtime.EnvOr("PERSONA_DB", ""), "Knowledge database (default: state dir)")
	pf.StringVar(&o.dialogueDir, "dialogue-dir", runtime.EnvOr("PERSONA_DIALOGUE_DIR", ""), "Directory of .txt transcripts to ingest")
	pf.StringVar(&o.openAIKey, "openai-api-key", runtime.EnvOr("OPENAI_API_KEY", ""), "OpenAI API key")
	pf.StringVar(&o.galadrielKey, "galadriel-api-key", runtime.EnvOr("GALADRIEL_API_KEY", ""), "Galadriel API key (image generation)")
	pf.StringVar(&o.geminiKey, "gemini-api-key", runtime.EnvOr("GEMINI_API_KEY", ""), "Gemini API key")

	root.AddCommand(newRunCommand(o), newIngestCommand(o))
	return root
}

func newRunCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Log in and run the engagement loop until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), o)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&o.replyToMentions, "reply-to-mentions", runtime.EnvBool("PERSONA_REPLY_TO_MENTIONS", false), "Answer mentions each iteration")
	f.BoolVar(&o.keepSession, "keep-session", false, "Keep the saved session instead of logging out on exit")
	f.StringVar(&o.twitterUsername, "twitter-username", runtime.EnvOr("TWITTER_USERNAME", ""), "Account handle")
	f.StringVar(&o.twitterPassword, "twitter-password", runtime.EnvOr("TWITTER_PASSWORD", ""), "Account password")
	f.StringVar(&o.twitterEmail, "twitter-email", runtime.EnvOr("TWITTER_EMAIL", ""), "Account email for login challenges")
	f.StringVar(&o.twitter2FA, "twitter-2fa-code", runtime.EnvOr("TWITTER_2FA_CODE", ""), "Two-factor code")
	f.StringVar(&o.twitterCookies, "twitter-cookies", runtime.EnvOr("TWITTER_COOKIE_STRING", ""), "Cookie string (auth_token=...; ct0=...) instead of a password login")
	f.StringVar(&o.twitterBearer, "twitter-bearer-token", runtime.EnvOr("TWITTER_BEARER_TOKEN", ""), "Override the web client bearer token")
	return cmd
}

func newIngestCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed transcripts, feeds and pages into the knowledge store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), o, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&o.feeds, "feed", nil, "RSS/Atom feed URL (repeatable)")
	f.StringArrayVar(&o.htmlFiles, "html", nil, "HTML file to extract paragraphs from (repeatable)")
	return cmd
}
