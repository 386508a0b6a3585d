package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kai9kono/Kuiz/internal/lobby"
)

type Config struct {
	bind    string
	port    int
	dsn     string
	verbose bool

	revealInterval     time.Duration
	fastRevealInterval time.Duration
	pausePoll          time.Duration
	answerWindow       time.Duration
	graceWindow        time.Duration
	answerWaitCeiling  time.Duration
	preDisplay         time.Duration
	answerRevealDelay  time.Duration
	broadcastEvery     int
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.broadcastEvery < 1 {
		return fmt.Errorf("broadcast-every must be at least 1: %d", c.broadcastEvery)
	}
	return nil
}

func (c *Config) lobbyConfig() lobby.Config {
	cfg := lobby.DefaultConfig()
	cfg.RevealInterval = c.revealInterval
	cfg.FastRevealInterval = c.fastRevealInterval
	cfg.PausePoll = c.pausePoll
	cfg.AnswerWindow = c.answerWindow
	cfg.GraceWindow = c.graceWindow
	cfg.AnswerWaitCeiling = c.answerWaitCeiling
	cfg.PreDisplay = c.preDisplay
	cfg.AnswerRevealDelay = c.answerRevealDelay
	cfg.BroadcastEvery = c.broadcastEvery
	return cfg
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("KUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "kuiz-server",
		Short:         "Buzzer-style multiplayer quiz session server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: KUIZ_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: KUIZ_PORT)")
	fs.StringVar(&cfg.dsn, "dsn", "", "postgres connection string for the question bank; empty runs the built-in sample bank (env: KUIZ_DSN)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "enable debug logging (env: KUIZ_VERBOSE)")

	fs.DurationVar(&cfg.revealInterval, "reveal-interval", lobby.DefaultRevealInterval, "delay between revealed characters (env: KUIZ_REVEAL_INTERVAL)")
	fs.DurationVar(&cfg.fastRevealInterval, "fast-reveal-interval", lobby.DefaultFastRevealInterval, "reveal delay after a correct answer (env: KUIZ_FAST_REVEAL_INTERVAL)")
	fs.DurationVar(&cfg.pausePoll, "pause-poll", lobby.DefaultPausePoll, "poll interval while the reveal is paused (env: KUIZ_PAUSE_POLL)")
	fs.DurationVar(&cfg.answerWindow, "answer-window", lobby.DefaultAnswerWindow, "time a buzz holder has to answer (env: KUIZ_ANSWER_WINDOW)")
	fs.DurationVar(&cfg.graceWindow, "grace-window", lobby.DefaultGraceWindow, "buzz window after the full text is revealed (env: KUIZ_GRACE_WINDOW)")
	fs.DurationVar(&cfg.answerWaitCeiling, "answer-wait-ceiling", lobby.DefaultAnswerWaitCeiling, "hard limit on waiting for a late answer (env: KUIZ_ANSWER_WAIT_CEILING)")
	fs.DurationVar(&cfg.preDisplay, "pre-display", lobby.DefaultPreDisplay, "banner delay before the first character (env: KUIZ_PRE_DISPLAY)")
	fs.DurationVar(&cfg.answerRevealDelay, "answer-reveal-delay", lobby.DefaultAnswerRevealDelay, "answer display time between rounds (env: KUIZ_ANSWER_REVEAL_DELAY)")
	fs.IntVar(&cfg.broadcastEvery, "broadcast-every", lobby.DefaultBroadcastEvery, "coalesce reveal broadcasts to one per N characters (env: KUIZ_BROADCAST_EVERY)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
