// Command convo is an interactive chat with an OpenAI-compatible endpoint.
//
// Settings come from .env and the environment (see internal/config). Plain
// lines are sent as user messages; /reset, /history and /quit are commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leofalp/convo/core/conversation"
	"github.com/leofalp/convo/internal/config"
	"github.com/leofalp/convo/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "convo: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("convo", flag.ContinueOnError)
	model := flags.String("model", "", "model identifier (overrides OPENAI_MODEL)")
	stream := flags.Bool("stream", false, "print replies as they arrive (overrides OPENAI_STREAM)")
	system := flags.String("system", "", "system prompt (overrides CONVO_SYSTEM_PROMPT)")
	envFile := flags.String("env", ".env", "dotenv file to load")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	if *model != "" {
		cfg.Generation.Model = *model
	}
	if *stream {
		cfg.Generation.Stream = true
	}
	if *system != "" {
		cfg.SystemPrompt = *system
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	client, err := conversation.New(cfg.Provider(), cfg.ClientOptions(logger)...)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "convo (%s). Commands: /reset /history /quit\n", cfg.Generation.Model)
	return newREPL(client, os.Stdin, os.Stdout, cfg.Generation.Stream).run(ctx)
}
