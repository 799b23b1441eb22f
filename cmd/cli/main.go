package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"codequest/internal/cli/command"
	"codequest/internal/cli/config"
	httpclient "codequest/internal/cli/http"
	"codequest/internal/cli/repl"
	"codequest/internal/cli/state"

	"github.com/joho/godotenv"
)

const defaultConfigPath = "configs/cli.yaml"

func main() {
	os.Exit(run())
}

// run starts the REPL, or executes the command given after the flags, e.g.
// `codequest-cli -lang java submit run problem=<id> file=Main.java`.
func run() int {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	envPath := flag.String("env", ".env", "Optional .env file expanded into the config")
	baseURL := flag.String("base", "", "Override base URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 90s)")
	token := flag.String("token", "", "Override access token")
	statePath := flag.String("state", "", "Override token state path")
	language := flag.String("lang", "", "Default language for submit and run")
	sourceDir := flag.String("src", "", "Directory for relative file= paths")
	pretty := flag.Bool("pretty", false, "Pretty print JSON response")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load env file failed: %v\n", err)
		return 1
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return 1
	}
	if *baseURL != "" {
		cfg.BaseURL = strings.TrimRight(*baseURL, "/")
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *statePath != "" {
		cfg.StatePath = *statePath
	}
	if *language != "" {
		cfg.Language = *language
	}
	if *sourceDir != "" {
		cfg.SourceDir = *sourceDir
	}
	if *pretty {
		trueValue := true
		cfg.PrettyJSON = &trueValue
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return 1
	}

	tokenState, err := state.Load(cfg.StatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load token state failed: %v\n", err)
		return 1
	}
	if *token != "" {
		tokenState = state.TokenState{AccessToken: *token, BaseURL: cfg.BaseURL}
	}

	var client *httpclient.Client
	client = httpclient.New(cfg.BaseURL, cfg.Timeout, func() string {
		return tokenState.TokenFor(client.BaseURL(), time.Now())
	})

	session := repl.New(repl.Options{
		Client:        client,
		Commands:      command.Registry(),
		TokenState:    &tokenState,
		StatePath:     cfg.StatePath,
		PrettyJSON:    cfg.PrettyJSON != nil && *cfg.PrettyJSON,
		Language:      cfg.Language,
		ResolveSource: cfg.ResolveSource,
	})

	if flag.NArg() > 0 {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		line := strings.Join(quoteArgs(flag.Args()), " ")
		if err := session.Exec(ctx, bufio.NewReader(os.Stdin), line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}
	session.Run(context.Background())
	return 0
}

// quoteArgs re-quotes shell arguments so the REPL tokenizer sees them unchanged.
func quoteArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if strings.ContainsAny(arg, " \t'\"\\") {
			arg = "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
		}
		out[i] = arg
	}
	return out
}
