package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rahul/sutra/internal/agent"
	"github.com/rahul/sutra/internal/gateway"
	"github.com/rahul/sutra/internal/governance"
	"github.com/rahul/sutra/internal/host"
	"github.com/rahul/sutra/internal/observability"
	"github.com/rahul/sutra/internal/store"
	"github.com/rahul/sutra/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file (json or yaml)")
	interactive := flag.Bool("interactive", false, "read requests from stdin")
	telegram := flag.Bool("telegram", false, "serve requests over the telegram gateway")
	flag.Parse()

	cfg := config.LoadConfig(*configPath)

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm llms.Model
	var err error
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}
	if err != nil {
		log.Fatal(err)
	}

	history, err := store.NewHistoryStore(cfg.Memory.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer history.Close()

	gov := governance.NewDefaultPolicyEngine()
	// Default safety rules: Block dangerous destructive inputs
	_ = gov.DenyInput(`rm\s+-rf`)
	_ = gov.DenyInput(`mkfs`)
	_ = gov.DenyInput(`shutdown`)
	_ = gov.DenyInput(`reboot`)

	logger := observability.NewLogger(filepath.Join("logs", "llm.jsonl"))

	orch := &agent.Orchestrator{
		Model: llm,
		Host: host.Config{
			Command: cfg.ToolHost.Command,
			Args:    cfg.ToolHost.Args,
			Env:     cfg.ToolHost.Env,
		},
		Prompts:    agent.NewPromptManager(cfg.App.PromptsDir),
		Policy:     gov,
		History:    history,
		Logger:     logger,
		Structured: pCfg.Structured,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *telegram:
		runTelegram(ctx, stop, cfg, orch)
	case *interactive:
		runInteractive(ctx, orch)
	default:
		request := strings.Join(flag.Args(), " ")
		if request == "" {
			request = "reverse 'Hello World' and then upper-case the reversed text"
		}
		result, err := orch.Process(ctx, "cli", request)
		if err != nil {
			fmt.Println(agent.UserMessage(err))
			os.Exit(1)
		}
		fmt.Println(result)
	}
}

func runInteractive(ctx context.Context, orch *agent.Orchestrator) {
	fmt.Println("=== Sutra Interactive Mode ===")
	fmt.Println("Type 'exit' to quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nEnter your request: ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" || input == "q" {
			return
		}

		result, err := orch.Process(ctx, "interactive", input)
		if err != nil {
			fmt.Printf("\n%s\n", agent.UserMessage(err))
			continue
		}
		fmt.Printf("\nResult: %s\n", result)
	}
}

func runTelegram(ctx context.Context, stop context.CancelFunc, cfg *config.Config, orch *agent.Orchestrator) {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	tgCfg, ok := cfg.GetTelegramConfig()
	if !ok {
		log.Fatal("Telegram gateway is not enabled or token is missing")
	}

	tg, err := gateway.NewTelegramGateway(tgCfg.Token, orch)
	if err != nil {
		log.Fatal(err)
	}

	// Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
			}
		}
	}()

	go func() {
		if err := tg.Start(); err != nil {
			log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
			stop()
		}
	}()

	<-ctx.Done()

	observability.CleanupTerminal()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] CORE DE-INITIALIZED. GOODBYE.\033[0m")
}
