// Command bankdesk runs the bank customer service engine from the terminal:
// one-shot questions via "ask" and an interactive session via "chat".
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/bankdesk/bankdesk/config"
	"github.com/bankdesk/bankdesk/logging"
	"github.com/bankdesk/bankdesk/model"
	"github.com/bankdesk/bankdesk/model/anthropic"
	"github.com/bankdesk/bankdesk/model/openai"
	"github.com/bankdesk/bankdesk/orchestration"
	"github.com/bankdesk/bankdesk/prompt"
	"github.com/bankdesk/bankdesk/store"
	"github.com/bankdesk/bankdesk/store/inmem"
	"github.com/bankdesk/bankdesk/store/postgres"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	envFile  string
	logLevel string
	userID   string
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:           "bankdesk",
		Short:         "Bank customer service agent engine",
		Long:          "bankdesk answers banking questions by orchestrating intent classification,\ndata lookup, knowledge retrieval and response synthesis agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "environment file to load before reading configuration")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides BANKDESK_LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&flags.userID, "user", "cust-001", "customer id the conversation belongs to")

	cmd.AddCommand(newAskCmd(flags))
	cmd.AddCommand(newChatCmd(flags))

	return cmd
}

func newAskCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask a single question and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cleanup, err := buildOrchestrator(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			query := strings.Join(args, " ")
			result := orch.Orchestrate(cmd.Context(), flags.userID, query)
			if !result.Success {
				return fmt.Errorf("%s", result.Error)
			}

			fmt.Println(result.FinalResponse)
			return nil
		},
	}
}

func newChatCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch, cleanup, err := buildOrchestrator(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Println("bankdesk chat. Type 'exit' to quit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				query := strings.TrimSpace(scanner.Text())
				if query == "" {
					continue
				}
				if query == "exit" || query == "quit" {
					break
				}

				result := orch.Orchestrate(cmd.Context(), flags.userID, query)
				if !result.Success {
					fmt.Fprintln(os.Stderr, "error:", result.Error)
					continue
				}
				fmt.Println(result.FinalResponse)
			}
			return scanner.Err()
		},
	}
}

// buildOrchestrator wires configuration, logging, stores and the model
// provider into a ready Orchestrator. The returned cleanup releases any
// database connections.
func buildOrchestrator(flags *cliFlags) (*orchestration.Orchestrator, func(), error) {
	noop := func() {}

	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return nil, noop, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	logger := logging.NewConsoleLogger(nil, logging.ParseLevel(cfg.LogLevel))

	prompts, err := prompt.Load(cfg.PromptsPath)
	if err != nil {
		return nil, noop, err
	}

	bankingStore, cleanup, err := buildStore(cfg)
	if err != nil {
		return nil, noop, err
	}

	llm, err := buildModel(cfg)
	if err != nil {
		cleanup()
		return nil, noop, err
	}

	orch, err := orchestration.New(func(o *orchestration.Options) {
		o.AppName = cfg.AppName
		o.Model = llm
		o.Prompts = prompts
		o.BankingStore = bankingStore
		o.Logger = logger
		o.Timeout = cfg.InvocationTimeout
		o.MaxModelCalls = cfg.MaxModelCalls
		o.SynthesizerTemperature = &cfg.SynthesizerTemperature
	})
	if err != nil {
		cleanup()
		return nil, noop, err
	}

	return orch, cleanup, nil
}

func buildStore(cfg *config.Config) (store.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		return inmem.NewWithFixtures(), func() {}, nil
	}

	pg, err := postgres.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		return nil, func() {}, fmt.Errorf("connect postgres: %w", err)
	}
	return pg, func() { _ = pg.Close() }, nil
}

func buildModel(cfg *config.Config) (model.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		var clientOpts []option.RequestOption
		if cfg.OpenAIAPIKey != "" {
			clientOpts = append(clientOpts, option.WithAPIKey(cfg.OpenAIAPIKey))
		}
		client := openaisdk.NewClient(clientOpts...)
		return openai.NewModelFromClient(&client, func(o *openai.Options) {
			if cfg.ModelName != "" {
				o.Model = cfg.ModelName
			}
			o.Temperature = cfg.Temperature
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.ModelName != "" {
				o.Model = anthropicsdk.Model(cfg.ModelName)
			}
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.AnthropicAPIKey
		}), nil
	case "mock":
		return model.NewMockModel(cfg.ModelName, "mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
