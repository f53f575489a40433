// deskpilot is a desktop agent: it takes a task in plain language and works
// through it by asking a language model for one JSON action at a time and
// executing that action against the browser, the desktop and the filesystem.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deskpilot/internal/agent"
	"deskpilot/internal/browser"
	"deskpilot/internal/config"
	"deskpilot/internal/desktop"
	"deskpilot/internal/fsread"
	"deskpilot/internal/llmclient"
	"deskpilot/internal/observability"
	"deskpilot/internal/office"
	"deskpilot/internal/shell"
	"deskpilot/internal/ui"
	"deskpilot/internal/winctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}
}

func newRootCommand() *cobra.Command {
	var (
		cfgFile     string
		profileName string
		oneShotTask string
	)

	root := &cobra.Command{
		Use:   "deskpilot",
		Short: "LLM-driven desktop agent",
		Long: "deskpilot runs tasks against the local desktop and browser by asking a\n" +
			"chat model for one JSON action per step and executing it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfgFile, profileName, oneShotTask)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./deskpilot.yaml)")
	root.Flags().StringVarP(&profileName, "profile", "p", "", "connection profile name")
	root.Flags().StringVarP(&oneShotTask, "task", "t", "", "run a single task and exit")

	root.AddCommand(newProfilesCommand(&cfgFile), newPromptCommand(&cfgFile))
	return root
}

func newProfilesCommand(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List and manage connection profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			profiles := config.LoadProfiles(cfg.Paths.ProfileDir)
			if len(profiles) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no profiles in %s\n", cfg.Paths.ProfileDir)
				return nil
			}
			for _, name := range config.ProfileNames(profiles) {
				p := profiles[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s (%s)\n", name, p.Model, p.URL)
			}
			return nil
		},
	}
	cmd.AddCommand(newProfilesAddCommand(cfgFile), newProfilesPriceCommand(cfgFile))
	return cmd
}

func newProfilesAddCommand(cfgFile *string) *cobra.Command {
	var p config.Profile
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create or overwrite a connection profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			name, err := config.SaveProfile(cfg.Paths.ProfileDir, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "profile %q saved in %s\n", name, cfg.Paths.ProfileDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.URL, "url", "", "chat-completions endpoint URL")
	cmd.Flags().StringVar(&p.APIKey, "key", "", "API key")
	cmd.Flags().StringVar(&p.Model, "model", "", "model identifier, also the profile name")
	cmd.Flags().Float64Var(&p.TokenPrice, "price", 10.0, "price per million tokens")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newProfilesPriceCommand(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "price <profile> <price-per-million>",
		Short: "Update the token price of an existing profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := strconv.ParseFloat(strings.ReplaceAll(args[1], ",", "."), 64)
			if err != nil {
				return fmt.Errorf("price %q is not a number", args[1])
			}
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			if err := config.SaveTokenPrice(cfg.Paths.ProfileDir, args[0], price); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "profile %q price set to %g\n", args[0], price)
			return nil
		},
	}
}

func newPromptCommand(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Show or persist the system prompt",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective system prompt",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(*cfgFile)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), config.LoadSystemPrompt(cfg.Paths))
				return nil
			},
		},
		&cobra.Command{
			Use:   "save",
			Short: "Write the effective system prompt to the configured file for editing",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(*cfgFile)
				if err != nil {
					return err
				}
				prompt := config.LoadSystemPrompt(cfg.Paths)
				if err := config.SaveSystemPrompt(cfg.Paths, prompt); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "system prompt written to %s\n", cfg.Paths.SystemPromptFile)
				return nil
			},
		},
	)
	return cmd
}

func run(ctx context.Context, cfgFile, profileName, oneShotTask string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	observability.InitializeLogger(cfg.Logger)
	defer observability.Sync()
	logger := observability.GetLogger()

	profile, err := selectProfile(cfg, profileName)
	if err != nil {
		return err
	}
	logger.Info("profile selected",
		zap.String("profile", profile.Name),
		zap.String("model", profile.Model),
	)

	systemPrompt := config.LoadSystemPrompt(cfg.Paths)

	browserSession := browser.NewSession(cfg.Browser, logger)
	defer browserSession.Close()

	events := make(chan agent.Event, 1024)
	loop := agent.NewLoop(cfg.Agent, logger, agent.Effectors{
		Model:   llmclient.New(profile, cfg.Agent, logger),
		Desktop: desktop.NewController(logger),
		Browser: browserSession,
		Windows: winctl.NewManager(logger),
		Docs:    office.NewWriter(logger),
		Shell:   shell.NewRunner(logger),
		Files:   fsread.NewReader(logger),
	}, events, systemPrompt)

	if oneShotTask != "" {
		return runOnce(ctx, loop, events, oneShotTask, profile.TokenPrice, logger)
	}

	console := ui.NewConsole(os.Stdin, os.Stdout, events, loop, profile.TokenPrice,
		func() string { return config.LoadSystemPrompt(cfg.Paths) }, logger)
	return console.Run(ctx)
}

// runOnce executes a single task and prints the event stream linearly.
func runOnce(ctx context.Context, loop *agent.Loop, events chan agent.Event, task string, tokenPrice float64, logger *zap.Logger) error {
	done := make(chan error, 1)
	go func() {
		terminal, err := loop.RunTask(ctx, task, true)
		logger.Info("task finished", zap.String("terminal", string(terminal)))
		done <- err
	}()

	for {
		select {
		case ev := <-events:
			if ev.Terminal != agent.TerminalNone {
				cost := float64(ev.Tokens) / 1e6 * tokenPrice
				fmt.Printf("=== %s | ~%d tokens (≈ %.4f) ===\n", ev.Terminal, ev.Tokens, cost)
				return <-done
			}
			fmt.Printf("[#%02d] %s\n", ev.Step, ev.Line)
		case err := <-done:
			return err
		}
	}
}

// selectProfile resolves the connection profile: the named one, the only one,
// or an ad-hoc profile from environment variables.
func selectProfile(cfg *config.Config, name string) (config.Profile, error) {
	profiles := config.LoadProfiles(cfg.Paths.ProfileDir)

	if name != "" {
		p, ok := profiles[name]
		if !ok {
			return config.Profile{}, fmt.Errorf("profile %q not found in %s (have: %s)",
				name, cfg.Paths.ProfileDir, strings.Join(config.ProfileNames(profiles), ", "))
		}
		return p, nil
	}

	if url, key, model := os.Getenv("DESKPILOT_LLM_URL"), os.Getenv("DESKPILOT_LLM_KEY"), os.Getenv("DESKPILOT_LLM_MODEL"); url != "" && key != "" && model != "" {
		return config.Profile{Name: "env", URL: url, APIKey: key, Model: model, TokenPrice: 10.0}, nil
	}

	switch len(profiles) {
	case 0:
		return config.Profile{}, fmt.Errorf("no profiles in %s and no DESKPILOT_LLM_* environment; create a profile file first", cfg.Paths.ProfileDir)
	case 1:
		for _, p := range profiles {
			return p, nil
		}
	}

	return config.Profile{}, fmt.Errorf("multiple profiles available, pick one with --profile: %s",
		strings.Join(config.ProfileNames(profiles), ", "))
}
