package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, storage backends and pipeline tuning.

Run without a subcommand to show the current settings.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single setting",
	Long: `Set a single setting using dot notation, for example:

  docintel settings set llm.timeout 45s
  docintel settings set storage.backend s3
  docintel settings set cache.redis_addr localhost:6379`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the provider used to embed chunks and questions.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the language model used to synthesise answers.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	if settings.Embedding.Provider.IsLocal() && settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	printAPIKey(cmd, settings.Embedding.Provider, settings.Embedding.APIKey)
	printStatus(cmd, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	if settings.LLM.Provider == "" {
		cmd.Println("  Provider: (none, answers use retrieved evidence)")
	} else {
		cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
		cmd.Printf("  Model: %s\n", settings.LLM.Model)
		if settings.LLM.Provider.IsLocal() && settings.LLM.BaseURL != "" {
			cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
		}
		printAPIKey(cmd, settings.LLM.Provider, settings.LLM.APIKey)
	}
	cmd.Printf("  Timeout: %s\n", settings.LLM.Timeout)
	printStatus(cmd, settings.LLM.IsConfigured())
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Index: %s\n", settings.Index.Backend)
	cmd.Printf("  Registry: %s\n", settings.Registry.Backend)
	cmd.Printf("  Uploads: %s\n", settings.Storage.Backend)
	if settings.Storage.Backend == domain.BackendS3 {
		cmd.Printf("  S3 Bucket: %s\n", settings.Storage.S3Bucket)
	}
	if settings.Cache.RedisAddr != "" {
		cmd.Printf("  Embedding cache: redis://%s\n", settings.Cache.RedisAddr)
	}
	cmd.Println()

	cmd.Println("[Pipeline]")
	cmd.Printf("  Chunk size: %d (overlap %d)\n", settings.Chunking.ChunkSize, settings.Chunking.Overlap)
	cmd.Printf("  Overfetch: %d\n", settings.Retrieval.Overfetch)
	cmd.Printf("  Ingestion workers: %d (queue %d)\n", settings.Ingestion.Workers, settings.Ingestion.QueueSize)

	return nil
}

func printAPIKey(cmd *cobra.Command, provider domain.AIProvider, key string) {
	if !provider.RequiresAPIKey() {
		return
	}
	if key != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(key))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
}

func printStatus(cmd *cobra.Command, configured bool) {
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("%s updated\n", args[0])
	return nil
}

// providerPrompt describes one interactive provider setup.
type providerPrompt struct {
	label     string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	apply     func(provider domain.AIProvider, model, apiKey string) error
	validate  func() error
}

func embeddingPrompt() providerPrompt {
	return providerPrompt{
		label:     "Embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		apply:     settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
	}
}

func llmPrompt() providerPrompt {
	return providerPrompt{
		label:     "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		apply:     settingsService.SetLLMProvider,
		validate:  settingsService.ValidateLLMConfig,
	}
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), embeddingPrompt())
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), llmPrompt())
}

// configureProvider asks for provider, model and key, stores them and
// pings the provider once.
func configureProvider(cmd *cobra.Command, reader *bufio.Reader, p providerPrompt) error {
	cmd.Printf("Select %s Provider\n", p.label)
	for i, provider := range p.providers {
		cmd.Printf("  %d. %s\n", i+1, provider.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := p.providers[parseChoice(readLine(reader), len(p.providers), 1)-1]

	model := p.models[provider]
	cmd.Printf("Enter model name [%s]: ", model)
	if in := readLine(reader); in != "" {
		model = in
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := p.apply(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", p.label, err)
	}

	cmd.Print("Validating configuration... ")
	if err := p.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", p.label, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n\n", p.label, provider.Description(), model)
	return nil
}

func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n') //nolint:errcheck // EOF yields the partial line
	return strings.TrimSpace(line)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

// maskAPIKey keeps the first and last four characters of long keys.
func maskAPIKey(key string) string {
	const keep = 4
	if len(key) <= 2*keep {
		return strings.Repeat("*", keep)
	}
	return key[:keep] + "..." + key[len(key)-keep:]
}
