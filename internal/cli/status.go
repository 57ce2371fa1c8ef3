package cli

import (
	"fmt"
	"os"

	"github.com/harun/toolflow/internal/config"
	"github.com/harun/toolflow/pkg/memory"
	"github.com/spf13/cobra"
)

var statusShowConfig bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and environment status",
	Long: `Show the active provider and models, whether credentials are present, the
embedding cache size and the external modules found in the plugin directory.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusShowConfig, "show-config", false, "print the full configuration (secrets masked)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Config file: %s\n", config.NewLoader(cfgFile).GetConfigPath())
	fmt.Fprintf(out, "Provider: %s\n", cfg.Provider)
	fmt.Fprintf(out, "Chat model: %s\n", chatModel(cfg))
	fmt.Fprintf(out, "Embedding model: %s\n", cfg.OpenAI.EmbeddingModel)
	fmt.Fprintf(out, "Credentials: %s\n", credentialStatus(cfg))

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "Validation: %v\n", err)
	} else {
		fmt.Fprintln(out, "Validation: ok")
	}

	fmt.Fprintf(out, "Embedding cache: %s\n", cacheStatus(a))

	if a.modules != nil {
		fmt.Fprintf(out, "Plugin directory: %s (%d loaded, %d failed)\n", cfg.PluginDir, len(a.modules.Loaded), len(a.modules.Failed))
		for _, id := range a.modules.Failed {
			fmt.Fprintf(out, "  failed %s: %v\n", id, a.modules.Errors[id])
		}
	}

	if statusShowConfig {
		fmt.Fprintln(out, cfg.String())
	}
	return nil
}

func chatModel(cfg *config.Config) string {
	if cfg.Provider == "anthropic" {
		return cfg.Anthropic.Model
	}
	return cfg.OpenAI.Model
}

func credentialStatus(cfg *config.Config) string {
	key := cfg.OpenAI.APIKey
	if cfg.Provider == "anthropic" {
		key = cfg.Anthropic.APIKey
	}
	if key == "" {
		return "missing"
	}
	return "present"
}

func cacheStatus(a *app) string {
	if !a.cfg.Cache.Enabled {
		return "disabled"
	}
	if _, err := os.Stat(a.cfg.Cache.Path); err != nil {
		return fmt.Sprintf("%s (empty)", a.cfg.Cache.Path)
	}

	embedder, err := a.embedders.Default()
	if err != nil {
		return fmt.Sprintf("%s (%v)", a.cfg.Cache.Path, err)
	}
	cache, ok := embedder.(*memory.CachedEmbedder)
	if !ok {
		return a.cfg.Cache.Path
	}
	n, err := cache.Len()
	if err != nil {
		return fmt.Sprintf("%s (%v)", a.cfg.Cache.Path, err)
	}
	return fmt.Sprintf("%s (%d vectors)", a.cfg.Cache.Path, n)
}
