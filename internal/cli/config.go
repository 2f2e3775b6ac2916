package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/uxentio/books-pipeline/internal/config"
	"gopkg.in/yaml.v3"
)

const separator = "═══════════════════════════════════════════════════════════"

// NewConfigShowCmd creates the config show command.
func NewConfigShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Display the configuration after defaults, config file, environment variables and flags are applied. The API key is masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if used := env.Viper.ConfigFileUsed(); used != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n\n", used)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "No configuration file found (using defaults)\n\n")
			}
			return executeConfigShow(cmd.OutOrStdout(), config.Settings(env.Viper))
		},
	}
}

func executeConfigShow(w io.Writer, settings map[string]any) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "  Current Configuration")
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w)
	fmt.Fprint(w, string(data))
	fmt.Fprintln(w)
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration hierarchy (highest to lowest priority):")
	fmt.Fprintln(w, "  1. CLI flags")
	fmt.Fprintf(w, "  2. Environment variables (%s_*, GOOGLE_BOOKS_API_KEY)\n", config.EnvPrefix)
	fmt.Fprintf(w, "  3. Config file (./%s.yaml or ~/.books-pipeline/%s.yaml)\n", config.FileName, config.FileName)
	fmt.Fprintln(w, "  4. Defaults")
	return nil
}

// NewConfigInitCmd creates the config init command.
func NewConfigInitCmd(env *Env) *cobra.Command {
	var path string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  `Create a configuration file holding every option at its default value.`,
		Example: `  # Write books-pipeline.yaml in the current directory
  books-pipeline config init

  # Write to the home config directory, replacing any existing file
  books-pipeline config init --path ~/.books-pipeline/books-pipeline.yaml --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := executeConfigInit(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created default configuration: %s\n", path)
			fmt.Fprintf(cmd.OutOrStdout(), "\nTo view the effective configuration:\n  books-pipeline config show --config %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", config.FileName+".yaml", "Where to write the file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func executeConfigInit(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to check config file: %w", err)
		}
	}

	data, err := config.DefaultYAML()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	var b strings.Builder
	b.WriteString("# books-pipeline configuration\n")
	b.WriteString("#\n")
	b.WriteString("# Every key can be overridden by an environment variable, e.g.\n")
	fmt.Fprintf(&b, "#   %s_SURVIVORSHIP_POLICY=group-union\n", config.EnvPrefix)
	b.WriteString("# Prefer GOOGLE_BOOKS_API_KEY over storing acquire.api_key here.\n\n")
	b.Write(data)

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
