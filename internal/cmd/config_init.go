package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shopql/shopql-go/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage shopql configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	path := cfgFile
	if path == "" {
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	d := config.Default()
	values := map[string]any{
		"shop":            "",
		"access_token":    "",
		"version":         d.Version,
		"connect_timeout": d.ConnectTimeout.String(),
		"max_retries":     d.MaxRetries,
		"pool_maxsize":    d.PoolMaxSize,
		"rate_limit": map[string]any{
			"window":       d.RateLimit.Window.String(),
			"max_requests": d.RateLimit.MaxRequests,
		},
		"oauth": map[string]any{
			"key":    "",
			"secret": "",
			"port":   d.OAuth.Port,
		},
		"logging": map[string]any{
			"level": d.Logging.Level,
		},
	}

	out, err := yaml.Marshal(values)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return err
	}

	fmt.Printf("Config written to %s\n", path)
	return nil
}
