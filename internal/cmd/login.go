package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/shopql/shopql-go/internal/config"
	"github.com/shopql/shopql-go/internal/observability"
	"github.com/shopql/shopql-go/oauth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain an access token via the browser OAuth flow",
	Long: `Start a short-lived local listener, open the shop's authorization
page in the browser, and exchange the returned code for an access token.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().String("key", "", "API key (defaults to config oauth.key or SHOPQL_OAUTH_KEY)")
	loginCmd.Flags().String("secret", "", "API secret (defaults to config oauth.secret or SHOPQL_OAUTH_SECRET)")
	loginCmd.Flags().Int("port", 0, "Local callback port (defaults to config oauth.port)")
	loginCmd.Flags().Bool("save", false, "Write the token to the config file")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	key, err := cmd.Flags().GetString("key")
	if err != nil {
		return err
	}
	if key == "" {
		key = cfg.OAuth.Key
	}
	secret, err := cmd.Flags().GetString("secret")
	if err != nil {
		return err
	}
	if secret == "" {
		secret = cfg.OAuth.Secret
	}
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.OAuth.Port
	}
	save, err := cmd.Flags().GetBool("save")
	if err != nil {
		return err
	}

	auth := oauth.Authenticator{Config: oauth.Config{
		Shop:   cfg.Shop,
		Key:    key,
		Secret: secret,
		Port:   port,
		Scopes: cfg.OAuth.Scopes,
		Logger: observability.CLILogger,
	}}

	token, err := auth.Authenticate(cmd.Context())
	if err != nil {
		ExitWithCodeStderr(ExitAuthFailed, "Authentication failed", err)
	}

	observability.CLILogger.Info("authentication succeeded",
		zap.String("shop", cfg.Shop),
		zap.Strings("scopes", token.Scopes()))

	if save {
		path, err := writeToken(cfg.Shop, token.AccessToken)
		if err != nil {
			return fmt.Errorf("token obtained but not saved: %w", err)
		}
		fmt.Printf("Access token written to %s\n", path)
		return nil
	}

	fmt.Println(token.AccessToken)
	return nil
}

// writeToken persists the shop and token into the config file, creating it
// when absent.
func writeToken(shop, token string) (string, error) {
	path := cfgFile
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return "", err
		}
	}

	values := map[string]any{}
	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, &values); err != nil {
			return "", fmt.Errorf("existing config is not valid YAML: %w", err)
		}
	}
	values["shop"] = shop
	values["access_token"] = token

	out, err := yaml.Marshal(values)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
