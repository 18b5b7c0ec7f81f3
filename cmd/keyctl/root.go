package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kiranshivaraju/keyserver/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultConfigFile = "keys.json"
	defaultBaseURL    = "http://localhost:8080"
)

// settings is what keyctl needs to reach a server.
type settings struct {
	AdminKey string
	BaseURL  string
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:          "keyctl",
		Short:        "Manage activation keys on a keyserver.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", defaultConfigFile,
		"config file holding admin_key and base_url",
	)

	load := func() (*settings, error) {
		return loadSettings(cfgFile)
	}
	rootCmd.AddCommand(setupCmd(&cfgFile))
	rootCmd.AddCommand(tableCmd(load))
	rootCmd.AddCommand(addCmd(load))
	rootCmd.AddCommand(verifyCmd(load))
	rootCmd.AddCommand(removeCmd(load))
	rootCmd.AddCommand(buyLinkCmd(load))

	return rootCmd
}

// loadSettings reads the config file, if any, and applies KEYCTL_*
// environment overrides.
func loadSettings(path string) (*settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("KEYCTL")
	v.AutomaticEnv()
	v.SetDefault("base_url", defaultBaseURL)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return &settings{
		AdminKey: v.GetString("admin_key"),
		BaseURL:  v.GetString("base_url"),
	}, nil
}

func (s *settings) client() *client.Client {
	return client.New(s.BaseURL, s.AdminKey)
}

// printResponse writes a server answer the way every keyctl command reports it.
func printResponse(cmd *cobra.Command, resp *client.Response) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Response (%d):\n%s\n", resp.Status, resp.Body)
	if !resp.OK() {
		return fmt.Errorf("server returned %d", resp.Status)
	}
	return nil
}

func writeSettings(path string, s settings) error {
	v := viper.New()
	v.SetConfigType("json")
	v.Set("admin_key", s.AdminKey)
	v.Set("base_url", s.BaseURL)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}
