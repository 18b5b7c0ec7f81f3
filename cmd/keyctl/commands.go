package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type settingsLoader func() (*settings, error)

func setupCmd(cfgFile *string) *cobra.Command {
	var s settings
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write the keyctl config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if s.AdminKey == "" {
				if s.AdminKey, err = prompt(cmd, in, "Admin key: "); err != nil {
					return err
				}
			}
			if s.BaseURL == "" {
				if s.BaseURL, err = prompt(cmd, in, "Base URL ["+defaultBaseURL+"]: "); err != nil {
					return err
				}
				if s.BaseURL == "" {
					s.BaseURL = defaultBaseURL
				}
			}
			if err := writeSettings(*cfgFile, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", *cfgFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&s.AdminKey, "admin-key", "", "admin credential")
	cmd.Flags().StringVar(&s.BaseURL, "base-url", "", "keyserver base URL")
	return cmd
}

func prompt(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func tableCmd(load settingsLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "List every activation key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := load()
			if err != nil {
				return err
			}
			resp, err := s.client().Table(cmd.Context())
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
}

func addCmd(load settingsLoader) *cobra.Command {
	var (
		expires  string
		generate bool
	)
	cmd := &cobra.Command{
		Use:   "add KEY EMAIL",
		Short: "Issue an activation key to a user",
		Long:  "Issue an activation key to a user. With --generate only EMAIL is given and a random key is used.",
		Args: func(cmd *cobra.Command, args []string) error {
			if generate {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load()
			if err != nil {
				return err
			}
			key, email := "", args[len(args)-1]
			if generate {
				key = strings.ToUpper(uuid.NewString())
				fmt.Fprintf(cmd.OutOrStdout(), "Generated key: %s\n", key)
			} else {
				key = args[0]
			}
			resp, err := s.client().Add(cmd.Context(), key, email, expires)
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&expires, "expires", "", "expiry date in ISO 8601 format (default one month)")
	cmd.Flags().BoolVar(&generate, "generate", false, "generate a random key")
	return cmd
}

func verifyCmd(load settingsLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "verify KEY MACHINE_ID",
		Short: "Verify a key, binding it to the machine on first use",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load()
			if err != nil {
				return err
			}
			resp, err := s.client().Verify(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
}

func removeCmd(load settingsLoader) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "remove EMAIL",
		Short: "Remove a user's keys, or one of them with --key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load()
			if err != nil {
				return err
			}
			resp, err := s.client().Remove(cmd.Context(), args[0], key)
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "remove only this key")
	return cmd
}

func buyLinkCmd(load settingsLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "buy-link",
		Short: "Show where keys can be bought",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := load()
			if err != nil {
				return err
			}
			resp, err := s.client().BuyLink(cmd.Context())
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
}
