package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/pulse/pkg/cli"
	"mercator-hq/pulse/pkg/config"
	"mercator-hq/pulse/pkg/security/auth"
)

var tokenFlags struct {
	user     string
	ttl      time.Duration
	secret   string
	audience string
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a development bearer token",
	Long: `Sign a bearer token for local testing with the configured secret.

Production tokens are issued by the account service; this command only
exists so the chat endpoints can be exercised locally.

Examples:
  pulse token --user alice
  pulse token --user alice --ttl 10m --secret "$PULSE_AUTH_TOKEN_SECRET"`,
	RunE: issueToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVarP(&tokenFlags.user, "user", "u", "", "user id (token subject)")
	tokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", time.Hour, "token lifetime")
	tokenCmd.Flags().StringVar(&tokenFlags.secret, "secret", "", "signing secret (skips loading the config)")
	tokenCmd.Flags().StringVar(&tokenFlags.audience, "audience", "", "audience claim (defaults to auth.audience)")
	_ = tokenCmd.MarkFlagRequired("user")
}

func issueToken(cmd *cobra.Command, args []string) error {
	if tokenFlags.ttl <= 0 {
		return cli.NewConfigError("ttl", "must be positive")
	}

	opts := auth.VerifierOptions{Secret: tokenFlags.secret}
	if opts.Secret == "" {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}
		opts = auth.VerifierOptionsFromConfig(cfg.Auth)
	}

	audience := tokenFlags.audience
	if audience == "" {
		audience = opts.Audience
	}

	verifier, err := auth.NewVerifier(opts)
	if err != nil {
		return cli.NewConfigError("auth.token_secret", err.Error())
	}

	var aud []string
	if audience != "" {
		aud = append(aud, audience)
	}
	token, err := verifier.Issue(tokenFlags.user, tokenFlags.ttl, aud...)
	if err != nil {
		return cli.NewCommandError("token", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
