package cmd

import (
	"errors"
	"fmt"

	"github.com/mediashelf/mediashelf/internal/auth"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with your Google account",
	Long: `Sign in with Google. A cached token is reused and refreshed when possible; otherwise
a browser window opens for the consent screen.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newAuthenticator()
		if err != nil {
			return err
		}
		_, profile, err := a.Authenticate(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s <%s>\n", profile.Name, profile.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the cached Google token and session",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := newAuthenticator()
		if err != nil {
			return err
		}
		if err := a.Logout(); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

func newAuthenticator() (*auth.Authenticator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !googleEnabled(cfg) {
		return nil, errors.New("google sign-in is disabled, set auth.google.enabled")
	}
	return auth.New(cfg.Auth.Google, cfg.Gravatar)
}

func googleEnabled(cfg *config.Config) bool {
	return cfg.Auth != nil && cfg.Auth.Google != nil && cfg.Auth.Google.Enabled
}
