package main

import (
	"net/http"
	"time"

	"github.com/jrsteele09/warranty-portal/fakebackend"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	seedDemo     bool
	rotateWithin time.Duration
	publicURL    string
)

var fakeBackendCmd = &cobra.Command{
	Use:   "fake-backend",
	Short: "Run an in-memory REST backend for local development",
	Long: `fake-backend serves the backend contract the portal expects (login, logout,
refresh, /auth/me, change-password and logo uploads) from memory. State is lost on exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := loadConfig()

		opts := []fakebackend.Option{fakebackend.WithSeamlessRotation(rotateWithin)}
		if publicURL != "" {
			opts = append(opts, fakebackend.WithPublicURL(publicURL))
		}
		backend, err := fakebackend.New(c.GetFakeBackendSecret(), opts...)
		if err != nil {
			return err
		}
		if seedDemo {
			if err := backend.SeedDemoAccounts(); err != nil {
				return err
			}
			for _, d := range fakebackend.DemoAccounts {
				log.Info().Str("email", d.Email).Str("password", d.Password).Str("tenant", d.Tenant).Msg("demo account")
			}
		}

		return serve(&http.Server{Addr: c.GetFakeBackendPort(), Handler: backend.Handler(), ReadHeaderTimeout: 10 * time.Second})
	},
}

func init() {
	fakeBackendCmd.Flags().BoolVar(&seedDemo, "seed", true, "Create the demo accounts")
	fakeBackendCmd.Flags().DurationVar(&rotateWithin, "rotate-within", 0, "Rotate tokens on /auth/me when the access token expires within this window (0 disables)")
	fakeBackendCmd.Flags().StringVar(&publicURL, "public-url", "", "Origin used in upload URLs, e.g. http://localhost:4000")
	rootCmd.AddCommand(fakeBackendCmd)
}
