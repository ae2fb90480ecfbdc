package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFile string

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "warranty-portal",
	Short: "Multi-tenant warranty portal",
	Long: `warranty-portal serves the session pages of the warranty portal in front of
its REST backend.

Environment Variables:
  PORT                 Portal listen port (default: 3000)
  API_BASE_URL         REST backend base URL (default: http://localhost:4000/api)
  ENV                  DEV or PRODUCTION (default: DEV)
  LOG_LEVEL            zerolog level (default: info)
  TRUSTED_PROXIES      IPs/CIDRs whose X-Forwarded-For is believed (default: none)
  FAKE_BACKEND_PORT    fake-backend listen port (default: 4000)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load variables from this .env file (default: .env when present)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
