package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/warranty-portal/apiclient"
	"github.com/jrsteele09/warranty-portal/auth"
	"github.com/jrsteele09/warranty-portal/internal/config"
	"github.com/jrsteele09/warranty-portal/internal/logging"
	"github.com/jrsteele09/warranty-portal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var failClosed bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := loadConfig()
		displayAppname(c.GetAppName())

		handler, err := newPortal(c)
		if err != nil {
			return err
		}
		return serve(&http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second})
	},
}

func init() {
	serveCmd.Flags().BoolVar(&failClosed, "fail-closed", false, "Report sessions invalid while the backend is unavailable")
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() config.Config {
	var c config.Config
	if envFile != "" {
		c = config.Load(envFile)
	} else {
		c = config.Load()
	}
	logging.Init(c.GetEnv(), c.GetLogLevel())
	return c
}

func newPortal(c config.Config) (http.Handler, error) {
	client, err := apiclient.New(c.GetAPIBaseURL(), apiclient.WithTimeout(c.GetHTTPTimeout()))
	if err != nil {
		return nil, err
	}
	authService, err := auth.NewService(client, auth.WithValidationPolicy(auth.ValidationPolicy{FailOpen: !failClosed}))
	if err != nil {
		return nil, err
	}
	log.Info().Str("backend", client.BaseURL()).Bool("fail_open", authService.Policy().FailOpen).Msg("portal configured")
	s, err := server.New(c, authService)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// serve runs srv until SIGINT/SIGTERM, then shuts it down gracefully.
func serve(srv *http.Server) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	errs := make(chan error, 1)
	go func() {
		errs <- listenAndServe(srv)
	}()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func listenAndServe(srv *http.Server) error {
	log.Info().Str("addr", srv.Addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Str("addr", srv.Addr).Msg("server stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
