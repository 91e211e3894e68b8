package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	cgi "github.com/raphaelreyna/ez-webserv"
	"github.com/raphaelreyna/ez-webserv/internal/config"
	"github.com/raphaelreyna/ez-webserv/internal/server"
)

var version string

var (
	host     string
	logLevel string
	ezOutput bool
	stderr   string
	envVars  []string
)

var errMissingArg = errors.New("missing configuration argument")

var RootCmd = &cobra.Command{
	Use:     "ez-webserv [flags]... config-file",
	Version: version,
	Short:   "A small static file and CGI server.",
	Long: `Serve static files and run CGI scripts as described by a configuration file.
The configuration file holds exactly four key=value lines:
  staticfiles - directory static files are served from
  cgibin      - directory CGI scripts are resolved in
  port        - port to listen on
  exec        - executable every CGI script is run with
Requests under /cgibin are handed to exec with the script path as its argument.
`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errMissingArg
		}
		return cobra.MaximumNArgs(1)(cmd, args)
	},
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          run,
}

func SetFlags() {
	RootCmd.Flags().StringVar(&host, "host", config.DefaultHost, "Address to bind to.")

	RootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info",
		`Minimum level to log: trace, debug, info, warn or error.`,
	)

	RootCmd.Flags().BoolVar(&ezOutput, "ez", false, `Send CGI output as the response body without scanning for a status line.
Responses to CGI requests are then always 200 OK.`,
	)

	RootCmd.Flags().StringArrayVarP(&envVars, "env-var", "e", nil, `Host environment variable to pass on to CGI children.
May be repeated.`,
	)

	RootCmd.Flags().StringVarP(&stderr, "stderr", "E", "", `File CGI children's stderr is appended to.
Defaults to the server's stderr.`)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return fmt.Errorf("loading %s: %w", args[0], err)
	}
	cfg.Host = host

	logger := &log.Logger{
		Level:  log.ParseLevel(logLevel),
		Writer: &log.ConsoleWriter{Writer: os.Stderr},
	}

	var childStderr io.Writer
	if stderr != "" {
		f, err := os.OpenFile(stderr, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("error opening stderr: %w", err)
		}
		defer f.Close()
		childStderr = f
	}

	handler := &cgi.Handler{
		Path:       cfg.CGIExecutable,
		InheritEnv: envVars,
		Logger:     logger,
		Stderr:     childStderr,
	}
	if ezOutput {
		handler.OutputHandler = cgi.EZOutputHandler
	}

	s := newServer(cfg, handler, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		s.Close()
	}()

	if err := s.ListenAndServe(); err != nil && !errors.Is(err, server.ErrServerClosed) {
		return err
	}
	return nil
}

// diagnostic is the line printed for err before exiting.
func diagnostic(err error) string {
	switch {
	case errors.Is(err, errMissingArg):
		return "Missing Configuration Argument"
	case errors.Is(err, config.ErrUnreadable):
		return "Unable To Load Configuration File: " + err.Error()
	case errors.Is(err, config.ErrConfig):
		return "Missing Field From Configuration File: " + err.Error()
	}
	return err.Error()
}

func Execute() {
	SetFlags()
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, diagnostic(err))
		os.Exit(1)
	}
}
