// Package cgi runs an external executable for a request with an almost CGI
// environment and collects what it writes to stdout.
package cgi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/phuslu/log"
)

// ErrCGIFailure is wrapped by every error Run returns for a child that failed.
var ErrCGIFailure = errors.New("cgi: child failed")

var osDefaultInheritEnv = map[string][]string{
	"darwin":  {"DYLD_LIBRARY_PATH"},
	"freebsd": {"LD_LIBRARY_PATH"},
	"linux":   {"LD_LIBRARY_PATH"},
	"openbsd": {"LD_LIBRARY_PATH"},
	"solaris": {"LD_LIBRARY_PATH", "LD_LIBRARY_PATH_32", "LD_LIBRARY_PATH_64"},
}

// Handler runs Path as a child process once per call to Run, with the script
// path as its only argument.
type Handler struct {
	Path string // CGI executable, e.g. /usr/bin/python3
	Dir  string // working directory of the child, empty means the server's

	// InheritEnv names host variables copied into the child's environment.
	InheritEnv []string
	Logger     *log.Logger
	Stderr     io.Writer

	// OutputHandler interprets the captured stdout of a child that exited 0.
	// Nil means DefaultOutputHandler.
	OutputHandler OutputHandler
}

// Result is the outcome of one CGI invocation.
type Result struct {
	ExitCode   int
	StatusCode int
	Reason     string
	Body       []byte

	// Verbatim is set when Body already starts with its own header block
	// and must be sent as is after the status line.
	Verbatim bool
}

// Run spawns the executable for script with env as its environment. The
// child's stdout is read to EOF before waiting on it, so a full pipe can
// never block the child. The returned Result is never nil; a start failure
// or nonzero exit yields a 500 Result together with an error wrapping
// ErrCGIFailure.
func (h *Handler) Run(ctx context.Context, script string, env Env) (*Result, error) {
	cmd := exec.CommandContext(ctx, h.Path, script)
	cmd.Dir = h.Dir
	cmd.Env = h.environ(env)
	cmd.Stderr = h.stderr()

	stdoutRead, err := cmd.StdoutPipe()
	if err != nil {
		return failed(-1), fmt.Errorf("%w: %v", ErrCGIFailure, err)
	}
	if err := cmd.Start(); err != nil {
		return failed(-1), fmt.Errorf("%w: starting %s: %v", ErrCGIFailure, h.Path, err)
	}

	out, readErr := io.ReadAll(stdoutRead)
	waitErr := cmd.Wait()

	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		return failed(code), fmt.Errorf("%w: %s %s: %v", ErrCGIFailure, h.Path, script, waitErr)
	}
	if readErr != nil {
		return failed(0), fmt.Errorf("%w: reading stdout: %v", ErrCGIFailure, readErr)
	}

	oh := h.OutputHandler
	if oh == nil {
		oh = DefaultOutputHandler
	}
	return oh(h, out), nil
}

func failed(code int) *Result {
	return &Result{
		ExitCode:   code,
		StatusCode: 500,
		Reason:     "Internal Server Error",
	}
}

func (h *Handler) environ(env Env) []string {
	full := make(Env, len(env)+1)
	for k, v := range env {
		full[k] = v
	}
	if _, ok := full["PATH"]; !ok {
		envPath := os.Getenv("PATH")
		if envPath == "" {
			envPath = "/bin:/usr/bin:/usr/ucb:/usr/bsd:/usr/local/bin"
		}
		full["PATH"] = envPath
	}
	inherit := osDefaultInheritEnv[runtime.GOOS]
	for _, e := range append(inherit[:len(inherit):len(inherit)], h.InheritEnv...) {
		if _, set := full[e]; set {
			continue
		}
		if v := os.Getenv(e); v != "" {
			full[e] = v
		}
	}
	return full.Environ()
}

func (h *Handler) stderr() io.Writer {
	if h.Stderr != nil {
		return h.Stderr
	}
	return os.Stderr
}

func (h *Handler) logger() *log.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return &log.DefaultLogger
}

func (h *Handler) logErr(format string, args ...interface{}) {
	h.logger().Error().Str("exec", h.Path).Msgf(format, args...)
}
