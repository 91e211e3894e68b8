// Package server accepts connections and runs the request pipeline for each
// one in its own goroutine.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"

	cgi "github.com/raphaelreyna/ez-webserv"
	"github.com/raphaelreyna/ez-webserv/internal/static"
	"github.com/raphaelreyna/ez-webserv/internal/wire"
)

var ErrServerClosed = errors.New("server: closed")

// DefaultCGIPrefix is the target prefix routed to the CGI handler.
const DefaultCGIPrefix = "/cgibin"

type Server struct {
	Addr       string
	StaticRoot string
	CGIRoot    string
	CGIPrefix  string
	CGI        *cgi.Handler
	Logger     *log.Logger

	MaxHeaderBytes int
	MaxBodyBytes   int64

	mu     sync.Mutex
	ln     net.Listener
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Server) ListenAndServe() error {
	addr := s.Addr
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: bind %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on l until Close is called. Each connection is
// handled in its own goroutine; the loop never waits for one to finish.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.ln = l
	s.ctx, s.cancel = context.WithCancel(context.Background())
	ctx := s.ctx
	s.mu.Unlock()
	defer l.Close()

	bound := l.Addr()
	s.logger().Info().Str("addr", bound.String()).Msg("listening")

	var tempDelay time.Duration
	for {
		c, err := l.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else if tempDelay *= 2; tempDelay > time.Second {
				tempDelay = time.Second
			}
			s.logger().Warn().Err(err).Dur("retry_in", tempDelay).Msg("accept error")
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0
		go s.serveConn(ctx, c, bound)
	}
}

// Close stops the accept loop and kills any CGI children still running.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) serveConn(ctx context.Context, c net.Conn, bound net.Addr) {
	remote := c.RemoteAddr().String()
	defer c.Close()
	defer func() {
		if v := recover(); v != nil {
			s.logger().Error().Str("remote", remote).Msgf("panic serving connection: %v", v)
		}
	}()

	rr := &wire.Reader{
		BR:             bufio.NewReader(c),
		MaxHeaderBytes: s.MaxHeaderBytes,
		MaxBodyBytes:   s.MaxBodyBytes,
	}
	req, err := rr.ReadRequest()
	if err != nil {
		if err == io.EOF {
			return
		}
		s.logger().Warn().Err(err).Str("remote", remote).Msg("bad request")
		if _, err := BadRequest().WriteTo(c); err != nil {
			s.logger().Warn().Err(err).Str("remote", remote).Msg("write error")
		}
		return
	}

	resp, err := BuildResponse(req, s.resolve(ctx, req, c.RemoteAddr(), bound))
	if err != nil {
		s.logger().Error().Err(err).Str("remote", remote).Msg("building response")
		return
	}
	n, err := resp.WriteTo(c)
	if err != nil {
		s.logger().Warn().Err(err).Str("remote", remote).Msg("write error")
		return
	}
	s.logger().Info().
		Str("remote", remote).
		Str("method", req.Method).
		Str("target", req.Target).
		Int("status", resp.StatusCode).
		Int64("bytes", n).
		Msg("request")
}

// resolve routes req to the CGI handler or the static root.
func (s *Server) resolve(ctx context.Context, req *wire.Request, remote, local net.Addr) Resource {
	p := req.Path()
	if rest, ok := s.cgiPath(p); ok {
		if s.CGI == nil {
			return NotFound{}
		}
		script, ok := static.Within(s.CGIRoot, rest)
		if !ok {
			return NotFound{}
		}
		res, err := s.CGI.Run(ctx, script, cgi.BuildEnv(req, remote, local))
		if err != nil {
			s.logger().Error().Err(err).Str("script", script).Msg("cgi")
		}
		return CGIResult{res}
	}

	f, err := (&static.Resolver{Root: s.StaticRoot}).Resolve(req.Target)
	if err != nil {
		return NotFound{}
	}
	return StaticFile{ContentType: f.ContentType, Data: f.Data}
}

// cgiPath reports whether p falls under the CGI prefix and returns the
// remainder after it.
func (s *Server) cgiPath(p string) (string, bool) {
	prefix := s.CGIPrefix
	if prefix == "" {
		prefix = DefaultCGIPrefix
	}
	if p == prefix {
		return "", true
	}
	if strings.HasPrefix(p, prefix+"/") {
		return p[len(prefix):], true
	}
	return "", false
}

func (s *Server) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return &log.DefaultLogger
}
