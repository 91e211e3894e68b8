package cmd

import (
	"github.com/phuslu/log"

	cgi "github.com/raphaelreyna/ez-webserv"
	"github.com/raphaelreyna/ez-webserv/internal/config"
	"github.com/raphaelreyna/ez-webserv/internal/server"
)

func newServer(cfg *config.Config, handler *cgi.Handler, logger *log.Logger) *server.Server {
	return &server.Server{
		Addr:       cfg.Addr(),
		StaticRoot: cfg.StaticRoot,
		CGIRoot:    cfg.CGIRoot,
		CGIPrefix:  server.DefaultCGIPrefix,
		CGI:        handler,
		Logger:     logger,
	}
}
