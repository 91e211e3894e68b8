package server

import (
	cgi "github.com/raphaelreyna/ez-webserv"
)

// Resource is what a request target resolved to: StaticFile, NotFound or
// CGIResult.
type Resource interface {
	resource()
}

type StaticFile struct {
	ContentType string
	Data        []byte
}

type NotFound struct{}

type CGIResult struct {
	*cgi.Result
}

func (StaticFile) resource() {}
func (NotFound) resource()   {}
func (CGIResult) resource()  {}
