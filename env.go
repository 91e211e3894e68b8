package cgi

import (
	"net"
	"sort"
	"strings"

	"github.com/raphaelreyna/ez-webserv/internal/wire"
)

// Env is the environment handed to one CGI child, variable name to value.
// A fresh Env is built for every request and never shared.
type Env map[string]string

// headerToEnv lists the request headers passed on to the child.
var headerToEnv = map[string]string{
	"Accept":          "HTTP_ACCEPT",
	"Host":            "HTTP_HOST",
	"User-Agent":      "HTTP_USER_AGENT",
	"Accept-Encoding": "HTTP_ACCEPT_ENCODING",
}

// BuildEnv derives the child environment from the request, the peer address
// and the address the listener is bound to.
func BuildEnv(req *wire.Request, remote, local net.Addr) Env {
	env := Env{
		"REQUEST_METHOD": req.Method,
		"REQUEST_URI":    req.Target,
	}

	for h, v := range req.Header {
		if key, ok := headerToEnv[h]; ok {
			env[key] = v
		}
	}

	env["REMOTE_ADDRESS"], env["REMOTE_PORT"] = splitAddr(remote)
	env["SERVER_ADDR"], env["SERVER_PORT"] = splitAddr(local)

	if q := req.Query(); strings.TrimSpace(q) != "" {
		env["QUERY_STRING"] = q
	}
	return env
}

// Environ returns the variables as sorted "key=value" pairs.
func (e Env) Environ() []string {
	out := make([]string, 0, len(e))
	for k, v := range e {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func splitAddr(a net.Addr) (host, port string) {
	if a == nil {
		return "", ""
	}
	host, port, err := net.SplitHostPort(a.String())
	if err != nil {
		return a.String(), ""
	}
	return host, port
}
