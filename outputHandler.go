package cgi

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/raphaelreyna/ez-webserv/internal/wire"
)

// OutputHandler turns the complete stdout of a child that exited 0 into a
// Result. By the time it is called the child has terminated.
type OutputHandler func(h *Handler, stdout []byte) *Result

// EZOutputHandler sends the entire output of the child as the body without
// scanning for a status directive.
// Always responds with a 200 status code.
var EZOutputHandler OutputHandler = func(h *Handler, stdout []byte) *Result {
	return &Result{StatusCode: 200, Reason: "OK", Body: stdout}
}

// DefaultOutputHandler strips a leading "Status: <code> <reason>" line and
// uses it in place of 200 OK. When the rest of the output opens with a
// header block naming Content-Type or Content-Length, the child framed its
// own response and the output is marked Verbatim. Otherwise the output is a
// plain body for the server to wrap.
var DefaultOutputHandler OutputHandler = func(h *Handler, stdout []byte) *Result {
	res := &Result{StatusCode: 200, Reason: "OK", Body: stdout}

	line, rest, _ := bytes.Cut(stdout, []byte("\n"))
	line = bytes.TrimRight(line, "\r")
	if v, ok := cutStatus(string(line)); ok {
		code, reason, err := parseStatus(v)
		if err != nil {
			h.logErr("cgi: bogus status: %q", v)
		} else {
			res.StatusCode, res.Reason = code, reason
			res.Body = rest
		}
	}

	res.Verbatim = framesOwnHeaders(res.Body)
	return res
}

func cutStatus(line string) (string, bool) {
	name, v, ok := strings.Cut(line, ":")
	if !ok || strings.TrimSpace(name) != "Status" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func parseStatus(v string) (int, string, error) {
	if len(v) < 3 {
		return 0, "", strconv.ErrSyntax
	}
	code, err := strconv.Atoi(v[0:3])
	if err != nil {
		return 0, "", err
	}
	if code < 100 || code > 599 {
		return 0, "", strconv.ErrRange
	}
	reason := strings.TrimSpace(v[3:])
	if reason == "" {
		reason = wire.DefaultReason(code)
	}
	return code, reason, nil
}

// framesOwnHeaders reports whether out opens with a header block, ended by
// a blank line, that sets Content-Type or Content-Length.
func framesOwnHeaders(out []byte) bool {
	framing := false
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			return framing
		}
		name, _, ok := strings.Cut(line, ":")
		if !ok || !httpguts.ValidHeaderFieldName(name) {
			return false
		}
		switch {
		case strings.EqualFold(name, "Content-Type"), strings.EqualFold(name, "Content-Length"):
			framing = true
		}
	}
	return false
}
