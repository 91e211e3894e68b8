package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	ErrMalformedRequest = errors.New("wire: malformed request")
	ErrHeaderTooLarge   = errors.New("wire: header too large")
	ErrBodyTooLarge     = errors.New("wire: body too large")
)

const (
	// DefaultMaxHeaderBytes bounds the start line plus the header block.
	DefaultMaxHeaderBytes = 64 << 10
	// DefaultMaxBodyBytes bounds the Content-Length a request may declare.
	DefaultMaxBodyBytes = 1 << 20
)

// Header maps a header name, case as received, to its value.
// Not map[string][]string, unlike http.Header
type Header map[string]string

// Request is one parsed request read off a connection.
type Request struct {
	Method string
	Target string
	Proto  string
	Header Header
	Body   []string
}

// Path returns the target without its query string.
func (r *Request) Path() string {
	if i := strings.LastIndexByte(r.Target, '?'); i >= 0 {
		return r.Target[:i]
	}
	return r.Target
}

// Query returns the substring of the target after the last '?'.
func (r *Request) Query() string {
	if i := strings.LastIndexByte(r.Target, '?'); i >= 0 {
		return r.Target[i+1:]
	}
	return ""
}

// Reader reads a single request from a byte stream.
type Reader struct {
	BR             *bufio.Reader
	MaxHeaderBytes int
	MaxBodyBytes   int64

	read int
}

// ReadRequest reads one request from r using the default limits.
func ReadRequest(r io.Reader) (*Request, error) {
	var br *bufio.Reader
	if casted, ok := r.(*bufio.Reader); ok {
		br = casted
	} else {
		br = bufio.NewReader(r)
	}
	rr := &Reader{BR: br}
	return rr.ReadRequest()
}

func (r *Reader) ReadRequest() (*Request, error) {
	line, err := r.readLine()
	if err != nil {
		if err == io.EOF && r.read == 0 {
			return nil, io.EOF
		}
		return nil, wrapMalformed("reading start line", err)
	}
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return nil, malformed("start line has %d fields: %q", len(fields), line)
	}
	req := &Request{
		Method: fields[0],
		Target: fields[1],
		Proto:  fields[2],
	}

	if req.Header, err = r.readHeaders(); err != nil {
		return nil, err
	}

	body, err := r.readBody(req.Header)
	if err != nil {
		return nil, err
	}
	req.Body = bodyLines(body)
	return req, nil
}

func (r *Reader) readHeaders() (Header, error) {
	h := make(Header)
	for {
		line, err := r.readLine()
		if err != nil {
			return nil, wrapMalformed("reading headers", err)
		}
		if strings.TrimSpace(line) == "" {
			return h, nil
		}
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, malformed("header line without delimiter: %q", line)
		}
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, malformed("invalid header name: %q", name)
		}
		h[name] = strings.TrimSpace(value)
	}
}

// readBody reads exactly Content-Length bytes when the header is present.
// Without it there is no body to wait for since the connection is not
// kept alive.
func (r *Reader) readBody(h Header) ([]byte, error) {
	v, ok := h.Lookup("Content-Length")
	if !ok {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return nil, malformed("invalid Content-Length: %q", v)
	}
	if n == 0 {
		return nil, nil
	}
	limit := r.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	if n > limit {
		return nil, wrapMalformed(fmt.Sprintf("Content-Length %d over limit %d", n, limit), ErrBodyTooLarge)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r.BR, body); err != nil {
		return nil, wrapMalformed("reading body", err)
	}
	return body, nil
}

// similar to readLineSlice() in net/textproto/reader.go
func (r *Reader) readLine() (string, error) {
	limit := r.MaxHeaderBytes
	if limit <= 0 {
		limit = DefaultMaxHeaderBytes
	}
	var line []byte
	for {
		l, more, err := r.BR.ReadLine()
		if err != nil {
			return "", err
		}
		r.read += len(l) + 1
		if r.read > limit {
			return "", ErrHeaderTooLarge
		}
		if line == nil && !more {
			return string(l), nil
		}
		line = append(line, l...)
		if !more {
			break
		}
	}
	return string(line), nil
}

func bodyLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

// Lookup finds a header by exact name first, then case-insensitively.
func (h Header) Lookup(name string) (string, bool) {
	if v, ok := h[name]; ok {
		return v, true
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Get returns the value of the named header or "".
func (h Header) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

func wrapMalformed(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformedRequest, what, err)
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedRequest, fmt.Sprintf(format, args...))
}
