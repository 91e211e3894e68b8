package wire

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// HeaderField is one response header. Responses keep headers in a slice so
// they are written in the order they were added.
type HeaderField struct {
	Name  string
	Value string
}

// Response is a status line plus headers and body, framed by WriteTo.
type Response struct {
	Proto      string
	StatusCode int
	Reason     string
	Header     []HeaderField
	Body       []byte

	// Raw, if non-nil, is written right after the status line in place of
	// Header and Body. It holds output that already frames its own headers.
	Raw []byte
}

// Get returns the first header value with the given name.
func (r *Response) Get(name string) string {
	for _, f := range r.Header {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// SetBody replaces the body and the Content-Type/Content-Length headers,
// dropping any Content-Encoding.
func (r *Response) SetBody(contentType string, body []byte) {
	r.Body = body
	r.Header = []HeaderField{
		{"Content-Type", contentType},
		{"Content-Length", strconv.Itoa(len(body))},
	}
}

// Gzip compresses the body in place, recomputes Content-Length from the
// compressed length and appends Content-Encoding: gzip.
func (r *Response) Gzip() error {
	if r.Raw != nil {
		return nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(r.Body); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	r.SetBody(r.Get("Content-Type"), buf.Bytes())
	r.Header = append(r.Header, HeaderField{"Content-Encoding", "gzip"})
	return nil
}

// WriteTo writes the framed response to w.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	bw := bufio.NewWriter(cw)
	if err := r.write(bw); err != nil {
		return cw.n, err
	}
	err := bw.Flush()
	return cw.n, err
}

func (r *Response) write(bw *bufio.Writer) error {
	proto := r.Proto
	if proto == "" {
		proto = "HTTP/1.0"
	}
	reason := r.Reason
	if reason == "" {
		reason = DefaultReason(r.StatusCode)
	}
	if _, err := fmt.Fprintf(bw, "%s %d %s\r\n", proto, r.StatusCode, reason); err != nil {
		return err
	}
	if r.Raw != nil {
		_, err := bw.Write(r.Raw)
		return err
	}
	for _, f := range r.Header {
		if _, err := fmt.Fprintf(bw, "%s: %s\r\n", f.Name, sanitizeHeaderValue(f.Value)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(bw, "\r\n"); err != nil {
		return err
	}
	if len(r.Body) > 0 {
		if _, err := bw.Write(r.Body); err != nil {
			return err
		}
	}
	return nil
}

// DefaultReason returns the reason phrase this server uses for code.
func DefaultReason(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 304:
		return "Not Modified"
	case 400:
		return "Bad Request"
	case 403:
		return "Forbidden"
	case 404:
		return "File not found"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	default:
		return ""
	}
}

func sanitizeHeaderValue(v string) string {
	if v == "" {
		return v
	}
	// Remove CR/LF and other control chars except HTAB
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '\r' || c == '\n' || c == 0x7f {
			continue
		}
		if c < 0x20 && c != '\t' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
