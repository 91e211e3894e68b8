package server

import (
	"strings"

	"github.com/raphaelreyna/ez-webserv/internal/wire"
)

const (
	notFoundBody = "<html>\n<head>\n\t<title>404 Not Found</title>\n</head>\n<body bgcolor=\"white\">" +
		"\n<center>\n\t<h1>404 Not Found</h1>\n</center>\n</body>\n</html>\n"
	badRequestBody = "<html>\n<head>\n\t<title>400 Bad Request</title>\n</head>\n<body bgcolor=\"white\">" +
		"\n<center>\n\t<h1>400 Bad Request</h1>\n</center>\n</body>\n</html>\n"
)

// BuildResponse assembles the response to req for the resolved resource.
// The body is gzip compressed when the request's Accept-Encoding is gzip.
func BuildResponse(req *wire.Request, res Resource) (*wire.Response, error) {
	resp := &wire.Response{Proto: req.Proto}

	switch r := res.(type) {
	case StaticFile:
		resp.StatusCode, resp.Reason = 200, "OK"
		resp.SetBody(r.ContentType, r.Data)
	case CGIResult:
		resp.StatusCode, resp.Reason = r.StatusCode, r.Reason
		if r.Verbatim {
			resp.Raw = r.Body
			return resp, nil
		}
		resp.SetBody("text/html", r.Body)
	default:
		resp.StatusCode, resp.Reason = 404, "File not found"
		resp.SetBody("text/html", []byte(notFoundBody))
	}

	if wantsGzip(req) {
		if err := resp.Gzip(); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// BadRequest is the response to a request that failed to parse.
func BadRequest() *wire.Response {
	resp := &wire.Response{Proto: "HTTP/1.0", StatusCode: 400, Reason: "Bad Request"}
	resp.SetBody("text/html", []byte(badRequestBody))
	return resp
}

func wantsGzip(req *wire.Request) bool {
	v, ok := req.Header["Accept-Encoding"]
	return ok && strings.TrimSpace(v) == "gzip"
}
