package server

import (
	"bytes"
	"compress/gzip"
	"io"
	"strconv"
	"testing"

	cgi "github.com/raphaelreyna/ez-webserv"
	"github.com/raphaelreyna/ez-webserv/internal/wire"
)

func TestBuildResponse(t *testing.T) {
	type test struct {
		Name        string
		Resource    Resource
		Status      int
		Reason      string
		ContentType string
		Body        string
	}

	tt := []test{
		{"static", StaticFile{ContentType: "text/css", Data: []byte("a{}")}, 200, "OK", "text/css", "a{}"},
		{"not found", NotFound{}, 404, "File not found", "text/html", notFoundBody},
		{"cgi body", CGIResult{&cgi.Result{StatusCode: 201, Reason: "Created", Body: []byte("Hello")}}, 201, "Created", "text/html", "Hello"},
		{"cgi failure", CGIResult{&cgi.Result{ExitCode: 1, StatusCode: 500, Reason: "Internal Server Error"}}, 500, "Internal Server Error", "text/html", ""},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			req := &wire.Request{Method: "GET", Target: "/", Proto: "HTTP/1.1", Header: wire.Header{}}
			resp, err := BuildResponse(req, tc.Resource)
			if err != nil {
				t.Fatalf("BuildResponse: %v", err)
			}
			if resp.Proto != "HTTP/1.1" || resp.StatusCode != tc.Status || resp.Reason != tc.Reason {
				t.Fatalf("status = %s %d %s", resp.Proto, resp.StatusCode, resp.Reason)
			}
			if len(resp.Header) != 2 || resp.Header[0].Name != "Content-Type" || resp.Header[1].Name != "Content-Length" {
				t.Fatalf("header = %v", resp.Header)
			}
			if resp.Get("Content-Type") != tc.ContentType {
				t.Fatalf("Content-Type = %q, want %q", resp.Get("Content-Type"), tc.ContentType)
			}
			if resp.Get("Content-Length") != strconv.Itoa(len(tc.Body)) || string(resp.Body) != tc.Body {
				t.Fatalf("Content-Length = %s body = %q", resp.Get("Content-Length"), resp.Body)
			}
		})
	}
}

func TestBuildResponse_Gzip(t *testing.T) {
	resources := []Resource{
		StaticFile{ContentType: "text/plain", Data: bytes.Repeat([]byte("static "), 100)},
		NotFound{},
		CGIResult{&cgi.Result{StatusCode: 200, Reason: "OK", Body: []byte("from cgi")}},
	}
	for _, res := range resources {
		plainReq := &wire.Request{Proto: "HTTP/1.1", Header: wire.Header{}}
		gzReq := &wire.Request{Proto: "HTTP/1.1", Header: wire.Header{"Accept-Encoding": "gzip"}}

		plain, err := BuildResponse(plainReq, res)
		if err != nil {
			t.Fatal(err)
		}
		gz, err := BuildResponse(gzReq, res)
		if err != nil {
			t.Fatal(err)
		}

		if gz.Get("Content-Encoding") != "gzip" || gz.Header[2].Name != "Content-Encoding" {
			t.Fatalf("%T: header = %v", res, gz.Header)
		}
		if gz.Get("Content-Length") != strconv.Itoa(len(gz.Body)) {
			t.Fatalf("%T: Content-Length %s for %d compressed bytes", res, gz.Get("Content-Length"), len(gz.Body))
		}
		zr, err := gzip.NewReader(bytes.NewReader(gz.Body))
		if err != nil {
			t.Fatalf("%T: gzip reader: %v", res, err)
		}
		dec, _ := io.ReadAll(zr)
		if !bytes.Equal(dec, plain.Body) {
			t.Fatalf("%T: decoded %q, want %q", res, dec, plain.Body)
		}
	}
}

func TestBuildResponse_GzipOnlyForExactValue(t *testing.T) {
	req := &wire.Request{Proto: "HTTP/1.1", Header: wire.Header{"Accept-Encoding": "gzip, deflate"}}
	resp, err := BuildResponse(req, NotFound{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Get("Content-Encoding") != "" {
		t.Fatalf("compressed for %q", req.Header["Accept-Encoding"])
	}
}

func TestBuildResponse_Verbatim(t *testing.T) {
	out := []byte("Content-Type: text/plain\n\nhi")
	req := &wire.Request{Proto: "HTTP/1.0", Header: wire.Header{"Accept-Encoding": "gzip"}}
	resp, err := BuildResponse(req, CGIResult{&cgi.Result{StatusCode: 200, Reason: "OK", Body: out, Verbatim: true}})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(resp.Raw, out) || resp.Header != nil {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestBadRequest(t *testing.T) {
	resp := BadRequest()
	if resp.StatusCode != 400 || resp.Get("Content-Length") != strconv.Itoa(len(badRequestBody)) {
		t.Fatalf("resp = %+v", resp)
	}
}
