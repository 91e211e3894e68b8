package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.cfg")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad(t *testing.T) {
	p := writeConfig(t, "staticfiles=./files\ncgibin=./cgibin\nport=8070\nexec=/usr/bin/python3\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		Host:          DefaultHost,
		Port:          8070,
		StaticRoot:    "./files",
		CGIRoot:       "./cgibin",
		CGIExecutable: "/usr/bin/python3",
	}
	if *cfg != want {
		t.Fatalf("Load() = %+v, want %+v", *cfg, want)
	}
	if cfg.Addr() != "127.0.0.1:8070" {
		t.Fatalf("Addr() = %q", cfg.Addr())
	}
}

func TestLoad_Errors(t *testing.T) {
	type test struct {
		Name    string
		Content string
		Want    error
	}

	tt := []test{
		{"missing key", "staticfiles=./files\ncgibin=./cgibin\nport=8070\n", ErrMissingField},
		{"extra line", "staticfiles=a\ncgibin=b\nport=1\nexec=c\nother=d\n", ErrMissingField},
		{"wrong key", "staticfiles=a\ncgibin=b\nport=1\nexecutable=c\n", ErrMissingField},
		{"no equals", "staticfiles=a\ncgibin=b\nport=1\nexec\n", ErrMissingField},
		{"empty value", "staticfiles=a\ncgibin=\nport=1\nexec=c\n", ErrMissingField},
		{"bad port", "staticfiles=a\ncgibin=b\nport=http\nexec=c\n", ErrMissingField},
		{"port range", "staticfiles=a\ncgibin=b\nport=70000\nexec=c\n", ErrMissingField},
		{"empty", "", ErrMissingField},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.Content))
			if !errors.Is(err, tc.Want) || !errors.Is(err, ErrConfig) {
				t.Fatalf("err = %v, want %v", err, tc.Want)
			}
		})
	}
}

func TestLoad_Unreadable(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cfg"))
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("err = %v, want ErrUnreadable", err)
	}
}
