package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIngestCmd_Flags(t *testing.T) {
	for _, name := range []string{"source", "title", "collection", "json"} {
		if ingestCmd.Flags().Lookup(name) == nil {
			t.Errorf("ingest command should have --%s flag", name)
		}
	}
}

func TestFetchDocument_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.html")
	if err := os.WriteFile(path, []byte("<h1>hello</h1>"), 0600); err != nil {
		t.Fatal(err)
	}

	doc, err := fetchDocument(context.Background(), path)
	if err != nil {
		t.Fatalf("fetchDocument() error = %v", err)
	}

	if doc.Content != "<h1>hello</h1>" {
		t.Errorf("Content = %q, want file contents", doc.Content)
	}
	if doc.Title != "guide.html" {
		t.Errorf("Title = %q, want %q", doc.Title, "guide.html")
	}
	if doc.URL != path {
		t.Errorf("URL = %q, want %q", doc.URL, path)
	}
	if doc.MimeType != "text/html" {
		t.Errorf("MimeType = %q, want %q", doc.MimeType, "text/html")
	}
}

func TestFetchDocument_MissingFile(t *testing.T) {
	_, err := fetchDocument(context.Background(), filepath.Join(t.TempDir(), "absent.md"))
	if err == nil {
		t.Fatal("fetchDocument() expected error for missing file")
	}
}

func TestFetchDocument_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<p>remote docs</p>"))
	}))
	defer srv.Close()

	doc, err := fetchDocument(context.Background(), srv.URL+"/docs/api.html")
	if err != nil {
		t.Fatalf("fetchDocument() error = %v", err)
	}

	if doc.Content != "<p>remote docs</p>" {
		t.Errorf("Content = %q, want response body", doc.Content)
	}
	if doc.Title != "api.html" {
		t.Errorf("Title = %q, want last path segment", doc.Title)
	}
	if doc.MimeType != "text/html" {
		t.Errorf("MimeType = %q, want %q without charset parameter", doc.MimeType, "text/html")
	}
}

func TestFetchDocument_URLServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := fetchDocument(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("fetchDocument() expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error should mention status, got: %v", err)
	}
}

func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/docs/api.html", "api.html"},
		{"https://example.com/docs/", "docs"},
		{"https://example.com/", "example.com"},
		{"https://example.com", "example.com"},
	}

	for _, tt := range tests {
		if got := titleFromURL(tt.url); got != tt.want {
			t.Errorf("titleFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
