package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func serve(t *testing.T, body string) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, New([]string{"127.0.0.1"}, LoadConfig())
}

func TestFetchImage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "open graph",
			html: `<html><head><meta property="og:image" content="https://cdn.example.com/a.jpg"></head></html>`,
			want: "https://cdn.example.com/a.jpg",
		},
		{
			name: "twitter card",
			html: `<html><head><meta name="twitter:image" content="https://cdn.example.com/t.jpg"></head></html>`,
			want: "https://cdn.example.com/t.jpg",
		},
		{
			name: "json-ld product image list",
			html: `<html><head><script type="application/ld+json">{"@type":"Product","name":"Fone","image":["https://cdn.example.com/p1.jpg","https://cdn.example.com/p2.jpg"]}</script></head></html>`,
			want: "https://cdn.example.com/p1.jpg",
		},
		{
			name: "json-ld graph with image object",
			html: `<html><head><script type="application/ld+json">{"@graph":[{"@type":"WebPage"},{"@type":["Product"],"image":{"url":"https://cdn.example.com/g.jpg"}}]}</script></head></html>`,
			want: "https://cdn.example.com/g.jpg",
		},
		{
			name: "no image",
			html: `<html><head><title>nada</title></head></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, c := serve(t, tt.html)
			got, err := c.FetchImage(context.Background(), server.URL+"/produto")
			if err != nil {
				t.Fatalf("FetchImage() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FetchImage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchImage_ResolvesRelative(t *testing.T) {
	server, c := serve(t, `<html><head><meta property="og:image" content="/img/x.png"></head></html>`)
	got, err := c.FetchImage(context.Background(), server.URL+"/p/1")
	if err != nil {
		t.Fatalf("FetchImage() error = %v", err)
	}
	if got != server.URL+"/img/x.png" {
		t.Errorf("FetchImage() = %q, want absolute URL on the test server", got)
	}
}

func TestFetchImage_Allowlist(t *testing.T) {
	c := New([]string{"amazon.com.br"}, DefaultSelectors())
	_, err := c.FetchImage(context.Background(), "https://evil.example.com/x")
	if !errors.Is(err, ErrNotAllowed) {
		t.Errorf("FetchImage() error = %v, want ErrNotAllowed", err)
	}

	_, err = c.FetchImage(context.Background(), "ftp://amazon.com.br/x")
	if err == nil {
		t.Error("FetchImage() should reject non-http schemes")
	}
}

func TestFetchImage_RedirectOutsideAllowlist(t *testing.T) {
	var landed atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/away":
			http.Redirect(w, r, "http://169.254.169.254/latest/meta-data/", http.StatusFound)
		case "/moved":
			http.Redirect(w, r, "/product", http.StatusMovedPermanently)
		default:
			landed.Store(true)
			w.Write([]byte(`<html><head><meta property="og:image" content="/img/p.jpg"></head></html>`))
		}
	}))
	defer server.Close()

	c := New([]string{"127.0.0.1"}, DefaultSelectors())
	if _, err := c.FetchImage(context.Background(), server.URL+"/away"); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("FetchImage() error = %v, want ErrNotAllowed for an off-list redirect", err)
	}

	img, err := c.FetchImage(context.Background(), server.URL+"/moved")
	if err != nil || !landed.Load() {
		t.Fatalf("same-host redirect should be followed, got %q, %v", img, err)
	}
	if img != server.URL+"/img/p.jpg" {
		t.Errorf("image = %q, want it resolved against the final URL", img)
	}
}

func TestFetchImage_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := New([]string{"127.0.0.1"}, DefaultSelectors())
	if _, err := c.FetchImage(context.Background(), server.URL); err == nil {
		t.Error("FetchImage() should fail on a 503 page")
	}
}

func TestLoadSelectorsFromBytes(t *testing.T) {
	if _, err := LoadSelectorsFromBytes([]byte(`{"image": []}`)); err == nil {
		t.Error("config without image selectors should be rejected")
	}
	if _, err := LoadSelectorsFromBytes([]byte(`not json`)); err == nil {
		t.Error("invalid JSON should be rejected")
	}
	sel, err := LoadSelectorsFromBytes([]byte(`{"image":[{"selector":"meta","attr":"content"}]}`))
	if err != nil || len(sel.Image) != 1 {
		t.Errorf("LoadSelectorsFromBytes() = %+v, %v", sel, err)
	}
}

func TestProductImage_InvalidJSON(t *testing.T) {
	if got := productImage("{broken"); got != "" {
		t.Errorf("productImage() = %q, want empty", got)
	}
}
