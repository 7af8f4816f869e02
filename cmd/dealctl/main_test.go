package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pauljones0/maodevaca/internal/apiclient"
	"github.com/pauljones0/maodevaca/internal/models"
)

func newTestApp(t *testing.T, h http.Handler, input string, session *savedSession) (*app, *bytes.Buffer) {
	t.Helper()
	t.Setenv("DEALCTL_SESSION", filepath.Join(t.TempDir(), "session.json"))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	token := ""
	if session != nil {
		token = session.Token
	}
	out := &bytes.Buffer{}
	return &app{
		client:  apiclient.New(srv.URL, token),
		session: session,
		out:     out,
		in:      bufio.NewReader(strings.NewReader(input)),
	}, out
}

func TestFormatBRL(t *testing.T) {
	tests := map[float64]string{
		99.9:    "R$ 99,90",
		1299.99: "R$ 1299,99",
		5:       "R$ 5,00",
	}
	for in, want := range tests {
		if got := formatBRL(in); got != want {
			t.Errorf("formatBRL(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestBadges(t *testing.T) {
	orig := 200.0
	tests := []struct {
		name string
		deal models.Deal
		want string
	}{
		{"plain", models.Deal{Price: 100, Temperature: 3}, ""},
		{"hot and discounted", models.Deal{Price: 100, OriginalPrice: &orig, Temperature: 80}, "🔥 QUENTE -50%"},
		{"under review", models.Deal{Price: 100, ReportStatus: models.ReportPendingReview}, "⚠ EM REVISÃO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := badges(tt.deal); got != tt.want {
				t.Errorf("badges() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseWithIDAcceptsTrailingFlags(t *testing.T) {
	fs := flag.NewFlagSet("admin approve", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "")
	id, err := parseWithID(fs, []string{"12", "--yes"})
	if err != nil {
		t.Fatalf("parseWithID() error = %v", err)
	}
	if id != 12 || !*yes {
		t.Errorf("id = %d, yes = %v", id, *yes)
	}

	if _, err := parseWithID(flag.NewFlagSet("vote", flag.ContinueOnError), []string{"abc"}); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestConfirm(t *testing.T) {
	for input, want := range map[string]bool{"y\n": true, "sim\n": true, "n\n": false, "\n": false, "": false} {
		a := &app{out: &bytes.Buffer{}, in: bufio.NewReader(strings.NewReader(input))}
		if got := a.confirm("Aprovar?"); got != want {
			t.Errorf("confirm(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestVoteRequiresLogin(t *testing.T) {
	var votes atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/vote") {
			votes.Add(1)
		}
		json.NewEncoder(w).Encode(models.Deal{ID: 3, Temperature: 10})
	})
	a, _ := newTestApp(t, h, "", nil)

	err := a.run(context.Background(), "vote", []string{"3"})
	if !errors.Is(err, models.ErrNotAuthenticated) {
		t.Errorf("error = %v, want ErrNotAuthenticated", err)
	}
	if votes.Load() != 0 {
		t.Error("vote sent without a session")
	}
}

func TestVoteShowsServerTemperature(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/vote") {
			json.NewEncoder(w).Encode(map[string]int{"temperature": 50})
			return
		}
		json.NewEncoder(w).Encode(models.Deal{ID: 3, Temperature: 48})
	})
	a, out := newTestApp(t, h, "", &savedSession{Token: "t", Identity: models.Identity{UserID: "u1"}})

	if err := a.run(context.Background(), "vote", []string{"3"}); err != nil {
		t.Fatalf("vote error = %v", err)
	}
	if !strings.Contains(out.String(), "48° → 50°") || !strings.Contains(out.String(), "🔥") {
		t.Errorf("output = %q", out.String())
	}
}

func TestAdminDeclinedPromptSendsNothing(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	a, _ := newTestApp(t, h, "n\n", &savedSession{Token: "t", Identity: models.Identity{UserID: "admin"}})

	err := a.run(context.Background(), "admin", []string{"delete", "4"})
	if !errors.Is(err, models.ErrNotConfirmed) {
		t.Errorf("error = %v, want ErrNotConfirmed", err)
	}
	if calls.Load() != 0 {
		t.Errorf("server called %d times after a declined prompt", calls.Load())
	}
}

func TestListFiltersClientSide(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("list should fetch the full approved set, got query %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]models.Deal{
			{ID: 1, Title: "Fone", StoreName: "Amazon", Category: "Eletrônicos", Temperature: 3},
			{ID: 2, Title: "Camiseta", StoreName: "Shopee", Category: "Moda", Temperature: 9},
		})
	})
	a, out := newTestApp(t, h, "", nil)

	if err := a.run(context.Background(), "list", []string{"--category", "Moda"}); err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out.String(), "Camiseta") || strings.Contains(out.String(), "Fone") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv("DEALCTL_SESSION", filepath.Join(t.TempDir(), "nested", "session.json"))

	if s, err := loadSession(); err != nil || s != nil {
		t.Fatalf("loadSession() on empty = %v, %v", s, err)
	}
	want := savedSession{Token: "abc", Identity: models.Identity{UserID: "u1", Email: "a@b.com"}}
	if err := saveSession(want); err != nil {
		t.Fatal(err)
	}
	got, err := loadSession()
	if err != nil || got == nil || *got != want {
		t.Fatalf("loadSession() = %+v, %v", got, err)
	}
	if err := clearSession(); err != nil {
		t.Fatal(err)
	}
	if s, _ := loadSession(); s != nil {
		t.Error("session survived clearSession")
	}
}
