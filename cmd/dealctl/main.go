// Command dealctl is a terminal front end for the Mão de Vaca deals API.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pauljones0/maodevaca/internal/apiclient"
	"github.com/pauljones0/maodevaca/internal/models"
)

const usage = `usage: dealctl <command> [flags]

commands:
  list      list approved deals (--q, --category, --payment, --sort HOTTEST|NEWEST)
  show      show one deal
  vote      upvote a deal
  submit    submit a new deal (--ai to draft description and category)
  report    report a deal as expired
  signup    create an account
  login     sign in
  reset     request a password reset mail
  logout    sign out
  whoami    show the signed-in account
  admin     moderation: dashboard, approve, reject, dismiss, ban-owner, delete, edit, ban

environment:
  MAODEVACA_API    API base URL (default http://localhost:8080)
  DEALCTL_SESSION  session file (default in the user config dir)
`

type app struct {
	client  *apiclient.Client
	session *savedSession
	out     io.Writer
	in      *bufio.Reader
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := loadSession()
	if err != nil {
		slog.Warn("Ignoring unreadable session", "error", err)
	}
	baseURL := os.Getenv("MAODEVACA_API")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	token := ""
	if session != nil {
		token = session.Token
	}

	a := &app{
		client:  apiclient.New(baseURL, token),
		session: session,
		out:     os.Stdout,
		in:      bufio.NewReader(os.Stdin),
	}
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", describeError(err))
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list":
		return a.list(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "vote":
		return a.vote(ctx, args)
	case "submit":
		return a.submit(ctx, args)
	case "report":
		return a.report(ctx, args)
	case "signup":
		return a.signup(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "reset":
		return a.reset(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "admin":
		return a.admin(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

// caller is the identity saved by login, or nil.
func (a *app) caller() *models.Identity {
	if a.session == nil {
		return nil
	}
	id := a.session.Identity
	return &id
}

// describeError turns API failures into the messages the web app shows.
func describeError(err error) string {
	switch {
	case errors.Is(err, models.ErrUserBanned):
		return "sua conta está suspensa."
	case errors.Is(err, models.ErrNotAuthenticated):
		return "faça login primeiro (dealctl login)."
	case errors.Is(err, models.ErrAlreadyVoted):
		return "você já votou nesta promoção."
	case errors.Is(err, models.ErrForbidden):
		return "apenas administradores podem fazer isso."
	case errors.Is(err, models.ErrNotConfirmed):
		return "ação cancelada."
	}
	return err.Error()
}
