// Package httpapi exposes deals, sessions and moderation over JSON/HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/pauljones0/maodevaca/internal/ai"
	"github.com/pauljones0/maodevaca/internal/models"
	"github.com/pauljones0/maodevaca/internal/moderation"
)

// DealService is the deal repository as the API uses it.
type DealService interface {
	ListApproved(ctx context.Context) ([]models.Deal, error)
	Get(ctx context.Context, id int64) (*models.Deal, error)
	Create(ctx context.Context, caller *models.Identity, input models.NewDeal) (*models.Deal, error)
	Vote(ctx context.Context, caller *models.Identity, dealID int64) (int, error)
	ReportExpired(ctx context.Context, caller *models.Identity, id int64) error
	ListPending(ctx context.Context, caller *models.Identity) ([]models.Deal, error)
	ListReported(ctx context.Context, caller *models.Identity) ([]models.Deal, error)
	ListAll(ctx context.Context, caller *models.Identity) ([]models.Deal, error)
	ListUsers(ctx context.Context, caller *models.Identity) ([]models.UserProfile, error)
}

// Moderator runs confirmed admin actions and returns the refreshed lists.
type Moderator interface {
	Refresh(ctx context.Context, caller *models.Identity) (*moderation.Dashboard, error)
	Approve(ctx context.Context, caller *models.Identity, id int64, confirmed bool) (*moderation.Dashboard, error)
	Reject(ctx context.Context, caller *models.Identity, id int64, confirmed bool) (*moderation.Dashboard, error)
	Edit(ctx context.Context, caller *models.Identity, deal models.Deal, confirmed bool) (*moderation.Dashboard, error)
	Delete(ctx context.Context, caller *models.Identity, id int64, confirmed bool) (*moderation.Dashboard, error)
	DismissReport(ctx context.Context, caller *models.Identity, id int64, confirmed bool) (*moderation.Dashboard, error)
	ToggleBan(ctx context.Context, caller *models.Identity, userID string, confirmed bool) (*moderation.Dashboard, error)
	BanOwner(ctx context.Context, caller *models.Identity, dealID int64, confirmed bool) (*moderation.Dashboard, error)
}

// Authenticator resolves bearer tokens and runs the account flows.
type Authenticator interface {
	Identity(token string) *models.Identity
	CurrentProfile(ctx context.Context, token string) *models.UserProfile
	SignIn(ctx context.Context, email, password string) (string, *models.Identity, error)
	SignUp(ctx context.Context, email, password string) (*models.Identity, error)
	RequestPasswordReset(ctx context.Context, email string) error
	SignOut(token string)
}

type Assistant interface {
	Configured() bool
	Analyze(ctx context.Context, title string, price float64, store string) ai.Analysis
}

type Options struct {
	AllowedOrigins []string
	// Configured is reported by /health; false means the data store is absent.
	Configured bool
}

type Server struct {
	deals     DealService
	moderator Moderator
	auth      Authenticator
	assistant Assistant
	opts      Options
}

func New(deals DealService, moderator Moderator, auth Authenticator, assistant Assistant, opts Options) *Server {
	return &Server{
		deals:     deals,
		moderator: moderator,
		auth:      auth,
		assistant: assistant,
		opts:      opts,
	}
}

// Handler returns the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(metricsMiddleware, s.sessionMiddleware)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/signin", s.signIn).Methods(http.MethodPost)
	a.HandleFunc("/signup", s.signUp).Methods(http.MethodPost)
	a.HandleFunc("/reset", s.resetPassword).Methods(http.MethodPost)
	a.HandleFunc("/signout", s.signOut).Methods(http.MethodPost)
	a.HandleFunc("/me", s.me).Methods(http.MethodGet)

	r.HandleFunc("/deals", s.listDeals).Methods(http.MethodGet)
	r.HandleFunc("/deals", s.createDeal).Methods(http.MethodPost)
	r.HandleFunc("/deals/{id}", s.getDeal).Methods(http.MethodGet)
	r.HandleFunc("/deals/{id}/vote", s.vote).Methods(http.MethodPost)
	r.HandleFunc("/deals/{id}/report", s.report).Methods(http.MethodPost)
	r.HandleFunc("/assistant/describe", s.describe).Methods(http.MethodPost)

	adm := r.PathPrefix("/admin").Subrouter()
	adm.HandleFunc("/dashboard", s.dashboard).Methods(http.MethodGet)
	adm.HandleFunc("/deals/pending", s.adminList(s.deals.ListPending)).Methods(http.MethodGet)
	adm.HandleFunc("/deals/reported", s.adminList(s.deals.ListReported)).Methods(http.MethodGet)
	adm.HandleFunc("/deals/all", s.adminList(s.deals.ListAll)).Methods(http.MethodGet)
	adm.HandleFunc("/deals/{id}/approve", s.dealAction(s.moderator.Approve)).Methods(http.MethodPost)
	adm.HandleFunc("/deals/{id}/reject", s.dealAction(s.moderator.Reject)).Methods(http.MethodPost)
	adm.HandleFunc("/deals/{id}/dismiss", s.dealAction(s.moderator.DismissReport)).Methods(http.MethodPost)
	adm.HandleFunc("/deals/{id}/ban-owner", s.dealAction(s.moderator.BanOwner)).Methods(http.MethodPost)
	adm.HandleFunc("/deals/{id}", s.editDeal).Methods(http.MethodPut)
	adm.HandleFunc("/deals/{id}", s.dealAction(s.moderator.Delete)).Methods(http.MethodDelete)
	adm.HandleFunc("/users", s.listUsers).Methods(http.MethodGet)
	adm.HandleFunc("/users/{id}/ban", s.toggleBan).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found", Code: "NOT_FOUND"})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
	})
	return c.Handler(requestIDMiddleware(r))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"configured": s.opts.Configured,
		"assistant":  s.assistant != nil && s.assistant.Configured(),
	})
}
