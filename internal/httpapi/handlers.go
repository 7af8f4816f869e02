package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/pauljones0/maodevaca/internal/listing"
	"github.com/pauljones0/maodevaca/internal/models"
	"github.com/pauljones0/maodevaca/internal/moderation"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token    string              `json:"token"`
	Identity *models.Identity    `json:"identity"`
	Profile  *models.UserProfile `json:"profile,omitempty"`
}

// POST /auth/signin
func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	token, id, err := s.auth.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:    token,
		Identity: id,
		Profile:  s.auth.CurrentProfile(r.Context(), token),
	})
}

// POST /auth/signup
func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := s.auth.SignUp(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"identity": id,
		"message":  "Conta criada! Verifique seu e-mail para confirmar o cadastro.",
	})
}

// POST /auth/reset
func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.auth.RequestPasswordReset(r.Context(), body.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Se o e-mail estiver cadastrado, você receberá um link para redefinir a senha.",
	})
}

// POST /auth/signout
func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		s.auth.SignOut(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /auth/me
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	if id == nil {
		writeError(w, r, models.ErrNotAuthenticated)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Identity: id,
		Profile:  s.auth.CurrentProfile(r.Context(), bearerToken(r)),
	})
}

// GET /deals?q=&category=&payment=&sort=
func (s *Server) listDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := s.deals.ListApproved(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, listing.Apply(deals, listing.Filter{
		Search:   q.Get("q"),
		Category: q.Get("category"),
		Payment:  q.Get("payment"),
		Sort:     listing.ParseSort(q.Get("sort")),
	}))
}

// GET /deals/{id}
func (s *Server) getDeal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	deal, err := s.deals.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

// POST /deals
func (s *Server) createDeal(w http.ResponseWriter, r *http.Request) {
	var input models.NewDeal
	if err := decode(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	deal, err := s.deals.Create(r.Context(), caller(r), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, deal)
}

// POST /deals/{id}/vote
func (s *Server) vote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	temp, err := s.deals.Vote(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"temperature": temp,
		"isHot":       models.IsHotTemperature(temp),
	})
}

// POST /deals/{id}/report
func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deals.ReportExpired(r.Context(), caller(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Obrigado! A moderação vai revisar esta promoção.",
	})
}

// ErrMissingAssistantInput rejects assistant calls without title, price and store.
var ErrMissingAssistantInput = fmt.Errorf("%w: title, price and store are required", models.ErrInvalidInput)

type describeRequest struct {
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	StoreName string  `json:"storeName"`
}

// POST /assistant/describe
func (s *Server) describe(w http.ResponseWriter, r *http.Request) {
	var body describeRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	body.Title = strings.TrimSpace(body.Title)
	body.StoreName = strings.TrimSpace(body.StoreName)
	if body.Title == "" || body.StoreName == "" || body.Price <= 0 {
		writeError(w, r, ErrMissingAssistantInput)
		return
	}
	writeJSON(w, http.StatusOK, s.assistant.Analyze(r.Context(), body.Title, body.Price, body.StoreName))
}

// GET /admin/dashboard
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.moderator.Refresh(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) adminList(list func(context.Context, *models.Identity) ([]models.Deal, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deals, err := list(r.Context(), caller(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, deals)
	}
}

// GET /admin/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deals.ListUsers(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type dealActionFunc func(ctx context.Context, caller *models.Identity, id int64, confirmed bool) (*moderation.Dashboard, error)

// dealAction adapts a confirmed moderation action on /admin/deals/{id}.
func (s *Server) dealAction(action dealActionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var body confirmBody
		if err := decode(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		d, err := action(r.Context(), caller(r), id, confirmed(r, body.Confirm))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

type editRequest struct {
	models.Deal
	Confirm bool `json:"confirm"`
}

// PUT /admin/deals/{id}
func (s *Server) editDeal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body editRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	body.Deal.ID = id
	d, err := s.moderator.Edit(r.Context(), caller(r), body.Deal, confirmed(r, body.Confirm))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// POST /admin/users/{id}/ban
func (s *Server) toggleBan(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(mux.Vars(r)["id"])
	var body confirmBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.moderator.ToggleBan(r.Context(), caller(r), userID, confirmed(r, body.Confirm))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
