package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/pauljones0/maodevaca/internal/auth"
	"github.com/pauljones0/maodevaca/internal/models"
	"github.com/pauljones0/maodevaca/internal/util"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps a domain error to its HTTP status, code and user text.
// Unrecognized errors come from a backing service and are reported as 502.
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, models.ErrUserBanned):
		return http.StatusForbidden, "USER_BANNED", "Sua conta está suspensa. Você não pode publicar, votar ou reportar promoções."
	case errors.Is(err, models.ErrAlreadyVoted):
		return http.StatusConflict, "ALREADY_VOTED", "Você já votou nesta promoção."
	case errors.Is(err, models.ErrNotAuthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED", "Faça login para continuar."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "E-mail ou senha inválidos."
	case errors.Is(err, models.ErrForbidden), errors.Is(err, models.ErrCannotBanAdmin):
		return http.StatusForbidden, "FORBIDDEN", err.Error()
	case errors.Is(err, models.ErrDealNotFound), errors.Is(err, models.ErrProfileNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, "INVALID", err.Error()
	case errors.Is(err, auth.ErrEmailExists):
		return http.StatusConflict, "EMAIL_EXISTS", "Este e-mail já está cadastrado."
	case errors.Is(err, models.ErrNotConfirmed):
		return http.StatusPreconditionRequired, "NOT_CONFIRMED", err.Error()
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION", err.Error()
	case errors.Is(err, models.ErrUnconfigured):
		return http.StatusServiceUnavailable, "UNCONFIGURED", "Serviço indisponível: backend não configurado."
	}
	return http.StatusBadGateway, "UPSTREAM", "Falha ao falar com o servidor. Tente novamente."
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		loggerFrom(r.Context()).Error("Request failed", "path", r.URL.Path, "code", code, "error", err)
	} else {
		loggerFrom(r.Context()).Info("Request rejected", "path", r.URL.Path, "code", code, "error", err)
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", models.ErrInvalidInput, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := util.ParseDealID(mux.Vars(r)["id"])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	return id, nil
}

type confirmBody struct {
	Confirm bool `json:"confirm"`
}

// confirmed reads the confirmation flag from the query or a decoded body.
func confirmed(r *http.Request, body bool) bool {
	if body {
		return true
	}
	v := strings.ToLower(r.URL.Query().Get("confirm"))
	return v == "true" || v == "1" || v == "yes"
}
