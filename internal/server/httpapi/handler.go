package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/boostauth/internal/common"
	"github.com/dmitrijs2005/boostauth/internal/logging"
	"github.com/dmitrijs2005/boostauth/internal/server/services"
)

const maxBodyBytes = 1 << 20

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Name      *string   `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthHandler serves the /api/v1/auth endpoints.
type AuthHandler struct {
	service          AuthService
	log              logging.Logger
	maxPasswordBytes int
}

func NewAuthHandler(service AuthService, log logging.Logger) *AuthHandler {
	return &AuthHandler{service: service, log: log}
}

// Root reports that the service is up.
// GET /
func (h *AuthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"app": AppName, "status": "running"})
}

// Register creates a password account.
// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(h.maxPasswordBytes); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	token, err := h.service.Register(r.Context(), services.RegisterRequest{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: common.BearerScheme})
}

// Login exchanges email and password for a session token.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	token, err := h.service.LoginWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: common.BearerScheme})
}

// GoogleOAuth exchanges a Google ID token for a session token.
// POST /api/v1/auth/google-oauth
func (h *AuthHandler) GoogleOAuth(w http.ResponseWriter, r *http.Request) {
	var req googleOAuthRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	token, err := h.service.LoginWithIdentityAssertion(r.Context(), req.IDToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: common.BearerScheme})
}

// Me returns the account behind the bearer token.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeServiceError(w, common.ErrUnauthenticated)
		return
	}

	account, err := h.service.CurrentAccount(r.Context(), token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{
		ID:        account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Phone:     account.Phone,
		CreatedAt: account.CreatedAt,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "request body must be a JSON object")
		return false
	}
	return true
}

// bearerToken extracts the token of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get(common.AuthorizationHeaderName), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
