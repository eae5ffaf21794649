package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/deepsea-be/internal/apperr"
	"github.com/hongminglow/deepsea-be/internal/auth"
	"github.com/hongminglow/deepsea-be/internal/http/respond"
	"github.com/hongminglow/deepsea-be/internal/models/dto"
)

// AuthHandler owns the login, refresh, logout and me endpoints.
type AuthHandler struct {
	svc   *auth.Service
	errs  *respond.Responder
	guard func(http.Handler) http.Handler
}

// NewAuthHandler constructs the handler. guard protects logout and me.
func NewAuthHandler(svc *auth.Service, errs *respond.Responder, guard func(http.Handler) http.Handler) *AuthHandler {
	return &AuthHandler{svc: svc, errs: errs, guard: guard}
}

// Register attaches auth routes under /auth.
func (h *AuthHandler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
		r.Group(func(r chi.Router) {
			r.Use(h.guard)
			r.Post("/logout", h.handleLogout)
			r.Get("/me", h.handleMe)
		})
	})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Error(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	var problems []string
	if req.Username == "" {
		problems = append(problems, "Username is required")
	}
	if req.Password == "" {
		problems = append(problems, "Password is required")
	}
	if len(problems) > 0 {
		h.errs.Error(w, r, apperr.Invalid("Validation error", problems...))
		return
	}

	res, err := h.svc.Login(r.Context(), req.Username, req.Password, clientOf(r))
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, tokenResponse(res))
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Error(w, r, err)
		return
	}
	res, err := h.svc.Refresh(r.Context(), strings.TrimSpace(req.RefreshToken), clientOf(r))
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, tokenResponse(res))
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.TokenFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), token); err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "Logged out"})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.errs.Error(w, r, apperr.New(apperr.AuthRequired, "Authentication required"))
		return
	}
	respond.JSON(w, http.StatusOK, dto.MeResponse{
		ID:         actor.ID,
		Username:   actor.Username,
		Email:      actor.Email,
		FirstName:  actor.FirstName,
		LastName:   actor.LastName,
		Department: actor.Department,
		JobTitle:   actor.JobTitle,
		IsActive:   actor.IsActive,
	})
}

func tokenResponse(res auth.Result) dto.TokenResponse {
	return dto.TokenResponse{
		Token:        res.Token,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt.UTC(),
		User:         res.User,
	}
}

func clientOf(r *http.Request) auth.Client {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return auth.Client{IP: ip, UserAgent: r.UserAgent()}
}
