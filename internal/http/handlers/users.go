package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/deepsea-be/internal/auth"
	"github.com/hongminglow/deepsea-be/internal/http/respond"
	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/models/dto"
	"github.com/hongminglow/deepsea-be/internal/service"
)

// UsersHandler exposes user CRUD.
type UsersHandler struct {
	svc  *service.Users
	errs *respond.Responder
}

func NewUsersHandler(svc *service.Users, errs *respond.Responder) *UsersHandler {
	return &UsersHandler{svc: svc, errs: errs}
}

// Register attaches user routes. The caller is expected to apply the auth guard.
func (h *UsersHandler) Register(r chi.Router) {
	r.Post("/create_users", h.handleCreate)
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *UsersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	users, total, filter, err := h.svc.List(r.Context(), actor, models.UserFilter{
		Search: q.Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.UserListResponse{
		Data: users,
		Meta: dto.PageMeta{Page: filter.Page, Limit: filter.Limit, Total: total},
	})
}

func (h *UsersHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	user, err := h.svc.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.UserResponse{User: user})
}

func (h *UsersHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req dto.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Error(w, r, err)
		return
	}
	user, err := h.svc.Create(r.Context(), actor, req)
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, dto.CreateUserResponse{Message: "User created successfully", User: user})
}

func (h *UsersHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req dto.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Error(w, r, err)
		return
	}
	user, err := h.svc.Update(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.UserResponse{User: user})
}

func (h *UsersHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := h.svc.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "User deleted"})
}
