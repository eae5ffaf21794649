package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/deepsea-be/internal/auth"
	"github.com/hongminglow/deepsea-be/internal/http/respond"
	"github.com/hongminglow/deepsea-be/internal/models/dto"
	"github.com/hongminglow/deepsea-be/internal/service"
)

// DepartmentsHandler exposes department CRUD.
type DepartmentsHandler struct {
	svc  *service.Departments
	errs *respond.Responder
}

func NewDepartmentsHandler(svc *service.Departments, errs *respond.Responder) *DepartmentsHandler {
	return &DepartmentsHandler{svc: svc, errs: errs}
}

func (h *DepartmentsHandler) Register(r chi.Router) {
	r.Route("/departments", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *DepartmentsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	deps, err := h.svc.List(r.Context(), actor)
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.DataResponse{Data: deps})
}

func (h *DepartmentsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	dep, err := h.svc.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.DataResponse{Data: dep})
}

func (h *DepartmentsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req dto.DepartmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Error(w, r, err)
		return
	}
	dep, err := h.svc.Create(r.Context(), actor, req)
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, dto.DataResponse{Data: dep})
}

func (h *DepartmentsHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req dto.DepartmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Error(w, r, err)
		return
	}
	dep, err := h.svc.Update(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.DataResponse{Data: dep})
}

func (h *DepartmentsHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := h.svc.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "Department deleted"})
}

// JobTitlesHandler exposes job title CRUD.
type JobTitlesHandler struct {
	svc  *service.JobTitles
	errs *respond.Responder
}

func NewJobTitlesHandler(svc *service.JobTitles, errs *respond.Responder) *JobTitlesHandler {
	return &JobTitlesHandler{svc: svc, errs: errs}
}

func (h *JobTitlesHandler) Register(r chi.Router) {
	r.Route("/job-titles", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *JobTitlesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	titles, err := h.svc.List(r.Context(), actor)
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.DataResponse{Data: titles})
}

func (h *JobTitlesHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	jt, err := h.svc.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.DataResponse{Data: jt})
}

func (h *JobTitlesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req dto.JobTitleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Error(w, r, err)
		return
	}
	jt, err := h.svc.Create(r.Context(), actor, req)
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, dto.DataResponse{Data: jt})
}

func (h *JobTitlesHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req dto.JobTitleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Error(w, r, err)
		return
	}
	jt, err := h.svc.Update(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.DataResponse{Data: jt})
}

func (h *JobTitlesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := h.svc.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.errs.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "Job title deleted"})
}
