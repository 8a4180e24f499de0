package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/msomdec/userdesk/internal/domain"
	"github.com/msomdec/userdesk/internal/service"
)

// multipartOverhead is allowed on top of the photo limit for boundaries,
// part headers and other form fields.
const multipartOverhead = 1 << 20

// UserHandler serves the admin user endpoints and photo uploads.
type UserHandler struct {
	users     *service.UserService
	maxUpload int64
}

// NewUserHandler creates a new UserHandler. maxUpload is the photo size
// limit in bytes and bounds the size of upload request bodies.
func NewUserHandler(users *service.UserService, maxUpload int64) *UserHandler {
	return &UserHandler{users: users, maxUpload: maxUpload}
}

// list writes the result prepared by AdvancedResults.
// GET /api/v1/auth/users
func (h *UserHandler) list(w http.ResponseWriter, r *http.Request) (*result, error) {
	res := AdvancedResultsFromContext(r.Context())
	if res == nil {
		return nil, errors.New("advanced results missing from context")
	}
	return &result{Status: http.StatusOK, Body: res}, nil
}

// get returns one user. An unknown id yields "data": null.
// GET /api/v1/auth/users/{id}
func (h *UserHandler) get(w http.ResponseWriter, r *http.Request) (*result, error) {
	user, err := h.users.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrNotFound) {
		return ok(nil), nil
	}
	if err != nil {
		return nil, err
	}
	return ok(toUserDTO(user)), nil
}

// create creates a user.
// POST /api/v1/auth/users
// Request:  {"name":"...","email":"...","role":"...","password":"..."}
func (h *UserHandler) create(w http.ResponseWriter, r *http.Request) (*result, error) {
	var in service.CreateUserInput
	if err := readJSON(r, &in); err != nil {
		return nil, err
	}

	user, err := h.users.Create(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return created(toUserDTO(user)), nil
}

// update applies a partial update. An unknown id yields "data": null.
// PUT /api/v1/auth/users/{id}
func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) (*result, error) {
	var in service.UpdateUserInput
	if err := readJSON(r, &in); err != nil {
		return nil, err
	}

	user, err := h.users.Update(r.Context(), r.PathValue("id"), in)
	if errors.Is(err, domain.ErrNotFound) {
		return ok(nil), nil
	}
	if err != nil {
		return nil, err
	}
	return ok(toUserDTO(user)), nil
}

// remove removes a user. Deleting an unknown id still succeeds.
// DELETE /api/v1/auth/users/{id}
func (h *UserHandler) remove(w http.ResponseWriter, r *http.Request) (*result, error) {
	if err := h.users.Delete(r.Context(), r.PathValue("id")); err != nil {
		return nil, err
	}
	return ok(struct{}{}), nil
}

// uploadPhoto stores the multipart "file" part as the user's photo.
// PUT /api/v1/users/{id}/photo
// Response: {"success":true,"data":"photo_<id>.<ext>"}
func (h *UserHandler) uploadPhoto(w http.ResponseWriter, r *http.Request) (*result, error) {
	id := r.PathValue("id")
	limit := h.maxUpload + multipartOverhead
	if r.ContentLength > limit {
		return nil, h.users.RejectOversize(r.Context(), id)
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	fh, err := formFile(r, "file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, h.users.RejectOversize(r.Context(), id)
		}
		return nil, fmt.Errorf("read photo upload: %w", err)
	}

	var up *domain.Upload
	if fh != nil {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()

		up = &domain.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		}
	}

	name, err := h.users.UploadPhoto(r.Context(), id, up)
	if err != nil {
		return nil, err
	}
	return ok(name), nil
}

// formFile returns the named file part, or nil when the request is not a
// multipart form or has no such part.
func formFile(r *http.Request, field string) (*multipart.FileHeader, error) {
	err := r.ParseMultipartForm(32 << 20)
	if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	return files[0], nil
}
