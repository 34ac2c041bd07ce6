package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/seiflawfirm/site/libs/auth"
	"github.com/seiflawfirm/site/libs/httpx"
	"github.com/seiflawfirm/site/services/site-service/internal/media"
	"github.com/seiflawfirm/site/services/site-service/internal/storage"
)

type BlogHandler struct {
	store  BlogStore
	covers CoverUploader
	logger *slog.Logger
}

// NewBlogHandler accepts a nil covers; uploads then answer 404.
func NewBlogHandler(store BlogStore, covers CoverUploader, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{store: store, covers: covers, logger: logger}
}

// List shows drafts only to signed-in admins.
func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	_, signedIn := auth.ClaimsFromContext(r.Context())
	f := storage.PostFilter{
		Category:      strings.TrimSpace(q.Get("category")),
		Slug:          strings.TrimSpace(q.Get("slug")),
		IncludeDrafts: signedIn,
		Limit:         atoiOr(q.Get("limit"), storage.DefaultPageSize),
		Page:          atoiOr(q.Get("page"), 1),
	}
	posts, total, err := h.store.List(r.Context(), f)
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to fetch blog posts")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"posts": posts,
		"total": total,
		"page":  f.Page,
		"limit": f.Limit,
	})
}

func atoiOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetPublishedBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, h.logger, err, "Blog post not found", "Failed to fetch blog post")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"post": p})
}

func (h *BlogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.Categories(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to fetch categories")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in storage.PostInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeBadJSON(w)
		return
	}
	var authorID string
	if c, ok := auth.ClaimsFromContext(r.Context()); ok {
		authorID = c.Subject
	}
	id, err := h.store.Create(r.Context(), in, authorID)
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to create blog post")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Blog post created successfully",
		"id":      id,
	})
}

func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in storage.PostInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeBadJSON(w)
		return
	}
	if err := h.store.Update(r.Context(), chi.URLParam(r, "slug"), in); err != nil {
		writeError(w, r, h.logger, err, "Blog post not found", "Failed to update blog post")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Blog post updated successfully"})
}

func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeError(w, r, h.logger, err, "Blog post not found", "Failed to delete blog post")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Blog post deleted successfully"})
}

// UploadCover takes a multipart "file" and, when "post" names a post, points
// that post at the uploaded image.
func (h *BlogHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	if h.covers == nil {
		httpx.WriteError(w, http.StatusNotFound, "Cover uploads are not configured")
		return
	}
	if err := r.ParseMultipartForm(media.MaxCoverBytes); err != nil {
		httpx.WriteFieldError(w, http.StatusBadRequest, "Invalid upload", "file")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteFieldError(w, http.StatusBadRequest, "Missing required fields", "file")
		return
	}
	defer file.Close()

	url, err := h.covers.Upload(r.Context(), header.Header.Get("Content-Type"), file, header.Size)
	if errors.Is(err, media.ErrUnsupportedType) {
		httpx.WriteFieldError(w, http.StatusBadRequest, "Unsupported image type", "file")
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err, "", "Failed to upload cover image")
		return
	}
	if post := strings.TrimSpace(r.FormValue("post")); post != "" {
		if err := h.store.SetCover(r.Context(), post, url); err != nil {
			writeError(w, r, h.logger, err, "Blog post not found", "Failed to update blog post")
			return
		}
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "url": url})
}
