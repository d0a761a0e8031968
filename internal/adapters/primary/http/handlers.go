package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jupiterclapton/bestfit/internal/core/domain"
	"github.com/jupiterclapton/bestfit/internal/core/ports"
)

// Handler expose le PostStore et le ProfileService en JSON.
// C'est l'équivalent serveur des écrans Feed / CriarPost / Perfil.
type Handler struct {
	posts    ports.PostStore
	profiles ports.ProfileService
}

func NewHandler(posts ports.PostStore, profiles ports.ProfileService) *Handler {
	return &Handler{posts: posts, profiles: profiles}
}

// Register branche les routes sur le mux (patterns méthode+chemin Go 1.22).
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/feed", h.feed)
	mux.HandleFunc("POST /api/posts", h.createPost)
	mux.HandleFunc("POST /api/posts/{id}/like", h.toggleLike)
	mux.HandleFunc("DELETE /api/posts/{id}", h.deletePost)
	mux.HandleFunc("DELETE /api/posts", h.clearPosts)

	mux.HandleFunc("GET /api/me/posts", h.myPosts)
	mux.HandleFunc("GET /api/me/profile", h.myProfile)
	mux.HandleFunc("PUT /api/me/photo", h.updatePhoto)
	mux.HandleFunc("DELETE /api/me", h.deleteAccount)
}

// --- DTO DE SORTIE ---
// like_count est recalculé à chaque réponse, jamais lu d'un champ stocké.
type postView struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	AuthorName    string    `json:"author_name"`
	AuthorPhoto   string    `json:"author_photo"`
	MediaRef      string    `json:"media_ref"`
	Caption       string    `json:"caption"`
	LocationLabel string    `json:"location_label"`
	LikedBy       []string  `json:"liked_by"`
	LikeCount     int       `json:"like_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func toView(p *domain.Post) postView {
	return postView{
		ID:            p.ID,
		AuthorID:      p.AuthorID,
		AuthorName:    p.AuthorName,
		AuthorPhoto:   p.AuthorPhoto,
		MediaRef:      p.MediaRef,
		Caption:       p.Caption,
		LocationLabel: p.LocationLabel,
		LikedBy:       p.LikedBy,
		LikeCount:     p.LikeCount(),
		CreatedAt:     p.CreatedAt,
	}
}

func toViews(posts []*domain.Post) []postView {
	views := make([]postView, len(posts))
	for i, p := range posts {
		views[i] = toView(p)
	}
	return views
}

// --- ROUTES POSTS ---

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.Feed(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toViews(posts))
}

type createPostRequest struct {
	MediaRef      string `json:"media_ref"`
	Caption       string `json:"caption"`
	LocationLabel string `json:"location_label"`
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	user := ForContext(r.Context())
	if user == nil {
		writeError(w, domain.ErrNotAuthenticated)
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation)
		return
	}

	post, err := h.posts.CreatePost(r.Context(), ports.CreatePostCmd{
		Author:        *user,
		MediaRef:      req.MediaRef,
		Caption:       req.Caption,
		LocationLabel: req.LocationLabel,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toView(post))
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	user := ForContext(r.Context())
	if user == nil {
		writeError(w, domain.ErrNotAuthenticated)
		return
	}

	post, err := h.posts.ToggleLike(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(post))
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	user := ForContext(r.Context())
	if user == nil {
		writeError(w, domain.ErrNotAuthenticated)
		return
	}

	if err := h.posts.DeletePost(r.Context(), r.PathValue("id"), user.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearPosts(w http.ResponseWriter, r *http.Request) {
	if user := ForContext(r.Context()); user == nil {
		writeError(w, domain.ErrNotAuthenticated)
		return
	}

	if err := h.posts.ClearAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type profileView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	PhotoRef string `json:"photo_ref"`
}

// --- ROUTES PROFIL ---

func (h *Handler) myPosts(w http.ResponseWriter, r *http.Request) {
	user := ForContext(r.Context())
	if user == nil {
		writeError(w, domain.ErrNotAuthenticated)
		return
	}

	posts, err := h.posts.PostsByAuthor(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toViews(posts))
}

func (h *Handler) myProfile(w http.ResponseWriter, r *http.Request) {
	user := ForContext(r.Context())
	if user == nil {
		writeError(w, domain.ErrNotAuthenticated)
		return
	}

	profile, err := h.profiles.Profile(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileView{
		ID:       profile.ID,
		Name:     profile.Name,
		Email:    profile.Email,
		Phone:    profile.Phone,
		PhotoRef: profile.PhotoRef,
	})
}

type updatePhotoRequest struct {
	PhotoRef string `json:"photo_ref"`
}

func (h *Handler) updatePhoto(w http.ResponseWriter, r *http.Request) {
	user := ForContext(r.Context())
	if user == nil {
		writeError(w, domain.ErrNotAuthenticated)
		return
	}

	var req updatePhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation)
		return
	}

	if err := h.profiles.UpdatePhoto(r.Context(), user.ID, req.PhotoRef); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	user := ForContext(r.Context())
	if user == nil {
		writeError(w, domain.ErrNotAuthenticated)
		return
	}

	if err := h.profiles.DeleteAccount(r.Context(), user.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- HELPERS ---

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

// writeError mappe les sentinelles du domaine vers les codes HTTP.
// Tout le reste est un 500 opaque : le détail part dans les logs, pas
// vers le client.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrPostNotFound), errors.Is(err, domain.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrCollaboratorUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		slog.Error("unhandled error", "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
