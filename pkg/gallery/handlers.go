package gallery

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antibyte/calcvault/pkg/auth"
	"github.com/antibyte/calcvault/pkg/logger"
	"github.com/antibyte/calcvault/pkg/shared"
	"github.com/antibyte/calcvault/pkg/store"
)

const imagePath = "/api/gallery/image"

// ImageView is the JSON form of an image. URL points at the content.
type ImageView struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	MIME      string    `json:"mime"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewImageView converts stored metadata.
func NewImageView(img *store.Image) ImageView {
	return ImageView{
		ID:        img.ID,
		URL:       imagePath + "?id=" + url.QueryEscape(img.ID),
		Width:     img.Width,
		Height:    img.Height,
		MIME:      img.MIME,
		Size:      img.Size,
		CreatedAt: img.CreatedAt,
	}
}

// Handlers exposes the gallery over HTTP.
type Handlers struct {
	svc *Service
}

// NewHandlers returns the gallery endpoints.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// Register mounts the gallery routes on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/gallery", auth.RequireToken(h.HandleCollection))
	mux.HandleFunc(imagePath, auth.RequireToken(h.HandleImage))
}

// HandleCollection lists (GET) or uploads (POST) images.
func (h *Handlers) HandleCollection(w http.ResponseWriter, r *http.Request) {
	shared.SetCORSHeaders(w, "GET, POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		images, err := h.svc.List(r.Context(), identity.UserID)
		if err != nil {
			respondWithGalleryError(w, err)
			return
		}
		views := make([]ImageView, 0, len(images))
		for i := range images {
			views = append(views, NewImageView(&images[i]))
		}
		shared.RespondWithData(w, http.StatusOK, "", views)

	case http.MethodPost:
		content, err := readUpload(w, r)
		if err != nil {
			logger.GalleryWarn("Upload from %s rejected: %v", identity.UserID, err)
			respondWithGalleryError(w, err)
			return
		}
		img, err := h.svc.Upload(r.Context(), identity.UserID, content)
		if err != nil {
			respondWithGalleryError(w, err)
			return
		}
		shared.RespondWithData(w, http.StatusCreated, "Image stored", NewImageView(img))

	default:
		shared.RespondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleImage serves (GET) or deletes (DELETE) one image.
func (h *Handlers) HandleImage(w http.ResponseWriter, r *http.Request) {
	shared.SetCORSHeaders(w, "GET, DELETE")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())

	id := r.URL.Query().Get("id")
	if id == "" {
		shared.RespondWithError(w, "Missing image id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		img, content, err := h.svc.Open(r.Context(), identity.UserID, id)
		if err != nil {
			respondWithGalleryError(w, err)
			return
		}
		w.Header().Set("Content-Type", img.MIME)
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Header().Set("Cache-Control", "private, no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(content)

	case http.MethodDelete:
		if err := h.svc.Delete(r.Context(), identity.UserID, id); err != nil {
			respondWithGalleryError(w, err)
			return
		}
		shared.RespondWithData(w, http.StatusOK, "Image deleted", nil)

	default:
		shared.RespondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// readUpload accepts a multipart form with an "image" field or a raw body.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := MaxImageSize()
	// Multipart framing needs some room on top of the image itself.
	r.Body = http.MaxBytesReader(w, r.Body, limit+64*1024)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(limit); err != nil {
			return nil, mapReadError(err)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, ErrEmpty
		}
		defer file.Close()
		src = file
	}

	content, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, mapReadError(err)
	}
	if int64(len(content)) > limit {
		return nil, ErrTooLarge
	}
	return content, nil
}

func mapReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrTooLarge
	}
	return err
}

func respondWithGalleryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		shared.RespondWithError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNotAnImage):
		shared.RespondWithError(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, ErrTooLarge):
		shared.RespondWithError(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, ErrEmpty):
		shared.RespondWithError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrQuotaExceeded):
		shared.RespondWithError(w, err.Error(), http.StatusForbidden)
	default:
		logger.GalleryError("Gallery request failed: %v", err)
		shared.RespondWithError(w, "Internal server error", http.StatusInternalServerError)
	}
}
