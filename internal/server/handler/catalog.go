package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/openmint/marketd/internal/domain"
)

// CatalogBackend defines the catalog API operations proxied to the backend
// service.
type CatalogBackend interface {
	GetProducts(ctx context.Context, limit, offset int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	GetCollections(ctx context.Context) ([]domain.Collection, error)
	GetProfile(ctx context.Context, address string) (domain.Profile, error)
	GetActivity(ctx context.Context, address string, limit int) ([]domain.ActivityItem, error)
	UploadImage(ctx context.Context, filename string, data io.Reader) (string, error)
}

// CatalogHandler proxies catalog reads and writes to the backend service so
// the mobile client talks to a single origin.
type CatalogHandler struct {
	backend CatalogBackend
	logger  *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(backend CatalogBackend, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{backend: backend, logger: logger}
}

// ListProducts returns the product catalog.
// GET /api/products?limit=50&offset=0
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 500)
	offset := parseOffset(r)

	products, err := h.backend.GetProducts(r.Context(), limit, offset)
	if err != nil {
		h.writeBackendError(w, r, "list products", err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// CreateProduct registers a minted token in the catalog.
// POST /api/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	created, err := h.backend.CreateProduct(r.Context(), p)
	if err != nil {
		h.writeBackendError(w, r, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetProduct returns one product by id.
// GET /api/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.backend.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.writeBackendError(w, r, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// ListCollections returns all collections.
// GET /api/collections
func (h *CatalogHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.backend.GetCollections(r.Context())
	if err != nil {
		h.writeBackendError(w, r, "list collections", err)
		return
	}
	if collections == nil {
		collections = []domain.Collection{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": collections})
}

// GetProfile returns the profile for a wallet address.
// GET /api/profiles/{address}
func (h *CatalogHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing address")
		return
	}

	profile, err := h.backend.GetProfile(r.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.writeBackendError(w, r, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// GetActivity returns recent marketplace activity for a wallet address.
// GET /api/profiles/{address}/activity?limit=50
func (h *CatalogHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing address")
		return
	}

	items, err := h.backend.GetActivity(r.Context(), address, parseLimit(r, 50, 200))
	if err != nil {
		h.writeBackendError(w, r, "get activity", err)
		return
	}
	if items == nil {
		items = []domain.ActivityItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": items})
}

// UploadImage forwards a product image to the backend's media store and
// returns the hosted URL. Distinct from /api/media, which publishes on-chain
// assets to object storage.
// POST /api/products/images
func (h *CatalogHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	url, err := h.backend.UploadImage(r.Context(), header.Filename, file)
	if err != nil {
		h.writeBackendError(w, r, "upload image", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// writeBackendError maps backend failures to HTTP responses. An expired
// session surfaces as 401 so the client knows to re-authenticate.
func (h *CatalogHandler) writeBackendError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, domain.ErrSessionExpired) {
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	h.logger.ErrorContext(r.Context(), "handler: backend call failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusBadGateway, "backend unavailable")
}
