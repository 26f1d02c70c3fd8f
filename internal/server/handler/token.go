package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/openmint/marketd/internal/domain"
	"github.com/openmint/marketd/internal/server/ws"
	"github.com/openmint/marketd/internal/wallet"
)

// maxMediaBytes caps direct media uploads at 32 MiB.
const maxMediaBytes = 32 << 20

// multipartThreshold is the file size above which uploads go through the
// chunked multipart path.
const multipartThreshold = 8 << 20

// multipartWriter is implemented by blob writers that support chunked
// uploads for large payloads.
type multipartWriter interface {
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) (string, error)
}

// MintService defines the token operations the token handler requires from
// the service layer.
type MintService interface {
	Mint(ctx context.Context, provider wallet.Provider, metadataURI string) (domain.TransactionOutcome, error)
	UpdateTokenURI(ctx context.Context, provider wallet.Provider, expectedOwner, tokenID, newURI string) (domain.TransactionOutcome, error)
}

// TokenHandler serves minting and metadata endpoints.
type TokenHandler struct {
	mints    MintService
	blobs    domain.BlobWriter
	events   Events
	provider wallet.Provider
	logger   *slog.Logger
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(mints MintService, blobs domain.BlobWriter, events Events, provider wallet.Provider, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		mints:    mints,
		blobs:    blobs,
		events:   events,
		provider: provider,
		logger:   logger,
	}
}

// tokenMetadata is the ERC-721 metadata JSON published to object storage
// before minting.
type tokenMetadata struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Image       string            `json:"image,omitempty"`
	Attributes  []metadataAttr    `json:"attributes,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

type metadataAttr struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Mint publishes the token metadata JSON to object storage, then mints a
// token pointing at the stored metadata URI. The metadata upload happens
// first; a mint must never reference a URI that does not resolve yet.
// POST /api/tokens/mint
func (h *TokenHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var meta tokenMetadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if meta.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	data, err := json.Marshal(meta)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode metadata")
		return
	}

	path := fmt.Sprintf("metadata/%s.json", uuid.NewString())
	uri, err := h.blobs.Put(r.Context(), path, bytes.NewReader(data), "application/json")
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: metadata upload failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to publish metadata")
		return
	}

	outcome, err := h.mints.Mint(r.Context(), h.provider, uri)
	if err != nil {
		writeTxError(w, err, http.StatusBadRequest)
		return
	}

	h.events.Broadcast(ws.ChannelOutcomes, "token_minted", outcome)
	writeJSON(w, http.StatusCreated, struct {
		domain.TransactionOutcome
		MetadataURI string `json:"metadataUri"`
	}{outcome, uri})
}

// updateURIRequest is the JSON body for UpdateTokenURI.
type updateURIRequest struct {
	URI string `json:"uri"`
}

// UpdateTokenURI changes a token's metadata URI. The service rejects the
// call before spending gas when the configured wallet does not own the
// token.
// POST /api/tokens/{id}/uri
func (h *TokenHandler) UpdateTokenURI(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing token id")
		return
	}

	var req updateURIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.URI == "" {
		writeError(w, http.StatusBadRequest, "uri is required")
		return
	}

	outcome, err := h.mints.UpdateTokenURI(r.Context(), h.provider, h.provider.Address(), id, req.URI)
	if err != nil {
		writeTxError(w, err, http.StatusBadRequest)
		return
	}

	h.events.Broadcast(ws.ChannelOutcomes, "token_uri_updated", outcome)
	writeJSON(w, http.StatusOK, outcome)
}

// UploadMedia stores a media file in object storage and returns its URI,
// for use as the image field of later mints.
// POST /api/media
func (h *TokenHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMediaBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	path := fmt.Sprintf("media/%s-%s", uuid.NewString(), header.Filename)

	var uri string
	if mw, ok := h.blobs.(multipartWriter); ok && header.Size >= multipartThreshold {
		uri, err = mw.PutMultipart(r.Context(), path, file, contentType, multipartThreshold)
	} else {
		uri, err = h.blobs.Put(r.Context(), path, file, contentType)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: media upload failed",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to store media")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"uri": uri})
}
