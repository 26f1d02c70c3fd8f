// Package backend is the REST client for the marketplace backend API,
// which owns off-chain product, collection, profile, and activity records.
// It is consumed for metadata only; on-chain state never comes from here.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/openmint/marketd/internal/domain"
)

// Client talks JSON-over-HTTPS to the marketplace backend with a bearer
// token resolved from the session store. A 401 from any endpoint
// invalidates the stored session immediately.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   domain.SessionStore
}

// NewClient creates a backend API client rooted at baseURL.
func NewClient(baseURL string, sessions domain.SessionStore) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		sessions: sessions,
	}
}

// GetProducts returns a paginated product listing.
func (c *Client) GetProducts(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	body, err := c.do(ctx, http.MethodGet, "/products?"+params.Encode(), nil, "")
	if err != nil {
		return nil, fmt.Errorf("backend: get products: %w", err)
	}

	var apiProducts []APIProduct
	if err := json.Unmarshal(body, &apiProducts); err != nil {
		return nil, fmt.Errorf("backend: decode products: %w", err)
	}

	products := make([]domain.Product, 0, len(apiProducts))
	for i := range apiProducts {
		products = append(products, apiProducts[i].ToDomain())
	}
	return products, nil
}

// GetProduct returns a single product by id.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	body, err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, "")
	if err != nil {
		return domain.Product{}, fmt.Errorf("backend: get product %s: %w", id, err)
	}

	var p APIProduct
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.Product{}, fmt.Errorf("backend: decode product: %w", err)
	}
	return p.ToDomain(), nil
}

// CreateProduct registers the off-chain record for a newly minted token.
func (c *Client) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	payload, err := json.Marshal(FromDomainProduct(p))
	if err != nil {
		return domain.Product{}, fmt.Errorf("backend: encode product: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/products", bytes.NewReader(payload), "application/json")
	if err != nil {
		return domain.Product{}, fmt.Errorf("backend: create product: %w", err)
	}

	var created APIProduct
	if err := json.Unmarshal(body, &created); err != nil {
		return domain.Product{}, fmt.Errorf("backend: decode created product: %w", err)
	}
	return created.ToDomain(), nil
}

// GetCollections returns all collections.
func (c *Client) GetCollections(ctx context.Context) ([]domain.Collection, error) {
	body, err := c.do(ctx, http.MethodGet, "/collections", nil, "")
	if err != nil {
		return nil, fmt.Errorf("backend: get collections: %w", err)
	}

	var apiCols []APICollection
	if err := json.Unmarshal(body, &apiCols); err != nil {
		return nil, fmt.Errorf("backend: decode collections: %w", err)
	}

	cols := make([]domain.Collection, 0, len(apiCols))
	for i := range apiCols {
		cols = append(cols, apiCols[i].ToDomain())
	}
	return cols, nil
}

// GetProfile returns the profile for a wallet address.
func (c *Client) GetProfile(ctx context.Context, address string) (domain.Profile, error) {
	body, err := c.do(ctx, http.MethodGet, "/profiles/"+url.PathEscape(address), nil, "")
	if err != nil {
		return domain.Profile{}, fmt.Errorf("backend: get profile %s: %w", address, err)
	}

	var p APIProfile
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.Profile{}, fmt.Errorf("backend: decode profile: %w", err)
	}
	return p.ToDomain(), nil
}

// GetActivity returns a profile's marketplace history feed.
func (c *Client) GetActivity(ctx context.Context, address string, limit int) ([]domain.ActivityItem, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.do(ctx, http.MethodGet, "/profiles/"+url.PathEscape(address)+"/activity?"+params.Encode(), nil, "")
	if err != nil {
		return nil, fmt.Errorf("backend: get activity %s: %w", address, err)
	}

	var items []APIActivityItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("backend: decode activity: %w", err)
	}

	out := make([]domain.ActivityItem, 0, len(items))
	for i := range items {
		out = append(out, items[i].ToDomain())
	}
	return out, nil
}

// UploadImage pushes an image to the backend's media endpoint and returns
// the hosted URL.
func (c *Client) UploadImage(ctx context.Context, filename string, data io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("backend: build upload form: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", fmt.Errorf("backend: copy upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("backend: close upload form: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/media", &buf, mw.FormDataContentType())
	if err != nil {
		return "", fmt.Errorf("backend: upload image: %w", err)
	}

	var resp struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("backend: decode upload response: %w", err)
	}
	return resp.URL, nil
}

// do issues one authenticated request and returns the response body. On
// 401 it clears the stored session before reporting the failure.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if c.sessions != nil {
		if sess, err := c.sessions.Load(ctx); err == nil && sess.Token != "" {
			req.Header.Set("Authorization", "Bearer "+sess.Token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.sessions != nil {
			_ = c.sessions.Clear(ctx)
		}
		return nil, domain.ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data, 200))
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
