package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	retry "github.com/appleboy/go-httpretry"

	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/models"
)

var _ core.AssetCatalog = (*HTTPCatalog)(nil)

// HTTPCatalog resolves assets through the content application's HTTP API.
// It issues GET {baseURL}/assets/{id}.
type HTTPCatalog struct {
	baseURL     string
	retryClient *retry.Client
}

// NewHTTPCatalog creates a catalog backed by an external HTTP API
func NewHTTPCatalog(baseURL string, retryClient *retry.Client) *HTTPCatalog {
	return &HTTPCatalog{
		baseURL:     baseURL,
		retryClient: retryClient,
	}
}

// APIAssetResponse is the expected payload from the external API
type APIAssetResponse struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	StorageKey string `json:"storage_key"`
	Filename   string `json:"filename,omitempty"`
	IsFree     bool   `json:"is_free"`
	Message    string `json:"message,omitempty"`
}

func (c *HTTPCatalog) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	resp, err := c.retryClient.Get(ctx, c.baseURL+"/assets/"+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response", ErrInvalidResponse)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrAssetNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Limit body preview to 200 characters to avoid overwhelming logs
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		return nil, fmt.Errorf(
			"%w: HTTP %d - %s",
			ErrCatalogUnavailable,
			resp.StatusCode,
			bodyPreview,
		)
	}

	var apiResp APIAssetResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if apiResp.ID != id {
		return nil, fmt.Errorf(
			"%w: asked for asset %d, got %d",
			ErrInvalidResponse,
			id,
			apiResp.ID,
		)
	}
	if apiResp.StorageKey == "" {
		return nil, fmt.Errorf("%w: missing storage_key", ErrInvalidResponse)
	}

	return &models.Asset{
		ID:         apiResp.ID,
		Title:      apiResp.Title,
		StorageKey: apiResp.StorageKey,
		Filename:   apiResp.Filename,
		IsFree:     apiResp.IsFree,
	}, nil
}
