package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/edgehill-data/gapush/iox"
	"github.com/edgehill-data/gapush/log"
)

// DefaultTimeout is the per-request HTTP timeout for import operations.
// Uploads can carry a large CSV body, so it is generous.
const DefaultTimeout = 2 * time.Minute

// ImportConfig configures the data-import client.
type ImportConfig struct {
	// AccountID, PropertyID and DatasetID address the custom data source
	// (all required).
	AccountID  string
	PropertyID string
	DatasetID  string

	// UploadBaseURL is the media-upload host. APIBaseURL is the management
	// host used for list and delete. Both required; they differ on the real
	// platform and in tests.
	UploadBaseURL string
	APIBaseURL    string

	// AccessToken is the bearer token for all requests (required).
	AccessToken string

	// Timeout is the per-request timeout (default 2m).
	Timeout time.Duration
}

func (c ImportConfig) validate() error {
	switch {
	case c.AccountID == "":
		return errors.New("import requires an account id")
	case c.PropertyID == "":
		return errors.New("import requires a property id")
	case c.DatasetID == "":
		return errors.New("import requires a dataset id")
	case c.UploadBaseURL == "":
		return errors.New("import requires an upload base URL")
	case c.APIBaseURL == "":
		return errors.New("import requires an API base URL")
	case c.AccessToken == "":
		return errors.New("import requires an access token")
	}
	return nil
}

// Upload describes one stored import on the platform side.
type Upload struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	UploadTime string `json:"uploadTime"`
}

type uploadList struct {
	Items []Upload `json:"items"`
}

// ImportClient talks to the platform's data-import management resource.
type ImportClient struct {
	config ImportConfig
	client *http.Client
	logger *log.Logger
}

// NewImportClient creates a client from the given config.
func NewImportClient(cfg ImportConfig, logger *log.Logger) (*ImportClient, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ImportClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

func (c *ImportClient) uploadsPath(base string) string {
	return fmt.Sprintf("%s/management/accounts/%s/webproperties/%s/customDataSources/%s/uploads",
		base, c.config.AccountID, c.config.PropertyID, c.config.DatasetID)
}

// UploadCSV pushes one CSV document as a new import. Returns the stored
// upload's identity.
func (c *ImportClient) UploadCSV(ctx context.Context, doc []byte) (*Upload, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "import.csv")
	if err != nil {
		return nil, fmt.Errorf("import: multipart: %w", err)
	}
	if _, err := fw.Write(doc); err != nil {
		return nil, fmt.Errorf("import: multipart write: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("import: multipart close: %w", err)
	}

	url := c.uploadsPath(c.config.UploadBaseURL) + "?uploadType=media"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("import: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	var upload Upload
	if err := c.do(req, &upload); err != nil {
		return nil, fmt.Errorf("import: upload: %w", err)
	}

	c.logger.Info("uploaded import file", map[string]any{
		"upload_id": upload.ID,
		"bytes":     len(doc),
	})

	return &upload, nil
}

// ListUploads returns all stored imports for the data source.
func (c *ImportClient) ListUploads(ctx context.Context) ([]Upload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uploadsPath(c.config.APIBaseURL), nil)
	if err != nil {
		return nil, fmt.Errorf("import: create request: %w", err)
	}
	c.authorize(req)

	var list uploadList
	if err := c.do(req, &list); err != nil {
		return nil, fmt.Errorf("import: list uploads: %w", err)
	}

	return list.Items, nil
}

// DeletePrevious removes every stored upload except the one just created, so
// the data source only serves the current run's rows. Returns the number of
// uploads deleted.
func (c *ImportClient) DeletePrevious(ctx context.Context, keep string) (int, error) {
	uploads, err := c.ListUploads(ctx)
	if err != nil {
		return 0, err
	}

	var stale []string
	for _, u := range uploads {
		if u.ID != keep {
			stale = append(stale, u.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	payload, err := json.Marshal(map[string][]string{"customDataImportUids": stale})
	if err != nil {
		return 0, fmt.Errorf("import: marshal delete: %w", err)
	}

	url := c.uploadsPath(c.config.APIBaseURL) + "/deleteUploadData"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("import: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	if err := c.do(req, nil); err != nil {
		return 0, fmt.Errorf("import: delete uploads: %w", err)
	}

	c.logger.Info("deleted previous uploads", map[string]any{
		"count": len(stale),
	})

	return len(stale), nil
}

func (c *ImportClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
}

// do executes the request and decodes a JSON body into out when non-nil.
// Any non-2xx status is an error; the import surface has no best-effort tier.
func (c *ImportClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
