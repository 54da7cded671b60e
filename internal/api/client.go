// Package api is the HTTP client for the storefront backend (base path /api/v1).
//
// Every request reads the bearer token from its TokenSource at call time, so
// a token replaced or cleared mid-session is picked up by the next request.
// The client never retries; non-2xx responses are returned as *errs.APIError
// with the backend's error body verbatim.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/aviete/boutique/internal/errs"
	"github.com/aviete/boutique/internal/model"
)

// TokenSource supplies the current bearer token; empty means unauthenticated.
type TokenSource interface {
	Token() string
}

// Client talks to the storefront backend.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	log        *zap.Logger
}

// New creates a Client. baseURL must include the /api/v1 prefix.
func New(baseURL string, tokens TokenSource, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// do sends the request with the current token attached and decodes a JSON
// response into out (when out is non-nil). A non-2xx status yields
// *errs.APIError carrying the response body.
func (c *Client) do(req *http.Request, out any) error {
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	c.log.Debug("request", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("request failed",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
		)
		return &errs.APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/login", creds, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// UserDetails returns the account behind the current token.
func (c *Client) UserDetails(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.getJSON(ctx, "/user/details", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ConstructionInfo fetches the reference data (types, colors, sizes).
func (c *Client) ConstructionInfo(ctx context.Context) (*model.ConstructionInfo, error) {
	var info model.ConstructionInfo
	if err := c.getJSON(ctx, "/storage/products/information", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// FilterProducts runs one filtered, paginated listing query. Identifier sets
// are comma-joined; absent criteria are omitted from the query entirely.
func (c *Client) FilterProducts(ctx context.Context, crit model.FilterCriteria, page, pageSize int) (*model.Page[model.ProductSummary], error) {
	q := url.Values{}
	if crit.Name != "" {
		q.Set("name", crit.Name)
	}
	if crit.TypeID != 0 {
		q.Set("typeId", strconv.FormatInt(crit.TypeID, 10))
	}
	if len(crit.SizeIDs) > 0 {
		q.Set("sizeIds", joinIDs(crit.SizeIDs))
	}
	if len(crit.ColorIDs) > 0 {
		q.Set("colorIds", joinIDs(crit.ColorIDs))
	}
	if crit.MinPrice != nil {
		q.Set("minPrice", strconv.FormatFloat(*crit.MinPrice, 'f', -1, 64))
	}
	if crit.MaxPrice != nil {
		q.Set("maxPrice", strconv.FormatFloat(*crit.MaxPrice, 'f', -1, 64))
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var p model.Page[model.ProductSummary]
	if err := c.getJSON(ctx, "/storage/products/filter", q, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Product fetches one product's detail view.
func (c *Client) Product(ctx context.Context, id int64) (*model.ProductDetail, error) {
	var p model.ProductDetail
	if err := c.getJSON(ctx, "/storage/products/"+strconv.FormatInt(id, 10), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct removes a product. Irreversible.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, "/storage/products/"+strconv.FormatInt(id, 10), nil, nil)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// createImagePart mirrors multipart.Writer.CreateFormFile but sniffs the
// part's content type from the payload instead of claiming octet-stream.
func createImagePart(w *multipart.Writer, field string, up Upload) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(up.Filename)))
	h.Set("Content-Type", mimetype.Detect(up.Data).String())
	return w.CreatePart(h)
}
