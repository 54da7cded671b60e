package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aviete/boutique/internal/model"
)

const (
	typesPath  = "/storage/products/types"
	sizesPath  = "/storage/products/sizes"
	colorsPath = "/storage/products/colors"
)

func (c *Client) postQuery(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// CreateType registers a new product type and returns it with its assigned id.
func (c *Client) CreateType(ctx context.Context, name string) (model.TypeRef, error) {
	var t model.TypeRef
	err := c.postQuery(ctx, typesPath, url.Values{"name": {name}}, &t)
	return t, err
}

// CreateSize registers a new product size and returns it with its assigned id.
func (c *Client) CreateSize(ctx context.Context, name string) (model.SizeRef, error) {
	var s model.SizeRef
	err := c.postQuery(ctx, sizesPath, url.Values{"name": {name}}, &s)
	return s, err
}

// CreateColor registers a new product color. hex must be "#RRGGBB".
func (c *Client) CreateColor(ctx context.Context, name, hex string) (model.ColorRef, error) {
	var col model.ColorRef
	err := c.postQuery(ctx, colorsPath, url.Values{"name": {name}, "hex": {hex}}, &col)
	return col, err
}

// DeleteType removes an unused product type by sending the entity itself.
func (c *Client) DeleteType(ctx context.Context, t model.TypeRef) error {
	return c.sendJSON(ctx, http.MethodDelete, typesPath, t, nil)
}

// DeleteSize removes an unused product size.
func (c *Client) DeleteSize(ctx context.Context, s model.SizeRef) error {
	return c.sendJSON(ctx, http.MethodDelete, sizesPath, s, nil)
}

// DeleteColor removes an unused product color.
func (c *Client) DeleteColor(ctx context.Context, col model.ColorRef) error {
	return c.sendJSON(ctx, http.MethodDelete, colorsPath, col, nil)
}

func (c *Client) deleteReplacing(ctx context.Context, path, deleteName, replaceName string) error {
	q := url.Values{"delete": {deleteName}, "replace": {replaceName}}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, nil)
}

// DeleteTypeReplacing removes a type still referenced by products, migrating
// references to the replacement. The backend performs the migration.
func (c *Client) DeleteTypeReplacing(ctx context.Context, deleteName, replaceName string) error {
	return c.deleteReplacing(ctx, typesPath, deleteName, replaceName)
}

// DeleteSizeReplacing removes a size in use by variants, migrating references.
func (c *Client) DeleteSizeReplacing(ctx context.Context, deleteName, replaceName string) error {
	return c.deleteReplacing(ctx, sizesPath, deleteName, replaceName)
}

// DeleteColorReplacing removes a color in use by variants, migrating references.
func (c *Client) DeleteColorReplacing(ctx context.Context, deleteName, replaceName string) error {
	return c.deleteReplacing(ctx, colorsPath, deleteName, replaceName)
}
