package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"

	"github.com/aviete/boutique/internal/model"
)

// SupportedImageTypes are the MIME types accepted for product image uploads.
var SupportedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// SupportedImage reports whether the sniffed content type is an accepted
// image format. The filename extension is not consulted.
func SupportedImage(data []byte) bool {
	mt := mimetype.Detect(data)
	for _, t := range SupportedImageTypes {
		if mt.Is(t) {
			return true
		}
	}
	return false
}

// Upload is one image file selected for submission. ColorID binds the image
// to a color; nil leaves it unbound.
type Upload struct {
	Filename string
	Data     []byte
	ColorID  *int64
}

// ProductForm is the multipart payload for creating a product.
type ProductForm struct {
	Name        string
	TypeID      int64
	Description string
	Price       float64
	Variants    []variantField
	Attributes  []string
	Images      []Upload
}

// variantField matches the variants JSON shape the backend expects.
type variantField struct {
	ColorID  int64 `json:"colorId"`
	SizeID   int64 `json:"sizeId"`
	Quantity int   `json:"quantity"`
}

// ProductUpdate is the multipart payload for updating a product. Bindings of
// already-stored images travel as a key→colorId map; new images carry their
// bindings positionally in newImageColorIds.
type ProductUpdate struct {
	Name                  string
	TypeID                int64
	Description           string
	Price                 float64
	Attributes            []string
	Variants              []variantField
	ExistingImageBindings map[string]*int64
	NewImages             []Upload
}

// NewVariantField adapts a (colorId, sizeId, quantity) triple for submission.
func NewVariantField(colorID, sizeID int64, quantity int) variantField {
	return variantField{ColorID: colorID, SizeID: sizeID, Quantity: quantity}
}

func writeField(w *multipart.Writer, key, value string) error {
	if err := w.WriteField(key, value); err != nil {
		return fmt.Errorf("failed to write field %s: %w", key, err)
	}
	return nil
}

func writeJSONField(w *multipart.Writer, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal field %s: %w", key, err)
	}
	return writeField(w, key, string(data))
}

func writeImage(w *multipart.Writer, field string, up Upload) error {
	part, err := createImagePart(w, field, up)
	if err != nil {
		return fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(up.Data); err != nil {
		return fmt.Errorf("failed to write image %s: %w", up.Filename, err)
	}
	return nil
}

func (c *Client) sendMultipart(ctx context.Context, method, path string, build func(*multipart.Writer) error, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := build(w); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, out)
}

// CreateProduct submits a new product. Images travel as repeated images parts
// with a parallel colorIds JSON array (null entries for unbound images).
func (c *Client) CreateProduct(ctx context.Context, form ProductForm) error {
	return c.sendMultipart(ctx, http.MethodPost, "/storage/products", func(w *multipart.Writer) error {
		if err := writeField(w, "name", form.Name); err != nil {
			return err
		}
		if err := writeField(w, "typeId", strconv.FormatInt(form.TypeID, 10)); err != nil {
			return err
		}
		if err := writeField(w, "description", form.Description); err != nil {
			return err
		}
		if err := writeField(w, "price", strconv.FormatFloat(form.Price, 'f', -1, 64)); err != nil {
			return err
		}
		if err := writeJSONField(w, "variants", form.Variants); err != nil {
			return err
		}
		if len(form.Attributes) > 0 {
			if err := writeJSONField(w, "attributes", form.Attributes); err != nil {
				return err
			}
		}
		if len(form.Images) > 0 {
			colorIDs := make([]*int64, len(form.Images))
			for i, img := range form.Images {
				if err := writeImage(w, "images", img); err != nil {
					return err
				}
				colorIDs[i] = img.ColorID
			}
			if err := writeJSONField(w, "colorIds", colorIDs); err != nil {
				return err
			}
		}
		return nil
	}, nil)
}

// UpdateProduct saves an edited product and returns the server's resulting
// detail view, which becomes the new authoritative state.
func (c *Client) UpdateProduct(ctx context.Context, id int64, upd ProductUpdate) (*model.ProductDetail, error) {
	var result model.ProductDetail
	err := c.sendMultipart(ctx, http.MethodPut, "/storage/products/"+strconv.FormatInt(id, 10), func(w *multipart.Writer) error {
		if err := writeField(w, "name", upd.Name); err != nil {
			return err
		}
		if err := writeField(w, "typeId", strconv.FormatInt(upd.TypeID, 10)); err != nil {
			return err
		}
		if err := writeField(w, "description", upd.Description); err != nil {
			return err
		}
		if err := writeField(w, "price", strconv.FormatFloat(upd.Price, 'f', -1, 64)); err != nil {
			return err
		}
		if err := writeJSONField(w, "attributes", notNil(upd.Attributes)); err != nil {
			return err
		}
		if err := writeJSONField(w, "variants", upd.Variants); err != nil {
			return err
		}
		bindings := upd.ExistingImageBindings
		if bindings == nil {
			bindings = map[string]*int64{}
		}
		if err := writeJSONField(w, "existingImageBindings", bindings); err != nil {
			return err
		}
		if len(upd.NewImages) > 0 {
			colorIDs := make([]*int64, len(upd.NewImages))
			for i, img := range upd.NewImages {
				if err := writeImage(w, "newImages", img); err != nil {
					return err
				}
				colorIDs[i] = img.ColorID
			}
			if err := writeJSONField(w, "newImageColorIds", colorIDs); err != nil {
				return err
			}
		}
		return nil
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func notNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
