// Package detail owns the product detail view state: color/size selection,
// the derived image and variant sets, and the edit draft lifecycle.
//
// Outside edit mode the authoritative ProductDetail is the single source of
// truth. Entering edit snapshots it into a Draft; save commits the server's
// response back as the new authoritative state; cancel discards the Draft.
// The authoritative product is never edited in place.
//
// A View is driven from a single goroutine (the UI event loop) and is not
// safe for concurrent use.
package detail

import (
	"context"
	"fmt"

	"github.com/aviete/boutique/internal/api"
	"github.com/aviete/boutique/internal/model"
)

// Backend is the slice of the api client the detail view needs.
type Backend interface {
	Product(ctx context.Context, id int64) (*model.ProductDetail, error)
	ConstructionInfo(ctx context.Context) (*model.ConstructionInfo, error)
	UpdateProduct(ctx context.Context, id int64, upd api.ProductUpdate) (*model.ProductDetail, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// View holds one product's detail state.
type View struct {
	backend       Backend
	product       *model.ProductDetail
	refdata       *model.ConstructionInfo // present only for privileged callers
	selectedColor int64                   // 0 = none
	selectedSize  int64                   // 0 = none
	mainImageIdx  int
	draft         *Draft
}

// NewView creates a View over the given backend.
func NewView(backend Backend) *View {
	return &View{backend: backend}
}

// Load fetches the product and, for privileged callers, the construction
// reference data, then applies the default color/size selection.
func (v *View) Load(ctx context.Context, id int64, privileged bool) error {
	p, err := v.backend.Product(ctx, id)
	if err != nil {
		return fmt.Errorf("load product %d: %w", id, err)
	}
	if privileged {
		info, err := v.backend.ConstructionInfo(ctx)
		if err != nil {
			return fmt.Errorf("load construction info: %w", err)
		}
		v.refdata = info
	}
	v.product = p
	v.draft = nil
	v.mainImageIdx = 0
	v.selectedColor = 0
	if p.ColorBound() && len(p.Colors) > 0 {
		v.selectedColor = p.Colors[0].ID
	}
	v.selectedSize = v.defaultSize()
	return nil
}

// Product returns the authoritative product, or nil before Load.
func (v *View) Product() *model.ProductDetail { return v.product }

// Refdata returns the construction reference data for privileged callers.
func (v *View) Refdata() *model.ConstructionInfo { return v.refdata }

// ColorBound reports whether images and variants are partitioned per color.
func (v *View) ColorBound() bool { return v.product.ColorBound() }

// SelectedColor returns the selected color id, 0 when none.
func (v *View) SelectedColor() int64 { return v.selectedColor }

// SelectedSize returns the selected size id, 0 when none.
func (v *View) SelectedSize() int64 { return v.selectedSize }

// SelectColor switches the selection. No-op when the product is not
// color-bound. Resets the size selection and the displayed main image.
func (v *View) SelectColor(colorID int64) {
	if !v.ColorBound() {
		return
	}
	v.selectedColor = colorID
	v.mainImageIdx = 0
	v.selectedSize = v.defaultSize()
}

// SelectSize switches the selected size.
func (v *View) SelectSize(sizeID int64) { v.selectedSize = sizeID }

// Images returns the image list currently displayed: the selected color's
// images for a color-bound product, the unbound list otherwise.
func (v *View) Images() []string {
	if v.product == nil {
		return nil
	}
	if v.ColorBound() && v.selectedColor != 0 {
		return v.product.ImagesByColor[v.selectedColor]
	}
	return v.product.ImageData
}

// MainImage returns the displayed main image, if any.
func (v *View) MainImage() (string, bool) {
	imgs := v.Images()
	if v.mainImageIdx < 0 || v.mainImageIdx >= len(imgs) {
		return "", false
	}
	return imgs[v.mainImageIdx], true
}

// SetMainImage moves the displayed main image; out-of-range indexes are ignored.
func (v *View) SetMainImage(idx int) {
	if idx >= 0 && idx < len(v.Images()) {
		v.mainImageIdx = idx
	}
}

// AvailableSizes returns the sizes offered for the current selection: for a
// color-bound product only sizes whose variant for the selected color has
// stock, otherwise every size.
func (v *View) AvailableSizes() []model.SizeRef {
	if v.product == nil {
		return nil
	}
	if v.selectedColor == 0 || v.product.VariantsByColor == nil {
		return v.product.Sizes
	}
	variants := v.product.VariantsByColor[v.selectedColor]
	var out []model.SizeRef
	for _, size := range v.product.Sizes {
		for _, vr := range variants {
			if vr.SizeID == size.ID && vr.Quantity > 0 {
				out = append(out, size)
				break
			}
		}
	}
	return out
}

// CurrentQuantity returns the stock for the selected (color, size) pair.
// ok is false when no matching variant exists; the quantity row is hidden then.
func (v *View) CurrentQuantity() (int, bool) {
	if v.product == nil || v.selectedSize == 0 {
		return 0, false
	}
	for _, vr := range v.variantsForSelection() {
		if vr.SizeID == v.selectedSize {
			return vr.Quantity, true
		}
	}
	return 0, false
}

func (v *View) variantsForSelection() []model.Variant {
	if v.selectedColor != 0 && v.product.VariantsByColor != nil {
		return v.product.VariantsByColor[v.selectedColor]
	}
	return v.product.Variants
}

// defaultSize picks the first size with stock for the selected color, or the
// first size overall when the product is not color-bound.
func (v *View) defaultSize() int64 {
	if v.product == nil {
		return 0
	}
	for _, size := range v.AvailableSizes() {
		return size.ID
	}
	return 0
}

// Delete removes the product. Irreversible; on success the view is emptied
// and the caller must navigate away.
func (v *View) Delete(ctx context.Context) error {
	if v.product == nil {
		return nil
	}
	if err := v.backend.DeleteProduct(ctx, v.product.ID); err != nil {
		return err
	}
	v.product = nil
	v.draft = nil
	v.selectedColor = 0
	v.selectedSize = 0
	return nil
}

// reconcileSelection keeps the current selection if it is still valid for
// the (possibly changed) authoritative product, otherwise falls back to the
// load-time defaults.
func (v *View) reconcileSelection() {
	if !v.ColorBound() {
		v.selectedColor = 0
	} else if !v.colorExists(v.selectedColor) {
		v.selectedColor = 0
		if len(v.product.Colors) > 0 {
			v.selectedColor = v.product.Colors[0].ID
		}
		v.mainImageIdx = 0
	}
	if !v.sizeAvailable(v.selectedSize) {
		v.selectedSize = v.defaultSize()
	}
	if v.mainImageIdx >= len(v.Images()) {
		v.mainImageIdx = 0
	}
}

func (v *View) colorExists(colorID int64) bool {
	for _, c := range v.product.Colors {
		if c.ID == colorID {
			return true
		}
	}
	return false
}

func (v *View) sizeAvailable(sizeID int64) bool {
	if sizeID == 0 {
		return false
	}
	for _, s := range v.AvailableSizes() {
		if s.ID == sizeID {
			return true
		}
	}
	return false
}
