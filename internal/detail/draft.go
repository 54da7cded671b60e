package detail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"

	"github.com/aviete/boutique/internal/api"
	"github.com/aviete/boutique/internal/errs"
	"github.com/aviete/boutique/internal/model"
)

var validate = validator.New()

// NewImage is a pending upload inside the draft, keyed for color binding.
type NewImage struct {
	Key      string
	Filename string
	Data     []byte
}

// Draft is the in-progress, unsaved copy of a product's editable fields. It
// is created by EnterEdit, merged with the server response on save and
// dropped on cancel; the authoritative product is never touched directly.
type Draft struct {
	Product   *model.ProductDetail
	NewImages []NewImage
	Bindings  map[string]*int64 // image key -> color id, nil = unbound
}

// Problems flags which draft sections fail validation.
type Problems struct {
	Name     bool
	Price    bool
	Type     bool
	Variants bool
}

// Valid reports whether the draft may be saved.
func (p Problems) Valid() bool { return !p.Name && !p.Price && !p.Type && !p.Variants }

type draftRules struct {
	Name   string  `validate:"required"`
	Price  float64 `validate:"gt=0"`
	TypeID int64   `validate:"required"`
}

type variantRules struct {
	ColorID  int64 `validate:"required"`
	SizeID   int64 `validate:"required"`
	Quantity int   `validate:"gt=0"`
}

// EnterEdit snapshots the authoritative product into a fresh draft.
// No-op if a draft already exists or nothing is loaded.
func (v *View) EnterEdit() {
	if v.product == nil || v.draft != nil {
		return
	}
	v.draft = &Draft{
		Product:  v.product.Clone(),
		Bindings: map[string]*int64{},
	}
}

// Editing reports whether a draft is active.
func (v *View) Editing() bool { return v.draft != nil }

// Draft returns the active draft, or nil outside edit mode.
func (v *View) Draft() *Draft { return v.draft }

// CancelEdit discards the draft, reverting to the authoritative product.
// Idempotent: calling it without an active draft changes nothing.
func (v *View) CancelEdit() {
	v.draft = nil
}

// SetName mutates the draft name.
func (v *View) SetName(name string) {
	if v.draft != nil {
		v.draft.Product.Name = name
	}
}

// SetDescription mutates the draft description.
func (v *View) SetDescription(desc string) {
	if v.draft != nil {
		v.draft.Product.Description = desc
	}
}

// SetPrice mutates the draft price.
func (v *View) SetPrice(price float64) {
	if v.draft != nil {
		v.draft.Product.Price = price
	}
}

// SetType mutates the draft product type.
func (v *View) SetType(typeID int64) {
	if v.draft != nil {
		v.draft.Product.TypeID = typeID
	}
}

// AddAttribute appends a trimmed attribute chip; empty input is ignored.
// Duplicates are allowed; the list keeps insertion order.
func (v *View) AddAttribute(attr string) {
	attr = strings.TrimSpace(attr)
	if v.draft == nil || attr == "" {
		return
	}
	v.draft.Product.Attributes = append(v.draft.Product.Attributes, attr)
}

// RemoveAttribute deletes every occurrence of attr from the draft.
func (v *View) RemoveAttribute(attr string) {
	if v.draft == nil {
		return
	}
	out := v.draft.Product.Attributes[:0]
	for _, a := range v.draft.Product.Attributes {
		if a != attr {
			out = append(out, a)
		}
	}
	v.draft.Product.Attributes = out
}

// AddVariant appends an empty variant row to the draft.
func (v *View) AddVariant() {
	if v.draft != nil {
		v.draft.Product.Variants = append(v.draft.Product.Variants, model.Variant{})
	}
}

// RemoveVariant deletes the variant row at index; out of range is ignored.
func (v *View) RemoveVariant(index int) {
	if v.draft == nil || index < 0 || index >= len(v.draft.Product.Variants) {
		return
	}
	v.draft.Product.Variants = append(
		v.draft.Product.Variants[:index],
		v.draft.Product.Variants[index+1:]...,
	)
}

// SetVariantColor sets the color of the variant row at index.
func (v *View) SetVariantColor(index int, colorID int64) {
	if v.draft != nil && index >= 0 && index < len(v.draft.Product.Variants) {
		v.draft.Product.Variants[index].ColorID = colorID
	}
}

// SetVariantSize sets the size of the variant row at index.
func (v *View) SetVariantSize(index int, sizeID int64) {
	if v.draft != nil && index >= 0 && index < len(v.draft.Product.Variants) {
		v.draft.Product.Variants[index].SizeID = sizeID
	}
}

// SetVariantQuantity sets the stock of the variant row at index.
func (v *View) SetVariantQuantity(index int, quantity int) {
	if v.draft != nil && index >= 0 && index < len(v.draft.Product.Variants) {
		v.draft.Product.Variants[index].Quantity = quantity
	}
}

// File is an image candidate for AddImages.
type File struct {
	Name string
	Data []byte
}

// AddImages validates the batch by sniffed content type and, when every file
// is a supported image, appends them as pending uploads. If any file is not,
// the whole batch is rejected and the rejected filenames are returned in the
// error; already-selected images stay unchanged.
func (v *View) AddImages(files []File) error {
	if v.draft == nil {
		return errors.New("not in edit mode")
	}
	var rejected []string
	for _, f := range files {
		if !api.SupportedImage(f.Data) {
			rejected = append(rejected, f.Name)
		}
	}
	if len(rejected) > 0 {
		return fmt.Errorf("unsupported image type: %s", strings.Join(rejected, ", "))
	}
	for _, f := range files {
		key := "new-" + uuid.Must(uuid.NewV4()).String()
		v.draft.NewImages = append(v.draft.NewImages, NewImage{Key: key, Filename: f.Name, Data: f.Data})
	}
	return nil
}

// BindImage assigns a color to the image with the given key, nil to unbind.
// Only the submission payload is affected, never the preview.
func (v *View) BindImage(key string, colorID *int64) {
	if v.draft == nil {
		return
	}
	if colorID == nil {
		delete(v.draft.Bindings, key)
		return
	}
	id := *colorID
	v.draft.Bindings[key] = &id
}

// RemoveImage drops the image with the given key from the draft: a pending
// upload, an unbound stored image ("existing-<idx>") or a color-bound stored
// image ("color-<colorId>-<idx>"). Any binding for the key is dropped too.
func (v *View) RemoveImage(key string) {
	if v.draft == nil {
		return
	}
	defer delete(v.draft.Bindings, key)

	for i, img := range v.draft.NewImages {
		if img.Key == key {
			v.draft.NewImages = append(v.draft.NewImages[:i], v.draft.NewImages[i+1:]...)
			return
		}
	}
	for i := range v.draft.Product.ImageData {
		if ExistingImageKey(i) == key {
			v.draft.Product.ImageData = append(
				v.draft.Product.ImageData[:i],
				v.draft.Product.ImageData[i+1:]...,
			)
			return
		}
	}
	for colorID, imgs := range v.draft.Product.ImagesByColor {
		for i := range imgs {
			if ColorImageKey(colorID, i) == key {
				v.draft.Product.ImagesByColor[colorID] = append(
					append([]string(nil), imgs[:i]...), imgs[i+1:]...,
				)
				return
			}
		}
	}
}

// ExistingImageKey keys a stored unbound image by position.
func ExistingImageKey(idx int) string { return fmt.Sprintf("existing-%d", idx) }

// ColorImageKey keys a stored color-bound image by its color and position.
func ColorImageKey(colorID int64, idx int) string { return fmt.Sprintf("color-%d-%d", colorID, idx) }

// Validate checks the draft invariants: non-empty name, positive price, a
// type, and every variant fully specified with stock.
func (v *View) Validate() Problems {
	if v.draft == nil {
		return Problems{}
	}
	p := v.draft.Product
	var out Problems
	if err := validate.Struct(draftRules{Name: strings.TrimSpace(p.Name), Price: p.Price, TypeID: p.TypeID}); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				switch fe.Field() {
				case "Name":
					out.Name = true
				case "Price":
					out.Price = true
				case "TypeID":
					out.Type = true
				}
			}
		}
	}
	for _, vr := range p.Variants {
		if validate.Struct(variantRules{ColorID: vr.ColorID, SizeID: vr.SizeID, Quantity: vr.Quantity}) != nil {
			out.Variants = true
			break
		}
	}
	return out
}

// CanSave reports whether every draft invariant holds.
func (v *View) CanSave() bool { return v.draft != nil && v.Validate().Valid() }

// Save submits the draft as a multipart update. On success the server's
// product becomes the new authoritative state and edit mode ends; on failure
// the draft stays active so the user can correct and resubmit.
func (v *View) Save(ctx context.Context) error {
	if v.draft == nil {
		return errors.New("not in edit mode")
	}
	if !v.Validate().Valid() {
		return errs.ErrDraftInvalid
	}

	p := v.draft.Product
	upd := api.ProductUpdate{
		Name:                  p.Name,
		TypeID:                p.TypeID,
		Description:           p.Description,
		Price:                 p.Price,
		Attributes:            p.Attributes,
		ExistingImageBindings: map[string]*int64{},
	}
	for _, vr := range p.Variants {
		upd.Variants = append(upd.Variants, api.NewVariantField(vr.ColorID, vr.SizeID, vr.Quantity))
	}
	newKeys := make(map[string]bool, len(v.draft.NewImages))
	for _, img := range v.draft.NewImages {
		newKeys[img.Key] = true
		upd.NewImages = append(upd.NewImages, api.Upload{
			Filename: img.Filename,
			Data:     img.Data,
			ColorID:  v.draft.Bindings[img.Key],
		})
	}
	for key, colorID := range v.draft.Bindings {
		if !newKeys[key] {
			upd.ExistingImageBindings[key] = colorID
		}
	}

	saved, err := v.backend.UpdateProduct(ctx, p.ID, upd)
	if err != nil {
		return err
	}
	v.product = saved
	v.draft = nil
	v.reconcileSelection()
	return nil
}
