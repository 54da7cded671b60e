package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aviete/boutique/internal/api"
	"github.com/aviete/boutique/internal/errs"
	"github.com/aviete/boutique/internal/model"
)

// Creator submits an assembled product.
type Creator interface {
	CreateProduct(ctx context.Context, form api.ProductForm) error
}

// Builder assembles a new product for submission: scalar fields, attribute
// chips, variant rows and images partitioned by color binding. It mirrors the
// edit draft validation so a product that saves also round-trips.
type Builder struct {
	creator    Creator
	name       string
	typeID     int64
	desc       string
	price      float64
	attributes []string
	variants   []model.Variant
	images     []api.Upload
}

// FormProblems flags which builder sections fail validation.
type FormProblems struct {
	Name     bool
	Price    bool
	Type     bool
	Variants bool
}

// Valid reports whether the form may be submitted.
func (p FormProblems) Valid() bool { return !p.Name && !p.Price && !p.Type && !p.Variants }

// NewBuilder creates an empty Builder submitting through creator.
func NewBuilder(creator Creator) *Builder {
	return &Builder{creator: creator}
}

func (b *Builder) SetName(name string)        { b.name = name }
func (b *Builder) SetType(typeID int64)       { b.typeID = typeID }
func (b *Builder) SetDescription(desc string) { b.desc = desc }
func (b *Builder) SetPrice(price float64)     { b.price = price }

// AddAttribute appends a trimmed attribute chip; empty input is ignored.
func (b *Builder) AddAttribute(attr string) {
	attr = strings.TrimSpace(attr)
	if attr != "" {
		b.attributes = append(b.attributes, attr)
	}
}

// RemoveAttribute deletes every occurrence of attr.
func (b *Builder) RemoveAttribute(attr string) {
	out := b.attributes[:0]
	for _, a := range b.attributes {
		if a != attr {
			out = append(out, a)
		}
	}
	b.attributes = out
}

// AddVariant appends a variant row.
func (b *Builder) AddVariant(colorID, sizeID int64, quantity int) {
	b.variants = append(b.variants, model.Variant{ColorID: colorID, SizeID: sizeID, Quantity: quantity})
}

// RemoveVariant deletes the variant row at index; out of range is ignored.
func (b *Builder) RemoveVariant(index int) {
	if index < 0 || index >= len(b.variants) {
		return
	}
	b.variants = append(b.variants[:index], b.variants[index+1:]...)
}

// Variants returns the current variant rows.
func (b *Builder) Variants() []model.Variant { return b.variants }

// File is an image candidate for AddImages.
type File struct {
	Name string
	Data []byte
}

// AddImages validates the batch by sniffed content type and appends the files
// bound to colorID (nil for unbound). If any file is not a supported image
// the whole batch is rejected with the offending filenames; already-selected
// images stay unchanged.
func (b *Builder) AddImages(files []File, colorID *int64) error {
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
		up := api.Upload{Filename: f.Name, Data: f.Data}
		if colorID != nil {
			id := *colorID
			up.ColorID = &id
		}
		b.images = append(b.images, up)
	}
	return nil
}

// RemoveImage deletes the image at index; out of range is ignored.
func (b *Builder) RemoveImage(index int) {
	if index < 0 || index >= len(b.images) {
		return
	}
	b.images = append(b.images[:index], b.images[index+1:]...)
}

// Images returns the currently selected uploads.
func (b *Builder) Images() []api.Upload { return b.images }

type builderRules struct {
	Name   string  `validate:"required"`
	Price  float64 `validate:"gt=0"`
	TypeID int64   `validate:"required"`
}

type builderVariantRules struct {
	ColorID  int64 `validate:"required"`
	SizeID   int64 `validate:"required"`
	Quantity int   `validate:"gt=0"`
}

// Validate checks the form invariants: non-empty name, positive price, a
// type, and every variant fully specified with stock.
func (b *Builder) Validate() FormProblems {
	var out FormProblems
	if err := validate.Struct(builderRules{Name: strings.TrimSpace(b.name), Price: b.price, TypeID: b.typeID}); err != nil {
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
	for _, vr := range b.variants {
		if validate.Struct(builderVariantRules{ColorID: vr.ColorID, SizeID: vr.SizeID, Quantity: vr.Quantity}) != nil {
			out.Variants = true
			break
		}
	}
	return out
}

// Submit sends the assembled product. Invalid forms are rejected locally
// without a request; a failed submission leaves the form intact.
func (b *Builder) Submit(ctx context.Context) error {
	if !b.Validate().Valid() {
		return errs.ErrDraftInvalid
	}
	form := api.ProductForm{
		Name:        b.name,
		TypeID:      b.typeID,
		Description: b.desc,
		Price:       b.price,
		Attributes:  b.attributes,
		Images:      b.images,
	}
	for _, vr := range b.variants {
		form.Variants = append(form.Variants, api.NewVariantField(vr.ColorID, vr.SizeID, vr.Quantity))
	}
	if err := b.creator.CreateProduct(ctx, form); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}
