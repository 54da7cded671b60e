package admin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aviete/boutique/internal/api"
	"github.com/aviete/boutique/internal/errs"
)

type fakeCreator struct {
	form *api.ProductForm
	err  error
}

func (f *fakeCreator) CreateProduct(_ context.Context, form api.ProductForm) error {
	f.form = &form
	return f.err
}

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	textBytes = []byte("plain text, not an image")
)

func validBuilder(creator Creator) *Builder {
	b := NewBuilder(creator)
	b.SetName("Wool Sweater")
	b.SetType(2)
	b.SetPrice(59.90)
	b.AddVariant(1, 5, 3)
	return b
}

func TestInvalidFormRejectedLocally(t *testing.T) {
	t.Parallel()
	creator := &fakeCreator{}
	b := NewBuilder(creator)
	b.SetName("   ")

	p := b.Validate()
	if !p.Name || !p.Price || !p.Type {
		t.Fatalf("problems = %+v", p)
	}
	if err := b.Submit(context.Background()); !errors.Is(err, errs.ErrDraftInvalid) {
		t.Fatalf("err = %v", err)
	}
	if creator.form != nil {
		t.Fatalf("invalid form submitted")
	}
}

func TestIncompleteVariantRowBlocksSubmit(t *testing.T) {
	t.Parallel()
	b := validBuilder(&fakeCreator{})
	b.AddVariant(1, 0, 3) // no size
	if p := b.Validate(); !p.Variants {
		t.Fatalf("problems = %+v", p)
	}
}

func TestImageBatchRejectedWhole(t *testing.T) {
	t.Parallel()
	b := validBuilder(&fakeCreator{})

	err := b.AddImages([]File{
		{Name: "good.png", Data: pngBytes},
		{Name: "bad.txt", Data: textBytes},
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "bad.txt") {
		t.Fatalf("err = %v", err)
	}
	if len(b.Images()) != 0 {
		t.Fatalf("partial batch admitted")
	}
}

func TestSubmitCarriesColorPartitionedImages(t *testing.T) {
	t.Parallel()
	creator := &fakeCreator{}
	b := validBuilder(creator)

	red := int64(1)
	if err := b.AddImages([]File{{Name: "red.png", Data: pngBytes}}, &red); err != nil {
		t.Fatalf("add images: %v", err)
	}
	if err := b.AddImages([]File{{Name: "shared.png", Data: pngBytes}}, nil); err != nil {
		t.Fatalf("add images: %v", err)
	}
	b.AddAttribute(" warm ")

	if err := b.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	form := creator.form
	if form == nil {
		t.Fatalf("nothing submitted")
	}
	if len(form.Images) != 2 {
		t.Fatalf("images = %d", len(form.Images))
	}
	if form.Images[0].ColorID == nil || *form.Images[0].ColorID != 1 {
		t.Fatalf("first image binding = %v", form.Images[0].ColorID)
	}
	if form.Images[1].ColorID != nil {
		t.Fatalf("second image must be unbound")
	}
	if len(form.Attributes) != 1 || form.Attributes[0] != "warm" {
		t.Fatalf("attributes = %v", form.Attributes)
	}
	if len(form.Variants) != 1 {
		t.Fatalf("variants = %v", form.Variants)
	}
}
