package detail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aviete/boutique/internal/errs"
	"github.com/aviete/boutique/internal/model"
)

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13, 'I', 'H', 'D', 'R'}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	textBytes = []byte("definitely not an image")
)

func TestEnterEditSnapshotsWithoutTouchingAuthoritative(t *testing.T) {
	t.Parallel()
	v := loadView(t, &fakeBackend{product: colorBoundProduct()}, false)

	v.EnterEdit()
	if !v.Editing() {
		t.Fatalf("not in edit mode")
	}
	v.SetName("Renamed")
	v.SetPrice(1.00)
	v.AddAttribute("  wool  ")
	v.RemoveVariant(0)

	if v.Product().Name != "Wool Sweater" || v.Product().Price != 59.90 {
		t.Fatalf("authoritative product mutated: %+v", v.Product())
	}
	if v.Draft().Product.Name != "Renamed" {
		t.Fatalf("draft name = %q", v.Draft().Product.Name)
	}
	if got := v.Draft().Product.Attributes; len(got) != 1 || got[0] != "wool" {
		t.Fatalf("attributes = %v, want trimmed chip", got)
	}
}

func TestCancelDiscardsAndIsIdempotent(t *testing.T) {
	t.Parallel()
	v := loadView(t, &fakeBackend{product: plainProduct()}, false)

	v.CancelEdit() // no draft yet
	if v.Editing() {
		t.Fatalf("cancel created a draft")
	}

	v.EnterEdit()
	v.SetName("changed")
	v.CancelEdit()
	v.CancelEdit()
	if v.Editing() || v.Product().Name != "Canvas Bag" {
		t.Fatalf("cancel did not revert cleanly")
	}

	v.EnterEdit()
	if v.Draft().Product.Name != "Canvas Bag" {
		t.Fatalf("new draft carries stale edits: %q", v.Draft().Product.Name)
	}
}

func TestAddImagesRejectsWholeBatchNamingOffenders(t *testing.T) {
	t.Parallel()
	v := loadView(t, &fakeBackend{product: plainProduct()}, false)
	v.EnterEdit()

	err := v.AddImages([]File{
		{Name: "front.png", Data: pngBytes},
		{Name: "notes.txt", Data: textBytes},
		{Name: "back.jpg", Data: jpegBytes},
	})
	if err == nil {
		t.Fatalf("mixed batch accepted")
	}
	if !strings.Contains(err.Error(), "notes.txt") {
		t.Fatalf("rejected filename missing from error: %v", err)
	}
	if strings.Contains(err.Error(), "front.png") {
		t.Fatalf("valid file listed as rejected: %v", err)
	}
	if len(v.Draft().NewImages) != 0 {
		t.Fatalf("partial batch admitted: %d images", len(v.Draft().NewImages))
	}

	if err := v.AddImages([]File{{Name: "front.png", Data: pngBytes}}); err != nil {
		t.Fatalf("valid batch rejected: %v", err)
	}
	if len(v.Draft().NewImages) != 1 {
		t.Fatalf("images = %d, want 1", len(v.Draft().NewImages))
	}
}

func TestInvalidDraftNeverReachesBackend(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{product: plainProduct()}
	v := loadView(t, backend, false)
	v.EnterEdit()
	v.SetName("   ")

	if v.CanSave() {
		t.Fatalf("blank name considered savable")
	}
	if err := v.Save(context.Background()); !errors.Is(err, errs.ErrDraftInvalid) {
		t.Fatalf("err = %v, want draft invalid", err)
	}
	if backend.lastUpdate != nil {
		t.Fatalf("invalid draft was submitted")
	}
	if !v.Editing() {
		t.Fatalf("failed save must keep the draft")
	}
}

func TestValidateFlagsEachSection(t *testing.T) {
	t.Parallel()
	v := loadView(t, &fakeBackend{product: plainProduct()}, false)
	v.EnterEdit()
	v.SetName("")
	v.SetPrice(0)
	v.SetType(0)
	v.AddVariant() // empty row

	p := v.Validate()
	if !p.Name || !p.Price || !p.Type || !p.Variants {
		t.Fatalf("problems = %+v", p)
	}
}

func TestSaveCommitsServerResponseAsAuthoritative(t *testing.T) {
	t.Parallel()
	updated := colorBoundProduct()
	updated.Name = "Wool Sweater v2"
	backend := &fakeBackend{product: colorBoundProduct(), updated: updated}
	v := loadView(t, backend, false)

	v.EnterEdit()
	v.SetName("Wool Sweater v2")
	if err := v.AddImages([]File{{Name: "extra.png", Data: pngBytes}}); err != nil {
		t.Fatalf("add images: %v", err)
	}
	newKey := v.Draft().NewImages[0].Key
	red := int64(1)
	v.BindImage(newKey, &red)
	v.BindImage(ExistingImageKey(0), &red)

	if err := v.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if v.Editing() {
		t.Fatalf("edit mode survived a successful save")
	}
	if v.Product().Name != "Wool Sweater v2" {
		t.Fatalf("authoritative state not replaced: %q", v.Product().Name)
	}

	upd := backend.lastUpdate
	if upd == nil {
		t.Fatalf("no update submitted")
	}
	if len(upd.NewImages) != 1 || upd.NewImages[0].ColorID == nil || *upd.NewImages[0].ColorID != 1 {
		t.Fatalf("new image binding lost: %+v", upd.NewImages)
	}
	if got := upd.ExistingImageBindings[ExistingImageKey(0)]; got == nil || *got != 1 {
		t.Fatalf("existing binding lost: %+v", upd.ExistingImageBindings)
	}
	if _, ok := upd.ExistingImageBindings[newKey]; ok {
		t.Fatalf("new image key leaked into existing bindings")
	}
}

func TestFailedSaveKeepsDraftActive(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{product: plainProduct(), updateErr: &errs.APIError{StatusCode: 500, Body: "boom"}}
	v := loadView(t, backend, false)
	v.EnterEdit()
	v.SetName("still here")

	if err := v.Save(context.Background()); err == nil {
		t.Fatalf("save succeeded against failing backend")
	}
	if !v.Editing() || v.Draft().Product.Name != "still here" {
		t.Fatalf("draft lost after failed save")
	}
	if v.Product().Name != "Canvas Bag" {
		t.Fatalf("authoritative state mutated on failure")
	}
}

func TestUnchangedResaveKeepsDerivedSelection(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{product: colorBoundProduct(), updated: colorBoundProduct()}
	v := loadView(t, backend, false)
	color, size := v.SelectedColor(), v.SelectedSize()
	qty, _ := v.CurrentQuantity()

	v.EnterEdit()
	if err := v.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if v.SelectedColor() != color || v.SelectedSize() != size {
		t.Fatalf("selection drifted: color %d->%d size %d->%d",
			color, v.SelectedColor(), size, v.SelectedSize())
	}
	if got, _ := v.CurrentQuantity(); got != qty {
		t.Fatalf("quantity drifted: %d -> %d", qty, got)
	}
}

func TestSelectionReconciledAfterSave(t *testing.T) {
	t.Parallel()
	updated := colorBoundProduct()
	// red loses all stock; blue remains
	updated.VariantsByColor[1] = []model.Variant{{ColorID: 1, SizeID: 6, Quantity: 0}}
	backend := &fakeBackend{product: colorBoundProduct(), updated: updated}
	v := loadView(t, backend, false)

	v.EnterEdit()
	if err := v.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if v.SelectedColor() != 1 {
		t.Fatalf("valid color selection dropped")
	}
	if v.SelectedSize() != 0 {
		t.Fatalf("size = %d, want none left in stock", v.SelectedSize())
	}
}

func TestRemoveImageDropsKeyAndBinding(t *testing.T) {
	t.Parallel()
	v := loadView(t, &fakeBackend{product: colorBoundProduct()}, false)
	v.EnterEdit()
	red := int64(1)
	v.BindImage(ColorImageKey(1, 0), &red)

	v.RemoveImage(ColorImageKey(1, 0))
	if got := v.Draft().Product.ImagesByColor[1]; len(got) != 1 || got[0] != "red-back" {
		t.Fatalf("images = %v", got)
	}
	if _, ok := v.Draft().Bindings[ColorImageKey(1, 0)]; ok {
		t.Fatalf("binding survived image removal")
	}
}
