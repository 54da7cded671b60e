// Package admin drives the management console: product type, size and color
// registration, deletion with reference migration, and new product assembly.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aviete/boutique/internal/model"
)

var validate = validator.New()

// ErrDuplicate indicates the name is already taken by a loaded or pending entry.
var ErrDuplicate = errors.New("name already exists")

// ErrReplacementRequired indicates a deletion needs a migration target that
// was not chosen.
var ErrReplacementRequired = errors.New("replacement required")

// Backend is the slice of the api client the console needs.
type Backend interface {
	ConstructionInfo(ctx context.Context) (*model.ConstructionInfo, error)
	CreateType(ctx context.Context, name string) (model.TypeRef, error)
	CreateSize(ctx context.Context, name string) (model.SizeRef, error)
	CreateColor(ctx context.Context, name, hex string) (model.ColorRef, error)
	DeleteType(ctx context.Context, t model.TypeRef) error
	DeleteSize(ctx context.Context, s model.SizeRef) error
	DeleteColor(ctx context.Context, col model.ColorRef) error
	DeleteTypeReplacing(ctx context.Context, deleteName, replaceName string) error
	DeleteSizeReplacing(ctx context.Context, deleteName, replaceName string) error
	DeleteColorReplacing(ctx context.Context, deleteName, replaceName string) error
}

// Console owns the loaded reference data and guards mutations against it.
// Driven from a single goroutine.
type Console struct {
	backend Backend
	types   []model.TypeRef
	sizes   []model.SizeRef
	colors  []model.ColorRef
	pending map[string]bool // lowercased names submitted but not yet confirmed
}

// NewConsole creates a Console over the given backend.
func NewConsole(backend Backend) *Console {
	return &Console{backend: backend, pending: map[string]bool{}}
}

// Load fetches the current reference data.
func (c *Console) Load(ctx context.Context) error {
	info, err := c.backend.ConstructionInfo(ctx)
	if err != nil {
		return fmt.Errorf("load construction info: %w", err)
	}
	c.types = info.Types
	c.sizes = info.Sizes
	c.colors = info.Colors
	return nil
}

// Types returns the loaded product types.
func (c *Console) Types() []model.TypeRef { return c.types }

// Sizes returns the loaded product sizes.
func (c *Console) Sizes() []model.SizeRef { return c.sizes }

// Colors returns the loaded product colors.
func (c *Console) Colors() []model.ColorRef { return c.colors }

// reserve claims a name against both the loaded entries and the in-flight
// submissions. The release func frees the claim on failure.
func (c *Console) reserve(name string, taken func(string) bool) (release func(), err error) {
	key := strings.ToLower(name)
	if taken(name) || c.pending[key] {
		return nil, ErrDuplicate
	}
	c.pending[key] = true
	return func() { delete(c.pending, key) }, nil
}

// AddType registers a new product type. Names already loaded or pending are
// rejected without a request.
func (c *Console) AddType(ctx context.Context, name string) (model.TypeRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.TypeRef{}, errors.New("name is required")
	}
	release, err := c.reserve(name, c.typeExists)
	if err != nil {
		return model.TypeRef{}, err
	}
	defer release()

	created, err := c.backend.CreateType(ctx, name)
	if err != nil {
		return model.TypeRef{}, fmt.Errorf("create type: %w", err)
	}
	c.types = append(c.types, created)
	return created, nil
}

// AddSize registers a new product size, with the same duplicate suppression.
func (c *Console) AddSize(ctx context.Context, name string) (model.SizeRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.SizeRef{}, errors.New("name is required")
	}
	release, err := c.reserve(name, c.sizeExists)
	if err != nil {
		return model.SizeRef{}, err
	}
	defer release()

	created, err := c.backend.CreateSize(ctx, name)
	if err != nil {
		return model.SizeRef{}, fmt.Errorf("create size: %w", err)
	}
	c.sizes = append(c.sizes, created)
	return created, nil
}

// AddColor registers a new product color. hex must be exactly "#RRGGBB".
func (c *Console) AddColor(ctx context.Context, name, hex string) (model.ColorRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.ColorRef{}, errors.New("name is required")
	}
	if err := validate.Var(hex, "required,hexcolor,len=7"); err != nil {
		return model.ColorRef{}, fmt.Errorf("invalid hex color %q", hex)
	}
	release, err := c.reserve(name, c.colorExists)
	if err != nil {
		return model.ColorRef{}, err
	}
	defer release()

	created, err := c.backend.CreateColor(ctx, name, hex)
	if err != nil {
		return model.ColorRef{}, fmt.Errorf("create color: %w", err)
	}
	c.colors = append(c.colors, created)
	return created, nil
}

// TypeReplacements returns the migration candidates for deleting target.
func (c *Console) TypeReplacements(target string) []model.TypeRef {
	var out []model.TypeRef
	for _, t := range c.types {
		if !strings.EqualFold(t.Name, target) {
			out = append(out, t)
		}
	}
	return out
}

// SizeReplacements returns the migration candidates for deleting target.
func (c *Console) SizeReplacements(target string) []model.SizeRef {
	var out []model.SizeRef
	for _, s := range c.sizes {
		if !strings.EqualFold(s.Name, target) {
			out = append(out, s)
		}
	}
	return out
}

// ColorReplacements returns the migration candidates for deleting target.
func (c *Console) ColorReplacements(target string) []model.ColorRef {
	var out []model.ColorRef
	for _, col := range c.colors {
		if !strings.EqualFold(col.Name, target) {
			out = append(out, col)
		}
	}
	return out
}

// DeleteType removes a type. When replacement is non-empty the backend
// migrates product references to it; a replacement equal to the target is
// rejected.
func (c *Console) DeleteType(ctx context.Context, name, replacement string) error {
	t, ok := c.findType(name)
	if !ok {
		return fmt.Errorf("unknown type %q", name)
	}
	if replacement != "" {
		if strings.EqualFold(replacement, name) {
			return ErrReplacementRequired
		}
		if _, ok := c.findType(replacement); !ok {
			return fmt.Errorf("unknown replacement type %q", replacement)
		}
		if err := c.backend.DeleteTypeReplacing(ctx, t.Name, replacement); err != nil {
			return fmt.Errorf("delete type: %w", err)
		}
	} else if err := c.backend.DeleteType(ctx, t); err != nil {
		return fmt.Errorf("delete type: %w", err)
	}
	c.types = removeType(c.types, t.ID)
	return nil
}

// DeleteSize removes a size, optionally migrating variant references.
func (c *Console) DeleteSize(ctx context.Context, name, replacement string) error {
	s, ok := c.findSize(name)
	if !ok {
		return fmt.Errorf("unknown size %q", name)
	}
	if replacement != "" {
		if strings.EqualFold(replacement, name) {
			return ErrReplacementRequired
		}
		if _, ok := c.findSize(replacement); !ok {
			return fmt.Errorf("unknown replacement size %q", replacement)
		}
		if err := c.backend.DeleteSizeReplacing(ctx, s.Name, replacement); err != nil {
			return fmt.Errorf("delete size: %w", err)
		}
	} else if err := c.backend.DeleteSize(ctx, s); err != nil {
		return fmt.Errorf("delete size: %w", err)
	}
	c.sizes = removeSize(c.sizes, s.ID)
	return nil
}

// DeleteColor removes a color, optionally migrating variant references.
func (c *Console) DeleteColor(ctx context.Context, name, replacement string) error {
	col, ok := c.findColor(name)
	if !ok {
		return fmt.Errorf("unknown color %q", name)
	}
	if replacement != "" {
		if strings.EqualFold(replacement, name) {
			return ErrReplacementRequired
		}
		if _, ok := c.findColor(replacement); !ok {
			return fmt.Errorf("unknown replacement color %q", replacement)
		}
		if err := c.backend.DeleteColorReplacing(ctx, col.Name, replacement); err != nil {
			return fmt.Errorf("delete color: %w", err)
		}
	} else if err := c.backend.DeleteColor(ctx, col); err != nil {
		return fmt.Errorf("delete color: %w", err)
	}
	c.colors = removeColor(c.colors, col.ID)
	return nil
}

func (c *Console) typeExists(name string) bool {
	_, ok := c.findType(name)
	return ok
}

func (c *Console) sizeExists(name string) bool {
	_, ok := c.findSize(name)
	return ok
}

func (c *Console) colorExists(name string) bool {
	_, ok := c.findColor(name)
	return ok
}

func (c *Console) findType(name string) (model.TypeRef, bool) {
	for _, t := range c.types {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return model.TypeRef{}, false
}

func (c *Console) findSize(name string) (model.SizeRef, bool) {
	for _, s := range c.sizes {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return model.SizeRef{}, false
}

func (c *Console) findColor(name string) (model.ColorRef, bool) {
	for _, col := range c.colors {
		if strings.EqualFold(col.Name, name) {
			return col, true
		}
	}
	return model.ColorRef{}, false
}

func removeType(list []model.TypeRef, id int64) []model.TypeRef {
	out := list[:0]
	for _, t := range list {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func removeSize(list []model.SizeRef, id int64) []model.SizeRef {
	out := list[:0]
	for _, s := range list {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

func removeColor(list []model.ColorRef, id int64) []model.ColorRef {
	out := list[:0]
	for _, col := range list {
		if col.ID != id {
			out = append(out, col)
		}
	}
	return out
}
