// Package model defines domain entities shared by the api client and view state.
package model

// Role is the access level reported by the backend for the current user.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User is the authenticated account as returned by /user/details.
type User struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TypeRef identifies a product type.
type TypeRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SizeRef identifies a product size.
type SizeRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ColorRef identifies a product color with its display hex ("#RRGGBB").
type ColorRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// ConstructionInfo is the reference data needed to build or edit a product.
type ConstructionInfo struct {
	Types  []TypeRef  `json:"types"`
	Colors []ColorRef `json:"colors"`
	Sizes  []SizeRef  `json:"sizes"`
}

// Page is one page of a server-side paginated listing. Number is 0-based.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalPages    int `json:"totalPages"`
	TotalElements int `json:"totalElements"`
	Size          int `json:"size"`
	Number        int `json:"number"`
}

// ProductSummary is the card representation used in the paginated listing.
type ProductSummary struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageData   string  `json:"imageData,omitempty"` // base64, may be empty
}

// Variant is a concrete (color, size) stock-keeping combination.
type Variant struct {
	ColorID  int64 `json:"colorId"`
	SizeID   int64 `json:"sizeId"`
	Quantity int   `json:"quantity"`
}

// ProductDetail is the full product as returned by /storage/products/{id}.
// Images and variants are either shared (ImageData, Variants) or partitioned
// per color (ImagesByColor, VariantsByColor); a product with a non-empty
// ImagesByColor is color-bound.
type ProductDetail struct {
	ID              int64               `json:"id"`
	Name            string              `json:"name"`
	TypeID          int64               `json:"typeId"`
	Type            *TypeRef            `json:"type,omitempty"`
	Description     string              `json:"description,omitempty"`
	Price           float64             `json:"price"`
	Attributes      []string            `json:"attributes,omitempty"`
	ImageData       []string            `json:"imageData,omitempty"`
	ImagesByColor   map[int64][]string  `json:"imagesByColor,omitempty"`
	Variants        []Variant           `json:"variants,omitempty"`
	VariantsByColor map[int64][]Variant `json:"variantsByColor,omitempty"`
	Colors          []ColorRef          `json:"colors,omitempty"`
	Sizes           []SizeRef           `json:"sizes,omitempty"`
}

// Clone returns a deep copy safe to mutate independently of the receiver.
func (p *ProductDetail) Clone() *ProductDetail {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Type != nil {
		t := *p.Type
		cp.Type = &t
	}
	cp.Attributes = append([]string(nil), p.Attributes...)
	cp.ImageData = append([]string(nil), p.ImageData...)
	cp.Variants = append([]Variant(nil), p.Variants...)
	cp.Colors = append([]ColorRef(nil), p.Colors...)
	cp.Sizes = append([]SizeRef(nil), p.Sizes...)
	if p.ImagesByColor != nil {
		cp.ImagesByColor = make(map[int64][]string, len(p.ImagesByColor))
		for k, v := range p.ImagesByColor {
			cp.ImagesByColor[k] = append([]string(nil), v...)
		}
	}
	if p.VariantsByColor != nil {
		cp.VariantsByColor = make(map[int64][]Variant, len(p.VariantsByColor))
		for k, v := range p.VariantsByColor {
			cp.VariantsByColor[k] = append([]Variant(nil), v...)
		}
	}
	return &cp
}

// ColorBound reports whether images and variants are partitioned per color.
func (p *ProductDetail) ColorBound() bool {
	return p != nil && len(p.ImagesByColor) > 0
}

// FilterCriteria narrows the product listing. Zero values mean "not set";
// MinPrice/MaxPrice use pointers so that 0 remains a valid bound.
type FilterCriteria struct {
	Name     string
	TypeID   int64
	SizeIDs  []int64
	ColorIDs []int64
	MinPrice *float64
	MaxPrice *float64
}
