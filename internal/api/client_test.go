package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aviete/boutique/internal/errs"
	"github.com/aviete/boutique/internal/model"
)

type staticTokens struct {
	mu  sync.Mutex
	tok string
}

func (s *staticTokens) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tok
}

func (s *staticTokens) set(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = tok
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *staticTokens, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := &staticTokens{}
	return New(srv.URL, tokens, 5*time.Second, nil), tokens, srv
}

func TestBearerTokenReadAtCallTime(t *testing.T) {
	t.Parallel()
	var got []string
	client, tokens, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(model.User{Email: "a@b.c"})
	})
	ctx := context.Background()

	if _, err := client.UserDetails(ctx); err != nil {
		t.Fatalf("request: %v", err)
	}
	tokens.set("tok-1")
	if _, err := client.UserDetails(ctx); err != nil {
		t.Fatalf("request: %v", err)
	}
	tokens.set("tok-2")
	if _, err := client.UserDetails(ctx); err != nil {
		t.Fatalf("request: %v", err)
	}

	want := []string{"", "Bearer tok-1", "Bearer tok-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("auth headers = %q, want %q", got, want)
		}
	}
}

func TestErrorBodyReturnedVerbatim(t *testing.T) {
	t.Parallel()
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("size is referenced by 3 variants"))
	})

	_, err := client.UserDetails(context.Background())
	var apiErr *errs.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *errs.APIError", err)
	}
	if apiErr.StatusCode != 409 || apiErr.Body != "size is referenced by 3 variants" {
		t.Fatalf("got %+v", apiErr)
	}
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	t.Parallel()
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := client.UserDetails(context.Background())
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestFilterQueryEncodingOmitsAbsentCriteria(t *testing.T) {
	t.Parallel()
	var query map[string][]string
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_ = json.NewEncoder(w).Encode(model.Page[model.ProductSummary]{})
	})

	min := 5.5
	crit := model.FilterCriteria{
		Name:     "shirt",
		SizeIDs:  []int64{1, 2, 3},
		MinPrice: &min,
	}
	if _, err := client.FilterProducts(context.Background(), crit, 2, 12); err != nil {
		t.Fatalf("request: %v", err)
	}

	checks := map[string]string{
		"name":     "shirt",
		"sizeIds":  "1,2,3",
		"minPrice": "5.5",
		"page":     "2",
		"pageSize": "12",
	}
	for key, want := range checks {
		if got := query[key]; len(got) != 1 || got[0] != want {
			t.Fatalf("%s = %v, want %q", key, got, want)
		}
	}
	for _, absent := range []string{"typeId", "colorIds", "maxPrice"} {
		if _, ok := query[absent]; ok {
			t.Fatalf("absent criterion %s present in query", absent)
		}
	}
}

func TestCreateProductMultipartEncoding(t *testing.T) {
	t.Parallel()
	done := make(chan struct{})
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer close(done)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if got := r.FormValue("name"); got != "Wool Sweater" {
			t.Errorf("name = %q", got)
		}
		if got := r.FormValue("typeId"); got != "2" {
			t.Errorf("typeId = %q", got)
		}
		if got := r.FormValue("price"); got != "59.9" {
			t.Errorf("price = %q", got)
		}
		var variants []map[string]any
		if err := json.Unmarshal([]byte(r.FormValue("variants")), &variants); err != nil || len(variants) != 1 {
			t.Errorf("variants = %q (%v)", r.FormValue("variants"), err)
		}
		var colorIDs []*int64
		if err := json.Unmarshal([]byte(r.FormValue("colorIds")), &colorIDs); err != nil {
			t.Errorf("colorIds: %v", err)
		}
		if len(colorIDs) != 2 || colorIDs[0] == nil || *colorIDs[0] != 1 || colorIDs[1] != nil {
			t.Errorf("colorIds = %v, want [1 null]", colorIDs)
		}
		files := r.MultipartForm.File["images"]
		if len(files) != 2 || files[0].Filename != "red.png" {
			t.Errorf("images = %v", files)
		}
	})

	red := int64(1)
	form := ProductForm{
		Name:   "Wool Sweater",
		TypeID: 2,
		Price:  59.90,
		Variants: []variantField{
			NewVariantField(1, 5, 3),
		},
		Images: []Upload{
			{Filename: "red.png", Data: []byte{0x89, 'P', 'N', 'G'}, ColorID: &red},
			{Filename: "any.jpg", Data: []byte{0xFF, 0xD8, 0xFF}},
		},
	}
	if err := client.CreateProduct(context.Background(), form); err != nil {
		t.Fatalf("create: %v", err)
	}
	<-done
}

func TestUpdateProductSendsBindingsAndReturnsDetail(t *testing.T) {
	t.Parallel()
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/storage/products/7" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		var bindings map[string]*int64
		if err := json.Unmarshal([]byte(r.FormValue("existingImageBindings")), &bindings); err != nil {
			t.Errorf("bindings: %v", err)
		}
		if got := bindings["existing-0"]; got == nil || *got != 2 {
			t.Errorf("bindings = %v", bindings)
		}
		var colorIDs []*int64
		if err := json.Unmarshal([]byte(r.FormValue("newImageColorIds")), &colorIDs); err != nil || len(colorIDs) != 1 {
			t.Errorf("newImageColorIds = %q", r.FormValue("newImageColorIds"))
		}
		_ = json.NewEncoder(w).Encode(model.ProductDetail{ID: 7, Name: "Saved"})
	})

	blue := int64(2)
	upd := ProductUpdate{
		Name:                  "Saved",
		TypeID:                1,
		Price:                 10,
		ExistingImageBindings: map[string]*int64{"existing-0": &blue},
		NewImages:             []Upload{{Filename: "new.png", Data: []byte{0x89, 'P', 'N', 'G'}}},
	}
	saved, err := client.UpdateProduct(context.Background(), 7, upd)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if saved.ID != 7 || saved.Name != "Saved" {
		t.Fatalf("saved = %+v", saved)
	}
}

func TestRefdataCreateUsesQueryParams(t *testing.T) {
	t.Parallel()
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/storage/products/colors" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("name") != "Crimson" || q.Get("hex") != "#DC143C" {
			t.Errorf("query = %v", q)
		}
		_ = json.NewEncoder(w).Encode(model.ColorRef{ID: 9, Name: "Crimson", Hex: "#DC143C"})
	})

	col, err := client.CreateColor(context.Background(), "Crimson", "#DC143C")
	if err != nil {
		t.Fatalf("create color: %v", err)
	}
	if col.ID != 9 {
		t.Fatalf("created = %+v", col)
	}
}

func TestReplacingDeleteEncodesBothNames(t *testing.T) {
	t.Parallel()
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/storage/products/sizes" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("delete") != "XS" || q.Get("replace") != "S" {
			t.Errorf("query = %v", q)
		}
	})
	if err := client.DeleteSizeReplacing(context.Background(), "XS", "S"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
