// Command boutique is a CLI client for the boutique storefront backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aviete/boutique/internal/admin"
	"github.com/aviete/boutique/internal/api"
	"github.com/aviete/boutique/internal/catalog"
	"github.com/aviete/boutique/internal/config"
	"github.com/aviete/boutique/internal/detail"
	"github.com/aviete/boutique/internal/errs"
	"github.com/aviete/boutique/internal/filter"
	"github.com/aviete/boutique/internal/model"
	"github.com/aviete/boutique/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `boutique CLI
Usage:
  boutique [-v] <cmd> [args]

Commands:
  version
  login      -u <email> -p <password>              (saves token)
  logout
  whoami
  lang       [-set en|lt|ru]
  list       [-name s] [-type id] [-sizes 1,2] [-colors 1,2]
             [-min price] [-max price] [-page n]
  show       -id <id>
  edit       -id <id> [-name s] [-desc s] [-price f] [-type id]
             [-attrs a,b] [-rm-attrs a] [-variants c:s:q,...]
             [-images f.jpg,...] [-image-color id]
             [-bind key=colorId,...] [-rm-images key,...]
  rm         -id <id>
  create     -name s -type id -price f [-desc s] [-attrs a,b]
             [-variants c:s:q,...] [-images f.jpg,...] [-image-color id]
  refdata
  type-add   -name s
  type-rm    -name s [-replace s]
  size-add   -name s
  size-rm    -name s [-replace s]
  color-add  -name s -hex '#RRGGBB'
  color-rm   -name s [-replace s]
`)
	os.Exit(2)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		fmt.Fprintln(os.Stderr, "unauthorized (login required)")
	case errors.Is(err, errs.ErrNotFound):
		fmt.Fprintln(os.Stderr, "not found")
	default:
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

func main() {
	verbose := flag.Bool("v", false, "debug request logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	cfg := config.Load()
	log := zap.NewNop()
	if *verbose {
		log, _ = zap.NewDevelopment()
	}
	defer log.Sync()

	dir := cfg.ConfigDir
	if dir == "" {
		dir = session.DefaultDir()
	}
	store := session.New(dir)
	client := api.New(cfg.BaseURL, store, cfg.Timeout, log)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	switch cmd {

	case "version":
		fmt.Printf("boutique %s (%s)\n", version, buildDate)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		u := fs.String("u", "", "email")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *u == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u and -p")
			os.Exit(1)
		}
		tok, err := client.Login(ctx, model.Credentials{Email: *u, Password: *p})
		if err != nil {
			fail(err)
		}
		if err := store.SetToken(tok, true, cfg.TokenTTL); err != nil {
			fail(err)
		}
		user, err := client.UserDetails(ctx)
		if err != nil {
			fail(err)
		}
		fmt.Printf("ok (%s, %s)\n", user.Email, user.Role)

	case "logout":
		if err := store.Clear(); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "whoami":
		requireLogin(store)
		user, err := client.UserDetails(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(user)

	case "lang":
		fs := flag.NewFlagSet("lang", flag.ExitOnError)
		set := fs.String("set", "", "locale code (en|lt|ru)")
		_ = fs.Parse(args)
		if *set != "" {
			if err := store.SetLanguage(*set); err != nil {
				fail(err)
			}
		}
		fmt.Println(store.Language())

	case "list":
		cmdList(ctx, client, cfg, args)

	case "show":
		fs := flag.NewFlagSet("show", flag.ExitOnError)
		id := fs.Int64("id", 0, "product id")
		_ = fs.Parse(args)
		if *id == 0 {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		view := detail.NewView(client)
		if err := view.Load(ctx, *id, false); err != nil {
			fail(err)
		}
		printProduct(view)

	case "edit":
		requireAdmin(ctx, client, store)
		cmdEdit(ctx, client, args)

	case "rm":
		fs := flag.NewFlagSet("rm", flag.ExitOnError)
		id := fs.Int64("id", 0, "product id")
		_ = fs.Parse(args)
		if *id == 0 {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		requireAdmin(ctx, client, store)
		if err := client.DeleteProduct(ctx, *id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "create":
		requireAdmin(ctx, client, store)
		cmdCreate(ctx, client, args)

	case "refdata":
		requireAdmin(ctx, client, store)
		console := admin.NewConsole(client)
		if err := console.Load(ctx); err != nil {
			fail(err)
		}
		printJSON(model.ConstructionInfo{
			Types:  console.Types(),
			Sizes:  console.Sizes(),
			Colors: console.Colors(),
		})

	case "type-add", "size-add", "color-add":
		requireAdmin(ctx, client, store)
		cmdRefAdd(ctx, client, cmd, args)

	case "type-rm", "size-rm", "color-rm":
		requireAdmin(ctx, client, store)
		cmdRefRemove(ctx, client, cmd, args)

	default:
		usage()
	}
}

func requireLogin(store *session.Store) {
	if !store.Authenticated() {
		fail(errs.ErrNoToken)
	}
}

// requireAdmin gates management commands on the role reported by the backend.
func requireAdmin(ctx context.Context, client *api.Client, store *session.Store) {
	requireLogin(store)
	user, err := client.UserDetails(ctx)
	if err != nil {
		fail(err)
	}
	if user.Role != model.RoleAdmin {
		fmt.Fprintln(os.Stderr, "admin role required")
		os.Exit(1)
	}
}

// cmdList drives the filter machine and catalog service for one query: set
// every given field, let the debounce window elapse, print the page.
func cmdList(ctx context.Context, client *api.Client, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	name := fs.String("name", "", "name search term")
	typeID := fs.Int64("type", 0, "type id")
	sizes := fs.String("sizes", "", "size ids, comma-separated")
	colors := fs.String("colors", "", "color ids, comma-separated")
	minP := fs.String("min", "", "min price")
	maxP := fs.String("max", "", "max price")
	page := fs.Int("page", 0, "page number (0-based)")
	_ = fs.Parse(args)

	svc := catalog.New(client, cfg.PageSize)
	done := make(chan struct{}, 1)
	m := filter.New(cfg.Debounce, func(crit model.FilterCriteria) {
		svc.Apply(ctx, crit)
		done <- struct{}{}
	})
	defer m.Stop()

	m.SetName(*name)
	m.SetType(*typeID)
	for _, id := range parseIDs(*sizes) {
		m.AddSize(id)
	}
	for _, id := range parseIDs(*colors) {
		m.AddColor(id)
	}
	m.SetMinPrice(*minP)
	m.SetMaxPrice(*maxP)

	if m.State() == filter.StateInvalid {
		fail(fmt.Errorf("%w: %s", errs.ErrInvalidFilter, m.Reason()))
	}
	select {
	case <-done:
	case <-ctx.Done():
		fail(ctx.Err())
	}
	if *page > 0 {
		svc.SetPage(ctx, *page)
	}

	snap := svc.Snapshot()
	if snap.Err != "" {
		fail(errors.New(snap.Err))
	}
	fmt.Printf("page %d/%d (%d products)\n", snap.Page+1, snap.TotalPages, snap.TotalElements)
	for _, p := range snap.Items {
		fmt.Printf("  %d\t%s\t%.2f\n", p.ID, p.Name, p.Price)
	}
}

func cmdEdit(ctx context.Context, client *api.Client, args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	id := fs.Int64("id", 0, "product id")
	name := fs.String("name", "", "new name")
	desc := fs.String("desc", "", "new description")
	price := fs.Float64("price", 0, "new price")
	typeID := fs.Int64("type", 0, "new type id")
	attrs := fs.String("attrs", "", "attributes to add, comma-separated")
	rmAttrs := fs.String("rm-attrs", "", "attributes to remove, comma-separated")
	variants := fs.String("variants", "", "replacement variants colorId:sizeId:qty, comma-separated")
	images := fs.String("images", "", "image files to add, comma-separated")
	imageColor := fs.Int64("image-color", 0, "color id binding for added images")
	bind := fs.String("bind", "", "image bindings key=colorId (0 unbinds), comma-separated")
	rmImages := fs.String("rm-images", "", "image keys to remove, comma-separated")
	_ = fs.Parse(args)
	if *id == 0 {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}

	view := detail.NewView(client)
	if err := view.Load(ctx, *id, true); err != nil {
		fail(err)
	}
	view.EnterEdit()

	if *name != "" {
		view.SetName(*name)
	}
	if *desc != "" {
		view.SetDescription(*desc)
	}
	if *price != 0 {
		view.SetPrice(*price)
	}
	if *typeID != 0 {
		view.SetType(*typeID)
	}
	for _, a := range splitCSV(*attrs) {
		view.AddAttribute(a)
	}
	for _, a := range splitCSV(*rmAttrs) {
		view.RemoveAttribute(a)
	}
	if *variants != "" {
		rows, err := parseVariants(*variants)
		if err != nil {
			fail(err)
		}
		for len(view.Draft().Product.Variants) > 0 {
			view.RemoveVariant(0)
		}
		for i, vr := range rows {
			view.AddVariant()
			view.SetVariantColor(i, vr.ColorID)
			view.SetVariantSize(i, vr.SizeID)
			view.SetVariantQuantity(i, vr.Quantity)
		}
	}
	if *images != "" {
		files, err := readImageFiles(*images)
		if err != nil {
			fail(err)
		}
		before := len(view.Draft().NewImages)
		if err := view.AddImages(files); err != nil {
			fail(err)
		}
		if *imageColor != 0 {
			for _, img := range view.Draft().NewImages[before:] {
				id := *imageColor
				view.BindImage(img.Key, &id)
			}
		}
	}
	for _, b := range splitCSV(*bind) {
		key, val, ok := strings.Cut(b, "=")
		if !ok {
			fail(fmt.Errorf("bad binding %q, want key=colorId", b))
		}
		colorID, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			fail(fmt.Errorf("bad binding %q: %w", b, err))
		}
		if colorID == 0 {
			view.BindImage(key, nil)
		} else {
			view.BindImage(key, &colorID)
		}
	}
	for _, key := range splitCSV(*rmImages) {
		view.RemoveImage(key)
	}

	if problems := view.Validate(); !problems.Valid() {
		printJSON(problems)
		fail(errs.ErrDraftInvalid)
	}
	if err := view.Save(ctx); err != nil {
		fail(err)
	}
	printProduct(view)
}

func cmdCreate(ctx context.Context, client *api.Client, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "product name")
	typeID := fs.Int64("type", 0, "type id")
	price := fs.Float64("price", 0, "price")
	desc := fs.String("desc", "", "description")
	attrs := fs.String("attrs", "", "attributes, comma-separated")
	variants := fs.String("variants", "", "variants colorId:sizeId:qty, comma-separated")
	images := fs.String("images", "", "image files, comma-separated")
	imageColor := fs.Int64("image-color", 0, "color id binding for the images")
	_ = fs.Parse(args)

	b := admin.NewBuilder(client)
	b.SetName(*name)
	b.SetType(*typeID)
	b.SetPrice(*price)
	b.SetDescription(*desc)
	for _, a := range splitCSV(*attrs) {
		b.AddAttribute(a)
	}
	if *variants != "" {
		rows, err := parseVariants(*variants)
		if err != nil {
			fail(err)
		}
		for _, vr := range rows {
			b.AddVariant(vr.ColorID, vr.SizeID, vr.Quantity)
		}
	}
	if *images != "" {
		files, err := readImageFiles(*images)
		if err != nil {
			fail(err)
		}
		adminFiles := make([]admin.File, len(files))
		for i, f := range files {
			adminFiles[i] = admin.File{Name: f.Name, Data: f.Data}
		}
		var colorID *int64
		if *imageColor != 0 {
			colorID = imageColor
		}
		if err := b.AddImages(adminFiles, colorID); err != nil {
			fail(err)
		}
	}

	if problems := b.Validate(); !problems.Valid() {
		printJSON(problems)
		fail(errs.ErrDraftInvalid)
	}
	if err := b.Submit(ctx); err != nil {
		fail(err)
	}
	fmt.Println("ok")
}

func cmdRefAdd(ctx context.Context, client *api.Client, cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	name := fs.String("name", "", "entry name")
	hex := fs.String("hex", "", "color hex '#RRGGBB'")
	_ = fs.Parse(args)
	if *name == "" {
		fmt.Fprintln(os.Stderr, "need -name")
		os.Exit(1)
	}

	console := admin.NewConsole(client)
	if err := console.Load(ctx); err != nil {
		fail(err)
	}
	var (
		created any
		err     error
	)
	switch cmd {
	case "type-add":
		created, err = console.AddType(ctx, *name)
	case "size-add":
		created, err = console.AddSize(ctx, *name)
	case "color-add":
		created, err = console.AddColor(ctx, *name, *hex)
	}
	if err != nil {
		fail(err)
	}
	printJSON(created)
}

func cmdRefRemove(ctx context.Context, client *api.Client, cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	name := fs.String("name", "", "entry name")
	replace := fs.String("replace", "", "migration target for in-use entries")
	_ = fs.Parse(args)
	if *name == "" {
		fmt.Fprintln(os.Stderr, "need -name")
		os.Exit(1)
	}

	console := admin.NewConsole(client)
	if err := console.Load(ctx); err != nil {
		fail(err)
	}
	var err error
	switch cmd {
	case "type-rm":
		err = console.DeleteType(ctx, *name, *replace)
	case "size-rm":
		err = console.DeleteSize(ctx, *name, *replace)
	case "color-rm":
		err = console.DeleteColor(ctx, *name, *replace)
	}
	if err != nil {
		fail(err)
	}
	fmt.Println("ok")
}

func printProduct(view *detail.View) {
	p := view.Product()
	if p == nil {
		return
	}
	fmt.Printf("%d\t%s\t%.2f\n", p.ID, p.Name, p.Price)
	if p.Description != "" {
		fmt.Println(p.Description)
	}
	if len(p.Attributes) > 0 {
		fmt.Printf("attributes: %s\n", strings.Join(p.Attributes, ", "))
	}
	if view.ColorBound() {
		var names []string
		for _, c := range p.Colors {
			names = append(names, c.Name)
		}
		fmt.Printf("colors: %s (selected %d)\n", strings.Join(names, ", "), view.SelectedColor())
	}
	var sizes []string
	for _, s := range view.AvailableSizes() {
		sizes = append(sizes, s.Name)
	}
	fmt.Printf("sizes: %s\n", strings.Join(sizes, ", "))
	if qty, ok := view.CurrentQuantity(); ok {
		fmt.Printf("in stock: %d\n", qty)
	}
	fmt.Printf("images: %d\n", len(view.Images()))
}

// ---- parsing helpers ----

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIDs(s string) []int64 {
	var out []int64
	for _, part := range splitCSV(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			fail(fmt.Errorf("bad id %q: %w", part, err))
		}
		out = append(out, id)
	}
	return out
}

func parseVariants(s string) ([]model.Variant, error) {
	var out []model.Variant
	for _, part := range splitCSV(s) {
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("bad variant %q, want colorId:sizeId:qty", part)
		}
		colorID, err1 := strconv.ParseInt(fields[0], 10, 64)
		sizeID, err2 := strconv.ParseInt(fields[1], 10, 64)
		qty, err3 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("bad variant %q, want colorId:sizeId:qty", part)
		}
		out = append(out, model.Variant{ColorID: colorID, SizeID: sizeID, Quantity: qty})
	}
	return out, nil
}

func readImageFiles(s string) ([]detail.File, error) {
	var out []detail.File
	for _, path := range splitCSV(s) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, detail.File{Name: filepath.Base(path), Data: data})
	}
	return out, nil
}
