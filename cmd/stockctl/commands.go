package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/app"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/types"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/catalogs/article"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/inventory"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/purchase"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/registers/stock"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return apperror.NewValidation(err.Error())
	}
	return nil
}

func parseID(field, raw string) (id.ID, error) {
	if raw == "" {
		return id.Nil(), apperror.NewValidation(field + " is required")
	}
	v, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid "+field).WithDetail(field, raw)
	}
	return v, nil
}

func optionalID(field, raw string) (*id.ID, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseDate(field, raw string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperror.NewValidation("invalid "+field).WithDetail(field, raw)
}

// subcommand splits "<verb> [positional] [--flags]" argument lists.
func subcommand(args []string) (verb string, rest []string, err error) {
	if len(args) == 0 {
		return "", nil, errUsage
	}
	return args[0], args[1:], nil
}

// positional takes the leading id argument of a verb.
func positional(field string, args []string) (id.ID, []string, error) {
	if len(args) == 0 {
		return id.Nil(), nil, apperror.NewValidation(field + " is required")
	}
	v, err := parseID(field, args[0])
	return v, args[1:], err
}

// intArg reads the single integer argument of a verb. Negative values are
// allowed ("migrate step -1").
func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, apperror.NewValidation("expected an integer").WithDetail("value", args[0])
	}
	return n, nil
}

// --- migrate ---

func runMigrate(ctx context.Context, a *app.App, args []string) (any, error) {
	verb, rest, err := subcommand(args)
	if err != nil {
		return nil, err
	}
	switch verb {
	case "up":
		if err := a.Migrate(ctx); err != nil {
			return nil, err
		}
	case "down":
		if err := a.MigrateDown(ctx); err != nil {
			return nil, err
		}
	case "step":
		n, err := intArg(rest)
		if err != nil {
			return nil, err
		}
		if err := a.MigrateSteps(ctx, n); err != nil {
			return nil, err
		}
	case "force":
		v, err := intArg(rest)
		if err != nil {
			return nil, err
		}
		if err := a.ForceSchemaVersion(ctx, v); err != nil {
			return nil, err
		}
	case "version":
	default:
		return nil, errUsage
	}

	version, dirty, err := a.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"version": version, "dirty": dirty}, nil
}

// --- article ---

func runArticle(ctx context.Context, a *app.App, args []string) (any, error) {
	verb, rest, err := subcommand(args)
	if err != nil {
		return nil, err
	}

	switch verb {
	case "create":
		fs := newFlags("article create")
		name := fs.String("name", "", "")
		category := fs.String("category", "", "")
		unit := fs.String("unit", "", "")
		if err := parse(fs, rest); err != nil {
			return nil, err
		}
		return a.Articles.Create(ctx, article.CreateInput{Name: *name, Category: *category, Unit: *unit})

	case "list":
		fs := newFlags("article list")
		search := fs.String("search", "", "")
		category := fs.String("category", "", "")
		if err := parse(fs, rest); err != nil {
			return nil, err
		}
		return a.Articles.List(ctx, article.ListFilter{Search: *search, Category: *category})

	case "show":
		articleID, _, err := positional("article", rest)
		if err != nil {
			return nil, err
		}
		return a.Articles.Get(ctx, articleID)
	}
	return nil, errUsage
}

// --- movement ---

func runMovement(ctx context.Context, a *app.App, args []string) (any, error) {
	verb, rest, err := subcommand(args)
	if err != nil {
		return nil, err
	}

	switch verb {
	case "record":
		fs := newFlags("movement record")
		articleRaw := fs.String("article", "", "")
		typ := fs.String("type", "", "")
		qty := fs.Int64("qty", 0, "")
		price := fs.String("price", "", "")
		linkKind := fs.String("link-kind", "", "")
		linkRaw := fs.String("link-id", "", "")
		note := fs.String("note", "", "")
		if err := parse(fs, rest); err != nil {
			return nil, err
		}

		articleID, err := parseID("article", *articleRaw)
		if err != nil {
			return nil, err
		}
		linkID, err := optionalID("link-id", *linkRaw)
		if err != nil {
			return nil, err
		}
		in := stock.MovementInput{
			ArticleID: articleID,
			Type:      entity.MovementType(*typ),
			Quantity:  *qty,
			LinkKind:  entity.LinkKind(*linkKind),
			LinkID:    linkID,
			Note:      *note,
		}
		if *price != "" {
			p, err := types.ParseUnitPrice(*price)
			if err != nil {
				return nil, apperror.NewValidation("invalid price").WithCause(err)
			}
			in.UnitPrice = &p
		}
		return a.Stock.RecordMovement(ctx, in)

	case "list":
		fs := newFlags("movement list")
		articleRaw := fs.String("article", "", "")
		if err := parse(fs, rest); err != nil {
			return nil, err
		}
		articleID, err := parseID("article", *articleRaw)
		if err != nil {
			return nil, err
		}
		return a.Stock.Movements(ctx, articleID)
	}
	return nil, errUsage
}

// --- recompute / audit ---

func runRecompute(ctx context.Context, a *app.App, args []string) (any, error) {
	fs := newFlags("recompute")
	articleRaw := fs.String("article", "", "")
	if err := parse(fs, args); err != nil {
		return nil, err
	}

	if *articleRaw == "" {
		return a.Stock.RecomputeAll(ctx)
	}
	articleID, err := parseID("article", *articleRaw)
	if err != nil {
		return nil, err
	}
	v, err := a.Stock.RecomputeStock(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"articleId": articleID, "stock": v}, nil
}

func runAudit(ctx context.Context, a *app.App, _ []string) (any, error) {
	drifts, err := a.Stock.Audit(ctx)
	if err != nil {
		return nil, err
	}
	if drifts == nil {
		drifts = []stock.Drift{}
	}
	return drifts, nil
}

// --- inventory ---

// inventoryHeader parses the flags shared by inventory create and update.
func inventoryHeader(name, defaultDate string, args []string) (inventory.CreateInput, error) {
	fs := newFlags(name)
	date := fs.String("date", defaultDate, "")
	kind := fs.String("kind", string(inventory.KindStandalone), "")
	event := fs.String("event", "", "")
	comment := fs.String("comment", "", "")
	if err := parse(fs, args); err != nil {
		return inventory.CreateInput{}, err
	}

	d, err := parseDate("date", *date)
	if err != nil {
		return inventory.CreateInput{}, err
	}
	return inventory.CreateInput{
		InventoryDate: d,
		Kind:          inventory.Kind(*kind),
		EventID:       event,
		Comment:       *comment,
	}, nil
}

func runInventory(ctx context.Context, a *app.App, args []string) (any, error) {
	verb, rest, err := subcommand(args)
	if err != nil {
		return nil, err
	}

	switch verb {
	case "create":
		in, err := inventoryHeader("inventory create", time.Now().Format(time.DateOnly), rest)
		if err != nil {
			return nil, err
		}
		return a.Inventories.Create(ctx, in)

	case "update":
		inventoryID, rest, err := positional("inventory", rest)
		if err != nil {
			return nil, err
		}
		in, err := inventoryHeader("inventory update", "", rest)
		if err != nil {
			return nil, err
		}
		return a.Inventories.UpdateHeader(ctx, inventoryID, in)

	case "line":
		inventoryID, rest, err := positional("inventory", rest)
		if err != nil {
			return nil, err
		}
		fs := newFlags("inventory line")
		articleRaw := fs.String("article", "", "")
		counted := fs.Int64("counted", 0, "")
		comment := fs.String("comment", "", "")
		if err := parse(fs, rest); err != nil {
			return nil, err
		}
		articleID, err := parseID("article", *articleRaw)
		if err != nil {
			return nil, err
		}
		return a.Inventories.UpsertLine(ctx, inventoryID, inventory.LineInput{
			ArticleID: articleID,
			Counted:   *counted,
			Comment:   *comment,
		})

	case "list":
		fs := newFlags("inventory list")
		kind := fs.String("kind", "", "")
		event := fs.String("event", "", "")
		if err := parse(fs, rest); err != nil {
			return nil, err
		}
		var filter inventory.ListFilter
		if *kind != "" {
			k := inventory.Kind(*kind)
			filter.Kind = &k
		}
		if *event != "" {
			filter.EventID = event
		}
		return a.Inventories.List(ctx, filter)
	}

	inventoryID, _, err := positional("inventory", rest)
	if err != nil {
		return nil, err
	}
	switch verb {
	case "apply":
		if err := a.Inventories.Apply(ctx, inventoryID); err != nil {
			return nil, err
		}
		return a.Inventories.Get(ctx, inventoryID)
	case "revert":
		return a.Inventories.Revert(ctx, inventoryID)
	case "delete":
		if err := a.Inventories.Delete(ctx, inventoryID); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": inventoryID}, nil
	case "show":
		return a.Inventories.Get(ctx, inventoryID)
	case "journal":
		return a.Stock.JournalFor(ctx, inventoryID)
	}
	return nil, errUsage
}

// --- purchase ---

// purchaseFields parses the flags shared by purchase create and update.
// An empty defaultDate makes --date mandatory.
func purchaseFields(name, defaultDate string, args []string) (purchase.CreateInput, error) {
	fs := newFlags(name)
	articleRaw := fs.String("article", "", "")
	qty := fs.Int64("qty", 0, "")
	price := fs.String("price", "", "")
	date := fs.String("date", defaultDate, "")
	supplier := fs.String("supplier", "", "")
	invoice := fs.String("invoice", "", "")
	fiscalYear := fs.String("fiscal-year", "", "")
	if err := parse(fs, args); err != nil {
		return purchase.CreateInput{}, err
	}

	articleID, err := parseID("article", *articleRaw)
	if err != nil {
		return purchase.CreateInput{}, err
	}
	p, err := types.ParseUnitPrice(*price)
	if err != nil {
		return purchase.CreateInput{}, apperror.NewValidation("invalid price").WithCause(err)
	}
	d, err := parseDate("date", *date)
	if err != nil {
		return purchase.CreateInput{}, err
	}
	return purchase.CreateInput{
		ArticleID:    articleID,
		PurchaseDate: d,
		Quantity:     *qty,
		UnitPrice:    p,
		Supplier:     *supplier,
		InvoiceRef:   *invoice,
		FiscalYear:   *fiscalYear,
	}, nil
}

func runPurchase(ctx context.Context, a *app.App, args []string) (any, error) {
	verb, rest, err := subcommand(args)
	if err != nil {
		return nil, err
	}

	switch verb {
	case "create":
		in, err := purchaseFields("purchase create", time.Now().Format(time.DateOnly), rest)
		if err != nil {
			return nil, err
		}
		return a.Purchases.Create(ctx, in)

	case "update":
		purchaseID, rest, err := positional("purchase", rest)
		if err != nil {
			return nil, err
		}
		in, err := purchaseFields("purchase update", "", rest)
		if err != nil {
			return nil, err
		}
		return a.Purchases.Update(ctx, purchaseID, in)

	case "avg-price":
		fs := newFlags("purchase avg-price")
		articleRaw := fs.String("article", "", "")
		untilRaw := fs.String("until", "", "")
		if err := parse(fs, rest); err != nil {
			return nil, err
		}
		articleID, err := parseID("article", *articleRaw)
		if err != nil {
			return nil, err
		}
		var until *time.Time
		if *untilRaw != "" {
			d, err := parseDate("until", *untilRaw)
			if err != nil {
				return nil, err
			}
			until = &d
		}
		return a.Purchases.AveragePrice(ctx, articleID, until)

	case "list":
		fs := newFlags("purchase list")
		articleRaw := fs.String("article", "", "")
		fiscalYear := fs.String("fiscal-year", "", "")
		if err := parse(fs, rest); err != nil {
			return nil, err
		}
		articleID, err := optionalID("article", *articleRaw)
		if err != nil {
			return nil, err
		}
		return a.Purchases.List(ctx, purchase.ListFilter{ArticleID: articleID, FiscalYear: *fiscalYear})

	case "show":
		purchaseID, _, err := positional("purchase", rest)
		if err != nil {
			return nil, err
		}
		return a.Purchases.Get(ctx, purchaseID)

	case "delete":
		purchaseID, _, err := positional("purchase", rest)
		if err != nil {
			return nil, err
		}
		if err := a.Purchases.Delete(ctx, purchaseID); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": purchaseID}, nil
	}
	return nil, errUsage
}

// --- fifo ---

func runFIFO(ctx context.Context, a *app.App, args []string) (any, error) {
	verb, rest, err := subcommand(args)
	if err != nil {
		return nil, err
	}

	fs := newFlags("fifo " + verb)
	articleRaw := fs.String("article", "", "")
	qty := fs.Int64("qty", 0, "")
	all := fs.Bool("all", false, "")
	if err := parse(fs, rest); err != nil {
		return nil, err
	}
	articleID, err := parseID("article", *articleRaw)
	if err != nil {
		return nil, err
	}

	switch verb {
	case "consume":
		return a.Stock.ConsumeFIFO(ctx, articleID, *qty)
	case "cost-basis":
		return a.Stock.CostBasis(ctx, articleID)
	case "batches":
		return a.Stock.Batches(ctx, articleID, !*all)
	}
	return nil, fmt.Errorf("%w: fifo %s", errUsage, verb)
}
