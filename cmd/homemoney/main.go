// Command homemoney is the terminal surface of the dashboard engine:
// import statements, manage rules and read aggregate views against the
// local database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"homemoney/internal/aggregate"
	"homemoney/internal/config"
	"homemoney/internal/core"
	"homemoney/internal/csvimport"
	"homemoney/internal/log"
	"homemoney/internal/sample"
	"homemoney/internal/services"
	"homemoney/internal/storage"
	"homemoney/internal/store"
)

const usage = `usage: homemoney <command> [flags]

commands:
  import <file.csv>...   import bank statement exports
  add                    enter one transaction by hand
  list                   show transactions
  agg                    aggregate by month, category or payee
  trend                  monthly totals or counts, gap-free
  rule                   add, list or remove rules
  category               list the category catalog or add to it
  assign                 pin a category to one transaction
  note                   attach a note to one transaction
  rm                     remove one transaction
  files                  show the imported-file registry
  seed                   write a generated sample statement

run 'homemoney <command> -h' for flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := log.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// seed only writes a CSV, no database needed.
	if os.Args[1] == "seed" {
		if err := runSeed(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "seed:", err)
			os.Exit(1)
		}
		return
	}

	repo, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer repo.Close()

	st := store.New(core.Fingerprinter{BucketCents: cfg.FingerprintBucketCents}, cfg.CacheTTL)
	app := services.NewApp(st, repo, services.Options{ImportConcurrency: cfg.ImportConcurrency})
	if err := app.Bootstrap(ctx); err != nil {
		logger.Error("bootstrap", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, app, repo, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, app *services.App, repo *storage.Repository, cmd string, args []string) error {
	switch cmd {
	case "import":
		return runImport(ctx, app, args)
	case "add":
		return runAdd(ctx, app, args)
	case "list":
		return runList(app, args)
	case "agg":
		return runAgg(app, args)
	case "trend":
		return runTrend(app, args)
	case "rule":
		return runRule(ctx, app, args)
	case "category":
		return runCategory(ctx, app, repo, args)
	case "assign":
		return runAssign(ctx, app, args)
	case "note":
		return runNote(ctx, app, args)
	case "rm":
		return runRemove(ctx, app, args)
	case "files":
		return runFiles(ctx, app)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runImport(ctx context.Context, app *services.App, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dateCol := fs.String("date-col", "", "header of the date column, for unrecognized layouts")
	descCol := fs.String("desc-col", "", "header of the description column")
	amountCol := fs.String("amount-col", "", "header of the amount column")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("import: no files given")
	}

	var opts csvimport.Options
	if *dateCol != "" || *descCol != "" || *amountCol != "" {
		opts.Mapping = &csvimport.Mapping{Date: *dateCol, Description: *descCol, Amount: *amountCol}
	}

	results, err := app.Imports.ImportFiles(ctx, fs.Args(), opts)
	for _, res := range results {
		fmt.Println(res.String())
	}
	return err
}

func runAdd(ctx context.Context, app *services.App, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	date := fs.String("date", "", "date, YYYY-MM-DD")
	desc := fs.String("desc", "", "description")
	amount := fs.String("amount", "", "signed amount, negative for spending")
	note := fs.String("note", "", "optional note")
	fs.Parse(args)

	d, err := parseDateFlag(*date)
	if err != nil {
		return err
	}
	cents, err := core.ParseAmount(*amount)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	res, err := app.Imports.AddManual(ctx, core.Transaction{
		Date:        d,
		Description: *desc,
		Amount:      core.Money{Cents: cents},
		Note:        *note,
	})
	if err != nil {
		return err
	}
	fmt.Println(res.String())
	return nil
}

func runList(app *services.App, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	sortBy := fs.String("sort", "date", "sort key: date, description, amount")
	desc := fs.Bool("desc", false, "descending order")
	search := fs.String("search", "", "filter by description substring")
	fs.Parse(args)

	txs := app.Views.Transactions(store.ListOptions{SortBy: *sortBy, Descending: *desc, Search: *search})
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tAMOUNT\tCATEGORY\tDESCRIPTION\tFINGERPRINT")
	for _, t := range txs {
		cat := t.Category
		if t.Ignored {
			cat = "(ignored)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.Date.ISO(), t.Amount, cat, t.Description, short(t.Fingerprint))
	}
	return w.Flush()
}

func runAgg(app *services.App, args []string) error {
	fs := flag.NewFlagSet("agg", flag.ExitOnError)
	by := fs.String("by", "month", "grouping: month, category, payee")
	from := fs.String("from", "", "window start, YYYY-MM-DD")
	to := fs.String("to", "", "window end, YYYY-MM-DD")
	fs.Parse(args)

	w, err := parseWindow(*from, *to)
	if err != nil {
		return err
	}
	groups := app.Views.Aggregate(aggregate.GroupBy(*by), w)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTOTAL\tCOUNT")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", g.Key, g.Total, g.Count)
	}
	return tw.Flush()
}

func runTrend(app *services.App, args []string) error {
	fs := flag.NewFlagSet("trend", flag.ExitOnError)
	metric := fs.String("metric", "total", "series metric: total, count")
	from := fs.String("from", "", "window start, YYYY-MM-DD")
	to := fs.String("to", "", "window end, YYYY-MM-DD")
	fs.Parse(args)

	w, err := parseWindow(*from, *to)
	if err != nil {
		return err
	}
	points := app.Views.Trend(aggregate.Metric(*metric), w)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, p := range points {
		if *metric == "count" {
			fmt.Fprintf(tw, "%s\t%d\n", p.Month, p.Value)
		} else {
			fmt.Fprintf(tw, "%s\t%s\n", p.Month, core.Money{Cents: p.Value})
		}
	}
	return tw.Flush()
}

func runRule(ctx context.Context, app *services.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("rule: expected add, list or rm")
	}
	switch args[0] {
	case "add":
		return runRuleAdd(ctx, app, args[1:])
	case "list":
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "POS\tKIND\tPATTERN\tCATEGORY")
		for i, r := range app.Rules.Current() {
			pattern := r.Matcher.Pattern
			if r.Matcher.Fingerprint != "" {
				pattern = "fp:" + short(r.Matcher.Fingerprint)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, r.Kind, pattern, r.Category)
		}
		return tw.Flush()
	case "rm":
		if len(args) < 2 {
			return fmt.Errorf("rule rm: position required")
		}
		pos, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("rule rm: bad position %q", args[1])
		}
		return app.Rules.Delete(ctx, pos)
	default:
		return fmt.Errorf("rule: unknown subcommand %q", args[0])
	}
}

func runCategory(ctx context.Context, app *services.App, repo *storage.Repository, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("category: expected list or add")
	}
	switch args[0] {
	case "list":
		cats, err := repo.Categories(ctx)
		if err != nil {
			return err
		}
		assigned := make(map[string]bool)
		for _, name := range app.Rules.Categories() {
			assigned[name] = true
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tIN RULES\tDESCRIPTION")
		for _, c := range cats {
			inRules := ""
			if assigned[c.Name] {
				inRules = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, inRules, c.Description)
		}
		return tw.Flush()
	case "add":
		fs := flag.NewFlagSet("category add", flag.ExitOnError)
		name := fs.String("name", "", "category name")
		desc := fs.String("desc", "", "description")
		color := fs.String("color", "", "display color, e.g. #95A5A6")
		fs.Parse(args[1:])
		if *name == "" {
			return fmt.Errorf("category add: -name required")
		}
		return repo.AddCategory(ctx, storage.Category{Name: *name, Description: *desc, Color: *color})
	default:
		return fmt.Errorf("category: unknown subcommand %q", args[0])
	}
}

func runRuleAdd(ctx context.Context, app *services.App, args []string) error {
	fs := flag.NewFlagSet("rule add", flag.ExitOnError)
	kind := fs.String("kind", "categorize", "rule kind: categorize, ignore")
	pattern := fs.String("pattern", "", "description pattern")
	useRegexp := fs.Bool("regexp", false, "treat pattern as a regular expression")
	category := fs.String("category", "", "category to assign")
	minAmount := fs.String("min", "", "minimum amount, inclusive")
	maxAmount := fs.String("max", "", "maximum amount, inclusive")
	after := fs.String("after", "", "earliest date, YYYY-MM-DD")
	before := fs.String("before", "", "latest date, YYYY-MM-DD")
	fs.Parse(args)

	r := core.Rule{
		Kind:     core.RuleKind(*kind),
		Category: *category,
		Matcher:  core.Matcher{Pattern: *pattern, UseRegexp: *useRegexp},
	}
	var err error
	if r.Matcher.MinAmount, err = parseMoneyFlag(*minAmount); err != nil {
		return err
	}
	if r.Matcher.MaxAmount, err = parseMoneyFlag(*maxAmount); err != nil {
		return err
	}
	if *after != "" {
		if r.Matcher.After, err = parseDateFlag(*after); err != nil {
			return err
		}
	}
	if *before != "" {
		if r.Matcher.Before, err = parseDateFlag(*before); err != nil {
			return err
		}
	}
	return app.Rules.Add(ctx, r)
}

func runAssign(ctx context.Context, app *services.App, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("assign: expected <fingerprint> <category>")
	}
	return app.Rules.AssignCategory(ctx, args[0], args[1])
}

func runNote(ctx context.Context, app *services.App, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("note: expected <fingerprint> <text>")
	}
	return app.Imports.SetNote(ctx, args[0], args[1])
}

func runRemove(ctx context.Context, app *services.App, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("rm: expected <fingerprint>")
	}
	return app.Imports.Remove(ctx, args[0])
}

func runFiles(ctx context.Context, app *services.App) error {
	files, err := app.Views.SourceFiles(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMPORTED\tROWS\tFILE\tSHA256")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			f.ImportedAt.Format("2006-01-02 15:04"), f.TransactionCount, f.Filename, short(f.SHA256))
	}
	return tw.Flush()
}

func runSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	out := fs.String("out", "sample_transactions.csv", "output path")
	count := fs.Int("count", 200, "number of spending rows")
	seed := fs.Int64("seed", 0, "random seed")
	fs.Parse(args)

	txs := sample.Generate(sample.Options{Count: *count, Seed: *seed})
	if err := os.WriteFile(*out, sample.CSV(txs), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %d rows to %s\n", len(txs), *out)
	return nil
}

func parseDateFlag(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, fmt.Errorf("date required, YYYY-MM-DD")
	}
	d, err := core.ParseISODate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("bad date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

func parseMoneyFlag(s string) (*core.Money, error) {
	if s == "" {
		return nil, nil
	}
	cents, err := core.ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", s, err)
	}
	return &core.Money{Cents: cents}, nil
}

func parseWindow(from, to string) (aggregate.Window, error) {
	var w aggregate.Window
	var err error
	if from != "" {
		if w.From, err = parseDateFlag(from); err != nil {
			return w, err
		}
	}
	if to != "" {
		if w.To, err = parseDateFlag(to); err != nil {
			return w, err
		}
	}
	return w, nil
}

func short(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
