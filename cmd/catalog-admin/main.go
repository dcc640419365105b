package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/config"
)

const usage = `Simple Catalog Admin CLI

A lightweight admin tool for inspecting and reconciling the catalog indexes.

USAGE:
  catalog-admin <command> [options]

COMMANDS:
  list      List index records with optional filtering
  stats     Report per-type record counts and index health
  sync      Reconcile indexes against the stored blobs
  ls        List the blobs of a storage folder

ENVIRONMENT VARIABLES:
  STORAGE_URL       memory, file:///path, s3://bucket?region=..., gs://bucket
  CACHE_URL         none, memory, redis://host:6379/0 (default: memory)

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

EXAMPLES:
  # List songs, best rated first
  catalog-admin list --type=song --sort-by=rating

  # Show index health
  catalog-admin stats

  # Reconcile every type
  catalog-admin sync

  # Reconcile only the music folder
  catalog-admin sync --type=music

  # List the blobs of the samples folder
  catalog-admin ls --folder=samples

  # Output as JSON
  catalog-admin list --json

OPTIONS:
  --type=<type>          Record type (list, sync)
  --sort-by=<field>      date, rating, name, last_played, genre (list only)
  --asc                  Ascending order (list only, default: descending)
  --genre=<genre>        Filter by genre (list only)
  --min-rating=<n>       Minimum rating (list only)
  --limit=<n>            Maximum results (list only, default: 100)
  --offset=<n>           Pagination offset (list only, default: 0)
  --folder=<name>        Folder to list (ls only)
  --json                 Output as JSON
`

type options struct {
	filter  simplecatalog.ListFilter
	typ     simplecatalog.TypeTag
	folder  string
	useJSON bool
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]

	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage + "\n")
		os.Exit(0)
	}

	opts, err := parseOptions(os.Args[2:])
	if err != nil {
		fmt.Printf("%v\n\n", err)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	ctx := context.Background()
	svc, err := createService(ctx)
	if err != nil {
		log.Fatalf("Failed to create catalog service: %v", err)
	}
	defer svc.Close(ctx)

	switch command {
	case "list":
		handleList(ctx, svc, opts)
	case "stats":
		handleStats(ctx, svc, opts)
	case "sync":
		handleSync(ctx, svc, opts)
	case "ls":
		handleLs(ctx, svc, opts)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
}

func createService(ctx context.Context) (simplecatalog.Service, error) {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	// Keep the CLI output clean; only warnings and errors are logged.
	cfg.LogLevel = "warn"
	return cfg.BuildService(ctx, simplecatalog.WithLogger(cfg.Logger(os.Stderr)))
}

func parseOptions(args []string) (options, error) {
	opts := options{
		filter: simplecatalog.ListFilter{SortDesc: true, Limit: 100},
	}

	for _, arg := range args {
		if arg == "--json" {
			opts.useJSON = true
			continue
		}

		key, value := parseFlag(arg)

		switch key {
		case "type":
			t, ok := simplecatalog.ParseTypeTag(value)
			if !ok {
				return opts, fmt.Errorf("unknown type: %s", value)
			}
			opts.typ = t
			opts.filter.Type = t
		case "sort-by":
			opts.filter.SortBy = simplecatalog.SortBy(value)
		case "asc":
			opts.filter.SortDesc = false
		case "genre":
			opts.filter.Genre = value
		case "min-rating":
			if n, err := strconv.Atoi(value); err == nil {
				opts.filter.MinRating = n
			}
		case "limit":
			if n, err := strconv.Atoi(value); err == nil {
				opts.filter.Limit = n
			}
		case "offset":
			if n, err := strconv.Atoi(value); err == nil {
				opts.filter.Offset = n
			}
		case "folder":
			opts.folder = value
		}
	}

	return opts, nil
}

func parseFlag(arg string) (string, string) {
	if len(arg) > 2 && arg[:2] == "--" {
		arg = arg[2:]
		for i, c := range arg {
			if c == '=' {
				return arg[:i], arg[i+1:]
			}
		}
		return arg, "true"
	}
	return "", ""
}

func handleList(ctx context.Context, svc simplecatalog.Service, opts options) {
	records, err := svc.ListRecords(ctx, opts.filter)
	if err != nil {
		log.Fatalf("Failed to list records: %v", err)
	}

	if opts.useJSON {
		printJSON(records)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tAUTHOR\tTYPE\tDATE\tRATING\tGENRE\n")
	fmt.Fprintf(w, "────────────\t────────────────────\t────────────────\t────────\t──────────\t──────\t────────────\n")

	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(r.ID, 12),
			truncate(r.Name, 20),
			truncate(r.Author, 16),
			r.Type,
			orDash(r.Date),
			ratingOf(r),
			truncate(orDash(deref(r.Genre)), 12),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d", len(records))
	if opts.filter.Limit > 0 && len(records) == opts.filter.Limit {
		fmt.Printf(" (may have more, use --offset=%d to continue)", opts.filter.Offset+opts.filter.Limit)
	}
	fmt.Println()
}

func handleStats(ctx context.Context, svc simplecatalog.Service, opts options) {
	report, err := svc.Health(ctx)
	if err != nil {
		log.Fatalf("Failed to get statistics: %v", err)
	}

	if opts.useJSON {
		printJSON(report)
		return
	}

	fmt.Println("=== Catalog Statistics ===")
	fmt.Printf("\nStatus: %s\n\n", report.Status)

	total := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TYPE\tRECORDS\tSTATUS\tERROR\n")
	for _, t := range sortedTypes(report.Storage) {
		h := report.Storage[t]
		total += h.Count
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", t, h.Count, h.Status, orDash(h.Error))
	}
	w.Flush()

	fmt.Printf("\nTotal records: %d\n", total)
}

func handleSync(ctx context.Context, svc simplecatalog.Service, opts options) {
	var report simplecatalog.SyncReport
	if opts.typ != "" {
		tr, err := svc.SyncType(ctx, opts.typ)
		if err != nil {
			log.Fatalf("Failed to sync %s: %v", opts.typ, err)
		}
		report = simplecatalog.SyncReport{opts.typ: *tr}
	} else {
		var err error
		report, err = svc.RunSync(ctx)
		if err != nil {
			log.Fatalf("Failed to sync: %v", err)
		}
	}

	if opts.useJSON {
		printJSON(report)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TYPE\tADDED\tREMOVED\tTOTAL\tERROR\n")
	for _, t := range sortedTypes(report) {
		r := report[t]
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", t, r.Added, r.Removed, r.Total, orDash(r.Error))
	}
	w.Flush()
}

func handleLs(ctx context.Context, svc simplecatalog.Service, opts options) {
	if opts.folder == "" {
		fmt.Println("--folder is required for ls")
		os.Exit(1)
	}

	listing, err := svc.ListFolder(ctx, opts.folder)
	if err != nil {
		log.Fatalf("Failed to list folder: %v", err)
	}

	if opts.useJSON {
		printJSON(listing)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "FILENAME\tSIZE\tUPDATED\n")
	for _, f := range listing.Files {
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Filename, f.Size, f.Updated.Format("2006-01-02 15:04:05"))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d\n", listing.Count)
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func sortedTypes[V any](m map[simplecatalog.TypeTag]V) []simplecatalog.TypeTag {
	out := make([]simplecatalog.TypeTag, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

func ratingOf(r simplecatalog.Record) string {
	switch {
	case r.Stars != nil:
		return strconv.FormatFloat(*r.Stars, 'f', 1, 64)
	case r.Rating != nil:
		return strconv.Itoa(*r.Rating)
	}
	return "-"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
