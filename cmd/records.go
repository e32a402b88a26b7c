package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"github.com/mediashelf/mediashelf/internal/cache"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/mediashelf/mediashelf/internal/engine"
	"github.com/mediashelf/mediashelf/internal/metadata"
	"github.com/mediashelf/mediashelf/internal/validation"
	"github.com/spf13/cobra"
)

var listFlags struct {
	Section string
	Sort    string
	Desc    bool
	Filter  string
	Random  bool
}

var addFlags struct {
	Year    int
	Rating  float64
	Section string
	Fetch   string
	Source  string
}

var listCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "List the records of a section",
	Example: `mediashelf list movies --section watching --sort year --desc
mediashelf list books --section reading --filter dune
mediashelf list games --random`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), args[0], false, func(store database.Store) error {
			section := database.Section(listFlags.Section)
			if section == "" {
				section = store.New().DefaultSection()
			}
			recs, err := store.ListBySection(cmd.Context(), section, database.SortColumn(listFlags.Sort), listFlags.Desc)
			if err != nil {
				return err
			}
			recs = database.Filter(recs, listFlags.Filter)

			if listFlags.Random {
				rec, ok := database.Pick(recs)
				if !ok {
					return fmt.Errorf("no %s records in %s", store.Kind(), section)
				}
				recs = []database.Record{rec}
			}
			printRecords(recs)
			return nil
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <kind> [title]",
	Short: "Add a record, typed in or fetched from a metadata provider",
	Example: `mediashelf add movie "Heat" --year 1995 --rating 9
mediashelf add movie --fetch 438631
mediashelf add movie --fetch 5114 --source mal --section watched`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		kind, err := database.ParseKind(args[0])
		if err != nil {
			return err
		}

		return withDB(cmd.Context(), cfg, true, func(db *database.Client) error {
			store, err := db.Store(kind)
			if err != nil {
				return err
			}

			var rec database.Record
			switch {
			case addFlags.Fetch != "":
				svc := metadata.New(cfg.Metadata, cache.NewMetadataCache(cfg.Cache))
				rec, err = svc.Fetch(cmd.Context(), kind, metadata.Source(addFlags.Source), addFlags.Fetch)
			case len(args) == 2:
				rec, err = manualRecord(store, args[1])
			default:
				err = errors.New("either a title or --fetch is required")
			}
			if err != nil {
				return err
			}
			if addFlags.Section != "" {
				rec.SetSection(database.Section(addFlags.Section))
			}
			if err := validation.Struct(rec); err != nil {
				return err
			}

			created, err := store.Insert(cmd.Context(), rec)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s #%d %q to %s\n", kind, created.GetID(), created.GetTitle(), created.GetSection())
			return nil
		})
	},
}

var moveCmd = &cobra.Command{
	Use:     "move <kind> <id> <section>",
	Short:   "Move a record to another section",
	Example: `mediashelf move movie 12 watched`,
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRecordID(args[1])
		if err != nil {
			return err
		}
		section := database.Section(strings.TrimSpace(args[2]))
		if section == "" {
			return database.ErrEmptySection
		}
		return withStore(cmd.Context(), args[0], true, func(store database.Store) error {
			moved, err := store.MoveSection(cmd.Context(), id, section)
			if err != nil {
				return err
			}
			if !moved {
				return fmt.Errorf("%w: %s #%d", database.ErrNotFound, store.Kind(), id)
			}
			fmt.Printf("Moved %s #%d to %s\n", store.Kind(), id, section)
			return nil
		})
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <kind> <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a record permanently",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRecordID(args[1])
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), args[0], true, func(store database.Store) error {
			deleted, err := store.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("%w: %s #%d", database.ErrNotFound, store.Kind(), id)
			}
			fmt.Printf("Deleted %s #%d\n", store.Kind(), id)
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:     "search <kind> <query>",
	Short:   "Search the metadata providers",
	Example: `mediashelf search movie dune`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		kind, err := database.ParseKind(args[0])
		if err != nil {
			return err
		}

		svc := metadata.New(cfg.Metadata, cache.NewMetadataCache(cfg.Cache))
		results, err := svc.Search(cmd.Context(), kind, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}

		t := newTable("ID", "TITLE", "RELEASED", "TYPE", "SOURCE")
		for _, r := range results {
			t.Row(r.ID, r.Title, r.ReleaseDate, r.Type, string(r.Source))
		}
		fmt.Println(t)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listFlags.Section, "section", "s", "", "Section to list (default: the kind's default section)")
	listCmd.Flags().StringVar(&listFlags.Sort, "sort", "", "Column to sort by (default: title)")
	listCmd.Flags().BoolVar(&listFlags.Desc, "desc", false, "Sort descending")
	listCmd.Flags().StringVarP(&listFlags.Filter, "filter", "f", "", "Only show records whose title contains the text or whose year matches")
	listCmd.Flags().BoolVar(&listFlags.Random, "random", false, "Pick one record at random")

	addCmd.Flags().IntVar(&addFlags.Year, "year", 0, "Release year")
	addCmd.Flags().Float64Var(&addFlags.Rating, "rating", 0, "Your rating (0-10)")
	addCmd.Flags().StringVarP(&addFlags.Section, "section", "s", "", "Section to add the record to")
	addCmd.Flags().StringVar(&addFlags.Fetch, "fetch", "", "Provider id to fetch the record from")
	addCmd.Flags().StringVar(&addFlags.Source, "source", "", "Provider of --fetch (mal selects MyAnimeList for anime movies)")

	rootCmd.AddCommand(listCmd, addCmd, moveCmd, rmCmd, searchCmd)
}

// errNoLibrary is returned when sync is on but the library was never brought down to this device.
var errNoLibrary = errors.New("no local database")

// engineOptions is replaced in tests.
var engineOptions = func() engine.Options {
	return engine.Options{Offline: rootCmdPersistentFlags.Offline}
}

// withDB opens the library for a record command. With sync enabled the
// database is reconciled with the cloud copy first, and the file is uploaded
// afterwards when upload is set and sync.upload_on_exit allows it.
func withDB(ctx context.Context, cfg *config.Config, upload bool, fn func(*database.Client) error) (err error) {
	opts := engineOptions()
	syncEnabled := cfg.Sync != nil && cfg.Sync.Enabled

	if !syncEnabled || opts.Offline {
		if syncEnabled {
			if _, err := os.Stat(cfg.Database.Path); errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w at %s; run 'mediashelf sync pull' or 'mediashelf serve' without --offline first", errNoLibrary, cfg.Database.Path)
			}
		}
		db, err := database.New(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close() //nolint: errcheck
		return fn(db)
	}

	cfg.Sync.UploadOnExit = upload && cfg.Sync.UploadOnExit
	eng, err := engine.New(cfg, opts)
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := eng.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(eng.DB())
}

func withStore(ctx context.Context, kindName string, upload bool, fn func(database.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	kind, err := database.ParseKind(kindName)
	if err != nil {
		return err
	}
	return withDB(ctx, cfg, upload, func(db *database.Client) error {
		store, err := db.Store(kind)
		if err != nil {
			return err
		}
		return fn(store)
	})
}

// manualRecord builds a record from the add flags. Fields go through the JSON
// names so every kind is handled the same way.
func manualRecord(store database.Store, title string) (database.Record, error) {
	fields := map[string]any{"title": title}
	if addFlags.Year != 0 {
		fields["year"] = addFlags.Year
	}
	if addFlags.Rating != 0 {
		fields["user_rating"] = addFlags.Rating
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	rec := store.New()
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("failed to build %s record: %w", store.Kind(), err)
	}
	return rec, nil
}

func parseRecordID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

func printRecords(recs []database.Record) {
	t := newTable("ID", "TITLE", "YEAR", "RATING", "SECTION")
	for _, rec := range recs {
		t.Row(strconv.FormatInt(rec.GetID(), 10), rec.GetTitle(), yearOf(rec), ratingOf(rec), string(rec.GetSection()))
	}
	fmt.Println(t)
}

func yearOf(rec database.Record) string {
	y, ok := rec.(interface{ GetYear() *int })
	if !ok || y.GetYear() == nil {
		return "-"
	}
	return strconv.Itoa(*y.GetYear())
}

func ratingOf(rec database.Record) string {
	var r *float64
	switch v := rec.(type) {
	case *database.Movie:
		r = v.UserRating
	case *database.Series:
		r = v.UserRating
	case *database.Game:
		r = v.UserRating
	case *database.Manga:
		r = v.UserRating
	case *database.Book:
		r = v.UserRating
	}
	if r == nil {
		return "-"
	}
	return strconv.FormatFloat(*r, 'f', 1, 64)
}
