package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/mergestat/timediff"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var dbStatsCmd = &cobra.Command{
	Use:   "db-stats",
	Short: "Show database statistics",
	Long:  `Display the number of records per kind and section.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		info, err := os.Stat(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to read database file: %w", err)
		}

		return withDB(cmd.Context(), cfg, false, func(db *database.Client) error {
			t := newTable("KIND", "SECTION", "RECORDS")
			var total int64
			for _, kind := range database.Kinds {
				store, err := db.Store(kind)
				if err != nil {
					return err
				}
				counts, err := store.CountBySection(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to count %s records: %w", kind, err)
				}

				sections := lo.Keys(counts)
				slices.Sort(sections)
				for _, section := range sections {
					t.Row(string(kind), string(section), humanize.Comma(counts[section]))
				}
				total += lo.Sum(lo.Values(counts))
			}

			fmt.Println("Database Statistics:")
			fmt.Printf("File: %s (%s, modified %s)\n", cfg.Database.Path, humanize.Bytes(toUint64(info.Size())), timediff.TimeDiff(info.ModTime()))
			fmt.Printf("Total Records: %s\n", humanize.Comma(total))
			fmt.Println(t)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dbStatsCmd)
}
