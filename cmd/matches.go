package cmd

import (
	"fmt"

	"facematch/internal/config"
	"facematch/internal/repository/sqlite"

	"github.com/spf13/cobra"
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Show the recorded match history",
	RunE:  runMatches,
}

func init() {
	rootCmd.AddCommand(matchesCmd)

	matchesCmd.Flags().Int("limit", 20, "Number of recent matches to show")
	matchesCmd.Flags().String("db", "", "Database path (DATABASE_PATH)")
}

func runMatches(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cmd.Flags().Changed("db") {
		cfg.DatabasePath = mustGetString(cmd, "db")
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := sqlite.NewMatchRepository(db)

	matches, err := repo.GetRecent(mustGetInt(cmd, "limit"), 0)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("No matches recorded")
		return nil
	}

	for _, m := range matches {
		fmt.Printf("%s  %-12s %.2f  %d faces  %s\n",
			m.MatchedAt.Local().Format("2006-01-02 15:04:05"), m.Label, m.Distance, len(m.Faces), m.Filename)
	}

	total, err := repo.GetTotalCount()
	if err != nil {
		return err
	}
	byLabel, err := repo.CountByLabel()
	if err != nil {
		return err
	}
	fmt.Printf("\nTotal matches: %d\n", total)
	for label, count := range byLabel {
		fmt.Printf("   - %s: %d\n", label, count)
	}
	return nil
}
