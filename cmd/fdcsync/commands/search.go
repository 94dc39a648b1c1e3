package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/traintrack/fdcsync/internal/config"
	"github.com/traintrack/fdcsync/pkg/errors"
	"github.com/traintrack/fdcsync/pkg/store"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the local food database by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 25, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer st.Close()

	foods, err := st.SearchByName(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return errors.Wrap(err, "search failed")
	}

	if len(foods) == 0 {
		fmt.Println("No foods found")
		return nil
	}

	fmt.Printf("%-10s %-50s %8s %8s %8s %8s %-12s\n",
		"FDC ID", "NAME", "KCAL", "PROTEIN", "CARBS", "FAT", "SERVING")
	fmt.Println("--------------------------------------------------------------------------------------------------------------")

	for _, f := range foods {
		name := f.Name
		if len([]rune(name)) > 50 {
			name = string([]rune(name)[:47]) + "..."
		}
		fmt.Printf("%-10d %-50s %8d %8.1f %8.1f %8.1f %-12s\n",
			f.FDCID, name, f.Calories, f.Protein, f.Carbs, f.Fat, f.ServingLabel)
	}

	return nil
}
