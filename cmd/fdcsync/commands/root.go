package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "fdcsync",
	Short: "USDA FoodData Central sync and artifact builder",
	Long:  `Synchronizes the USDA FoodData Central database into a local SQLite store and builds the pre-packaged food artifact from the bulk CSV exports.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db-path", ".data/foods.db", "SQLite database path")
	rootCmd.PersistentFlags().String("flow-db-path", ".data/flow", "Workflow BoltDB path")
	rootCmd.PersistentFlags().String("api-key", "", "FoodData Central API key")
	rootCmd.PersistentFlags().String("work-dir", "/tmp/fdcsync", "Working directory for downloads")
	rootCmd.PersistentFlags().String("artifact-path", "dist/usda-foods.json", "Output path for the built artifact")
	rootCmd.PersistentFlags().String("mirror-bucket", "", "S3 mirror bucket for bulk archives (optional)")

	viper.BindPFlag("db-path", rootCmd.PersistentFlags().Lookup("db-path"))
	viper.BindPFlag("flow-db-path", rootCmd.PersistentFlags().Lookup("flow-db-path"))
	viper.BindPFlag("api-key", rootCmd.PersistentFlags().Lookup("api-key"))
	viper.BindPFlag("work-dir", rootCmd.PersistentFlags().Lookup("work-dir"))
	viper.BindPFlag("artifact-path", rootCmd.PersistentFlags().Lookup("artifact-path"))
	viper.BindPFlag("mirror-bucket", rootCmd.PersistentFlags().Lookup("mirror-bucket"))
}
