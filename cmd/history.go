package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"db-ready/internal/store"
)

var (
	historyLimit int
	historyAll   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved assessments",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory()
		if err != nil {
			return err
		}
		defer st.Close()

		conn := currentConnection()
		if historyAll {
			conn = ""
		}
		entries, err := st.List(conn, historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No saved assessments.")
			return nil
		}

		fmt.Printf("%-5s %-10s %-20s %7s %7s  %s\n", "ID", "PLATFORM", "GENERATED", "CHECKS", "FAILED", "CONNECTION")
		for _, e := range entries {
			fmt.Printf("%-5d %-10s %-20s %7d %7d  %s\n",
				e.ID, e.Platform, e.GeneratedAt.Format("2006-01-02 15:04:05"),
				e.ChecksRun, e.Failed, e.Connection)
		}
		return nil
	},
}

// currentConnection is the sanitized key history rows are stored under.
func currentConnection() string {
	return store.Sanitize(viper.GetString("database.dsn"))
}

func init() {
	RootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries to list")
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "List every connection, not just the current one")
}
