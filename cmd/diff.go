package cmd

import (
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"db-ready/internal/report"
	"db-ready/internal/store"
)

var diffCmd = &cobra.Command{
	Use:   "diff [before-id] [after-id]",
	Short: "Compare two saved assessments",
	Long: `Compare two saved assessments by id. With no arguments the two most
recent runs of the current connection are compared.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory()
		if err != nil {
			return err
		}
		defer st.Close()

		var before, after *report.Report
		switch len(args) {
		case 2:
			if before, err = byID(st, args[0]); err != nil {
				return err
			}
			if after, err = byID(st, args[1]); err != nil {
				return err
			}
		case 0:
			conn := currentConnection()
			if after, err = st.Latest(conn); err != nil {
				return err
			}
			if before, err = st.Previous(conn); err != nil {
				return err
			}
			if before == nil || after == nil {
				return fmt.Errorf("need at least two saved assessments for %s", conn)
			}
		default:
			return fmt.Errorf("diff takes zero or two assessment ids")
		}

		delta := report.Diff(before, after)
		for _, w := range delta.Warnings {
			log.Printf("warning: %s", w)
		}
		fmt.Println(delta.Markdown())
		return nil
	},
}

func byID(st *store.Store, arg string) (*report.Report, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid assessment id %q", arg)
	}
	return st.Get(id)
}

func init() {
	RootCmd.AddCommand(diffCmd)
}
