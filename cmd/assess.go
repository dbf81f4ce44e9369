package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"db-ready/internal/catalog"
	"db-ready/internal/engine"
	"db-ready/internal/inventory"
	"db-ready/internal/overlay"
	"db-ready/internal/report"
	"db-ready/internal/store"
)

var (
	contextFile    string
	thresholdsFile string
	outputFormat   string
	noSave         bool
	diffPrev       bool
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess the database's AI readiness",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ovl, err := overlay.Load(contextFile)
		if err != nil {
			return fmt.Errorf("loading context file: %w", err)
		}
		cfg, err := catalog.LoadThresholds(thresholdsFile)
		if err != nil {
			return fmt.Errorf("loading thresholds: %w", err)
		}

		fmt.Printf("🔎 Connected via %s\n", Plat.Name)

		log.Println("Discovering inventory...")
		opts := inventory.Options{
			Schemas:           Schemas,
			CardinalitySample: viper.GetInt("settings.cardinality_sample"),
		}
		inv, err := inventory.Discover(ctx, DB, Plat, ovl, opts)
		if err != nil {
			return err
		}
		if len(inv.Tables) == 0 {
			return fmt.Errorf("no tables found in schemas %v", Schemas)
		}
		log.Printf("Found %d tables, %d columns", len(inv.Tables), inv.ColumnCount())

		inventory.ResolveCapabilities(ctx, DB, Plat, inv, ovl)

		// Platform-native extras ride on the composition seam.
		var extras []catalog.ExtraProvider
		switch Plat.Name {
		case "postgres", "mysql":
			extras = append(extras, catalog.IndexCoverageProvider)
		}

		gen := catalog.NewGenerator(Plat, extras...)
		checks, gaps, audit := gen.Generate(inv, ovl)
		log.Printf("Generated %d checks (%d gaps)", len(checks), len(gaps))

		start := time.Now()
		exec := engine.NewExecutor(DB)
		exec.Concurrency = viper.GetInt("settings.concurrency")
		if t := viper.GetDuration("settings.check_timeout"); t > 0 {
			exec.CheckTimeout = t
		}

		uiprogress.Start()
		bar := uiprogress.AddBar(len(checks)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Assessing: "
		})
		exec.Progress = func(done, total int) {
			bar.Incr()
		}

		measurements, err := exec.Run(ctx, checks)
		uiprogress.Stop()
		if err != nil {
			return err
		}

		env := report.Environment{
			Platform:   Plat.Name,
			Version:    serverVersion(ctx),
			Connection: store.Sanitize(viper.GetString("database.dsn")),
			Schemas:    Schemas,
			Tables:     len(inv.Tables),
			Columns:    inv.ColumnCount(),

			Capabilities:   inv.Available,
			Unavailable:    inv.Unavailable,
			PermissionGaps: inv.PermissionGaps,
		}
		rep := engine.Score(measurements, cfg, ovl, env, gaps, audit)
		log.Printf("Assessment done! Time elapsed: %s", time.Since(start))

		var prev *report.Report
		if !noSave || diffPrev {
			st, err := openHistory()
			if err != nil {
				return err
			}
			defer st.Close()
			if diffPrev {
				prev, err = st.Latest(env.Connection)
				if err != nil {
					return err
				}
			}
			if !noSave {
				id, err := st.Save(rep)
				if err != nil {
					return err
				}
				log.Printf("Saved as assessment #%d", id)
			}
		}

		if err := emit(rep, outputFormat); err != nil {
			return err
		}

		if diffPrev {
			if prev == nil {
				log.Println("No previous assessment to diff against")
			} else {
				delta := report.Diff(prev, rep)
				fmt.Println(delta.Markdown())
			}
		}
		return nil
	},
}

func emit(rep *report.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "markdown", "":
		fmt.Println(rep.Markdown())
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want json or markdown)", format)
	}
}

func openHistory() (*store.Store, error) {
	path := viper.GetString("history.path")
	if path == "" {
		var err error
		path, err = store.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

func init() {
	RootCmd.AddCommand(assessCmd)

	assessCmd.Flags().StringVar(&contextFile, "context", "", "User context overlay file (YAML)")
	assessCmd.Flags().StringVar(&thresholdsFile, "thresholds", "", "Threshold override file (YAML)")
	assessCmd.Flags().StringVarP(&outputFormat, "output", "o", "markdown", "Output format: json or markdown")
	assessCmd.Flags().BoolVar(&noSave, "no-save", false, "Do not record this run in history")
	assessCmd.Flags().BoolVar(&diffPrev, "diff", false, "Diff against the previous run of this connection")
	assessCmd.Flags().Int("concurrency", 4, "Parallel check queries")
	assessCmd.Flags().Int("sample", 10000, "Row sample size for cardinality probes")

	viper.BindPFlag("settings.concurrency", assessCmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("settings.cardinality_sample", assessCmd.Flags().Lookup("sample"))
	viper.SetDefault("settings.concurrency", 4)
	viper.SetDefault("settings.cardinality_sample", 10000)
	viper.SetDefault("settings.check_timeout", "30s")
}
