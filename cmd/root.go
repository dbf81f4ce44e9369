package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"db-ready/internal/platform"
)

var (
	dsn     string
	cfgFile string

	DB       *sql.DB
	Plat     *platform.Platform
	Registry *platform.Registry
	Schemas  []string
)

var RootCmd = &cobra.Command{
	Use:   "db-ready",
	Short: "A database AI-readiness assessment tool",
	Long: `
  ____  ____     ____  _____    _    ______   __
 |  _ \| __ )   |  _ \| ____|  / \  |  _ \ \ / /
 | | | |  _ \   | |_) |  _|   / _ \ | | | \ V /
 | |_| | |_) |  |  _ <| |___ / ___ \| |_| || |
 |____/|____/   |_| \_\_____/_/   \_\____/ |_|

DB READY 🔎 - SQL Database AI-Readiness Assessor
`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// History-only commands work offline.
		if cmd.Name() == "history" || (cmd.Name() == "diff" && len(args) == 2) {
			return nil
		}

		// Viper precedence: flag > config > default. A databases list with
		// one active entry is the config-file alternative to --dsn.
		connStr := viper.GetString("database.dsn")
		platformName := viper.GetString("database.platform")
		if connStr == "" {
			active, err := GetActiveDBConfig()
			if err != nil {
				return fmt.Errorf("database.dsn is required (via flag or config): %w", err)
			}
			connStr = active.DSN
			if platformName == "" {
				platformName = active.Platform
			}
			viper.Set("database.dsn", connStr)
		}

		Registry = platform.NewBuiltinRegistry()

		// Explicit platform from config wins, then the DSN scheme, then a
		// probe round-trip against the open connection.
		if name := platformName; name != "" {
			Plat = Registry.Get(name)
			if Plat == nil {
				return fmt.Errorf("unknown platform %q (known: %s)", name, strings.Join(Registry.Names(), ", "))
			}
		} else {
			Plat = Registry.ByScheme(connStr)
		}
		if Plat == nil {
			// driver-style DSNs carry no scheme; fall back to shape hints
			switch {
			case strings.Contains(connStr, "sslmode"):
				Plat = Registry.Get("postgres")
			case strings.Contains(connStr, "@tcp("):
				Plat = Registry.Get("mysql")
			}
		}

		var err error
		if Plat != nil {
			DB, err = Plat.Open(connStr)
		} else {
			// Last resort: connect as postgres and let the probes decide.
			DB, err = sql.Open("postgres", connStr)
		}
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		if err := DB.Ping(); err != nil {
			return fmt.Errorf("failed to connect to db: %w", err)
		}

		if Plat == nil {
			Plat = Registry.Detect(cmd.Context(), DB)
		}

		Schemas = viper.GetStringSlice("database.schemas")
		if len(Schemas) == 0 && Plat.DefaultSchema != "" {
			Schemas = []string{Plat.DefaultSchema}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			DB.Close()
		}
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-ready.yaml)")
	RootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database Source Name (DSN)")
	RootCmd.PersistentFlags().StringSlice("schemas", nil, "Schemas to assess (default: platform's default schema)")

	viper.BindPFlag("database.dsn", RootCmd.PersistentFlags().Lookup("dsn"))
	viper.BindPFlag("database.schemas", RootCmd.PersistentFlags().Lookup("schemas"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// executable directory first, then the current directory
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")

		viper.SetConfigName("db-ready")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// serverVersion asks the platform's probe for a display version. Best
// effort; assessment does not depend on it.
func serverVersion(ctx context.Context) string {
	if Plat == nil || Plat.DetectQuery == "" {
		return ""
	}
	var v string
	if err := DB.QueryRowContext(ctx, Plat.DetectQuery).Scan(&v); err != nil {
		return ""
	}
	if len(v) > 80 {
		v = v[:80]
	}
	return v
}
