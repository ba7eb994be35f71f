package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/facefit/internal/api"
	"github.com/andresmejia3/facefit/internal/catalog"
	"github.com/andresmejia3/facefit/internal/store"
	"github.com/andresmejia3/facefit/internal/utils"
	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// DB is the global database connection shared by subcommands. It stays
	// nil when no database is configured.
	DB *store.Store
	// dbURL is the connection string
	dbURL string

	catalogPath string
	logLevel    string
	logFormat   string
)

// Version is the application version.
const Version = "0.1.0"

var errNoDatabase = errors.New("no database configured (use --db or POSTGRES_HOST)")

var rootCmd = &cobra.Command{
	Use:   "facefit",
	Short: "Eyewear kiosk colour matching and fit analysis",
	Long: dedent.Dedent(`
		facefit samples the guide oval of a camera frame, classifies the skin
		tone and face shape it finds there, and recommends a frame colourway
		and size from the product catalog.

		The catalog comes from --catalog (YAML) or, when omitted, from the
		database. Results are logged to PostgreSQL when a database is configured.`),
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := utils.InitLogger(os.Stderr, logLevel, logFormat); err != nil {
			return err
		}

		url := resolveDBURL(dbURL, os.Getenv)
		if url == "" {
			log.Debug().Msg("no database configured, results will not be persisted")
			return nil
		}

		var err error
		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.New(cmd.Context(), url)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
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
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: built from POSTGRES_* env, otherwise none)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Path to a catalog YAML file (default: catalog stored in the database)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
}

// resolveDBURL prefers the flag and otherwise builds the connection string
// from the POSTGRES_* environment. It returns "" when neither is set.
func resolveDBURL(flag string, getenv func(string) string) string {
	if flag != "" {
		return flag
	}
	host := getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	user := getenv("POSTGRES_USER")
	pass := getenv("POSTGRES_PASSWORD")
	name := getenv("POSTGRES_DB")
	port := getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
}

// loadCatalog reads the catalog file when path is set and falls back to the
// database copy.
func loadCatalog(ctx context.Context, path string, db *store.Store) (*catalog.Catalog, error) {
	if path != "" {
		return catalog.Load(path)
	}
	if db == nil {
		return nil, errors.New("no catalog: pass --catalog or configure a database holding an imported catalog")
	}
	c, err := db.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog from database: %w", err)
	}
	if len(c.Products) == 0 {
		return nil, errors.New("database catalog is empty (run 'facefit catalog import')")
	}
	return c, nil
}

// recorder returns the result log, or nil when no database is configured.
func recorder() api.Recorder {
	if DB == nil {
		return nil
	}
	return DB
}

func requireDB() *store.Store {
	if DB == nil {
		utils.Die("This command needs a database", errNoDatabase, nil)
	}
	return DB
}
