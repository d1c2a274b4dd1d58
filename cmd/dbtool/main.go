package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"meeting-placement-service/internal/adapters/repositories"
	"meeting-placement-service/internal/app"
	"meeting-placement-service/internal/config"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "dbtool",
	Short:         "Manage the placement database",
	Long:          `Create the placement schema and load reference data into SQLite or Postgres, as selected by STORE_DRIVER.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create tables if they do not exist",
	RunE:  runInit,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create tables and upsert a JSON dataset",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringP("file", "f", "", "seed dataset (default $SEED_PATH or data/seeds/campus.json)")
	rootCmd.AddCommand(initCmd, seedCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "dbtool:", err)
		os.Exit(1)
	}
}

func open(ctx context.Context) (*sql.DB, repositories.Dialect, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, 0, err
	}
	if cfg.StoreDriver == config.StoreMemory {
		return nil, 0, errors.New("STORE_DRIVER=memory has no database to manage")
	}
	return app.OpenDB(ctx, cfg)
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	db, dialect, err := open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Printf("Initializing %s schema...", dialect)
	if err := repositories.InitSchema(ctx, db, dialect); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	log.Println("Schema ready.")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = config.Get("SEED_PATH", "data/seeds/campus.json")
	}

	if err := runInit(cmd, args); err != nil {
		return err
	}

	ctx := cmd.Context()
	db, dialect, err := open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Printf("Seeding from %s...", path)
	if err := repositories.SeedFromJSON(ctx, db, dialect, path); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	log.Println("Seeding complete.")
	return nil
}
