package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the face collection and the patient record table",
	Long: `Provision the collaborators configured by RECOGNITION_PROVIDER and STORE_PROVIDER.

Creates the recognition collection COLLECTION_ID and the record table TABLE_NAME
with its FACE_INDEX_NAME secondary index. Existing resources are left untouched,
so the command is safe to run on every deploy.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	fmt.Printf("Creating collection %s...\n", cfg.Recognition.CollectionID)
	if err := b.recognizer.CreateCollection(ctx, cfg.Recognition.CollectionID); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	fmt.Printf("Creating table %s (index %s)...\n", cfg.Store.TableName, cfg.Store.FaceIndexName)
	if err := b.store.CreateTable(ctx, cfg.Store.TableName, cfg.Store.FaceIndexName); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	fmt.Println("Setup complete")
	return nil
}
