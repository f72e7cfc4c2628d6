package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docvector/internal/embeddings"
	"github.com/fyrsmithlabs/docvector/internal/vectorstore"
)

var (
	// collections command flags
	colDimension int
	colMetric    string
	colForce     bool
	colJSON      bool
)

func init() {
	rootCmd.AddCommand(collectionsCmd)
	collectionsCmd.AddCommand(collectionsListCmd)
	collectionsCmd.AddCommand(collectionsCreateCmd)
	collectionsCmd.AddCommand(collectionsDeleteCmd)
	collectionsCmd.AddCommand(collectionsInfoCmd)

	collectionsCmd.PersistentFlags().BoolVar(&colJSON, "json", false, "Output results as JSON")

	collectionsCreateCmd.Flags().IntVar(&colDimension, "dimension", 0, "Vector dimension (default: the configured embedding model's dimension)")
	collectionsCreateCmd.Flags().StringVar(&colMetric, "metric", "cosine", "Distance metric: cosine, euclidean, or dot")

	collectionsDeleteCmd.Flags().BoolVar(&colForce, "force", false, "Confirm the irreversible delete")
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage vector store collections",
	Long: `Manage collections in the configured vector store backend.

Examples:
  # List collections with their sizes
  docvector collections list

  # Create a collection sized for the configured embedding model
  docvector collections create documents

  # Create a collection with an explicit dimension and metric
  docvector collections create code --dimension 768 --metric dot

  # Inspect a collection
  docvector collections info documents

  # Delete a collection and all its records
  docvector collections delete old-docs --force`,
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	RunE:  runCollectionsList,
}

var collectionsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a collection",
	Long: `Create a collection with a fixed vector dimension and distance metric.

The dimension defaults to the configured embedding model's dimension, so
a plain "collections create" always matches what ingest will write.

Examples:
  # Sized for the configured model
  docvector collections create documents

  # Explicit dimension for an external embedding source
  docvector collections create code --dimension 768`,
	Args: cobra.ExactArgs(1),
	RunE: runCollectionsCreate,
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a collection and all its records",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsDelete,
}

var collectionsInfoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show a collection's dimension, metric, and size",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsInfo,
}

func runCollectionsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	app, err := newStoreApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	names, err := app.store.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	infos := make([]*vectorstore.CollectionInfo, 0, len(names))
	for _, name := range names {
		info, err := app.store.GetCollectionInfo(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to describe collection %q: %w", name, err)
		}
		infos = append(infos, info)
	}

	if colJSON {
		return outputJSON(infos)
	}

	if len(infos) == 0 {
		fmt.Println("No collections found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVECTORS\tDIMENSION\tMETRIC")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", info.Name, info.VectorCount, info.Dimension, info.Metric)
	}
	w.Flush()

	return nil
}

func runCollectionsCreate(cmd *cobra.Command, args []string) error {
	name := args[0]

	metric, err := vectorstore.ParseDistanceMetric(colMetric)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	app, err := newStoreApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	dimension := colDimension
	if dimension == 0 {
		dimension = embeddings.ModelDimension(app.cfg.Embeddings.Model)
	}

	if err := app.store.CreateCollection(ctx, name, dimension, metric); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	fmt.Printf("Created collection %q (dimension %d, metric %s)\n", name, dimension, metric)
	return nil
}

func runCollectionsDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	if !colForce {
		return fmt.Errorf("deleting a collection is irreversible; re-run with --force to confirm")
	}

	ctx, cancel := signalContext()
	defer cancel()

	app, err := newStoreApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.store.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	fmt.Printf("Deleted collection %q\n", name)
	return nil
}

func runCollectionsInfo(cmd *cobra.Command, args []string) error {
	name := args[0]

	ctx, cancel := signalContext()
	defer cancel()

	app, err := newStoreApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	info, err := app.store.GetCollectionInfo(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to describe collection %q: %w", name, err)
	}

	if colJSON {
		return outputJSON(info)
	}

	fmt.Printf("Name: %s\n", info.Name)
	fmt.Printf("Dimension: %d\n", info.Dimension)
	fmt.Printf("Metric: %s\n", info.Metric)
	fmt.Printf("Vectors: %d\n", info.VectorCount)
	return nil
}
