package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "molex",
		Short: "Ingest and browse chemical structure datasets",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(migrateCmd())
	root.AddCommand(loadManifestCmd())
	root.AddCommand(fetchStructuresCmd())
	root.AddCommand(loadStructuresCmd())
	root.AddCommand(serveCmd())

	return root
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func loadManifestCmd() *cobra.Command {
	var (
		datasetID   string
		datasetName string
	)

	cmd := &cobra.Command{
		Use:   "load-manifest <manifest.csv>",
		Short: "Ingest a metadata manifest into a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadManifest(datasetID, datasetName, args[0])
		},
	}

	cmd.Flags().StringVar(&datasetID, "dataset-id", "", "target dataset identifier")
	cmd.Flags().StringVar(&datasetName, "name", "", "dataset display name (default: dataset id)")
	cmd.MarkFlagRequired("dataset-id")
	return cmd
}

func fetchStructuresCmd() *cobra.Command {
	var (
		datasetID string
		out       string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "fetch-structures",
		Short: "Download 3D conformers from PubChem for a dataset's manifest CIDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetchStructures(datasetID, out, limit)
		},
	}

	cmd.Flags().StringVar(&datasetID, "dataset-id", "", "source dataset identifier")
	cmd.Flags().StringVar(&out, "out", "conformers.sdf.gz", "output SDF path (.gz for compressed)")
	cmd.Flags().IntVar(&limit, "limit", 0, "fetch at most this many compounds (0 = all)")
	cmd.MarkFlagRequired("dataset-id")
	return cmd
}

func loadStructuresCmd() *cobra.Command {
	var datasetID string

	cmd := &cobra.Command{
		Use:   "load-structures <batch.sdf[.gz|.zip]>...",
		Short: "Ingest structure batches for a dataset with a loaded manifest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadStructures(datasetID, args)
		},
	}

	cmd.Flags().StringVar(&datasetID, "dataset-id", "", "target dataset identifier")
	cmd.MarkFlagRequired("dataset-id")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the browse API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
