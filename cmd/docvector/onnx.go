//go:build cgo

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docvector/internal/embeddings"
)

// ensureONNXRuntime makes the ONNX runtime available before a fastembed
// provider is constructed, downloading it on first use.
func ensureONNXRuntime(ctx context.Context) error {
	_, err := embeddings.EnsureONNXRuntime(ctx)
	return err
}

// installONNXRuntime downloads the ONNX runtime for the init command.
func installONNXRuntime(cmd *cobra.Command, force bool) error {
	if !force {
		if path := embeddings.GetONNXLibraryPath(); path != "" {
			cmd.Printf("ONNX runtime already installed at: %s\n", path)
			cmd.Println("Use --force to re-download.")
			return nil
		}
	}

	cmd.Printf("Downloading ONNX runtime v%s...\n", embeddings.DefaultONNXRuntimeVersion)
	if err := embeddings.DownloadONNXRuntime(context.Background(), ""); err != nil {
		return fmt.Errorf("failed to download ONNX runtime: %w", err)
	}

	path := embeddings.GetONNXLibraryPath()
	if path == "" {
		return fmt.Errorf("download completed but library not found")
	}
	cmd.Printf("Successfully installed ONNX runtime to: %s\n", path)
	return nil
}
