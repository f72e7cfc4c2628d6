//go:build !cgo

package main

import (
	"context"

	"github.com/spf13/cobra"
)

// ensureONNXRuntime is a no-op without cgo; selecting the fastembed
// provider fails in the embeddings package with a clear error.
func ensureONNXRuntime(_ context.Context) error {
	return nil
}

// installONNXRuntime explains that local embeddings need a cgo build.
func installONNXRuntime(cmd *cobra.Command, _ bool) error {
	cmd.Println("Built without cgo: the fastembed provider is unavailable.")
	cmd.Println("Set embeddings.provider to \"openai\" or rebuild with CGO_ENABLED=1.")
	return nil
}
