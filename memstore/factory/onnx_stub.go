//go:build !onnx

package factory

import (
	"fmt"

	"memgate/config"
	"memgate/memstore"
)

func newONNXEmbedder(cfg *config.Config) (memstore.Embedder, error) {
	return nil, fmt.Errorf("onnx embeddings require building with -tags onnx")
}
