//go:build onnx

package factory

import (
	"memgate/config"
	"memgate/memstore"
	"memgate/memstore/embed/onnx"
)

func newONNXEmbedder(cfg *config.Config) (memstore.Embedder, error) {
	return onnx.New(onnx.Config{
		ModelPath:     cfg.ONNXModelPath,
		TokenizerPath: cfg.ONNXTokenizerPath,
		LibraryPath:   cfg.ONNXLibraryPath,
		Dimensions:    cfg.EmbeddingDims,
	})
}
