// Package memstore implements the memory client the pool hands out: a
// long-term memory store with semantic retrieval.
//
// Architecture:
//   - Client: the handle interface (add / search / get_all / close)
//   - Store: vector storage backend (chromem-go under memstore/vecstore)
//   - Embedder: text-to-vector conversion (memstore/embed/...)
//   - Extractor: optional LLM pass that distills raw text into discrete
//     facts before storage
//
// LocalClient wires these together. It owns the store and embedder and
// releases both exactly once on Close, which is what makes it safe to manage
// through the pool's refcounted lifecycle.
package memstore
