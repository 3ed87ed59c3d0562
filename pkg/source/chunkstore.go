package source

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/blake2b"

	"github.com/muninhq/munin/pkg/artifact"
)

// Key prefix for chunk records inside the badger store. Single byte for
// efficiency; leaves room for future record kinds in the same store.
const prefixChunk = byte(0x01)

// ErrChunkNotFound is returned when a chunk id is absent from the store.
var ErrChunkNotFound = errors.New("chunk not found")

// ChunkStore is the vector-store collaborator boundary: a persistent
// badger-backed store where the chunking collaborator deposits chunk records
// (content plus embedding) and the sync orchestrator drains them from.
//
// Chunk ids are content-addressed: a blake2b hash of source path, index, and
// content. Re-depositing the same chunk therefore overwrites the same key,
// which keeps sync idempotent without coordination between the chunker and
// the orchestrator.
//
// Example Usage:
//
//	store, err := source.OpenChunkStore("./data/chunks")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	id, err := store.Put(&artifact.Chunk{
//		Content:    "The ingest pipeline batches writes...",
//		Lens:       "architecture",
//		SourcePath: "docs/ingest.md",
//		Index:      3,
//		Embedding:  vec,
//	})
type ChunkStore struct {
	db *badger.DB
}

// OpenChunkStore opens (creating if necessary) the badger store at dir.
func OpenChunkStore(dir string) (*ChunkStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // badger's own logger is noisy; munin logs at the stage level

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening chunk store: %w", err)
	}
	return &ChunkStore{db: db}, nil
}

// ChunkID derives the content-addressed id for a chunk.
func ChunkID(chunk *artifact.Chunk) string {
	sum := blake2b.Sum256([]byte(chunk.SourcePath + "\x00" + strconv.Itoa(chunk.Index) + "\x00" + chunk.Content))
	return "chunk-" + hex.EncodeToString(sum[:12])
}

// Put stores a chunk, minting its content-addressed id when empty.
// Returns the id under which the chunk was stored.
func (s *ChunkStore) Put(chunk *artifact.Chunk) (string, error) {
	if chunk == nil || chunk.Content == "" {
		return "", fmt.Errorf("chunk store: empty chunk")
	}
	if chunk.ID == "" {
		chunk.ID = ChunkID(chunk)
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		return "", fmt.Errorf("encoding chunk %s: %w", chunk.ID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(chunk.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("storing chunk %s: %w", chunk.ID, err)
	}
	return chunk.ID, nil
}

// PutBatch stores multiple chunks in one write batch.
func (s *ChunkStore) PutBatch(chunks []*artifact.Chunk) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = ChunkID(chunk)
		}
		data, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("encoding chunk %s: %w", chunk.ID, err)
		}
		if err := wb.Set(chunkKey(chunk.ID), data); err != nil {
			return fmt.Errorf("batching chunk %s: %w", chunk.ID, err)
		}
	}
	return wb.Flush()
}

// Get retrieves one chunk by id.
func (s *ChunkStore) Get(id string) (*artifact.Chunk, error) {
	var chunk artifact.Chunk
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("chunk %s: %w", id, ErrChunkNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &chunk)
		})
	})
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// All returns every chunk in the store, sorted by id.
func (s *ChunkStore) All() ([]*artifact.Chunk, error) {
	var chunks []*artifact.Chunk
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixChunk}
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var chunk artifact.Chunk
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &chunk)
			})
			if err != nil {
				return fmt.Errorf("decoding chunk %s: %w", it.Item().Key()[1:], err)
			}
			chunks = append(chunks, &chunk)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ID < chunks[j].ID })
	return chunks, nil
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixChunk}
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close closes the underlying badger database.
func (s *ChunkStore) Close() error {
	return s.db.Close()
}

func chunkKey(id string) []byte {
	return append([]byte{prefixChunk}, id...)
}
