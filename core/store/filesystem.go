package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/siherrmann/medrag/model"
)

// fileClient stores each collection as <path>/<collection>.json.
type fileClient struct {
	mu          sync.Mutex
	dir         string
	dimension   int
	metric      string
	log         *slog.Logger
	collections map[string]*fileCollection
}

func newFileClient(config *Config) (*fileClient, error) {
	if config.Path == "" {
		return nil, errors.New("filesystem: path is required")
	}
	dir := filepath.Clean(config.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("filesystem: ensure directory %q: %w", dir, err)
	}
	return &fileClient{
		dir:         dir,
		dimension:   config.Dimension,
		metric:      config.Metric,
		log:         config.Logger,
		collections: map[string]*fileCollection{},
	}, nil
}

func (c *fileClient) EnsureCollection(ctx context.Context, name string) (Collection, error) {
	if err := validateCollectionName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStoreInit, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if collection, ok := c.collections[name]; ok {
		return collection, nil
	}

	collection := &fileCollection{
		name:      name,
		path:      filepath.Join(c.dir, name+".json"),
		dimension: c.dimension,
		metric:    c.metric,
		distance:  distanceFunc(c.metric),
		records:   map[string]*model.Chunk{},
	}
	created, err := collection.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStoreInit, err)
	}
	if created {
		collection.mu.Lock()
		err = collection.persistLocked(nil)
		collection.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrStoreInit, err)
		}
		c.log.Info("Created collection", slog.String("collection", name), slog.String("path", collection.path))
	}

	c.collections[name] = collection

	return collection, nil
}

func (c *fileClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collections = map[string]*fileCollection{}
	return nil
}

type fileCollection struct {
	mu        sync.RWMutex
	name      string
	path      string
	dimension int
	metric    string
	distance  func(a, b []float32) float64
	records   map[string]*model.Chunk
}

func (s *fileCollection) Name() string {
	return s.name
}

func (s *fileCollection) Upsert(_ context.Context, chunks []*model.Chunk) (int, error) {
	for _, chunk := range chunks {
		if err := validateChunk(chunk, s.dimension); err != nil {
			return 0, fmt.Errorf("filesystem: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	staged := map[string]*model.Chunk{}
	for _, chunk := range chunks {
		if _, ok := s.records[chunk.ID]; ok {
			continue
		}
		if _, ok := staged[chunk.ID]; ok {
			continue
		}
		staged[chunk.ID] = &model.Chunk{
			ID:        chunk.ID,
			Content:   chunk.Content,
			Embedding: slices.Clone(chunk.Embedding),
			CreatedAt: now,
		}
	}
	if len(staged) == 0 {
		return 0, nil
	}

	// Records become visible only after the snapshot holding them is on disk.
	if err := s.persistLocked(staged); err != nil {
		return 0, err
	}
	for id, rec := range staged {
		s.records[id] = rec
	}
	return len(staged), nil
}

func (s *fileCollection) IDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fileCollection) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *fileCollection) Query(_ context.Context, embedding []float32, k int) (*model.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("filesystem: k must be positive, got %d", k)
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("filesystem: query dimension mismatch (got %d want %d)", len(embedding), s.dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]*model.Chunk, 0, len(s.records))
	for _, rec := range s.records {
		candidates = append(candidates, &model.Chunk{
			ID:        rec.ID,
			Content:   rec.Content,
			CreatedAt: rec.CreatedAt,
			Distance:  s.distance(rec.Embedding, embedding),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance == candidates[j].Distance {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].Distance < candidates[j].Distance
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	return &model.RetrievalResult{Chunks: candidates}, nil
}

// load reads the snapshot. It reports true when no snapshot existed yet.
func (s *fileCollection) load() (bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("filesystem: read %q: %w", s.path, err)
	}

	var payload fileSnapshot
	if err := json.Unmarshal(data, &payload); err != nil {
		return false, fmt.Errorf("filesystem: decode %q: %w", s.path, err)
	}
	if payload.Dimension > 0 && payload.Dimension != s.dimension {
		return false, fmt.Errorf("filesystem: stored dimension %d does not match config %d for %q", payload.Dimension, s.dimension, s.path)
	}
	if payload.Metric != "" && payload.Metric != s.metric {
		return false, fmt.Errorf("filesystem: stored metric %q does not match config %q for %q", payload.Metric, s.metric, s.path)
	}

	for _, rec := range payload.Records {
		if len(rec.Embedding) != s.dimension {
			return false, fmt.Errorf("filesystem: record %q in %q has dimension %d", rec.ID, s.path, len(rec.Embedding))
		}
		s.records[rec.ID] = &model.Chunk{
			ID:        rec.ID,
			Content:   rec.Text,
			Embedding: rec.Embedding,
			CreatedAt: rec.CreatedAt,
		}
	}

	return false, nil
}

// persistLocked writes the stored records plus staged to disk.
func (s *fileCollection) persistLocked(staged map[string]*model.Chunk) error {
	payload := fileSnapshot{
		Name:      s.name,
		Dimension: s.dimension,
		Metric:    s.metric,
		Records:   make([]fileRecord, 0, len(s.records)+len(staged)),
	}
	for _, records := range []map[string]*model.Chunk{s.records, staged} {
		for _, rec := range records {
			payload.Records = append(payload.Records, fileRecord{
				ID:        rec.ID,
				Text:      rec.Content,
				Embedding: rec.Embedding,
				CreatedAt: rec.CreatedAt,
			})
		}
	}
	sort.Slice(payload.Records, func(i, j int) bool {
		return payload.Records[i].ID < payload.Records[j].ID
	})

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("filesystem: encode snapshot: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("filesystem: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("filesystem: commit snapshot: %w", err)
	}
	return nil
}

type fileSnapshot struct {
	Name      string       `json:"name"`
	Dimension int          `json:"dimension"`
	Metric    string       `json:"metric"`
	Records   []fileRecord `json:"records"`
}

type fileRecord struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}
