package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/siherrmann/medrag/helper"
)

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
// indexType: "hnsw" or "ivfflat"
// metric: "cosine" or "l2", selects the operator class so the index serves the collection's queries
// params: optional parameters for index creation
//   - For HNSW: "m" (int, default 16), "ef_construction" (int, default 64)
//   - For IVFFlat: "lists" (int, default 100)
func (h *ChunksDBHandler) ChangeIndexType(ctx context.Context, indexType string, metric string, params map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	opClass := "vector_cosine_ops"
	switch metric {
	case "cosine", "":
	case "l2":
		opClass = "vector_l2_ops"
	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported metric: %s (use 'cosine' or 'l2')", metric))
	}

	var options []string

	switch indexType {
	case "hnsw":
		m := 16
		efConstruction := 64

		if mVal, ok := params["m"].(int); ok {
			m = mVal
		}
		if efVal, ok := params["ef_construction"].(int); ok {
			efConstruction = efVal
		}
		options = []string{fmt.Sprintf("m=%d", m), fmt.Sprintf("ef_construction=%d", efConstruction)}

	case "ivfflat":
		lists := 100
		if listsVal, ok := params["lists"].(int); ok {
			lists = listsVal
		}
		options = []string{fmt.Sprintf("lists=%d", lists)}

	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	method := fmt.Sprintf("USING %s (embedding %s)", indexType, opClass)

	current, err := h.indexDefinition(ctx)
	if err != nil {
		return helper.NewError("select index definition", err)
	}
	if indexMatches(current, method, options) {
		h.db.Logger.Debug("Vector index unchanged", slog.String("type", indexType), slog.String("op_class", opClass))
		return nil
	}

	_, err = h.db.Instance.ExecContext(ctx, `DROP INDEX IF EXISTS idx_chunks_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	createIndexSQL := fmt.Sprintf(
		`CREATE INDEX idx_chunks_embedding ON chunks %s WITH (%s);`,
		method, strings.Join(options, ", "),
	)
	_, err = h.db.Instance.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	h.db.Logger.Info("Created vector index", slog.String("type", indexType), slog.String("op_class", opClass), slog.Any("params", params))

	return nil
}

// indexDefinition returns the current definition of the embedding index,
// or an empty string when there is none.
func (h *ChunksDBHandler) indexDefinition(ctx context.Context) (string, error) {
	var definition string
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT indexdef FROM pg_indexes WHERE tablename = 'chunks' AND indexname = 'idx_chunks_embedding';`,
	).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return definition, err
}

// indexMatches compares a pg_indexes definition such as
// "... USING hnsw (embedding vector_cosine_ops) WITH (m='16', ef_construction='64')"
// against the wanted access method and options.
func indexMatches(definition string, method string, options []string) bool {
	if !strings.Contains(definition, method) {
		return false
	}
	_, with, found := strings.Cut(definition, "WITH (")
	if !found {
		return false
	}
	with, _, _ = strings.Cut(with, ")")
	current := strings.Split(strings.ReplaceAll(with, "'", ""), ", ")
	slices.Sort(current)
	wanted := slices.Clone(options)
	slices.Sort(wanted)
	return slices.Equal(current, wanted)
}
