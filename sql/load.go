package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"

	"github.com/lib/pq"
)

//go:embed init.sql
var initSQL string

//go:embed chunks.sql
var chunksSQL string

// ChunksFunctions lists the SQL functions created by chunks.sql, used for verification
var ChunksFunctions = []string{
	"init_chunks",
	"ensure_collection",
	"insert_chunk",
	"select_chunk_ids",
	"count_chunks",
	"select_chunks_by_similarity",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadChunksSql loads collection and chunk related SQL functions.
// Unless force is set, nothing is executed when all functions already exist.
func LoadChunksSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, ChunksFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing chunks functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(chunksSQL)
	if err != nil {
		return fmt.Errorf("error executing chunks SQL: %w", err)
	}

	exist, err := checkFunctions(db, ChunksFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL chunks functions loaded successfully")
	return nil
}

func checkFunctions(db *sql.DB, functions []string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(DISTINCT proname) FROM pg_proc WHERE proname = ANY($1);`,
		pq.Array(functions),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == len(functions), nil
}
