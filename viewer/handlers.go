package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
)

func queryBatchesTotal(ctx context.Context, db *sql.DB) (int, error) {
	var total int
	err := db.QueryRowContext(ctx, "SELECT count(DISTINCT batch_id) FROM batches").Scan(&total)
	return total, err
}

func queryBatches(ctx context.Context, db *sql.DB, limit, offset int) ([]batchRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT batch_id, root_index, simulations, to_play, root_value,
		       child_visits_json, trajectory_json, written_at_unix
		FROM batches
		ORDER BY written_at_unix DESC, batch_id, root_index
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("viewer: query batches: %w", err)
	}
	defer rows.Close()

	var out []batchRow
	for rows.Next() {
		var r batchRow
		var childVisitsJSON, trajectoryJSON string
		if err := rows.Scan(&r.BatchID, &r.RootIndex, &r.Simulations, &r.ToPlay, &r.RootValue,
			&childVisitsJSON, &trajectoryJSON, &r.WrittenAtUnix); err != nil {
			return nil, fmt.Errorf("viewer: scan batch row: %w", err)
		}
		_ = json.Unmarshal([]byte(childVisitsJSON), &r.ChildVisits)
		_ = json.Unmarshal([]byte(trajectoryJSON), &r.Trajectory)
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryStats(ctx context.Context, db *sql.DB) (statsResponse, error) {
	var s statsResponse
	err := db.QueryRowContext(ctx, `
		SELECT count(DISTINCT batch_id), count(*), coalesce(avg(root_value), 0), coalesce(max(simulations), 0)
		FROM batches`).Scan(&s.TotalBatches, &s.TotalRoots, &s.AverageValue, &s.MaxSimulations)
	return s, err
}

// newMux builds the HTTP API over the DuckDB view cache: /api/batches
// (paginated list), /api/stats (aggregate summary across every archived
// batch), grounded on the teacher's /api/games and /api/stats endpoints
// but against archive.Row's columns instead of battlesnake turns.
func newMux(cache *dbCache) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/batches", func(w http.ResponseWriter, r *http.Request) {
		withCORS(w)
		if r.Method == http.MethodOptions {
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		db, err := cache.get()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		limit := parseIntQuery(r, "limit", 200)
		offset := parseIntQuery(r, "offset", 0)

		total, err := queryBatchesTotal(r.Context(), db)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		rows, err := queryBatches(r.Context(), db, limit, offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, batchesResponse{Total: total, Batches: rows})
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		withCORS(w)
		if r.Method == http.MethodOptions {
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		db, err := cache.get()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		stats, err := queryStats(r.Context(), db)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, stats)
	})

	return mux
}
