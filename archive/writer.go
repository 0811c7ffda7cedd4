// Package archive snapshots completed root batches to zstd-compressed
// parquet shards, following the teacher's scraper/store write pattern:
// write into a tmp directory, then atomically rename into place so a
// reader never observes a half-written shard.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/searchtree/mcts"
)

// Row is one root's outcome after a batch of simulations, flattened for
// columnar storage. ChildVisitsJSON and TrajectoryJSON carry the
// variable-width pieces (per-legal-action visit counts, the principal
// variation) as JSON, mirroring the teacher's MCTSRootJSON summary field
// rather than forcing them into fixed-width columns.
type Row struct {
	BatchID         string  `parquet:"batch_id"`
	RootIndex       int32   `parquet:"root_index"`
	Simulations     int32   `parquet:"simulations"`
	ToPlay          int32   `parquet:"to_play"`
	RootValue       float64 `parquet:"root_value"`
	ChildVisitsJSON string  `parquet:"child_visits_json"`
	TrajectoryJSON  string  `parquet:"trajectory_json"`
	WrittenAtUnix   int64   `parquet:"written_at_unix"`
}

// Writer accumulates Row records for one run and flushes them to a
// single parquet shard on Close.
type Writer struct {
	outDir string
	tmpDir string
	shard  string
	w      *parquet.GenericWriter[Row]
	f      *os.File
	games  int
}

// NewWriter creates outDir if needed and opens a tmp shard inside it
// named shardName, compressed with zstd.
func NewWriter(outDir, shardName string) (*Writer, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: mkdir %s: %w", outDir, err)
	}
	tmpDir := filepath.Join(outDir, ".tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: mkdir %s: %w", tmpDir, err)
	}

	tmpPath := filepath.Join(tmpDir, shardName+".parquet.tmp")
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("archive: create %s: %w", tmpPath, err)
	}

	w := parquet.NewGenericWriter[Row](f, parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}))

	return &Writer{
		outDir: outDir,
		tmpDir: tmpDir,
		shard:  shardName,
		w:      w,
		f:      f,
	}, nil
}

// WriteBatch archives every root in roots, as it stands after a round of
// simulations against it — one Row per root.
func (a *Writer) WriteBatch(batchID string, simulations int, roots *mcts.Roots, toPlayBatch []int8, writtenAtUnix int64) error {
	distributions := roots.GetDistributions()
	values := roots.GetValues()
	trajectories := roots.GetTrajectories()

	rows := make([]Row, roots.Len())
	for i := 0; i < roots.Len(); i++ {
		childVisits, err := json.Marshal(distributions[i])
		if err != nil {
			return fmt.Errorf("archive: marshal child visits: %w", err)
		}
		trajectory, err := json.Marshal(trajectories[i])
		if err != nil {
			return fmt.Errorf("archive: marshal trajectory: %w", err)
		}
		var toPlay int32
		if i < len(toPlayBatch) {
			toPlay = int32(toPlayBatch[i])
		}
		rows[i] = Row{
			BatchID:         batchID,
			RootIndex:       int32(i),
			Simulations:     int32(simulations),
			ToPlay:          toPlay,
			RootValue:       values[i],
			ChildVisitsJSON: string(childVisits),
			TrajectoryJSON:  string(trajectory),
			WrittenAtUnix:   writtenAtUnix,
		}
	}

	if _, err := a.w.Write(rows); err != nil {
		return fmt.Errorf("archive: write rows: %w", err)
	}
	a.games++
	return nil
}

// BatchesWritten reports how many WriteBatch calls have succeeded.
func (a *Writer) BatchesWritten() int { return a.games }

// Close flushes the parquet footer and atomically renames the tmp shard
// into outDir.
func (a *Writer) Close() error {
	if err := a.w.Close(); err != nil {
		_ = a.f.Close()
		return fmt.Errorf("archive: close writer: %w", err)
	}
	if err := a.f.Close(); err != nil {
		return fmt.Errorf("archive: close file: %w", err)
	}

	finalPath := filepath.Join(a.outDir, a.shard+".parquet")
	tmpPath := filepath.Join(a.tmpDir, a.shard+".parquet.tmp")
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("archive: rename %s -> %s: %w", tmpPath, finalPath, err)
	}
	return nil
}

// DefaultShardName builds a collision-resistant shard name from a
// caller-supplied run ID and the current time, so repeated benchmark
// runs against the same outDir don't clobber each other.
func DefaultShardName(runID string, now time.Time) string {
	return fmt.Sprintf("%s_%d", runID, now.UnixNano())
}
