package main

// batchRow mirrors archive.Row's columns, decoded for JSON responses
// (child_visits_json/trajectory_json are re-parsed rather than passed
// through as raw strings, so API consumers get real arrays).
type batchRow struct {
	BatchID       string    `json:"batch_id"`
	RootIndex     int32     `json:"root_index"`
	Simulations   int32     `json:"simulations"`
	ToPlay        int32     `json:"to_play"`
	RootValue     float64   `json:"root_value"`
	ChildVisits   []uint32  `json:"child_visits"`
	Trajectory    [][]int32 `json:"trajectory"`
	WrittenAtUnix int64     `json:"written_at_unix"`
}

type batchesResponse struct {
	Total   int        `json:"total"`
	Batches []batchRow `json:"batches"`
}

type statsResponse struct {
	TotalBatches   int     `json:"total_batches"`
	TotalRoots     int     `json:"total_roots"`
	AverageValue   float64 `json:"average_value"`
	MaxSimulations int32   `json:"max_simulations"`
}
