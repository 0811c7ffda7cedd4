// Command searchbench drives a batch of roots through search.Driver
// against a real ONNX model and reports throughput, following the
// flag/signal-context setup the teacher's executor/main.go uses to run
// self-play workers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/searchtree/archive"
	"github.com/brensch/searchtree/inference"
	"github.com/brensch/searchtree/mcts"
	"github.com/brensch/searchtree/mcts/model"
	"github.com/brensch/searchtree/search"
	"github.com/brensch/searchtree/telemetry"
)

func main() {
	modelPath := flag.String("model-path", "models/muzero.onnx", "ONNX model path (recurrent-inference graph)")
	onnxSessions := flag.Int("onnx-sessions", 1, "Number of ONNX Runtime sessions to run leaves through in parallel")
	latentDim := flag.Int("latent-dim", 64, "Width of the representation network's latent vector")
	actionHeads := flag.Int("heads", 1, "Number of action heads H")
	actionsPerHead := flag.Int("actions-per-head", 4, "Legal actions available to each head")
	policySize := flag.Int("policy-size", 4, "Width of the prediction head's policy logits")
	batchRoots := flag.Int("roots", 256, "Number of roots to search concurrently")
	simulations := flag.Int("simulations", 50, "Simulations to run per root")
	epsilon := flag.Float64("epsilon", 0.25, "Root exploration-noise weight")
	archiveDir := flag.String("archive-dir", "", "If set, write the finished batch to this directory as a parquet shard")
	flag.Parse()

	logger := telemetry.Default(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, config{
		modelPath:      *modelPath,
		onnxSessions:   *onnxSessions,
		latentDim:      *latentDim,
		actionHeads:    *actionHeads,
		actionsPerHead: *actionsPerHead,
		policySize:     *policySize,
		roots:          *batchRoots,
		simulations:    *simulations,
		epsilon:        float32(*epsilon),
		archiveDir:     *archiveDir,
	}); err != nil {
		logger.Error("searchbench failed", "error", err)
		os.Exit(1)
	}
}

type config struct {
	modelPath      string
	onnxSessions   int
	latentDim      int
	actionHeads    int
	actionsPerHead int
	policySize     int
	roots          int
	simulations    int
	epsilon        float32
	archiveDir     string
}

func run(ctx context.Context, logger *slog.Logger, cfg config) error {
	store := inference.NewMemoryLatentStore()
	pool, err := inference.NewPool(cfg.modelPath, inference.Config{
		LatentDim:  cfg.latentDim,
		ActionDim:  cfg.actionHeads,
		PolicySize: cfg.policySize,
	}, store, cfg.onnxSessions)
	if err != nil {
		return fmt.Errorf("searchbench: open model: %w", err)
	}
	defer pool.Close()

	legalActions := make([][]uint32, cfg.roots)
	toPlayBatch := make([]int8, cfg.roots)
	isResetBatch := make([]bool, cfg.roots)
	seedLatents := make([][]float32, cfg.roots)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < cfg.roots; i++ {
		actions := make([]uint32, cfg.actionsPerHead)
		for a := range actions {
			actions[a] = uint32(a)
		}
		legalActions[i] = actions
		toPlayBatch[i] = -1

		latent := make([]float32, cfg.latentDim)
		for d := range latent {
			latent[d] = rng.Float32()
		}
		seedLatents[i] = latent
	}
	store.SeedRoots(seedLatents)

	roots, err := mcts.NewRoots(cfg.roots, int32(cfg.actionHeads), int32(cfg.actionsPerHead), legalActions)
	if err != nil {
		return fmt.Errorf("searchbench: build roots: %w", err)
	}

	leaves := make([]model.Leaf, cfg.roots)
	for i := 0; i < cfg.roots; i++ {
		leaves[i] = model.Leaf{BatchIndex: int32(i), ParentLatentIndex: 0}
	}
	_, valuePrefixes, policies, _, err := pool.EvaluateBatch(ctx, 0, leaves)
	if err != nil {
		return fmt.Errorf("searchbench: evaluate roots: %w", err)
	}

	noises := make([][]float32, cfg.roots)
	for i := range noises {
		noises[i] = dirichletNoise(rng, len(legalActions[i]))
	}
	if err := roots.Prepare(cfg.epsilon, noises, valuePrefixes, policies, toPlayBatch); err != nil {
		return fmt.Errorf("searchbench: prepare roots: %w", err)
	}

	driver := search.NewDriver(search.DefaultParams(), pool)
	logger.Info("starting search", "roots", cfg.roots, "simulations", cfg.simulations, "heads", cfg.actionHeads)

	if err := driver.Run(ctx, roots, cfg.simulations, toPlayBatch, isResetBatch); err != nil {
		return fmt.Errorf("searchbench: run: %w", err)
	}

	logger.Info("search complete",
		"simulations_per_second", driver.Stats.SimsPerSecond(),
		"total_simulations", driver.Stats.Simulations.Load(),
		"collisions", driver.Stats.Collisions.Load(),
	)

	if cfg.archiveDir != "" {
		w, err := archive.NewWriter(cfg.archiveDir, archive.DefaultShardName("searchbench", time.Now()))
		if err != nil {
			return fmt.Errorf("searchbench: open archive writer: %w", err)
		}
		if err := w.WriteBatch("searchbench", cfg.simulations, roots, toPlayBatch, time.Now().Unix()); err != nil {
			_ = w.Close()
			return fmt.Errorf("searchbench: write batch: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("searchbench: close archive writer: %w", err)
		}
		logger.Info("archived batch", "dir", cfg.archiveDir)
	}
	return nil
}

func dirichletNoise(rng *rand.Rand, n int) []float32 {
	if n == 0 {
		return nil
	}
	const alpha = 0.3
	gammas := make([]float64, n)
	sum := 0.0
	for i := range gammas {
		gammas[i] = sampleGamma(rng, alpha)
		sum += gammas[i]
	}
	out := make([]float32, n)
	if sum == 0 {
		for i := range out {
			out[i] = float32(1.0 / float64(n))
		}
		return out
	}
	for i := range out {
		out[i] = float32(gammas[i] / sum)
	}
	return out
}

// sampleGamma draws from Gamma(shape, 1) via Marsaglia-Tsang, the
// standard construction used to build Dirichlet samples from independent
// gammas.
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x || math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
