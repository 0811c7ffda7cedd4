// Command searchviz runs search.Driver against a batch of roots inside
// a Bubble Tea dashboard, following the teacher's executor/main.go
// bubbletea model/update/view loop (there driven by self-play game
// results; here driven by Driver.Stats polled on a tick).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/searchtree/inference"
	"github.com/brensch/searchtree/mcts"
	"github.com/brensch/searchtree/mcts/model"
	"github.com/brensch/searchtree/search"
	"github.com/brensch/searchtree/telemetry"
)

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type runDoneMsg struct{ err error }

type dashboard struct {
	driver    *search.Driver
	startTime time.Time
	done      bool
	err       error
	roundsGoal int
}

func (d dashboard) Init() tea.Cmd {
	return tickCmd()
}

func (d dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return d, tea.Quit
		}
	case tickMsg:
		if d.done {
			return d, nil
		}
		return d, tickCmd()
	case runDoneMsg:
		d.done = true
		d.err = msg.err
		return d, nil
	}
	return d, nil
}

func (d dashboard) View() string {
	sims := d.driver.Stats.Simulations.Load()
	collisions := d.driver.Stats.Collisions.Load()
	sps := d.driver.Stats.SimsPerSecond()
	elapsed := time.Since(d.startTime).Round(100 * time.Millisecond)

	s := "searchviz\n\n"
	s += fmt.Sprintf("Simulations:    %d / %d\n", sims, d.roundsGoal)
	s += fmt.Sprintf("Collisions:     %d\n", collisions)
	s += fmt.Sprintf("Sims/sec:       %.1f\n", sps)
	s += fmt.Sprintf("Elapsed:        %s\n", elapsed)
	if d.done {
		if d.err != nil {
			s += fmt.Sprintf("\nFinished with error: %v\n", d.err)
		} else {
			s += "\nFinished.\n"
		}
	}
	s += "\nPress q to quit.\n"
	return s
}

func main() {
	modelPath := flag.String("model-path", "models/muzero.onnx", "ONNX model path (recurrent-inference graph)")
	onnxSessions := flag.Int("onnx-sessions", 1, "Number of ONNX Runtime sessions to run leaves through in parallel")
	latentDim := flag.Int("latent-dim", 64, "Width of the representation network's latent vector")
	actionHeads := flag.Int("heads", 1, "Number of action heads H")
	actionsPerHead := flag.Int("actions-per-head", 4, "Legal actions available to each head")
	policySize := flag.Int("policy-size", 4, "Width of the prediction head's policy logits")
	batchRoots := flag.Int("roots", 64, "Number of roots to search concurrently")
	simulations := flag.Int("simulations", 200, "Simulations to run per root")
	epsilon := flag.Float64("epsilon", 0.25, "Root exploration-noise weight (unused: searchviz prepares roots without noise)")
	flag.Parse()

	logFile, err := os.OpenFile("searchviz.log", os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(telemetry.Default(logFile))

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	store := inference.NewMemoryLatentStore()
	pool, err := inference.NewPool(*modelPath, inference.Config{
		LatentDim:  *latentDim,
		ActionDim:  *actionHeads,
		PolicySize: *policySize,
	}, store, *onnxSessions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open model: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	legalActions := make([][]uint32, *batchRoots)
	toPlayBatch := make([]int8, *batchRoots)
	isResetBatch := make([]bool, *batchRoots)
	seedLatents := make([][]float32, *batchRoots)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < *batchRoots; i++ {
		actions := make([]uint32, *actionsPerHead)
		for a := range actions {
			actions[a] = uint32(a)
		}
		legalActions[i] = actions
		toPlayBatch[i] = -1

		latent := make([]float32, *latentDim)
		for d := range latent {
			latent[d] = rng.Float32()
		}
		seedLatents[i] = latent
	}
	store.SeedRoots(seedLatents)

	roots, err := mcts.NewRoots(*batchRoots, int32(*actionHeads), int32(*actionsPerHead), legalActions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build roots: %v\n", err)
		os.Exit(1)
	}

	leaves := make([]model.Leaf, *batchRoots)
	for i := range leaves {
		leaves[i] = model.Leaf{BatchIndex: int32(i), ParentLatentIndex: 0}
	}
	_, valuePrefixes, policies, _, err := pool.EvaluateBatch(ctx, 0, leaves)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaluate roots: %v\n", err)
		os.Exit(1)
	}
	if err := roots.PrepareNoNoise(valuePrefixes, policies, toPlayBatch); err != nil {
		fmt.Fprintf(os.Stderr, "prepare roots: %v\n", err)
		os.Exit(1)
	}
	_ = *epsilon // exploration noise is skipped for the TUI demo; searchbench exercises it.

	driver := search.NewDriver(search.DefaultParams(), pool)

	program := tea.NewProgram(dashboard{driver: driver, startTime: time.Now(), roundsGoal: *simulations})
	go func() {
		err := driver.Run(ctx, roots, *simulations, toPlayBatch, isResetBatch)
		program.Send(runDoneMsg{err: err})
	}()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui: %v\n", err)
		os.Exit(1)
	}
}
