// Package inference provides a model.Model backed by ONNX Runtime,
// evaluating one full simulation-round batch per session Run() call
// instead of queueing individual requests, since the search driver
// already hands it whole batches.
package inference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/brensch/searchtree/mcts/model"
)

// Config sizes the tensors an Evaluator builds. LatentDim is the width
// of the representation network's latent vector; ActionDim is H, the
// number of action heads encoded per leaf; PolicySize is the width of
// the policy logits the prediction head emits.
type Config struct {
	LatentDim  int
	ActionDim  int
	PolicySize int
}

// Evaluator drives a single ONNX Runtime session over the model's
// recurrent-inference graph: inputs "latent" (batch x LatentDim) and
// "action" (batch x ActionDim); outputs "next_latent" (batch x
// LatentDim), "value" (batch x 1), "value_prefix" (batch x 1), "policy"
// (batch x PolicySize), and "reset" (batch x 1, thresholded at 0.5).
type Evaluator struct {
	session *ort.DynamicAdvancedSession
	cfg     Config
	store   LatentStore
}

var ortInitOnce sync.Once
var ortInitErr error

// NewEvaluator loads modelPath and opens one ONNX Runtime session
// against it, attempting the CUDA execution provider and falling back to
// CPU on failure.
func NewEvaluator(modelPath string, cfg Config, store LatentStore) (*Evaluator, error) {
	if cfg.LatentDim <= 0 || cfg.ActionDim <= 0 || cfg.PolicySize <= 0 {
		return nil, fmt.Errorf("inference: LatentDim, ActionDim, and PolicySize must be positive")
	}

	if runtime.GOOS == "linux" {
		ensureLinuxLibraryPath()
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		} else {
			cwd, _ := os.Getwd()
			for _, name := range []string{"libonnxruntime.so", "libonnxruntime.so.1"} {
				abs := filepath.Join(cwd, name)
				if _, err := os.Stat(abs); err == nil {
					ort.SetSharedLibraryPath(abs)
					break
				}
			}
		}
	}

	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("inference: init ort: %w", ortInitErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("inference: session options: %w", err)
	}
	defer options.Destroy()
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	if cudaOptions, err := ort.NewCUDAProviderOptions(); err == nil {
		defer cudaOptions.Destroy()
		_ = options.AppendExecutionProviderCUDA(cudaOptions)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"latent", "action"},
		[]string{"next_latent", "value", "value_prefix", "policy", "reset"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("inference: create session: %w", err)
	}

	return &Evaluator{session: session, cfg: cfg, store: store}, nil
}

func ensureLinuxLibraryPath() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	candidateDirs := []string{cwd}
	patterns := []string{
		filepath.Join(cwd, ".venv", "lib", "python*", "site-packages", "nvidia", "*", "lib"),
		filepath.Join(cwd, ".venv", "lib", "python*", "site-packages", "torch", "lib"),
	}
	for _, pat := range patterns {
		matches, _ := filepath.Glob(pat)
		candidateDirs = append(candidateDirs, matches...)
	}

	existing := os.Getenv("LD_LIBRARY_PATH")
	existingSet := map[string]bool{}
	for _, p := range strings.Split(existing, ":") {
		if p != "" {
			existingSet[p] = true
		}
	}
	var toAdd []string
	for _, d := range candidateDirs {
		if existingSet[d] {
			continue
		}
		if st, err := os.Stat(d); err == nil && st.IsDir() {
			toAdd = append(toAdd, d)
		}
	}
	if len(toAdd) == 0 {
		return
	}
	newVal := strings.Join(toAdd, ":")
	if existing != "" {
		newVal = newVal + ":" + existing
	}
	_ = os.Setenv("LD_LIBRARY_PATH", newVal)
}

// Close releases the underlying ONNX Runtime session.
func (e *Evaluator) Close() error {
	return e.session.Destroy()
}

// EvaluateBatch implements model.Model.
func (e *Evaluator) EvaluateBatch(ctx context.Context, depth int32, leaves []model.Leaf) ([]float64, []float32, [][]float32, []bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, nil, err
	}
	n := len(leaves)
	if n == 0 {
		return nil, nil, nil, nil, nil
	}

	latentInput := make([]float32, 0, n*e.cfg.LatentDim)
	actionInput := make([]float32, 0, n*e.cfg.ActionDim)
	for _, leaf := range leaves {
		parent, ok := e.store.Latent(leaf.BatchIndex, leaf.ParentLatentIndex)
		if !ok {
			return nil, nil, nil, nil, fmt.Errorf("inference: no cached latent for batch=%d depth=%d", leaf.BatchIndex, leaf.ParentLatentIndex)
		}
		latentInput = append(latentInput, parent...)
		for i := 0; i < e.cfg.ActionDim; i++ {
			var a float32
			if i < len(leaf.Action) {
				a = float32(leaf.Action[i])
			} else {
				a = -1
			}
			actionInput = append(actionInput, a)
		}
	}

	latentTensor, err := ort.NewTensor(ort.NewShape(int64(n), int64(e.cfg.LatentDim)), latentInput)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("inference: latent tensor: %w", err)
	}
	defer latentTensor.Destroy()

	actionTensor, err := ort.NewTensor(ort.NewShape(int64(n), int64(e.cfg.ActionDim)), actionInput)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("inference: action tensor: %w", err)
	}
	defer actionTensor.Destroy()

	nextLatentOut, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), int64(e.cfg.LatentDim)))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("inference: next_latent tensor: %w", err)
	}
	defer nextLatentOut.Destroy()

	valueOut, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), 1))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("inference: value tensor: %w", err)
	}
	defer valueOut.Destroy()

	valuePrefixOut, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), 1))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("inference: value_prefix tensor: %w", err)
	}
	defer valuePrefixOut.Destroy()

	policyOut, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), int64(e.cfg.PolicySize)))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("inference: policy tensor: %w", err)
	}
	defer policyOut.Destroy()

	resetOut, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), 1))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("inference: reset tensor: %w", err)
	}
	defer resetOut.Destroy()

	err = e.session.Run(
		[]ort.Value{latentTensor, actionTensor},
		[]ort.Value{nextLatentOut, valueOut, valuePrefixOut, policyOut, resetOut},
	)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("inference: run: %w", err)
	}

	nextLatentData := nextLatentOut.GetData()
	valueData := valueOut.GetData()
	valuePrefixData := valuePrefixOut.GetData()
	policyData := policyOut.GetData()
	resetData := resetOut.GetData()

	values := make([]float64, n)
	valuePrefixes := make([]float32, n)
	policyLogits := make([][]float32, n)
	resets := make([]bool, n)
	for i, leaf := range leaves {
		values[i] = float64(valueData[i])
		valuePrefixes[i] = valuePrefixData[i]
		policy := make([]float32, e.cfg.PolicySize)
		copy(policy, policyData[i*e.cfg.PolicySize:(i+1)*e.cfg.PolicySize])
		policyLogits[i] = policy
		resets[i] = resetData[i] > 0.5

		next := make([]float32, e.cfg.LatentDim)
		copy(next, nextLatentData[i*e.cfg.LatentDim:(i+1)*e.cfg.LatentDim])
		e.store.Store(leaf.BatchIndex, depth, next)
	}

	return values, valuePrefixes, policyLogits, resets, nil
}
