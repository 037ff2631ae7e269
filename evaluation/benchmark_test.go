package evaluation

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/ezoic/flufit/dataset"
)

// BenchmarkTuningWorkers measures the tuned candidates on the reference-sized table
// with increasing pool sizes.
func BenchmarkTuningWorkers(b *testing.B) {
	raw, err := dataset.Simulate(730, 0, 123)
	if err != nil {
		b.Fatal(err)
	}
	processed, err := dataset.Prepare(raw, dataset.DefaultExclusionRule())
	if err != nil {
		b.Fatal(err)
	}

	workers := []int{1, 2, runtime.NumCPU()}
	for _, candidate := range []string{CandidateTree, CandidateLasso, CandidateForest} {
		for _, w := range workers {
			b.Run(fmt.Sprintf("%s_%dworkers", candidate, w), func(b *testing.B) {
				cfg := DefaultConfig()
				cfg.Candidates = []string{candidate}
				cfg.Repeats = 1
				cfg.GridLevels = 3
				cfg.ForestTrees = 50
				cfg.Workers = w
				b.ReportAllocs()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := Evaluate(processed, bodyTemp, []dataset.PredictorSet{dataset.AllRemaining()}, cfg, WithRunID("bench"))
					if err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
