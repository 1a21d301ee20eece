package retrieval

import (
	"math"
	"sort"

	"github.com/nurpath/nurpath/internal/model"
)

// fuse combines the two scores; both inputs are clamped to [0,1]
func fuse(vector, lexical, lambda float64) float64 {
	return lambda*clamp01(vector) + (1-lambda)*clamp01(lexical)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// quantize floors score onto the epsilon grid. Scores in the same bucket
// are equal for ranking, which keeps the tie band transitive. The grid is
// fixed, so two scores closer than epsilon on either side of a bucket edge
// (0.7009 and 0.7011 at 0.001) land in different buckets and are ordered
// by score, not by the tie-break keys.
func quantize(score, epsilon float64) float64 {
	if epsilon <= 0 {
		return score
	}
	steps := math.Floor(score/epsilon + 1e-9)
	// round away float noise of steps*epsilon
	return clamp01(math.Round(steps*epsilon*1e9) / 1e9)
}

// ranker orders candidates by quantized fused score, then source priority,
// then authenticity, then passage id
type ranker struct {
	priority map[model.SourceType]int
}

func newRanker(order []model.SourceType) ranker {
	priority := make(map[model.SourceType]int, len(order))
	for i, st := range order {
		priority[st] = i
	}
	return ranker{priority: priority}
}

func (r ranker) rank(priority model.SourceType) int {
	if p, ok := r.priority[priority]; ok {
		return p
	}
	return len(r.priority)
}

func (r ranker) less(a, b model.RetrievalCandidate) bool {
	if a.FusedScore != b.FusedScore {
		return a.FusedScore > b.FusedScore
	}
	if pa, pb := r.rank(a.Passage.SourceType), r.rank(b.Passage.SourceType); pa != pb {
		return pa < pb
	}
	if a.Passage.Authenticity != b.Passage.Authenticity {
		return a.Passage.Authenticity > b.Passage.Authenticity
	}
	return a.Passage.ID < b.Passage.ID
}

func (r ranker) sort(cands []model.RetrievalCandidate) {
	sort.SliceStable(cands, func(i, j int) bool { return r.less(cands[i], cands[j]) })
}

// selectDiverse takes the first k ranked candidates while allowing at most
// perSource passages from one source document. Capped candidates backfill
// only when the distinct sources cannot fill k slots. Rank order is kept.
func selectDiverse(ranked []model.RetrievalCandidate, k, perSource int) []model.RetrievalCandidate {
	if k <= 0 || len(ranked) == 0 {
		return nil
	}
	if perSource < 1 {
		perSource = 1
	}

	chosen := make([]bool, len(ranked))
	perSourceCount := make(map[string]int)
	n := 0
	for i, c := range ranked {
		if n == k {
			break
		}
		if perSourceCount[c.Passage.SourceID] >= perSource {
			continue
		}
		chosen[i] = true
		perSourceCount[c.Passage.SourceID]++
		n++
	}
	for i := range ranked {
		if n == k {
			break
		}
		if !chosen[i] {
			chosen[i] = true
			n++
		}
	}

	out := make([]model.RetrievalCandidate, 0, n)
	for i, c := range ranked {
		if chosen[i] {
			out = append(out, c)
		}
	}
	return out
}
