package similarity

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// minChunk is the smallest number of columns handed to one worker.
const minChunk = 256

// Matrix scores every query against every choice with TokenSetRatio and returns
// a len(queries)×len(choices) matrix scaled by scale (100 gives the 0–100 range,
// 1 gives [0,1]). Each string is tokenized once; columns are filled in parallel.
// Matrix returns nil when either side is empty.
func Matrix(ctx context.Context, queries, choices []string, scale float64) (*mat.Dense, error) {
	if len(queries) == 0 || len(choices) == 0 {
		return nil, nil
	}

	qs := tokenSets(queries)
	cs := tokenSets(choices)

	rows, cols := len(qs), len(cs)
	m := mat.NewDense(rows, cols, nil)

	workers := runtime.GOMAXPROCS(0)
	chunk := max(minChunk, (cols+workers-1)/workers)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < cols; start += chunk {
		start, end := start, min(start+chunk, cols)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Workers own disjoint column ranges of the shared backing slice.
			for i, q := range qs {
				row := m.RawRowView(i)
				for j := start; j < end; j++ {
					row[j] = TokenSetRatioSets(q, cs[j]) * scale / 100
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

func tokenSets(ss []string) []TokenSet {
	out := make([]TokenSet, len(ss))
	for i, s := range ss {
		out[i] = NewTokenSet(s)
	}
	return out
}
