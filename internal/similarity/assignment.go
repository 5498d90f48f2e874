package similarity

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Assign solves the minimum-cost perfect assignment on a square cost matrix
// with the Hungarian algorithm (shortest augmenting paths with potentials,
// O(n³)). It returns cols where cols[row] is the column assigned to row.
// Assign panics if cost is not square, like gonum does for shape mismatches.
func Assign(cost mat.Matrix) []int {
	n, c := cost.Dims()
	if n != c {
		panic(mat.ErrShape)
	}
	if n == 0 {
		return nil
	}

	// 1-based arrays; index 0 is the virtual root of each augmenting path.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	match := make([]int, n+1) // match[col] = row
	way := make([]int, n+1)
	minv := make([]float64, n+1)
	used := make([]bool, n+1)

	for row := 1; row <= n; row++ {
		match[0] = row
		col0 := 0
		for j := range minv {
			minv[j] = math.Inf(1)
			used[j] = false
		}

		for {
			used[col0] = true
			row0 := match[col0]
			delta := math.Inf(1)
			col1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost.At(row0-1, j-1) - u[row0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = col0
				}
				if minv[j] < delta {
					delta = minv[j]
					col1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[match[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			col0 = col1
			if match[col0] == 0 {
				break
			}
		}

		for col0 != 0 {
			col1 := way[col0]
			match[col0] = match[col1]
			col0 = col1
		}
	}

	cols := make([]int, n)
	for j := 1; j <= n; j++ {
		cols[match[j]-1] = j - 1
	}
	return cols
}
