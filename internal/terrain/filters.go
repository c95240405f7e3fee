package terrain

import "math"

// computeSlope derives a slope-in-degrees grid from an elevation grid via
// a central-difference gradient, mirroring the reference DEM service's
// np.gradient-based slope layer. NaN (nodata) cells propagate as NaN.
func computeSlope(elev [][]float64, pixelSizeM float64) [][]float64 {
	h := len(elev)
	w := len(elev[0])
	out := make([][]float64, h)
	for r := 0; r < h; r++ {
		out[r] = make([]float64, w)
		for c := 0; c < w; c++ {
			if math.IsNaN(elev[r][c]) {
				out[r][c] = math.NaN()
				continue
			}
			dzdx := centralDiff(elev, r, c, 0, 1, pixelSizeM)
			dzdy := centralDiff(elev, r, c, 1, 0, pixelSizeM)
			if math.IsNaN(dzdx) || math.IsNaN(dzdy) {
				out[r][c] = math.NaN()
				continue
			}
			rise := math.Sqrt(dzdx*dzdx + dzdy*dzdy)
			out[r][c] = math.Atan(rise) * 180 / math.Pi
		}
	}
	return out
}

// centralDiff computes the gradient component along (drow, dcol) at
// (r, c), falling back to a forward/backward difference at the grid edge.
func centralDiff(grid [][]float64, r, c, drow, dcol int, pixelSizeM float64) float64 {
	h, w := len(grid), len(grid[0])
	r0, c0 := r-drow, c-dcol
	r1, c1 := r+drow, c+dcol

	v0ok := r0 >= 0 && r0 < h && c0 >= 0 && c0 < w && !math.IsNaN(grid[r0][c0])
	v1ok := r1 >= 0 && r1 < h && c1 >= 0 && c1 < w && !math.IsNaN(grid[r1][c1])

	switch {
	case v0ok && v1ok:
		return (grid[r1][c1] - grid[r0][c0]) / (2 * pixelSizeM)
	case v1ok:
		return (grid[r1][c1] - grid[r][c]) / pixelSizeM
	case v0ok:
		return (grid[r][c] - grid[r0][c0]) / pixelSizeM
	default:
		return math.NaN()
	}
}

// computeRelativeElevation returns elevation minus a windowed local mean,
// using a separable uniform-mean filter (row pass then column pass) so
// the cost is O(n*w) rather than O(n*w^2) for an n-cell grid and window
// radius w, matching the reference service's two-pass boxcar filter at
// the local (~150m) and regional (~2km) scales.
func computeRelativeElevation(elev [][]float64, radiusPx int) [][]float64 {
	mean := separableMean(elev, radiusPx)
	h, w := len(elev), len(elev[0])
	out := make([][]float64, h)
	for r := 0; r < h; r++ {
		out[r] = make([]float64, w)
		for c := 0; c < w; c++ {
			if math.IsNaN(elev[r][c]) || math.IsNaN(mean[r][c]) {
				out[r][c] = math.NaN()
				continue
			}
			out[r][c] = elev[r][c] - mean[r][c]
		}
	}
	return out
}

// separableMean computes a windowed mean over a (2*radiusPx+1) box,
// NaN-aware (nodata cells are excluded from the running average rather
// than poisoning it), via an independent horizontal then vertical pass.
func separableMean(grid [][]float64, radiusPx int) [][]float64 {
	h, w := len(grid), len(grid[0])

	horiz := make([][]float64, h)
	for r := 0; r < h; r++ {
		horiz[r] = rowWindowMean(grid[r], radiusPx)
	}

	out := make([][]float64, h)
	for r := 0; r < h; r++ {
		out[r] = make([]float64, w)
	}
	for c := 0; c < w; c++ {
		col := make([]float64, h)
		for r := 0; r < h; r++ {
			col[r] = horiz[r][c]
		}
		meanCol := rowWindowMean(col, radiusPx)
		for r := 0; r < h; r++ {
			out[r][c] = meanCol[r]
		}
	}
	return out
}

// rowWindowMean slides a (2*radiusPx+1)-wide window along a 1D series,
// averaging only the non-NaN samples inside the window.
func rowWindowMean(series []float64, radiusPx int) []float64 {
	n := len(series)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		lo := i - radiusPx
		if lo < 0 {
			lo = 0
		}
		hi := i + radiusPx
		if hi > n-1 {
			hi = n - 1
		}
		sum, count := 0.0, 0
		for j := lo; j <= hi; j++ {
			if math.IsNaN(series[j]) {
				continue
			}
			sum += series[j]
			count++
		}
		if count == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(count)
		}
	}
	return out
}
