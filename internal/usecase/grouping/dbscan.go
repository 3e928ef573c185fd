package grouping

import "sort"

// noiseLabel marks points left outside every density cluster.
const noiseLabel = -1

// dbscan runs density clustering over a precomputed k-nearest-neighbor
// cosine-distance graph. Only a point's k nearest neighbors within eps are
// density-reachable from it, matching clustering on a sparse kNN graph.
// Returns one label per point; noise points get noiseLabel.
//
// The scan visits points in index order, so the labeling is deterministic
// for a fixed input order.
func dbscan(vectors [][]float32, eps float64, minSamples, k int) []int {
	n := len(vectors)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = noiseLabel
	}
	if n == 0 {
		return labels
	}
	if k > n-1 {
		k = n - 1
	}

	neighbors := knnNeighbors(vectors, eps, k)

	visited := make([]bool, n)
	cluster := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		// Core point test counts the point itself, as sklearn does.
		if len(neighbors[i])+1 < minSamples {
			continue
		}

		labels[i] = cluster
		queue := append([]int(nil), neighbors[i]...)
		for head := 0; head < len(queue); head++ {
			j := queue[head]
			if labels[j] == noiseLabel {
				labels[j] = cluster
			}
			if visited[j] {
				continue
			}
			visited[j] = true
			if len(neighbors[j])+1 >= minSamples {
				queue = append(queue, neighbors[j]...)
			}
		}
		cluster++
	}
	return labels
}

// knnNeighbors returns, for each point, the indices of its k nearest
// neighbors whose cosine distance is within eps, ordered by distance then
// index.
func knnNeighbors(vectors [][]float32, eps float64, k int) [][]int {
	n := len(vectors)
	type neighbor struct {
		idx  int
		dist float64
	}

	out := make([][]int, n)
	for i := 0; i < n; i++ {
		candidates := make([]neighbor, 0, n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			candidates = append(candidates, neighbor{idx: j, dist: cosineDist(vectors[i], vectors[j])})
		}
		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].dist != candidates[b].dist {
				return candidates[a].dist < candidates[b].dist
			}
			return candidates[a].idx < candidates[b].idx
		})
		if len(candidates) > k {
			candidates = candidates[:k]
		}
		keep := make([]int, 0, len(candidates))
		for _, c := range candidates {
			if c.dist <= eps {
				keep = append(keep, c.idx)
			}
		}
		out[i] = keep
	}
	return out
}
