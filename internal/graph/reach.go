package graph

import "sort"

// Reachable returns every node reachable from root, root included, sorted.
// Cycles are handled by the visited set. An unknown root yields nil.
func (g *Graph) Reachable(root string) []string {
	start, ok := g.nodeIdx[root]
	if !ok {
		return nil
	}

	visited := make([]bool, len(g.nodes))
	visited[start] = true
	stack := []int{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.out[n] {
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}

	out := make([]string, 0)
	for i, seen := range visited {
		if seen {
			out = append(out, g.nodes[i])
		}
	}
	sort.Strings(out)
	return out
}

// ShortestPath returns the nodes on a shortest path from src to dst, both
// included, or nil when dst is unreachable. Ties are broken by edge insertion
// order, so the result is stable for a given graph.
func (g *Graph) ShortestPath(src, dst string) []string {
	from, ok := g.nodeIdx[src]
	if !ok {
		return nil
	}
	to, ok := g.nodeIdx[dst]
	if !ok {
		return nil
	}
	if from == to {
		return []string{src}
	}

	parent := make([]int, len(g.nodes))
	for i := range parent {
		parent[i] = -1
	}
	parent[from] = from

	queue := []int{from}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range g.out[n] {
			if parent[next] != -1 {
				continue
			}
			parent[next] = n
			if next == to {
				return g.backtrackPath(parent, from, to)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// backtrackPath follows parent links from target back to source.
func (g *Graph) backtrackPath(parent []int, source, target int) []string {
	path := []string{g.nodes[target]}
	for current := target; current != source; {
		current = parent[current]
		path = append(path, g.nodes[current])
	}

	// Reverse path to go from source to target
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
