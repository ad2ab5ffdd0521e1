package graph

import "container/heap"

// dag is an index-based graph whose node index is the tie-break priority.
type dag struct {
	outgoing [][]int
	incoming [][]int
	indeg    []int
}

func newDAG(n int) *dag {
	return &dag{
		outgoing: make([][]int, n),
		incoming: make([][]int, n),
		indeg:    make([]int, n),
	}
}

// addEdge records that to depends on from.
func (g *dag) addEdge(from, to int) {
	for _, m := range g.outgoing[from] {
		if m == to {
			return
		}
	}
	g.outgoing[from] = append(g.outgoing[from], to)
	g.incoming[to] = append(g.incoming[to], from)
	g.indeg[to]++
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder runs Kahn's algorithm with a min-heap ready queue, so among the
// ready nodes the lowest index always goes first. It also returns each node's
// depth: 0 for nodes without dependencies, else one more than the deepest
// dependency. The order is shorter than the node count iff there is a cycle.
func (g *dag) topoOrder() ([]int, []int) {
	indeg := append([]int(nil), g.indeg...)
	depth := make([]int, len(indeg))

	ready := &intMinHeap{}
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.outgoing[n] {
			if depth[n]+1 > depth[m] {
				depth[m] = depth[n] + 1
			}
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out, depth
}

// findCycle extracts one cycle by DFS over ascending indices. The result
// starts and ends with the same node and follows dependency direction.
func (g *dag) findCycle() []int {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.outgoing))
	parent := make([]int, len(g.outgoing))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// back edge u -> v closes v ... u -> v
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.outgoing {
		if color[i] == white && dfs(i) {
			break
		}
	}

	// reverse into forward edge order
	for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
		cycle[i], cycle[j] = cycle[j], cycle[i]
	}
	return cycle
}
