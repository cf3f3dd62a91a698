// Package depgraph builds the dependency graph over validated entities and
// derives a deterministic import order: a fixed type priority for the outer
// sequence, with a per-node topological sort inside each type bucket so
// intra-type dependencies (project → parent project) commit in order.
package depgraph

import (
	"sort"

	"github.com/daybookhq/daybook/internal/types"
)

// Graph holds entity nodes and "depends-on" edges. Edges are only recorded
// when both endpoints survived validation; references that leave the batch
// are the conflict detector's concern, not an ordering constraint.
type Graph struct {
	Nodes  map[string]struct{}
	Edges  map[string]map[string]struct{} // id -> set of ids it depends on
	TypeOf map[string]types.EntityType
}

// DependsOn reports whether id has a recorded dependency on target.
func (g *Graph) DependsOn(id, target string) bool {
	_, ok := g.Edges[id][target]
	return ok
}

// RelationshipMap carries the typed cross-reference indexes, the dependency
// graph, and the computed import order.
type RelationshipMap struct {
	TaskToProject   map[string]string
	TaskToThought   map[string]string
	ProjectToGoal   map[string]string
	ProjectToParent map[string]string

	ThoughtToTasks    map[string][]string
	ThoughtToProjects map[string][]string
	ThoughtToMoods    map[string][]string
	ThoughtToPeople   map[string][]string

	Graph *Graph

	// ImportOrder is the type sequence, filtered to types present.
	ImportOrder []types.EntityType
	// OrderedIDs is the topologically sorted ID sequence per type bucket.
	// Members of a cycle follow the acyclic nodes, with anything that
	// depends on the cycle after them, so the output stays deterministic
	// even before the cycle conflict is resolved.
	OrderedIDs map[types.EntityType][]string
	// Cycles lists each detected intra-type dependency cycle as a sorted
	// set of member IDs. Every cycle becomes a data_constraint conflict.
	Cycles [][]string
}

// Build constructs the relationship map from the validated entities.
func Build(entities map[types.EntityType][]types.Entity) *RelationshipMap {
	g := &Graph{
		Nodes:  make(map[string]struct{}),
		Edges:  make(map[string]map[string]struct{}),
		TypeOf: make(map[string]types.EntityType),
	}
	rel := &RelationshipMap{
		TaskToProject:     make(map[string]string),
		TaskToThought:     make(map[string]string),
		ProjectToGoal:     make(map[string]string),
		ProjectToParent:   make(map[string]string),
		ThoughtToTasks:    make(map[string][]string),
		ThoughtToProjects: make(map[string][]string),
		ThoughtToMoods:    make(map[string][]string),
		ThoughtToPeople:   make(map[string][]string),
		Graph:             g,
		OrderedIDs:        make(map[types.EntityType][]string),
	}

	for t, list := range entities {
		for _, e := range list {
			g.Nodes[e.EntityID()] = struct{}{}
			g.TypeOf[e.EntityID()] = t
		}
	}

	for _, list := range entities {
		for _, e := range list {
			switch v := e.(type) {
			case *types.Task:
				if v.ProjectID != "" {
					rel.TaskToProject[v.ID] = v.ProjectID
					g.addEdge(v.ID, v.ProjectID)
				}
				if v.ThoughtID != "" {
					rel.TaskToThought[v.ID] = v.ThoughtID
					g.addEdge(v.ID, v.ThoughtID)
				}
			case *types.Project:
				if v.GoalID != "" {
					rel.ProjectToGoal[v.ID] = v.GoalID
					g.addEdge(v.ID, v.GoalID)
				}
				if v.ParentProjectID != "" {
					rel.ProjectToParent[v.ID] = v.ParentProjectID
					g.addEdge(v.ID, v.ParentProjectID)
				}
			case *types.Thought:
				// Thought links are soft associations: indexed for the
				// reference rewriter but never dependency edges, since the
				// backlinks would manufacture cycles.
				rel.ThoughtToTasks[v.ID] = append([]string(nil), v.LinkedTaskIDs...)
				rel.ThoughtToProjects[v.ID] = append([]string(nil), v.LinkedProjectIDs...)
				rel.ThoughtToMoods[v.ID] = append([]string(nil), v.LinkedMoodIDs...)
				rel.ThoughtToPeople[v.ID] = append([]string(nil), v.LinkedPeopleIDs...)
			}
		}
	}

	for _, t := range types.ImportPriority {
		list, present := entities[t]
		if !present || len(list) == 0 {
			continue
		}
		rel.ImportOrder = append(rel.ImportOrder, t)
		ordered, cycles := sortBucket(g, list)
		rel.OrderedIDs[t] = ordered
		rel.Cycles = append(rel.Cycles, cycles...)
	}

	return rel
}

func (g *Graph) addEdge(from, to string) {
	if _, ok := g.Nodes[to]; !ok {
		return
	}
	if g.Edges[from] == nil {
		g.Edges[from] = make(map[string]struct{})
	}
	g.Edges[from][to] = struct{}{}
}

// sortBucket runs Kahn's algorithm over one type bucket, considering only
// edges between members of the bucket. Cross-type edges are already honored
// by the type priority sequence. IDs with no ordering constraint between them
// come out lexicographically, which makes the whole order deterministic.
func sortBucket(g *Graph, list []types.Entity) (ordered []string, cycles [][]string) {
	members := make(map[string]struct{}, len(list))
	ids := make([]string, 0, len(list))
	for _, e := range list {
		if _, dup := members[e.EntityID()]; dup {
			continue
		}
		members[e.EntityID()] = struct{}{}
		ids = append(ids, e.EntityID())
	}
	sort.Strings(ids)

	// In-degree counts dependencies inside this bucket; dependents records
	// the reverse edges for decrementing.
	indegree := make(map[string]int, len(ids))
	dependents := make(map[string][]string)
	for _, id := range ids {
		for dep := range g.Edges[id] {
			if _, inBucket := members[dep]; !inBucket {
				continue
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var queue []string
	for _, id := range ids {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	done := make(map[string]bool, len(ids))
	for len(queue) > 0 {
		// Smallest ID first keeps the emitted order stable across runs.
		sort.Strings(queue)
		id := queue[0]
		queue = queue[1:]
		ordered = append(ordered, id)
		done[id] = true
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(ordered) < len(ids) {
		var leftover []string
		for _, id := range ids {
			if !done[id] {
				leftover = append(leftover, id)
			}
		}
		sort.Strings(leftover)
		cycles = splitCycles(g, leftover)

		// Cycle members first; their dependents follow, still in
		// dependency order.
		for _, cyc := range cycles {
			for _, id := range cyc {
				ordered = append(ordered, id)
				done[id] = true
			}
		}
		for {
			progressed := false
			for _, id := range leftover {
				if done[id] {
					continue
				}
				ready := true
				for dep := range g.Edges[id] {
					if _, inBucket := members[dep]; inBucket && !done[dep] {
						ready = false
						break
					}
				}
				if ready {
					ordered = append(ordered, id)
					done[id] = true
					progressed = true
				}
			}
			if !progressed {
				break
			}
		}
		for _, id := range leftover {
			if !done[id] {
				ordered = append(ordered, id)
			}
		}
	}
	return ordered, cycles
}

// splitCycles extracts the true cycles from the leftover nodes of a bucket.
// The Kahn leftover also contains nodes that merely depend on a cycle; only
// a strongly connected component of two or more nodes, or a self-reference,
// is a cycle, so dependents never land in a conflict's member list. Tarjan
// over the leftover subgraph, components emitted sorted.
func splitCycles(g *Graph, leftover []string) [][]string {
	inLeftover := make(map[string]bool, len(leftover))
	for _, id := range leftover {
		inLeftover[id] = true
	}
	edges := make(map[string][]string, len(leftover))
	for _, id := range leftover {
		var deps []string
		for dep := range g.Edges[id] {
			if inLeftover[dep] {
				deps = append(deps, dep)
			}
		}
		sort.Strings(deps)
		edges[id] = deps
	}

	index := make(map[string]int, len(leftover))
	lowlink := make(map[string]int, len(leftover))
	onStack := make(map[string]bool, len(leftover))
	var stack []string
	next := 0
	var cycles [][]string

	var connect func(id string)
	connect = func(id string) {
		index[id] = next
		lowlink[id] = next
		next++
		stack = append(stack, id)
		onStack[id] = true

		for _, dep := range edges[id] {
			if _, seen := index[dep]; !seen {
				connect(dep)
				if lowlink[dep] < lowlink[id] {
					lowlink[id] = lowlink[dep]
				}
			} else if onStack[dep] && index[dep] < lowlink[id] {
				lowlink[id] = index[dep]
			}
		}

		if lowlink[id] != index[id] {
			return
		}
		var component []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)
			if top == id {
				break
			}
		}
		if len(component) == 1 && !g.DependsOn(id, id) {
			return
		}
		sort.Strings(component)
		cycles = append(cycles, component)
	}

	for _, id := range leftover {
		if _, seen := index[id]; !seen {
			connect(id)
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}
