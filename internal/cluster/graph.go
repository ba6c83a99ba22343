package cluster

import (
	"sort"
	"strings"

	"github.com/emicklei/dot"
	"github.com/pkg/errors"
)

type EdgeKind string

const (
	// EdgeDependsOn is an explicit ordering constraint.
	EdgeDependsOn EdgeKind = "depends_on"
	// EdgeReference means the dependent reads an attribute of the dependency.
	EdgeReference EdgeKind = "reference"
)

// Edge reads as: From depends on To.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

type CycleError struct {
	Addresses []string
}

func (e *CycleError) Error() string {
	return "dependency cycle between " + strings.Join(e.Addresses, ", ")
}

// Graph is the directed acyclic graph of declared resources.
type Graph struct {
	nodes map[string]Resource
	order []string
	deps  map[string]map[string]EdgeKind
}

func NewGraph() *Graph {
	return &Graph{
		nodes: map[string]Resource{},
		deps:  map[string]map[string]EdgeKind{},
	}
}

func (g *Graph) Add(resources ...Resource) error {
	for _, r := range resources {
		address := Address(r)
		if _, ok := g.nodes[address]; ok {
			return errors.Errorf("resource %s declared twice", address)
		}
		g.nodes[address] = r
		g.order = append(g.order, address)
		g.deps[address] = map[string]EdgeKind{}
	}
	return nil
}

func (g *Graph) Connect(dependent, dependency Resource, kind EdgeKind) error {
	from, to := Address(dependent), Address(dependency)
	if _, ok := g.nodes[from]; !ok {
		return errors.Errorf("unknown resource %s", from)
	}
	if _, ok := g.nodes[to]; !ok {
		return errors.Errorf("unknown resource %s", to)
	}
	if from == to {
		return errors.Errorf("resource %s cannot depend on itself", from)
	}
	if existing, ok := g.deps[from][to]; ok && existing != kind {
		return errors.Errorf("%s already depends on %s through a %s edge", from, to, existing)
	}
	g.deps[from][to] = kind
	return nil
}

func (g *Graph) Len() int {
	return len(g.order)
}

func (g *Graph) Get(address string) (Resource, bool) {
	r, ok := g.nodes[address]
	return r, ok
}

// Resources returns the nodes in declaration order.
func (g *Graph) Resources() []Resource {
	resources := make([]Resource, 0, len(g.order))
	for _, address := range g.order {
		resources = append(resources, g.nodes[address])
	}
	return resources
}

func (g *Graph) Dependencies(address string) []Edge {
	var edges []Edge
	for to, kind := range g.deps[address] {
		edges = append(edges, Edge{From: address, To: to, Kind: kind})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].To < edges[j].To })
	return edges
}

func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, address := range g.order {
		edges = append(edges, g.Dependencies(address)...)
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].From < edges[j].From })
	return edges
}

// Levels sorts the graph topologically. Every resource of a level depends only on
// resources of earlier levels, so resources within a level may run concurrently.
func (g *Graph) Levels() ([][]Resource, error) {
	remaining := map[string]int{}
	dependents := map[string][]string{}
	for _, address := range g.order {
		remaining[address] = len(g.deps[address])
		for to := range g.deps[address] {
			dependents[to] = append(dependents[to], address)
		}
	}

	var ready []string
	for address, count := range remaining {
		if count == 0 {
			ready = append(ready, address)
		}
	}

	var levels [][]Resource
	placed := 0
	for len(ready) > 0 {
		sort.Strings(ready)
		level := make([]Resource, 0, len(ready))
		var next []string
		for _, address := range ready {
			level = append(level, g.nodes[address])
			placed++
			for _, dependent := range dependents[address] {
				remaining[dependent]--
				if remaining[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		levels = append(levels, level)
		ready = next
	}

	if placed != len(g.order) {
		var cyclic []string
		for address, count := range remaining {
			if count > 0 {
				cyclic = append(cyclic, address)
			}
		}
		sort.Strings(cyclic)
		return nil, &CycleError{Addresses: cyclic}
	}
	return levels, nil
}

// Dot renders the graph in Graphviz format, edges pointing at dependencies.
func (g *Graph) Dot() string {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "BT")
	nodes := map[string]dot.Node{}
	for _, address := range g.order {
		n := graph.Node(address)
		n.Attr("shape", "box")
		n.Label(address + "\\n[" + g.nodes[address].ResourceType() + "]")
		nodes[address] = n
	}
	for _, edge := range g.Edges() {
		e := graph.Edge(nodes[edge.From], nodes[edge.To], string(edge.Kind))
		if edge.Kind == EdgeDependsOn {
			e.Attr("style", "dashed")
		}
	}
	return graph.String()
}
