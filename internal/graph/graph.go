// Package graph provides a road-level directed graph and shortest-route
// queries over it. Nodes are road segments; an edge U→V means a vehicle
// reaching the end of U may continue onto V, either directly or across an
// intersection.
package graph

import (
	"fmt"

	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/network"
)

// NodeID, EdgeID, PathID are string aliases used as identifiers.
type (
	NodeID = string
	EdgeID = string
	PathID = string
)

// Node is a road in the graph.
type Node struct {
	ID     NodeID  `json:"node_id" yaml:"node_id"`
	Length float64 `json:"length" yaml:"length"` // cm
}

// Edge is a directed continuation from the end of road U onto road V. Length
// is the distance from the start of U to the start of V: all of U plus the
// straight-line gap to V. Via names the intersection crossed, if any.
type Edge struct {
	ID     EdgeID  `json:"edge_id" yaml:"edge_id"`
	U      NodeID  `json:"u" yaml:"u"`
	V      NodeID  `json:"v" yaml:"v"`
	Length float64 `json:"length" yaml:"length"` // cm
	Via    string  `json:"via,omitempty" yaml:"via,omitempty"`
}

// GraphData is the serialisable representation of a road graph.
type GraphData struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// PathInfo holds the result of a shortest-path computation.
type PathInfo struct {
	ID     PathID   `json:"id"`
	Route  []NodeID `json:"route"`  // ordered road IDs from start to end
	Length float64  `json:"length"` // start of the first road to the start of the last, cm
}

// Graph is a directed weighted graph with cached shortest-path computation.
type Graph struct {
	nodes       []Node
	edges       []Edge
	nodeMap     map[NodeID]Node
	edgeMap     map[EdgeID]Edge
	edgeByNodes map[NodeID]map[NodeID]Edge // u → v → edge
	// Floyd-Warshall tables; nil until first needed.
	dist     map[NodeID]map[NodeID]float64
	nextNode map[NodeID]map[NodeID]NodeID
	// Path cache; cleared whenever the graph topology changes.
	pathCache map[PathID]PathInfo
}

func newGraph() *Graph {
	return &Graph{
		nodeMap:     make(map[NodeID]Node),
		edgeMap:     make(map[EdgeID]Edge),
		edgeByNodes: make(map[NodeID]map[NodeID]Edge),
		pathCache:   make(map[PathID]PathInfo),
	}
}

// NewGraph builds a Graph from GraphData, returning an error if any node or edge
// references are invalid.
func NewGraph(data GraphData) (*Graph, error) {
	g := newGraph()
	for _, n := range data.Nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range data.Edges {
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// FromNetwork derives the graph a vehicle with the given intersection search
// radius would drive on.
func FromNetwork(n *network.Network, radius float64) (*Graph, error) {
	var data GraphData
	seen := make(map[EdgeID]bool)
	roads := n.Roads()
	for _, seg := range roads {
		data.Nodes = append(data.Nodes, Node{ID: seg.ID, Length: seg.Length()})
		via := ""
		if in := n.ExitJunction(seg, radius); in != nil {
			via = in.Name
		}
		for _, next := range n.Successors(seg, radius) {
			id := edgeKey(seg.ID, next.ID)
			if seen[id] {
				continue
			}
			seen[id] = true
			data.Edges = append(data.Edges, Edge{
				ID:     id,
				U:      seg.ID,
				V:      next.ID,
				Length: seg.Length() + geom.Distance(seg.EndPoint(), next.StartPoint()),
				Via:    via,
			})
		}
	}
	return NewGraph(data)
}

// AddNode adds a node to the graph. Returns an error if the node ID already exists.
func (g *Graph) AddNode(n Node) error {
	if _, exists := g.nodeMap[n.ID]; exists {
		return fmt.Errorf("node %q already exists", n.ID)
	}
	g.nodes = append(g.nodes, n)
	g.nodeMap[n.ID] = n
	g.dist = nil // invalidate cached paths
	return nil
}

// AddEdge adds a directed edge to the graph. Returns an error if the edge ID already
// exists or either endpoint node is missing.
func (g *Graph) AddEdge(e Edge) error {
	if _, exists := g.edgeMap[e.ID]; exists {
		return fmt.Errorf("edge %q already exists", e.ID)
	}
	if _, ok := g.nodeMap[e.U]; !ok {
		return fmt.Errorf("edge %q: source node %q not found", e.ID, e.U)
	}
	if _, ok := g.nodeMap[e.V]; !ok {
		return fmt.Errorf("edge %q: target node %q not found", e.ID, e.V)
	}
	g.edges = append(g.edges, e)
	g.edgeMap[e.ID] = e
	if g.edgeByNodes[e.U] == nil {
		g.edgeByNodes[e.U] = make(map[NodeID]Edge)
	}
	g.edgeByNodes[e.U][e.V] = e
	g.dist = nil // invalidate cached paths
	return nil
}

// Data returns the serialisable form of the graph.
func (g *Graph) Data() GraphData {
	return GraphData{
		Nodes: append([]Node(nil), g.nodes...),
		Edges: append([]Edge(nil), g.edges...),
	}
}

// edgeKey returns the canonical ID of the edge from u to v.
func edgeKey(u, v NodeID) EdgeID { return u + "->" + v }

// pathKey returns a canonical string key for a start→end pair.
func pathKey(start, end NodeID) PathID { return start + "=>" + end }

// GetNode looks up a node by its ID.
func (g *Graph) GetNode(id NodeID) (Node, error) {
	n, ok := g.nodeMap[id]
	if !ok {
		return Node{}, fmt.Errorf("node %q not found", id)
	}
	return n, nil
}

// GetEdge returns the directed edge from u to v.
func (g *Graph) GetEdge(u, v NodeID) (Edge, error) {
	if m, ok := g.edgeByNodes[u]; ok {
		if e, ok := m[v]; ok {
			return e, nil
		}
	}
	return Edge{}, fmt.Errorf("no edge from %q to %q", u, v)
}

// RouteEdges returns the edges along path, in order.
func (g *Graph) RouteEdges(path PathInfo) ([]Edge, error) {
	if len(path.Route) < 2 {
		return nil, nil
	}
	edges := make([]Edge, 0, len(path.Route)-1)
	for i := 0; i+1 < len(path.Route); i++ {
		e, err := g.GetEdge(path.Route[i], path.Route[i+1])
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, nil
}
