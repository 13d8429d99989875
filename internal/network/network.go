package network

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned when a node lookup by name fails.
var ErrNodeNotFound = errors.New("node not found")

// Network is the directed graph of nodes. Node and edge insertion order is
// preserved so traversal and routing are deterministic.
type Network struct {
	nodes map[string]Node
	order []string
	edges map[string][]string // from -> to, insertion order
	back  map[string][]string // to -> from, insertion order
}

// New creates an empty network.
func New() *Network {
	return &Network{
		nodes: make(map[string]Node),
		edges: make(map[string][]string),
		back:  make(map[string][]string),
	}
}

// AddNode registers a node. Names must be unique and non-empty.
func (n *Network) AddNode(node Node) error {
	name := node.Name()
	if name == "" {
		return fmt.Errorf("node name must not be empty")
	}
	if _, exists := n.nodes[name]; exists {
		return fmt.Errorf("node %q: already defined", name)
	}
	n.nodes[name] = node
	n.order = append(n.order, name)
	return nil
}

// AddEdge registers a directed edge between two existing nodes.
func (n *Network) AddEdge(from, to string) error {
	if _, err := n.NodeByName(from); err != nil {
		return fmt.Errorf("edge %s -> %s: %w", from, to, err)
	}
	if _, err := n.NodeByName(to); err != nil {
		return fmt.Errorf("edge %s -> %s: %w", from, to, err)
	}
	if from == to {
		return fmt.Errorf("edge %s -> %s: self loops are not allowed", from, to)
	}
	n.edges[from] = append(n.edges[from], to)
	n.back[to] = append(n.back[to], from)
	return nil
}

// NodeByName returns the node with the given name.
func (n *Network) NodeByName(name string) (Node, error) {
	node, ok := n.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}
	return node, nil
}

// StorageByName returns the storage node with the given name. A node of any
// other kind fails the lookup.
func (n *Network) StorageByName(name string) (*Storage, error) {
	node, err := n.NodeByName(name)
	if err != nil {
		return nil, err
	}
	storage, ok := node.(*Storage)
	if !ok {
		return nil, fmt.Errorf("node %q: not a storage node", name)
	}
	return storage, nil
}

// Nodes returns all nodes in insertion order.
func (n *Network) Nodes() []Node {
	nodes := make([]Node, 0, len(n.order))
	for _, name := range n.order {
		nodes = append(nodes, n.nodes[name])
	}
	return nodes
}

// Storages returns all storage nodes in insertion order.
func (n *Network) Storages() []*Storage {
	var storages []*Storage
	for _, name := range n.order {
		if s, ok := n.nodes[name].(*Storage); ok {
			storages = append(storages, s)
		}
	}
	return storages
}

// Downstream returns the names of nodes fed by the given node.
func (n *Network) Downstream(name string) []string {
	return n.edges[name]
}

// Upstream returns the names of nodes feeding the given node.
func (n *Network) Upstream(name string) []string {
	return n.back[name]
}

// Validate checks that the network forms a DAG.
func (n *Network) Validate() error {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	for _, name := range n.order {
		if !visited[name] {
			if err := n.dfs(name, visited, recStack); err != nil {
				return fmt.Errorf("network contains cycles: %w", err)
			}
		}
	}
	return nil
}

// dfs performs depth-first search to detect cycles.
func (n *Network) dfs(name string, visited, recStack map[string]bool) error {
	visited[name] = true
	recStack[name] = true

	for _, to := range n.edges[name] {
		if !visited[to] {
			if err := n.dfs(to, visited, recStack); err != nil {
				return err
			}
		} else if recStack[to] {
			return fmt.Errorf("cycle detected: %s -> %s", name, to)
		}
	}

	recStack[name] = false
	return nil
}

// TopologicalOrder returns node names in an order where every node appears
// after all of its upstream nodes. Ties break by insertion order so routing
// is deterministic.
func (n *Network) TopologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(n.nodes))
	for _, name := range n.order {
		indegree[name] = len(n.back[name])
	}

	var queue []string
	for _, name := range n.order {
		if indegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(n.nodes))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)

		for _, to := range n.edges[name] {
			indegree[to]--
			if indegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}

	if len(order) != len(n.nodes) {
		return nil, fmt.Errorf("network contains cycles: topological order impossible")
	}
	return order, nil
}
