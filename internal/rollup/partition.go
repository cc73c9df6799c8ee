package rollup

import "sort"

// Node is one top-level hierarchy node (e.g. one zone) with everything a
// report needs to materialize it as a self-contained unit.
type Node struct {
	Key          []string      // values of the partition keys
	Observations []Observation // the node's observations, input order
	Summary      Row           // totals over the node
	Breakdown    Table         // grouped by the nested keys
	Brands       Table         // grouped by the nested keys plus Brand
}

// Partition splits obs by the top keys and aggregates each part by nested.
// Nodes are ordered ascending by key; a node exists only if at least one
// observation maps to it, so empty input yields no nodes.
func Partition(obs []Observation, top, nested []Key) []Node {
	idx := make(map[string]int)
	var nodes []Node
	for i := range obs {
		o := &obs[i]
		gk := groupKey(o, top)
		j, ok := idx[gk]
		if !ok {
			kv := make([]string, len(top))
			for n, k := range top {
				kv[n] = k.Value(o)
			}
			j = len(nodes)
			idx[gk] = j
			nodes = append(nodes, Node{Key: kv})
		}
		nodes[j].Observations = append(nodes[j].Observations, *o)
	}

	brandKeys := WithBrand(nested)
	for i := range nodes {
		n := &nodes[i]
		n.Summary = Totals(n.Observations)
		n.Summary.Key = n.Key
		n.Breakdown = GroupBy(n.Observations, nested)
		n.Brands = GroupBy(n.Observations, brandKeys)
	}
	sort.Slice(nodes, func(i, j int) bool { return lessKey(nodes[i].Key, nodes[j].Key) })
	return nodes
}

func WithBrand(keys []Key) []Key {
	for _, k := range keys {
		if k == Brand {
			return keys
		}
	}
	return append(append(make([]Key, 0, len(keys)+1), keys...), Brand)
}
