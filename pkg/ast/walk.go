package ast

import "sort"

// Walk visits n and its descendants depth-first, parents before children.
// Children of a node are skipped when fn returns false for it. The definition
// of a script local is visited once, however often the local is used.
func Walk(n Node, fn func(Node) bool) {
	walk(n, fn, make(map[Node]struct{}))
}

func walk(n Node, fn func(Node) bool, defs map[Node]struct{}) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Local:
		if _, ok := defs[n.def]; ok {
			return
		}
		defs[n.def] = struct{}{}
	case *Script:
		for _, d := range n.decls {
			defs[d.Value] = struct{}{}
		}
	}
	for _, c := range n.Children() {
		walk(c, fn, defs)
	}
}

// Variables returns the sorted names of the host variables referenced by n.
func Variables(n Node) []string {
	seen := make(map[string]struct{})
	Walk(n, func(n Node) bool {
		if r, ok := n.(*VarRef); ok {
			seen[r.v.Name()] = struct{}{}
		}
		return true
	})
	return sortedKeys(seen)
}

// Functions returns the sorted names of the host functions called by n,
// operators excluded.
func Functions(n Node) []string {
	seen := make(map[string]struct{})
	Walk(n, func(n Node) bool {
		if c, ok := n.(*Call); ok && c.kind == callFunction {
			seen[c.fn.Name()] = struct{}{}
		}
		return true
	})
	return sortedKeys(seen)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
