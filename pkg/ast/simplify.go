package ast

// simplifier rewrites a tree once per distinct node. Script locals reference
// their definition from every use, so a tree can be far smaller than its
// expansion; memoizing by identity keeps simplification linear in the former
// and makes every rewritten local point at the same simplified definition.
type simplifier struct {
	done map[Node]Node
}

func newSimplifier() *simplifier {
	return &simplifier{done: make(map[Node]Node)}
}

func (s *simplifier) simplify(n Node) Node {
	if r, ok := s.done[n]; ok {
		return r
	}
	var r Node
	switch n := n.(type) {
	case *Call:
		args := make([]Node, len(n.args))
		for i, a := range n.args {
			args[i] = s.simplify(a)
		}
		r = n.rebuild(args)
	case *Offset:
		r = n.rebuild(s.simplify(n.node))
	case *Local:
		def := s.simplify(n.def)
		if def.IsConstant() {
			r = def
		} else {
			r = NewLocal(n.name, def)
		}
	case *Script:
		decls := make([]Declaration, len(n.decls))
		for i, d := range n.decls {
			decls[i] = Declaration{Name: d.Name, Value: s.simplify(d.Value)}
		}
		r = NewScript(decls, s.simplify(n.final))
	default:
		r = n.Simplify()
	}
	s.done[n] = r
	return r
}
