package element

import (
	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/markup"
	"github.com/conneroisu/htmt/internal/substitute"
	"github.com/conneroisu/htmt/internal/types"
)

// resolver walks the reference graph of a set of raw definitions. The
// active path is kept explicitly so that a cycle can be reported with the
// chain of names that closes it.
type resolver struct {
	raw   map[string]string
	order []string
	subst *substitute.Substitutor

	done map[string]*Definition
	deps map[string][]string

	path   []string
	active map[string]bool
}

func newResolver(raw map[string]string, order []string, subst *substitute.Substitutor) *resolver {
	return &resolver{
		raw:    raw,
		order:  order,
		subst:  subst,
		done:   make(map[string]*Definition, len(order)),
		deps:   make(map[string][]string, len(order)),
		active: make(map[string]bool),
	}
}

// resolveAll resolves every definition in registration order.
func (r *resolver) resolveAll() error {
	for _, name := range r.order {
		if _, err := r.resolve(name); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) push(name string) {
	r.path = append(r.path, name)
	r.active[name] = true
}

func (r *resolver) pop() {
	name := r.path[len(r.path)-1]
	r.path = r.path[:len(r.path)-1]
	delete(r.active, name)
}

// cycle builds the error for a usage of target while target is active.
func (r *resolver) cycle(target, source string, n *markup.Node) error {
	path := make([]string, 0, len(r.path)+1)
	for i, name := range r.path {
		if name == target {
			path = append(path, r.path[i:]...)
			break
		}
	}
	path = append(path, target)
	return &errors.CycleError{
		Element: target,
		Path:    path,
		Source:  source,
		Line:    n.Line,
		Column:  n.Column,
	}
}

// resolve returns the fully expanded definition of name, resolving the
// definitions it uses first.
func (r *resolver) resolve(name string) (*Definition, error) {
	if def, ok := r.done[name]; ok {
		return def, nil
	}

	r.push(name)
	defer r.pop()

	doc, err := markup.Parse(r.raw[name])
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	uses := make([]string, 0)
	known := func(n string) bool {
		_, ok := r.raw[n]
		return ok && n != name
	}

	_, err = substitute.ReplaceUsages(doc, known, func(n *markup.Node) (substitute.Fragment, error) {
		target := types.NormalizeName(n.Data)
		if r.active[target] {
			return substitute.Fragment{}, r.cycle(target, name, n)
		}

		def, err := r.resolve(target)
		if err != nil {
			return substitute.Fragment{}, err
		}
		if !seen[target] {
			seen[target] = true
			uses = append(uses, target)
		}
		return r.subst.Substitute(substitute.Usage{Source: name, Node: n}, def)
	})
	if err != nil {
		return nil, err
	}

	def := &Definition{Name: name, Markup: doc.String()}
	r.done[name] = def
	r.deps[name] = uses
	return def, nil
}
