package schema

import "fmt"

// Validate checks the document structure and reports every failure it finds
// with a positional path. Graph-level invariants (reachability, cycles) are
// the domain's job; this layer covers what an author can fix in the file.
func (d *Document) Validate() error {
	var errs []error

	if d.Playbook == "" {
		errs = append(errs, &SchemaError{Path: "playbook", Reason: "required"})
	}
	if d.Root == "" {
		errs = append(errs, &SchemaError{Path: "root", Reason: "required"})
	}
	if len(d.Nodes) == 0 {
		errs = append(errs, &SchemaError{Path: "nodes", Reason: "at least one node is required"})
	}

	ids := make(map[string]bool, len(d.Nodes))
	for i, node := range d.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if node.ID == "" {
			errs = append(errs, &SchemaError{Path: path + ".id", Reason: "required"})
			continue
		}
		if ids[node.ID] {
			errs = append(errs, &SchemaError{
				Path:   path + ".id",
				Reason: fmt.Sprintf("duplicate node id %q", node.ID),
			})
		}
		ids[node.ID] = true

		labels := make(map[string]bool, len(node.Options))
		for j, opt := range node.Options {
			optPath := fmt.Sprintf("%s.options[%d]", path, j)
			if opt.Label == "" {
				errs = append(errs, &SchemaError{Path: optPath + ".label", Reason: "required"})
				continue
			}
			if labels[opt.Label] {
				errs = append(errs, &SchemaError{
					Path:   optPath + ".label",
					Reason: fmt.Sprintf("duplicate option label %q on node %q", opt.Label, node.ID),
				})
			}
			labels[opt.Label] = true
		}
	}

	// Referential checks only make sense once ids are known.
	if len(ids) > 0 {
		if d.Root != "" && !ids[d.Root] {
			errs = append(errs, &SchemaError{
				Path:   "root",
				Reason: fmt.Sprintf("root %q is not a declared node", d.Root),
			})
		}
		for i, node := range d.Nodes {
			for j, opt := range node.Options {
				if opt.Next == "" {
					continue
				}
				if !ids[opt.Next] {
					errs = append(errs, &SchemaError{
						Path:   fmt.Sprintf("nodes[%d].options[%d].next", i, j),
						Reason: fmt.Sprintf("references undeclared node %q", opt.Next),
					})
				}
			}
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
