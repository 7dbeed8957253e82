package registry

import (
	"log/slog"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/infergraph/internal/config"
)

// ApplyDefaults fills in the manifest defaults of every op of g that runs on
// target and does not set the param itself. It returns the number of
// attributes added.
func (r *Registry) ApplyDefaults(g *config.Graph, target string) int {
	added := 0
	for _, op := range g.Ops {
		def, ok := r.DefinitionRegistry[Key{OpType: op.Type, Target: target}]
		if !ok {
			continue
		}
		for _, name := range sortedKeys(def.Params) {
			p := def.Params[name]
			if p.Default == nil {
				continue
			}
			if _, set := op.Attrs[name]; set {
				continue
			}
			if op.Attrs == nil {
				op.Attrs = make(map[string]cty.Value)
			}
			op.Attrs[name] = *p.Default
			added++
			slog.Debug("Applied param default.", "node_id", op.Name, "param", name)
		}
	}
	return added
}
