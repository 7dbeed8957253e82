package app

import (
	"github.com/specialistvlad/infergraph/internal/registry"
	"github.com/specialistvlad/infergraph/modules/cpu"
	"github.com/specialistvlad/infergraph/modules/fused"
)

// coreModules is the definitive list of all kernel modules that are
// compiled into the infergraph binary.
var coreModules = []registry.Module{
	&cpu.Module{},
	&fused.Module{},
}
