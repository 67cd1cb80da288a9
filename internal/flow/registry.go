package flow

import (
	"fmt"
	"sort"

	"github.com/xkilldash9x/flowrunner/internal/config"
)

// Builder turns configuration into a Plan.
type Builder func(cfg config.Interface) (Plan, error)

var builders = map[string]Builder{
	"login":    LoginPlan,
	"register": RegisterPlan,
}

// Names lists the registered flows in a stable order.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build returns the plan for the named flow.
func Build(name string, cfg config.Interface) (Plan, error) {
	b, ok := builders[name]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownFlow, name, Names())
	}
	return b(cfg)
}
