// Package api is the registration surface generated autoplugin routines
// call into. A host framework implements App; generated code never sees
// anything else.
package api

import "reflect"

// App receives registrations from a generated routine. Calls arrive in
// category order: types, state types, events, resources, states, names,
// systems.
type App interface {
	RegisterType(t reflect.Type)
	// RegisterStateType registers a state type and whatever companion
	// types the host keeps for pending transitions.
	RegisterStateType(t reflect.Type)
	AddEvent(t reflect.Type)
	InitResource(t reflect.Type)
	InitState(t reflect.Type)
	// RegisterRequiredName attaches a display name to every value of t.
	RegisterRequiredName(t reflect.Type, name func() string)
	AddSystem(schedule, system any, opts ...SystemOption)
}

// SystemConfig collects the scheduling constraints of one system.
type SystemConfig struct {
	After  []any
	Before []any
	RunIf  any
	InSet  any
}

type SystemOption func(*SystemConfig)

// After orders the system after each of systems.
func After(systems ...any) SystemOption {
	return func(c *SystemConfig) { c.After = append(c.After, systems...) }
}

// Before orders the system before each of systems.
func Before(systems ...any) SystemOption {
	return func(c *SystemConfig) { c.Before = append(c.Before, systems...) }
}

// RunIf gates the system on a condition.
func RunIf(cond any) SystemOption {
	return func(c *SystemConfig) { c.RunIf = cond }
}

// InSet places the system in a system set.
func InSet(set any) SystemOption {
	return func(c *SystemConfig) { c.InSet = set }
}

// Configure applies opts to a zero SystemConfig.
func Configure(opts ...SystemOption) SystemConfig {
	var c SystemConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
