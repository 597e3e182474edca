package api

import (
	"reflect"
	"sync"
)

// Call is one recorded registration.
type Call struct {
	Method   string
	Type     reflect.Type
	Name     string
	Schedule any
	System   any
	Config   SystemConfig
}

// Recorder is an App that remembers every call in order. Hosts use it in
// tests to assert what a generated routine registers.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

var _ App = (*Recorder)(nil)

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Types lists the types registered through method, in call order.
func (r *Recorder) Types(method string) []reflect.Type {
	var out []reflect.Type
	for _, c := range r.Calls() {
		if c.Method == method {
			out = append(out, c.Type)
		}
	}
	return out
}

func (r *Recorder) RegisterType(t reflect.Type) {
	r.record(Call{Method: "RegisterType", Type: t})
}

func (r *Recorder) RegisterStateType(t reflect.Type) {
	r.record(Call{Method: "RegisterStateType", Type: t})
}

func (r *Recorder) AddEvent(t reflect.Type) {
	r.record(Call{Method: "AddEvent", Type: t})
}

func (r *Recorder) InitResource(t reflect.Type) {
	r.record(Call{Method: "InitResource", Type: t})
}

func (r *Recorder) InitState(t reflect.Type) {
	r.record(Call{Method: "InitState", Type: t})
}

func (r *Recorder) RegisterRequiredName(t reflect.Type, name func() string) {
	r.record(Call{Method: "RegisterRequiredName", Type: t, Name: name()})
}

func (r *Recorder) AddSystem(schedule, system any, opts ...SystemOption) {
	r.record(Call{Method: "AddSystem", Schedule: schedule, System: system, Config: Configure(opts...)})
}
