// Package harness runs conformance scenarios against the boundary
// surface. Each scenario gets a fresh runtime, so a run is a complete
// session: init, the scripted calls, shutdown. The trace of that session
// is deterministic and byte-stable, which is what the golden files pin
// down.
package harness

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/roach88/stash/internal/boundary"
	"github.com/roach88/stash/internal/lifecycle"
	"github.com/roach88/stash/internal/value"
)

// Run executes a scenario and returns its result. Execution never stops
// early: a failed expectation is recorded and the remaining steps still
// run, so one result reports everything that is wrong.
//
// Init failures (a limit too small for even the store table) are legal
// scenarios: the init event records the failure and every subsequent
// call records its out-of-window code.
func Run(scenario *Scenario) (*Result, error) {
	opts := []lifecycle.Option{
		lifecycle.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	limit := int64(0)
	if scenario.Limit != nil {
		limit = *scenario.Limit
		opts = append(opts, lifecycle.WithLimit(limit))
	}
	api := boundary.New(opts...)

	result := NewResult(scenario.Name, scenario.Session)
	seq := int64(0)
	record := func(ev TraceEvent) TraceEvent {
		seq++
		ev.Seq = seq
		result.Trace = append(result.Trace, ev)
		return ev
	}

	record(TraceEvent{Op: "init", Capacity: int(limit), Status: int64(api.Init())})

	for i, step := range scenario.Steps {
		ev := record(executeStep(api, step))
		checkExpect(result, i, step, ev)
	}

	evaluateStoreChecks(api, scenario.Checks, result)

	var liveAfter int64
	if rt := api.Runtime(); rt != nil {
		led := rt.Ledger()
		api.Shutdown()
		liveAfter = led.Live()
	}
	record(TraceEvent{Op: "shutdown"})

	evaluateNoLeak(liveAfter, scenario.Checks, result)
	return result, nil
}

func executeStep(api *boundary.API, step Step) TraceEvent {
	ev := TraceEvent{
		Op:      step.Op,
		Name:    step.Name,
		Access:  step.Access,
		Type:    step.Type,
		Literal: step.Literal,
	}
	switch step.Op {
	case StepMake:
		ev.Status = int64(api.Make([]byte(step.Name), []byte(step.Access), []byte(step.Type), []byte(step.Literal)))
	case StepMod:
		ev.Status = int64(api.Mod([]byte(step.Name), []byte(step.Type), []byte(step.Literal)))
	case StepBind:
		// The trace records the tree in its JSON form, the same shape
		// the oplog stores for bind calls.
		if data, err := json.Marshal(normalizeYAML(step.Value)); err == nil {
			ev.Literal = string(data)
		}
		ev.Status = int64(executeBind(api, step))
	case StepRemove:
		ev.Status = int64(api.Remove([]byte(step.Name)))
	case StepGetType:
		ev.Status = int64(api.GetType([]byte(step.Name)))
	case StepGetValue:
		ev.Capacity = step.Capacity
		dst := make([]byte, step.Capacity)
		n := api.GetValueAsString([]byte(step.Name), dst)
		ev.Status = int64(n)
		if n >= 0 {
			ev.Output = string(dst[:n])
		}
	}
	return ev
}

// executeBind builds the step's composite tree against the live ledger
// and binds it. Construction failures surface as the bind rejection
// code, same as over the real boundary.
func executeBind(api *boundary.API, step Step) boundary.Status {
	rt := api.Runtime()
	if rt == nil {
		return boundary.MakeErrRejected
	}
	v, err := value.FromGo(rt.Ledger(), normalizeYAML(step.Value))
	if err != nil {
		return boundary.MakeErrRejected
	}
	return api.Bind([]byte(step.Name), step.Access == "const", v)
}

// normalizeYAML rewrites yaml.v3's map[string]any/[]any trees so every
// nested map has string keys and every number is a float64, the shape
// value.FromGo accepts.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeYAML(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeYAML(elem)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return val
	}
}

func checkExpect(result *Result, index int, step Step, ev TraceEvent) {
	if step.Expect == nil {
		return
	}
	if want := step.Expect.Status; want != nil && ev.Status != *want {
		result.AddError("steps[%d] %s %q: status = %d, want %d", index, step.Op, step.Name, ev.Status, *want)
	}
	if want := step.Expect.Output; want != nil && ev.Output != *want {
		result.AddError("steps[%d] %s %q: output = %q, want %q", index, step.Op, step.Name, ev.Output, *want)
	}
}
