package harness

import (
	"github.com/roach88/stash/internal/boundary"
)

// evaluateStoreChecks runs the checks that need the live store, just
// before shutdown. With no open window (a deliberately failed init) any
// store-facing check fails with that diagnosis.
func evaluateStoreChecks(api *boundary.API, checks []Check, result *Result) {
	rt := api.Runtime()
	for i, check := range checks {
		if check.Check == CheckNoLeak {
			continue
		}
		if rt == nil {
			result.AddError("checks[%d] %s: no open runtime to check", i, check.Check)
			continue
		}
		st := rt.Store()
		switch check.Check {
		case CheckStoreCount:
			if got := st.Len(); got != *check.Count {
				result.AddError("checks[%d] store_count: %d variables, want %d", i, got, *check.Count)
			}
		case CheckTypeIs:
			kind, err := st.TypeOf(check.Name)
			if err != nil {
				result.AddError("checks[%d] type_is %q: %v", i, check.Name, err)
				continue
			}
			if kind.String() != check.Type {
				result.AddError("checks[%d] type_is %q: type = %s, want %s", i, check.Name, kind, check.Type)
			}
		case CheckRendersAs:
			out, err := st.RenderString(check.Name)
			if err != nil {
				result.AddError("checks[%d] renders_as %q: %v", i, check.Name, err)
				continue
			}
			if out != check.Output {
				result.AddError("checks[%d] renders_as %q: %q, want %q", i, check.Name, out, check.Output)
			}
		}
	}
}

// evaluateNoLeak runs after shutdown against the final ledger balance.
func evaluateNoLeak(liveAfter int64, checks []Check, result *Result) {
	for i, check := range checks {
		if check.Check != CheckNoLeak {
			continue
		}
		if liveAfter != 0 {
			result.AddError("checks[%d] no_leak: %d units still live after shutdown", i, liveAfter)
		}
	}
}
