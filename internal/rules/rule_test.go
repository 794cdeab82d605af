package rules

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuleFiresOnMatchTransition(t *testing.T) {
	r := NewRule("float-calc", AppID(regexp.MustCompile("^calculator$")))
	var matched []TargetID
	r.OnMatch(func(id TargetID) { matched = append(matched, id) })

	r.evaluate(1, Attrs{AppID: "firefox"})
	require.False(t, r.Matched(1))
	require.Empty(t, matched)

	r.evaluate(1, Attrs{AppID: "calculator"})
	require.True(t, r.Matched(1))
	require.Equal(t, []TargetID{1}, matched)

	// Re-evaluating with the same attrs must not re-fire.
	r.evaluate(1, Attrs{AppID: "calculator"})
	require.Equal(t, []TargetID{1}, matched)
}

func TestRuleFiresOnUnmatchTransition(t *testing.T) {
	r := NewRule("urgent", Urgent())
	var unmatched []TargetID
	r.OnUnmatch(func(id TargetID) { unmatched = append(unmatched, id) })

	r.evaluate(1, Attrs{Urgent: true})
	require.True(t, r.Matched(1))

	r.evaluate(1, Attrs{Urgent: false})
	require.False(t, r.Matched(1))
	require.Equal(t, []TargetID{1}, unmatched)
}

func TestAllRequiresEveryChild(t *testing.T) {
	r := NewRule("floating-fullscreen", All(Floating(), Fullscreen()))

	r.evaluate(1, Attrs{Floating: true, Fullscreen: false})
	require.False(t, r.Matched(1))

	r.evaluate(1, Attrs{Floating: true, Fullscreen: true})
	require.True(t, r.Matched(1))

	r.evaluate(1, Attrs{Floating: false, Fullscreen: true})
	require.False(t, r.Matched(1))
}

func TestAnyRequiresOneChild(t *testing.T) {
	r := NewRule("floating-or-fullscreen", Any(Floating(), Fullscreen()))

	r.evaluate(1, Attrs{Floating: false, Fullscreen: false})
	require.False(t, r.Matched(1))

	r.evaluate(1, Attrs{Floating: true, Fullscreen: false})
	require.True(t, r.Matched(1))

	r.evaluate(1, Attrs{Floating: true, Fullscreen: true})
	require.True(t, r.Matched(1))

	r.evaluate(1, Attrs{Floating: false, Fullscreen: false})
	require.False(t, r.Matched(1))
}

func TestExactlyRequiresPreciseCount(t *testing.T) {
	r := NewRule("exactly-one", Exactly(1, Floating(), Fullscreen(), Urgent()))

	r.evaluate(1, Attrs{})
	require.False(t, r.Matched(1))

	r.evaluate(1, Attrs{Floating: true})
	require.True(t, r.Matched(1))

	r.evaluate(1, Attrs{Floating: true, Fullscreen: true})
	require.False(t, r.Matched(1))

	r.evaluate(1, Attrs{Floating: true, Fullscreen: true, Urgent: true})
	require.False(t, r.Matched(1))
}

func TestNotInvertsChild(t *testing.T) {
	r := NewRule("not-focused", Not(Focused()))

	r.evaluate(1, Attrs{Focused: true})
	require.False(t, r.Matched(1))

	r.evaluate(1, Attrs{Focused: false})
	require.True(t, r.Matched(1))
}

func TestNestedCombinatorsPropagateAcrossLevels(t *testing.T) {
	// (floating AND fullscreen) OR urgent
	r := NewRule("nested", Any(All(Floating(), Fullscreen()), Urgent()))

	r.evaluate(1, Attrs{})
	require.False(t, r.Matched(1))

	r.evaluate(1, Attrs{Floating: true})
	require.False(t, r.Matched(1))

	r.evaluate(1, Attrs{Floating: true, Fullscreen: true})
	require.True(t, r.Matched(1))

	r.evaluate(1, Attrs{Floating: true, Fullscreen: true, Urgent: false})
	require.True(t, r.Matched(1)) // unchanged until fullscreen actually drops

	r.evaluate(1, Attrs{Floating: true, Fullscreen: false, Urgent: false})
	require.False(t, r.Matched(1))

	r.evaluate(1, Attrs{Floating: true, Fullscreen: false, Urgent: true})
	require.True(t, r.Matched(1))
}

func TestRuleTracksMultipleTargetsIndependently(t *testing.T) {
	r := NewRule("urgent", Urgent())

	r.evaluate(1, Attrs{Urgent: true})
	r.evaluate(2, Attrs{Urgent: false})

	require.True(t, r.Matched(1))
	require.False(t, r.Matched(2))
}

func TestForgetDropsTargetState(t *testing.T) {
	r := NewRule("urgent", Urgent())
	r.evaluate(1, Attrs{Urgent: true})
	require.True(t, r.Matched(1))

	r.Forget(1)
	require.False(t, r.Matched(1))
}

func TestEngineEvaluatesAllRulesAndForgetsAcrossThem(t *testing.T) {
	e := NewEngine()

	var floatFired, urgentFired int
	floatRule := NewRule("float", Floating())
	floatRule.OnMatch(func(TargetID) { floatFired++ })
	urgentRule := NewRule("urgent", Urgent())
	urgentRule.OnMatch(func(TargetID) { urgentFired++ })

	e.AddRule(floatRule)
	e.AddRule(urgentRule)

	e.Update(1, Attrs{Floating: true, Urgent: true})
	require.Equal(t, 1, floatFired)
	require.Equal(t, 1, urgentFired)

	e.Forget(1)
	require.False(t, floatRule.Matched(1))
	require.False(t, urgentRule.Matched(1))
}

func TestEngineRemoveRuleStopsEvaluation(t *testing.T) {
	e := NewEngine()
	fired := 0
	r := NewRule("urgent", Urgent())
	r.OnMatch(func(TargetID) { fired++ })
	e.AddRule(r)

	e.RemoveRule("urgent")
	e.Update(1, Attrs{Urgent: true})
	require.Equal(t, 0, fired)
	require.Empty(t, e.Rules())
}
