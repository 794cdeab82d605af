package rules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRulesBuildsSimpleMatchAndBindsActions(t *testing.T) {
	doc := `
[[rule]]
name = "float-calculator"
on_match = ["float"]
on_unmatch = ["unfloat"]

[rule.match]
app_id = "^calculator$"
`
	var floated, unfloated []TargetID
	actions := map[string]Action{
		"float":   func(id TargetID) { floated = append(floated, id) },
		"unfloat": func(id TargetID) { unfloated = append(unfloated, id) },
	}

	rules, err := ParseRules([]byte(doc), actions)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Equal(t, "float-calculator", rules[0].Name())

	rules[0].evaluate(1, Attrs{AppID: "calculator"})
	require.Equal(t, []TargetID{1}, floated)

	rules[0].evaluate(1, Attrs{AppID: "firefox"})
	require.Equal(t, []TargetID{1}, unfloated)
}

func TestParseRulesBuildsNestedCombinators(t *testing.T) {
	doc := `
[[rule]]
name = "fullscreen-video-or-urgent"
on_match = ["notify"]

[rule.match]
[[rule.match.any]]
content_type = "video"
fullscreen = true

[[rule.match.any]]
urgent = true
`
	var notified []TargetID
	actions := map[string]Action{"notify": func(id TargetID) { notified = append(notified, id) }}

	rules, err := ParseRules([]byte(doc), actions)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	rules[0].evaluate(1, Attrs{ContentType: "audio", Fullscreen: false, Urgent: false})
	require.Empty(t, notified)

	rules[0].evaluate(2, Attrs{ContentType: "video", Fullscreen: true})
	require.Equal(t, []TargetID{2}, notified)

	rules[0].evaluate(3, Attrs{Urgent: true})
	require.Equal(t, []TargetID{2, 3}, notified)
}

func TestParseRulesUnknownActionFails(t *testing.T) {
	doc := `
[[rule]]
name = "broken"
on_match = ["nope"]

[rule.match]
floating = true
`
	_, err := ParseRules([]byte(doc), map[string]Action{})
	require.Error(t, err)
}

func TestParseRulesEmptyMatchFails(t *testing.T) {
	doc := `
[[rule]]
name = "broken"

[rule.match]
`
	_, err := ParseRules([]byte(doc), map[string]Action{})
	require.Error(t, err)
}

func TestParseRulesInvalidRegexFails(t *testing.T) {
	doc := `
[[rule]]
name = "broken"

[rule.match]
app_id = "("
`
	_, err := ParseRules([]byte(doc), map[string]Action{})
	require.Error(t, err)
}
