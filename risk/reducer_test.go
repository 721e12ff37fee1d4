package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreHits_CapsAtOneHundred(t *testing.T) {
	hits := []Hit{
		{ID: "a", Severity: Critical},
		{ID: "b", Severity: Critical},
	}
	score := ScoreHits(hits)
	assert.Equal(t, 100, score.Value)
	assert.Equal(t, Critical, score.Level)
}

func TestScoreHits_LevelIsMaxSeverity(t *testing.T) {
	hits := []Hit{{ID: "a", Severity: Low}, {ID: "b", Severity: Medium}}
	score := ScoreHits(hits)
	assert.Equal(t, 40, score.Value)
	assert.Equal(t, Medium, score.Level)
}

func TestDecide_HighSeverityBlocks(t *testing.T) {
	r := NewReducer()
	d := r.Decide([]Hit{{ID: "vuln.sqli", Severity: High}}, Enforce)
	assert.Equal(t, Block, d.Outcome)
	assert.Equal(t, "vuln.sqli", d.TriggerID)
}

func TestDecide_MediumAlone_Allows(t *testing.T) {
	r := NewReducer()
	d := r.Decide([]Hit{{ID: "schema.request.invalid", Severity: Medium}}, Enforce)
	assert.Equal(t, Allow, d.Outcome)
}

func TestDecide_MonitorAction_NeverBlocksItself(t *testing.T) {
	r := NewReducer()
	d := r.Decide([]Hit{{ID: "rule.suspicious", Severity: Critical, Action: ActionMonitor}}, Enforce)
	assert.Equal(t, Monitor, d.Outcome)
}

func TestDecide_MonitorActionDoesNotMaskAnotherBlockingHit(t *testing.T) {
	r := NewReducer()
	d := r.Decide([]Hit{
		{ID: "rule.soft", Severity: Critical, Action: ActionMonitor},
		{ID: "vuln.ssrf", Severity: High},
	}, Enforce)
	assert.Equal(t, Block, d.Outcome)
	assert.Equal(t, "vuln.ssrf", d.TriggerID)
}

func TestDecide_AllowActionSuppressesHitEntirely(t *testing.T) {
	r := NewReducer()
	d := r.Decide([]Hit{{ID: "rule.known_noisy", Severity: Critical, Action: ActionAllow}}, Enforce)
	assert.Equal(t, Allow, d.Outcome)
	assert.Empty(t, d.Hits)
	assert.Equal(t, 0, d.Score.Value)
}

func TestDecide_ChallengeAction(t *testing.T) {
	r := NewReducer()
	d := r.Decide([]Hit{{ID: "rule.risky_login", Severity: High, Action: ActionChallenge}}, Enforce)
	assert.Equal(t, Challenge, d.Outcome)
}

func TestDecide_MonitorModeRewritesBlockAndChallenge(t *testing.T) {
	r := NewReducer()
	block := r.Decide([]Hit{{ID: "vuln.sqli", Severity: Critical}}, Monitor)
	assert.Equal(t, Monitor, block.Outcome)

	challenge := r.Decide([]Hit{{ID: "rule.x", Severity: High, Action: ActionChallenge}}, Monitor)
	assert.Equal(t, Monitor, challenge.Outcome)
}

func TestDecide_NoHits_Allows(t *testing.T) {
	r := NewReducer()
	d := r.Decide(nil, Enforce)
	assert.Equal(t, Allow, d.Outcome)
	assert.Equal(t, 0, d.Score.Value)
}
