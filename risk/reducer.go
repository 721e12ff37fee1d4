package risk

// Mode controls how the reducer's outcome is rewritten before it reaches
// the caller. In Monitor mode every BLOCK or CHALLENGE outcome is rewritten
// to MONITOR (the request passes through with a 200 but the decision is
// still logged at full fidelity), letting an operator run a new rule set
// against live traffic before enforcing it.
type Mode string

const (
	Enforce Mode = "enforce"
	Monitor Mode = "monitor"
)

// Reducer aggregates Hits into a Score and resolves the final Decision.
type Reducer struct {
	// ChallengeStatusCode is surfaced by callers that need to pick an
	// HTTP status for ActionChallenge outcomes; the reducer itself only
	// carries the Outcome.
	ChallengeStatusCode int
}

// NewReducer returns a Reducer with default settings.
func NewReducer() *Reducer {
	return &Reducer{ChallengeStatusCode: 401}
}

// ScoreHits computes the aggregate Score of hits: value is the sum of each
// hit's severity weight, capped at 100; level is the single highest
// severity present. Hits with ActionAllow must already be excluded by the
// caller (Decide does this internally).
func ScoreHits(hits []Hit) Score {
	total := 0
	best := Low
	seen := false
	for _, h := range hits {
		total += weight[h.Severity]
		if !seen || h.Severity.rank() > best.rank() {
			best = h.Severity
			seen = true
		}
	}
	if total > 100 {
		total = 100
	}
	if !seen {
		return Score{Value: 0, Level: ""}
	}
	return Score{Value: total, Level: best}
}

// Decide resolves a Decision from the raw hits produced by one request's
// evaluators, in mode.
func (r *Reducer) Decide(hits []Hit, mode Mode) Decision {
	surviving := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.Action == ActionAllow {
			continue
		}
		surviving = append(surviving, h)
	}

	score := ScoreHits(surviving)

	var trigger *Hit
	for i := range surviving {
		h := &surviving[i]
		if h.Action == ActionMonitor {
			continue
		}
		if h.Severity != High && h.Severity != Critical {
			continue
		}
		if trigger == nil || h.Severity.rank() > trigger.Severity.rank() {
			trigger = h
		}
	}

	outcome := Allow
	triggerID := ""
	reason := ""

	switch {
	case trigger != nil && trigger.Action == ActionChallenge:
		outcome = Challenge
		triggerID = trigger.ID
		reason = trigger.Message
	case trigger != nil:
		outcome = Block
		triggerID = trigger.ID
		reason = trigger.Message
	default:
		for _, h := range surviving {
			if h.Action == ActionMonitor {
				outcome = Monitor
				triggerID = h.ID
				reason = h.Message
				break
			}
		}
	}

	if mode == Monitor && (outcome == Block || outcome == Challenge) {
		outcome = Monitor
	}

	return Decision{
		Outcome:   outcome,
		Score:     score,
		Hits:      surviving,
		TriggerID: triggerID,
		Reason:    reason,
	}
}
