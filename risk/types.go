package risk

// Severity is the severity of a single Hit.
type Severity string

const (
	Low      Severity = "low"
	Medium   Severity = "medium"
	High     Severity = "high"
	Critical Severity = "critical"
)

// weight is the score contribution of a single hit at a given severity.
var weight = map[Severity]int{
	Low:      10,
	Medium:   30,
	High:     60,
	Critical: 100,
}

func (s Severity) rank() int {
	switch s {
	case Critical:
		return 3
	case High:
		return 2
	case Medium:
		return 1
	default:
		return 0
	}
}

// Action is the disposition a policy rule assigns to the condition it
// guards. It has no meaning for scanner or schema hits, which are never
// produced by a policy rule and are never gated.
type Action string

const (
	// ActionNone means the hit carries no rule-level override; the
	// reducer gates it purely by severity.
	ActionNone Action = ""
	// ActionBlock is the explicit, default disposition: a high/critical
	// hit with this action (or ActionNone) can trigger BLOCK.
	ActionBlock Action = "block"
	// ActionMonitor caps this hit's contribution to at most MONITOR: it
	// can never by itself cause a BLOCK, even at critical severity.
	ActionMonitor Action = "monitor"
	// ActionAllow suppresses the hit entirely; it is dropped before
	// scoring and does not appear in the decision's Hits.
	ActionAllow Action = "allow"
	// ActionChallenge behaves like ActionBlock but the driver responds
	// with a challenge status instead of a flat block.
	ActionChallenge Action = "challenge"
)

// Hit is a single finding from any evaluator in the pipeline.
type Hit struct {
	// ID identifies the detector or rule that produced the hit, e.g.
	// "vuln.sqli", "schema.request.invalid", or a policy rule's ID.
	ID       string
	Severity Severity
	Message  string
	// Path is a JSON-pointer-ish location within the request the hit
	// concerns (body path, header name, query key). Empty when the hit
	// is not localized to one field.
	Path string
	// Value is a short, already-truncated snippet of the offending
	// value, safe to surface in logs.
	Value string
	// Action is the governing policy rule's action, or ActionNone for
	// hits not produced by a policy rule (scanner and schema hits).
	Action Action
}

// Outcome is the final disposition of a request.
type Outcome string

const (
	Allow     Outcome = "allow"
	Block     Outcome = "block"
	Monitor   Outcome = "monitor"
	Challenge Outcome = "challenge"
)

// Score is the aggregated risk of a set of hits.
type Score struct {
	Value int
	Level Severity
}

// Decision is the pipeline's final verdict for one request.
type Decision struct {
	Outcome Outcome
	Score   Score
	// Hits is every surviving hit (ActionAllow hits are excluded),
	// ordered scanner, then schema, then policy — the order they were
	// collected in.
	Hits []Hit
	// TriggerID is the ID of the hit that determined the outcome, empty
	// for Allow.
	TriggerID string
	Reason    string
}
