package audit

// Decision values recorded in each entry.
const (
	DecisionPass = "pass"
	DecisionDeny = "deny"
)

// AuditDelta is the three-axis drift measurement recorded with a decision.
type AuditDelta struct {
	Structural    float64 `json:"structural"`
	Environmental float64 `json:"environmental"`
	Semantic      float64 `json:"semantic"`
}

// AuditEntry is one gate decision in the hash-chained JSONL audit log.
// All fields are structs (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type AuditEntry struct {
	Timestamp   string     `json:"ts"`
	OperationID string     `json:"operation_id"`
	Symbol      string     `json:"symbol"`
	Path        string     `json:"path"`
	FromTier    int        `json:"from_tier"`
	ToTier      int        `json:"to_tier"`
	Delta       AuditDelta `json:"delta"`
	Unmeasured  bool       `json:"unmeasured,omitempty"`
	Weight      float64    `json:"weight"`
	Threshold   float64    `json:"threshold"`
	Combiner    string     `json:"combiner"`
	Decision    string     `json:"decision"`
	Reason      string     `json:"reason,omitempty"`
	ConfigHash  string     `json:"config_hash"`
	PrevHash    string     `json:"prev_hash"`
}
