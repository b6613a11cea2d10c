package ledger

// defaultQueryLimit caps unbounded entry listings.
const defaultQueryLimit = 100

// Filter narrows an Entries query. Zero values mean "no constraint": empty
// ActionTag matches every tag, nil ActorRef matches every actor, empty
// Start/End leave the time range open on that side. Start and End compare
// against the stored timestamp strings, inclusive on both ends.
type Filter struct {
	ActionTag string
	ActorRef  *int64
	Start     string
	End       string
	Limit     int
	Offset    int
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return defaultQueryLimit
	}
	return f.Limit
}

func (f Filter) matches(e Entry) bool {
	if f.ActionTag != "" && e.ActionTag != f.ActionTag {
		return false
	}
	if f.ActorRef != nil && (e.ActorRef == nil || *e.ActorRef != *f.ActorRef) {
		return false
	}
	return inRange(e.Timestamp, f.Start, f.End)
}

// inRange reports whether ts falls within the inclusive [start, end] bounds.
// The fixed-width timestamp format makes plain string comparison correct.
func inRange(ts, start, end string) bool {
	if start != "" && ts < start {
		return false
	}
	if end != "" && ts > end {
		return false
	}
	return true
}

// Stats summarizes the chain for dashboards and the ops CLI.
type Stats struct {
	TotalEntries   int64            `json:"total_entries"`
	ActionCounts   map[string]int64 `json:"action_counts"`
	FirstEntryTime string           `json:"first_entry_time,omitempty"`
	LastEntryTime  string           `json:"last_entry_time,omitempty"`
	LastDigest     string           `json:"last_hash"`
}
