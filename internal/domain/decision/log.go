package decision

// Log is the ordered, append-only list of decisions of one run. It is
// run-scoped and never shared between concurrent runs.
type Log struct {
	entries []Decision
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append records a decision at the end of the log.
func (l *Log) Append(d Decision) {
	l.entries = append(l.entries, d)
}

// Clone returns an independent log holding the same decisions.
func (l *Log) Clone() *Log {
	return &Log{entries: l.All()}
}

// Len returns the number of recorded decisions.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// All returns a copy of the recorded decisions in order.
func (l *Log) All() []Decision {
	if l == nil {
		return nil
	}
	out := make([]Decision, len(l.entries))
	copy(out, l.entries)
	return out
}

// ByAgent returns the decisions made by the given stage, oldest first.
func (l *Log) ByAgent(agentID string) []Decision {
	if l == nil {
		return nil
	}
	var out []Decision
	for _, d := range l.entries {
		if d.AgentID == agentID {
			out = append(out, d)
		}
	}
	return out
}

// Latest returns the most recent decision made by the given stage.
func (l *Log) Latest(agentID string) (Decision, bool) {
	if l == nil {
		return Decision{}, false
	}
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].AgentID == agentID {
			return l.entries[i], true
		}
	}
	return Decision{}, false
}

// Since returns a copy of the decisions recorded at or after index from.
func (l *Log) Since(from int) []Decision {
	if l == nil || from >= len(l.entries) {
		return nil
	}
	if from < 0 {
		from = 0
	}
	out := make([]Decision, len(l.entries)-from)
	copy(out, l.entries[from:])
	return out
}

// Has reports whether any decision carries the given outcome.
func (l *Log) Has(o Outcome) bool {
	if l == nil {
		return false
	}
	for _, d := range l.entries {
		if d.Outcome == o {
			return true
		}
	}
	return false
}
