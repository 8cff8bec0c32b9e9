package domain

// RawLogEntry is a single normalized log line. Timestamps are retained as
// the ISO-8601 strings carried by the input so heterogeneous sources stay
// comparable by plain string ordering.
type RawLogEntry struct {
	Timestamp string `json:"timestamp,omitempty"`
	Level     string `json:"level,omitempty"`
	Message   string `json:"message"`
	Raw       string `json:"raw,omitempty"`
}

// GroupedLogEntry is a deduplicated run of identical messages, derived on
// demand from raw entries.
type GroupedLogEntry struct {
	Level     string `json:"level,omitempty"`
	Message   string `json:"message"`
	Count     int    `json:"count"`
	FirstSeen string `json:"firstSeen,omitempty"`
	LastSeen  string `json:"lastSeen,omitempty"`
}

// GroupLogEntries collapses consecutive identical messages into grouped
// entries, preserving first appearance order.
func GroupLogEntries(entries []RawLogEntry) []GroupedLogEntry {
	var groups []GroupedLogEntry
	index := make(map[string]int)
	for _, e := range entries {
		key := e.Level + "\x00" + e.Message
		if i, ok := index[key]; ok {
			groups[i].Count++
			groups[i].LastSeen = e.Timestamp
			continue
		}
		index[key] = len(groups)
		groups = append(groups, GroupedLogEntry{
			Level:     e.Level,
			Message:   e.Message,
			Count:     1,
			FirstSeen: e.Timestamp,
			LastSeen:  e.Timestamp,
		})
	}
	return groups
}

// ErrorEntry aggregates error-level records. Identity is (Error, Message);
// repeats increment Count and refresh LastSeen instead of retaining every
// occurrence.
type ErrorEntry struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error"`
	Count     int    `json:"count"`
	FirstSeen string `json:"firstSeen,omitempty"`
	LastSeen  string `json:"lastSeen,omitempty"`
}

// PanicEntry aggregates controller panics. Identity is the panic message;
// repeats increment Count and keep the longer stacktrace.
type PanicEntry struct {
	Message     string `json:"message"`
	Controller  string `json:"controller,omitempty"`
	ReconcileID string `json:"reconcileId,omitempty"`
	Stacktrace  string `json:"stacktrace,omitempty"`
	// RecoveryTrace is the error text of a matching "recovered" reconciler
	// error, attached by fuzzy message containment.
	RecoveryTrace string `json:"recoveryTrace,omitempty"`
	Count         int    `json:"count"`
	Timestamp     string `json:"timestamp,omitempty"`
}

// MergeStacktrace keeps the longer of the existing and candidate traces.
func (p *PanicEntry) MergeStacktrace(trace string) {
	if len(trace) > len(p.Stacktrace) {
		p.Stacktrace = trace
	}
}
