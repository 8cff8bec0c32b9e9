package domain

// BuildWarmInfo recomputes a warm-migration summary from a full precopy
// attempt list. Checkpoint data is cumulative, so the summary is replaced
// wholesale each time, never merged.
//
// Failures exclude only the LAST attempt when it lacks an end stamp (still
// in progress). Earlier attempts without an end stamp count as failures;
// consecutive unfinished attempts before a final in-progress one are
// therefore undercounted by exactly the trailing attempt. That matches the
// controller's own accounting and is kept verbatim.
func BuildWarmInfo(precopies []PrecopyInfo) *WarmInfo {
	info := &WarmInfo{
		Precopies: append([]PrecopyInfo{}, precopies...),
	}
	for _, p := range precopies {
		if p.Completed() {
			info.Successes++
		}
	}
	trailing := 0
	if n := len(precopies); n > 0 && !precopies[n-1].Completed() {
		trailing = 1
	}
	info.Failures = len(precopies) - info.Successes - trailing
	return info
}
