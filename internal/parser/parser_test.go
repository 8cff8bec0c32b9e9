package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/domain"
)

func parseAll(t *testing.T, lines ...string) *domain.Result {
	t.Helper()
	result, err := Parse(context.Background(), strings.Join(lines, "\n"))
	require.NoError(t, err)
	return result
}

func TestParse_StartedThenRun(t *testing.T) {
	result := parseAll(t,
		`{"level":"info","ts":"2024-05-01T10:00:00Z","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"},"migration":"m-1"}`,
		`{"level":"info","ts":"2024-05-01T10:00:05Z","msg":"Migration [RUN]","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-1","name":"web","phase":"Started"}}`,
	)

	require.Len(t, result.Plans, 1)
	plan := result.Plan("ns", "p")
	require.NotNil(t, plan)
	require.Equal(t, domain.PlanStatusRunning, plan.Status)
	require.Equal(t, "m-1", plan.MigrationID)

	require.Len(t, plan.VMs, 1)
	vm := plan.VMs["vm-1"]
	require.NotNil(t, vm)
	require.Equal(t, "web", vm.Name)
	require.Equal(t, "Started", vm.CurrentPhase)
	require.Len(t, vm.PhaseHistory, 1)
	require.True(t, vm.PhaseHistory[0].Open())
}

func TestParse_LineAccounting(t *testing.T) {
	content := strings.Join([]string{
		`{"level":"info","ts":"2024-05-01T10:00:00Z","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"}}`,
		`{"level":"info","ts":"2024-05-01T10:00:00Z","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"}}`,
		``,
		`this line is not json at all`,
	}, "\n")

	result, err := Parse(context.Background(), content)
	require.NoError(t, err)

	st := result.Stats
	require.Equal(t, 4, st.TotalLines)
	require.Equal(t, 1, st.ParsedLines)
	require.Equal(t, 1, st.DuplicateLines)
	require.Equal(t, 1, st.ErrorLines)
	require.LessOrEqual(t, st.DuplicateLines+st.ParsedLines+st.ErrorLines, st.TotalLines)
}

func TestParse_DuplicateScopedToInvocation(t *testing.T) {
	line := `{"level":"info","ts":"2024-05-01T10:00:00Z","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"}}`

	first, err := Parse(context.Background(), line)
	require.NoError(t, err)
	second, err := Parse(context.Background(), line)
	require.NoError(t, err)

	// A fresh invocation must not see the previous run's lines.
	require.Equal(t, 1, first.Stats.ParsedLines)
	require.Equal(t, 1, second.Stats.ParsedLines)
	require.Zero(t, second.Stats.DuplicateLines)
}

func TestParse_ContainerPrefixFallbackTimestamp(t *testing.T) {
	result := parseAll(t,
		`2024-05-01T10:00:00.123Z {"level":"info","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"}}`,
	)
	plan := result.Plan("ns", "p")
	require.NotNil(t, plan)
	require.Equal(t, "2024-05-01T10:00:00.123Z", plan.LastSeen)
}

func TestParse_PrecopyIterations(t *testing.T) {
	run := func(ts, phase string) string {
		return `{"level":"info","ts":"` + ts + `","msg":"Migration [RUN]","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-1","phase":"` + phase + `"}}`
	}
	result := parseAll(t,
		`{"level":"info","ts":"2024-05-01T09:59:00Z","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"},"migration":"m-1"}`,
		run("2024-05-01T10:00:00Z", "CreateSnapshot"),
		run("2024-05-01T10:01:00Z", "WaitForSnapshot"),
		run("2024-05-01T10:02:00Z", "CopyDisks"),
		run("2024-05-01T10:03:00Z", "CreateSnapshot"),
		run("2024-05-01T10:04:00Z", "CopyDisks"),
		run("2024-05-01T10:05:00Z", "Cutover"),
	)

	vm := result.Plan("ns", "p").VMs["vm-1"]
	require.NotNil(t, vm)
	require.Equal(t, 2, vm.MaxIteration())

	// At most one open phase at any time.
	open := 0
	for _, ph := range vm.PhaseHistory {
		if ph.Open() {
			open++
		}
	}
	require.Equal(t, 1, open)

	// Iterations never decrease along the history.
	prev := 0
	for _, ph := range vm.PhaseHistory {
		if ph.Iteration == 0 {
			continue
		}
		require.GreaterOrEqual(t, ph.Iteration, prev)
		prev = ph.Iteration
	}
}

func TestParse_CheckpointRebuildsWarmInfo(t *testing.T) {
	result := parseAll(t,
		`{"level":"info","ts":"2024-05-01T10:00:00Z","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"}}`,
		`{"level":"info","ts":"2024-05-01T10:05:00Z","msg":"Precopy created.","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-1","warm":{"precopies":[{"snapshot":"s1","end":"2024-05-01T10:01:00Z"},{"snapshot":"s2","end":"2024-05-01T10:03:00Z"},{"snapshot":"s3"}]}}}`,
	)

	vm := result.Plan("ns", "p").VMs["vm-1"]
	require.NotNil(t, vm)
	require.NotNil(t, vm.Warm)
	require.Equal(t, 2, vm.Warm.Successes)
	// Trailing in-progress attempt is excluded from the failure count.
	require.Equal(t, 0, vm.Warm.Failures)
	require.Equal(t, domain.MigrationTypeWarm, vm.MigrationType)
}

func TestParse_PhaseRecordCarryingCheckpointData(t *testing.T) {
	result := parseAll(t,
		`{"level":"info","ts":"2024-05-01T09:59:00Z","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"},"migration":"m-1"}`,
		`{"level":"info","ts":"2024-05-01T10:00:00Z","msg":"Migration [RUN]","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-1","phase":"CreateSnapshot"}}`,
		`{"level":"info","ts":"2024-05-01T10:05:00Z","msg":"Migration [RUN]","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-1","phase":"CopyDisks","warm":{"precopies":[{"snapshot":"s1","end":"2024-05-01T10:04:00Z"}]}}}`,
	)

	vm := result.Plan("ns", "p").VMs["vm-1"]
	require.NotNil(t, vm)

	// The checkpoint payload must not swallow the phase transition.
	require.Equal(t, "CopyDisks", vm.CurrentPhase)
	require.Len(t, vm.PhaseHistory, 2)
	require.Equal(t, "CreateSnapshot", vm.PhaseHistory[0].Phase)
	require.Equal(t, "2024-05-01T10:05:00Z", vm.PhaseHistory[0].EndedAt)
	require.Equal(t, "CopyDisks", vm.PhaseHistory[1].Phase)

	// And the warm summary still updates from the same record.
	require.NotNil(t, vm.Warm)
	require.Equal(t, 1, vm.Warm.Successes)
}

func TestParse_SucceededFanOut(t *testing.T) {
	result := parseAll(t,
		`{"level":"info","ts":"2024-05-01T10:00:00Z","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"}}`,
		`{"level":"info","ts":"2024-05-01T10:00:05Z","msg":"Migration [RUN]","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-1","phase":"Started"}}`,
		`{"level":"info","ts":"2024-05-01T10:00:06Z","msg":"Migration [RUN]","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-2","phase":"CopyDisks"}}`,
		`{"level":"info","ts":"2024-05-01T11:00:00Z","msg":"Migration [SUCCEEDED]","plan":{"name":"p","namespace":"ns"}}`,
	)

	plan := result.Plan("ns", "p")
	require.Equal(t, domain.PlanStatusSucceeded, plan.Status)
	for _, vm := range plan.VMs {
		require.Equal(t, domain.PhaseCompleted, vm.CurrentPhase)
		require.Nil(t, vm.OpenPhase())
		last := vm.PhaseHistory[len(vm.PhaseHistory)-1]
		require.Equal(t, domain.PhaseCompleted, last.Phase)
		require.Equal(t, "2024-05-01T11:00:00Z", last.StartedAt)
		require.Equal(t, "2024-05-01T11:00:00Z", last.EndedAt)
	}
}

func TestParse_RerunResetsPlanState(t *testing.T) {
	result := parseAll(t,
		`{"level":"info","ts":"2024-05-01T10:00:00Z","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"},"migration":"m-1"}`,
		`{"level":"info","ts":"2024-05-01T10:00:05Z","msg":"Migration [RUN]","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-1","phase":"Started"}}`,
		`{"level":"error","ts":"2024-05-01T10:10:00Z","msg":"step failed","plan":{"name":"p","namespace":"ns"},"error":"disk locked"}`,
		`{"level":"info","ts":"2024-05-01T12:00:00Z","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"},"migration":"m-2"}`,
	)

	plan := result.Plan("ns", "p")
	require.Equal(t, "m-2", plan.MigrationID)
	require.Empty(t, plan.VMs)
	require.Empty(t, plan.Errors)
	require.Equal(t, domain.PlanStatusRunning, plan.Status)

	// The global event log survives the reset.
	require.NotEmpty(t, result.Events)
}

func TestParse_ConditionLifecycle(t *testing.T) {
	result := parseAll(t,
		`{"level":"info","ts":"2024-05-01T09:00:00Z","msg":"Condition added","plan":{"name":"p","namespace":"ns"},"condition":{"type":"Ready","status":"True"}}`,
		`{"level":"info","ts":"2024-05-01T09:30:00Z","msg":"Condition added","plan":{"name":"p","namespace":"ns"},"condition":{"type":"Executing","status":"True"}}`,
		`{"level":"info","ts":"2024-05-01T09:40:00Z","msg":"Condition deleted","plan":{"name":"p","namespace":"ns"},"condition":{"type":"Ready"}}`,
	)

	plan := result.Plan("ns", "p")
	require.Equal(t, domain.PlanStatusRunning, plan.Status)
	require.False(t, plan.HasCondition("Ready"))
	require.True(t, plan.HasCondition("Executing"))
}

func TestParse_ArchivedCondition(t *testing.T) {
	result := parseAll(t,
		`{"level":"info","ts":"2024-05-01T09:00:00Z","msg":"Condition added","plan":{"name":"p","namespace":"ns"},"condition":{"type":"Archived","status":"True"}}`,
	)
	require.True(t, result.Plan("ns", "p").Archived)
}

func TestParse_CreatedResourcesDeduplicated(t *testing.T) {
	result := parseAll(t,
		`{"level":"info","ts":"2024-05-01T10:00:00Z","msg":"Pod created.","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-1"},"object":{"name":"importer-1"}}`,
		`{"level":"info","ts":"2024-05-01T10:00:01Z","msg":"Pod created.","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-1"},"object":{"name":"importer-1"}}`,
		`{"level":"info","ts":"2024-05-01T10:00:02Z","msg":"Created DataVolume.","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-1"},"dv":"dv-disk-0"}`,
	)

	vm := result.Plan("ns", "p").VMs["vm-1"]
	require.Len(t, vm.CreatedResources, 2)
	require.Equal(t, domain.CreatedResource{Type: "Pod", Name: "importer-1"}, vm.CreatedResources[0])
	require.Equal(t, "dv-disk-0", vm.CreatedResources[1].Name)
}

func TestParse_ErrorGroupingByIdentity(t *testing.T) {
	result := parseAll(t,
		`{"level":"error","ts":"2024-05-01T10:00:00Z","msg":"step failed","plan":{"name":"p","namespace":"ns"},"error":"disk locked"}`,
		`{"level":"error","ts":"2024-05-01T10:05:00Z","msg":"step failed","plan":{"name":"p","namespace":"ns"},"error":"disk locked"}`,
		`{"level":"error","ts":"2024-05-01T10:06:00Z","msg":"other message","plan":{"name":"p","namespace":"ns"},"error":"disk locked"}`,
	)

	plan := result.Plan("ns", "p")
	require.Len(t, plan.Errors, 2)
	require.Equal(t, 2, plan.Errors[0].Count)
	require.Equal(t, "2024-05-01T10:05:00Z", plan.Errors[0].LastSeen)
	require.Equal(t, 1, plan.Errors[1].Count)
}

func TestParse_WarningGroupedByErrorTextAlone(t *testing.T) {
	result := parseAll(t,
		`{"level":"error","ts":"2024-05-01T10:00:00Z","msg":"first message","plan":{"name":"p","namespace":"ns"},"err":"quota exceeded"}`,
		`{"level":"error","ts":"2024-05-01T10:01:00Z","msg":"second message","plan":{"name":"p","namespace":"ns"},"err":"quota exceeded"}`,
	)

	plan := result.Plan("ns", "p")
	require.Len(t, plan.Errors, 1)
	require.Equal(t, 2, plan.Errors[0].Count)
	require.Empty(t, plan.Errors[0].Message)
}

func TestParse_FailureMarkerSetsFailed(t *testing.T) {
	result := parseAll(t,
		`{"level":"info","ts":"2024-05-01T10:00:00Z","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"}}`,
		`{"level":"error","ts":"2024-05-01T10:30:00Z","msg":"Migration [FAILED]","plan":{"name":"p","namespace":"ns"},"error":"cutover timed out"}`,
	)
	plan := result.Plan("ns", "p")
	require.Equal(t, domain.PlanStatusFailed, plan.Status)
	require.NotEmpty(t, plan.Errors)
}

func TestParse_ItineraryCompletionFansOut(t *testing.T) {
	result := parseAll(t,
		`{"level":"info","ts":"2024-05-01T10:00:00Z","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"}}`,
		`{"level":"info","ts":"2024-05-01T10:00:05Z","msg":"Migration [RUN]","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-1","phase":"CopyDisks"}}`,
		`{"level":"info","ts":"2024-05-01T11:00:00Z","msg":"Itinerary transition.","plan":{"name":"p","namespace":"ns"},"vm":{"id":"vm-1","phase":"Completed"}}`,
	)
	plan := result.Plan("ns", "p")
	require.Equal(t, domain.PlanStatusSucceeded, plan.Status)
	require.Equal(t, domain.PhaseCompleted, plan.VMs["vm-1"].CurrentPhase)
}

func TestParse_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Parse(ctx, `{"level":"info","msg":"Migration [STARTED]","plan":{"name":"p","namespace":"ns"}}`)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	require.Empty(t, result.Plans)
}
