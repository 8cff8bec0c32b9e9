package yamlconv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/domain"
)

const warmPlanYAML = `
apiVersion: forklift.konveyor.io/v1beta1
kind: Plan
metadata:
  name: warm-plan
  namespace: konveyor-forklift
spec:
  description: warm move of the web tier
  targetNamespace: web
  warm: true
  map:
    network:
      name: net-map
      namespace: konveyor-forklift
    storage:
      name: store-map
      namespace: konveyor-forklift
  vms:
    - id: vm-1
      name: web-01
    - id: vm-2
      name: web-02
status:
  conditions:
    - type: Executing
      status: "True"
      category: Advisory
      lastTransitionTime: "2024-05-01T10:00:00Z"
  migration:
    started: "2024-05-01T10:00:00Z"
    vms:
      - id: vm-1
        name: web-01
        phase: CopyDisks
        started: "2024-05-01T10:00:05Z"
        warm:
          nextPrecopyAt: "2024-05-01T11:00:00Z"
          precopies:
            - snapshot: snap-1
              start: "2024-05-01T10:01:00Z"
              end: "2024-05-01T10:10:00Z"
            - snapshot: snap-2
              start: "2024-05-01T10:30:00Z"
        pipeline:
          - name: Initialize
            phase: Completed
            started: "2024-05-01T10:00:05Z"
            completed: "2024-05-01T10:00:30Z"
          - name: DiskTransfer
            description: Transfer disks
            phase: Running
            started: "2024-05-01T10:01:00Z"
            progress:
              completed: 40
              total: 80
            tasks:
              - name: disk-0
                phase: Running
                progress:
                  completed: 40
                  total: 80
          - name: VMCreation
            phase: Pending
`

func TestParsePlanDocument(t *testing.T) {
	result, err := Parse(warmPlanYAML)
	require.NoError(t, err)
	require.Len(t, result.Plans, 1)

	plan := result.Plan("konveyor-forklift", "warm-plan")
	require.NotNil(t, plan)
	require.Equal(t, domain.PlanStatusRunning, plan.Status)
	require.NotNil(t, plan.Spec)
	require.Equal(t, "warm move of the web tier", plan.Spec.Description)
	require.Equal(t, "net-map", plan.Spec.NetworkMap)
	require.Equal(t, "store-map", plan.Spec.StorageMap)
	require.True(t, plan.Spec.Warm)

	// Spec VMs exist even without a status entry.
	require.Len(t, plan.VMs, 2)
	require.Equal(t, domain.SourceYAML, plan.VMs["vm-2"].Source)
	require.Empty(t, plan.VMs["vm-2"].PhaseHistory)

	vm := plan.VMs["vm-1"]
	require.Equal(t, "CopyDisks", vm.CurrentPhase)
	require.Equal(t, domain.MigrationTypeWarm, vm.MigrationType)

	// The pending pipeline step is excluded from the history.
	require.Len(t, vm.PhaseHistory, 2)
	require.Equal(t, "Initialize", vm.PhaseHistory[0].Phase)
	require.Equal(t, "DiskTransfer", vm.PhaseHistory[1].Phase)

	require.NotNil(t, vm.Warm)
	require.Equal(t, 1, vm.Warm.Successes)
	require.Equal(t, 0, vm.Warm.Failures)
	require.Equal(t, "2024-05-01T11:00:00Z", vm.Warm.NextPrecopyAt)
}

func TestParseSynthesizedStepLogs(t *testing.T) {
	result, err := Parse(warmPlanYAML)
	require.NoError(t, err)

	vm := result.Plan("konveyor-forklift", "warm-plan").VMs["vm-1"]
	entries := vm.PhaseLogs["DiskTransfer"]
	require.NotEmpty(t, entries)

	var messages []string
	for _, e := range entries {
		messages = append(messages, e.Message)
	}
	require.Contains(t, messages, "Transfer disks [Running]")
	require.Contains(t, messages, "progress 40/80 (50%)")
	require.Contains(t, messages, "task disk-0: Running 40/80")
	require.Contains(t, messages, "precopy summary: 1/2 completed")
}

func TestParseVMErrorsBecomePlanErrors(t *testing.T) {
	doc := `
apiVersion: forklift.konveyor.io/v1beta1
kind: Plan
metadata:
  name: failed-plan
  namespace: ns
spec:
  vms:
    - id: vm-1
      name: db-01
status:
  migration:
    vms:
      - id: vm-1
        name: db-01
        phase: CopyDisks
        started: "2024-05-01T10:00:00Z"
        completed: "2024-05-01T10:30:00Z"
        error:
          phase: CopyDisks
          reasons:
            - disk locked by another process
`
	result, err := Parse(doc)
	require.NoError(t, err)

	plan := result.Plan("ns", "failed-plan")
	require.Equal(t, domain.PlanStatusFailed, plan.Status)
	require.Len(t, plan.Errors, 1)
	require.Equal(t, "disk locked by another process", plan.Errors[0].Error)
	require.Contains(t, plan.Errors[0].Message, "db-01")
}

func TestParseStatusInference(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   domain.PlanStatus
	}{
		{
			"succeeded condition wins",
			"status:\n  conditions:\n    - type: Succeeded\n      status: \"True\"",
			domain.PlanStatusSucceeded,
		},
		{
			"false condition ignored",
			"status:\n  conditions:\n    - type: Succeeded\n      status: \"False\"\n    - type: Ready\n      status: \"True\"",
			domain.PlanStatusReady,
		},
		{
			"all vms completed",
			"status:\n  migration:\n    vms:\n      - id: v\n        started: \"t1\"\n        completed: \"t2\"",
			domain.PlanStatusSucceeded,
		},
		{
			"vm started but unfinished",
			"status:\n  migration:\n    vms:\n      - id: v\n        started: \"t1\"",
			domain.PlanStatusRunning,
		},
		{"no status at all", "", domain.PlanStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "apiVersion: forklift.konveyor.io/v1beta1\nkind: Plan\nmetadata:\n  name: p\n  namespace: ns\n" + tt.status
			result, err := Parse(doc)
			require.NoError(t, err)
			require.Equal(t, tt.want, result.Plan("ns", "p").Status)
		})
	}
}

func TestParseListWrapperAndMaps(t *testing.T) {
	doc := `
apiVersion: v1
kind: List
items:
  - apiVersion: forklift.konveyor.io/v1beta1
    kind: NetworkMap
    metadata:
      name: net-map
      namespace: ns
  - apiVersion: forklift.konveyor.io/v1beta1
    kind: StorageMap
    metadata:
      name: store-map
      namespace: ns
  - apiVersion: forklift.konveyor.io/v1beta1
    kind: NetworkMap
    metadata:
      name: net-map
      namespace: ns
`
	result, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, result.NetworkMaps, 1)
	require.Len(t, result.StorageMaps, 1)
	require.Equal(t, "net-map", result.NetworkMaps[0].Name)
}

func TestParseIgnoresForeignDocuments(t *testing.T) {
	doc := `
apiVersion: v1
kind: ConfigMap
metadata:
  name: not-ours
---
apiVersion: forklift.konveyor.io/v1beta1
kind: Plan
metadata:
  name: p
  namespace: ns
`
	result, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, result.Plans, 1)
}

func TestParseMultiDocumentStream(t *testing.T) {
	doc := `
apiVersion: forklift.konveyor.io/v1beta1
kind: Plan
metadata:
  name: a
  namespace: ns
---
apiVersion: forklift.konveyor.io/v1beta1
kind: Plan
metadata:
  name: b
  namespace: ns
`
	result, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, result.Plans, 2)
	require.Equal(t, 2, result.Summary.Total)
}

func TestParseEmptyInput(t *testing.T) {
	result, err := Parse("")
	require.NoError(t, err)
	require.Empty(t, result.Plans)
}

func TestParseArchivedSpecFlag(t *testing.T) {
	doc := `
apiVersion: forklift.konveyor.io/v1beta1
kind: Plan
metadata:
  name: p
  namespace: ns
spec:
  archived: true
`
	result, err := Parse(doc)
	require.NoError(t, err)
	require.True(t, result.Plan("ns", "p").Archived)
}
