package archive

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const controllerLogLine = `{"level":"info","ts":"2024-05-01T10:00:00Z","logger":"plan","msg":"Reconcile started"}`

const planDoc = `apiVersion: forklift.konveyor.io/v1beta1
kind: Plan
metadata:
  name: p
  namespace: ns
`

func TestClassifyBuckets(t *testing.T) {
	files := []File{
		{Path: "logs/forklift-controller-abc/controller.log", Content: controllerLogLine},
		{Path: "resources/plan.yaml", Content: planDoc},
		{Path: "logs/virt-v2v-vm1.log", Content: "virt-v2v: starting conversion"},
		{Path: "notes/readme.txt", Content: "nothing recognizable here"},
	}

	b := Classify(files, 0)
	require.Len(t, b.Logs, 1)
	require.Len(t, b.YAMLs, 1)
	require.Len(t, b.Tool, 1)
	require.Equal(t, 1, b.Unclassified)
}

func TestClassifyControllerLogByPathHint(t *testing.T) {
	// Content signature missing from the sniffed prefix; the path hint plus a
	// JSON-shaped first line still classifies it.
	f := File{Path: "pod/controller.log", Content: `{"ts":"2024-05-01T10:00:00Z"}`}
	b := Classify([]File{f}, 0)
	require.Len(t, b.Logs, 1)
}

func TestClassifySniffLimitBoundsInspection(t *testing.T) {
	// The YAML signature sits beyond the sniff window, so the member does not
	// classify as YAML.
	padded := strings.Repeat("# filler\n", 200) + planDoc
	b := Classify([]File{{Path: "late.yaml", Content: padded}}, 64)
	require.Empty(t, b.YAMLs)
	require.Equal(t, 1, b.Unclassified)
}

func TestClassifyListWrappedYAML(t *testing.T) {
	planList := `apiVersion: forklift.konveyor.io/v1beta1
kind: PlanList
items:
  - apiVersion: forklift.konveyor.io/v1beta1
    kind: Plan
    metadata:
      name: p
      namespace: ns
`
	genericList := `apiVersion: v1
kind: List
items:
  - apiVersion: forklift.konveyor.io/v1beta1
    kind: NetworkMap
    metadata:
      name: net-map
      namespace: ns
`
	b := Classify([]File{
		{Path: "plans.yaml", Content: planList},
		{Path: "maps.yaml", Content: genericList},
	}, 0)
	require.Len(t, b.YAMLs, 2)
	require.Zero(t, b.Unclassified)
}

func TestClassifyForeignYAMLIsUnclassified(t *testing.T) {
	doc := "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: x\n"
	b := Classify([]File{{Path: "cm.yaml", Content: doc}}, 0)
	require.Empty(t, b.YAMLs)
	require.Equal(t, 1, b.Unclassified)
}

func TestClassifyToolLogByBasename(t *testing.T) {
	b := Classify([]File{{Path: "conv/virt-v2v-import-vm2.txt", Content: "libguestfs output"}}, 0)
	require.Len(t, b.Tool, 1)
}
