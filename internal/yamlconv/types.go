// Package yamlconv parses Kubernetes-style Plan, NetworkMap and StorageMap
// documents into the same entity shapes the log pipeline produces.
// Downstream grouping and summary code never branches on the source format.
package yamlconv

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// APIGroup is the platform API group carried in apiVersion of all
// recognized documents.
const APIGroup = "forklift.konveyor.io"

// PlanDoc is the migration Plan custom resource, reduced to the fields the
// converter consumes.
type PlanDoc struct {
	metav1.TypeMeta `json:",inline"`
	Metadata        metav1.ObjectMeta `json:"metadata"`
	Spec            PlanSpec          `json:"spec"`
	Status          PlanStatus        `json:"status"`
}

// PlanSpec is the declarative half of a Plan document.
type PlanSpec struct {
	Description     string      `json:"description"`
	TargetNamespace string      `json:"targetNamespace"`
	Warm            bool        `json:"warm"`
	Archived        bool        `json:"archived"`
	Map             PlanMapRefs `json:"map"`
	VMs             []PlanVMRef `json:"vms"`
}

// PlanMapRefs names the network/storage maps the plan binds to.
type PlanMapRefs struct {
	Network NamespacedRef `json:"network"`
	Storage NamespacedRef `json:"storage"`
}

// NamespacedRef is a namespace/name object reference.
type NamespacedRef struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// PlanVMRef is one VM listed in the plan spec.
type PlanVMRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlanStatus is the observed half of a Plan document.
type PlanStatus struct {
	Conditions []Condition      `json:"conditions"`
	Migration  *MigrationStatus `json:"migration"`
}

// Condition mirrors the controller's condition schema.
type Condition struct {
	Type               string `json:"type"`
	Status             string `json:"status"`
	Category           string `json:"category"`
	Reason             string `json:"reason"`
	Message            string `json:"message"`
	Durable            bool   `json:"durable"`
	LastTransitionTime string `json:"lastTransitionTime"`
}

// MigrationStatus holds the per-VM execution state of the active run.
type MigrationStatus struct {
	Started   string     `json:"started"`
	Completed string     `json:"completed"`
	VMs       []VMStatus `json:"vms"`
}

// VMStatus is the execution state of one VM.
type VMStatus struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Phase     string         `json:"phase"`
	Started   string         `json:"started"`
	Completed string         `json:"completed"`
	Error     *StepError     `json:"error"`
	Warm      *WarmStatus    `json:"warm"`
	Pipeline  []PipelineStep `json:"pipeline"`
}

// StepError is the error block of a VM or pipeline step.
type StepError struct {
	Phase   string   `json:"phase"`
	Reasons []string `json:"reasons"`
}

// WarmStatus carries the declarative precopy summary.
type WarmStatus struct {
	Successes           int       `json:"successes"`
	Failures            int       `json:"failures"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	NextPrecopyAt       string    `json:"nextPrecopyAt"`
	Precopies           []Precopy `json:"precopies"`
}

// Precopy is one declarative precopy attempt.
type Precopy struct {
	Snapshot string   `json:"snapshot"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Disks    []string `json:"disks"`
}

// PipelineStep is one declarative step of a VM's migration pipeline.
// A step with no timestamps and no error never ran.
type PipelineStep struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Phase       string            `json:"phase"`
	Started     string            `json:"started"`
	Completed   string            `json:"completed"`
	Progress    Progress          `json:"progress"`
	Annotations map[string]string `json:"annotations"`
	Tasks       []PipelineTask    `json:"tasks"`
	Error       *StepError        `json:"error"`
}

// Pending reports whether the step never started.
func (s PipelineStep) Pending() bool {
	return s.Started == "" && s.Completed == "" && s.Error == nil
}

// Progress is a completed/total pair.
type Progress struct {
	Completed int64 `json:"completed"`
	Total     int64 `json:"total"`
}

// PipelineTask is one unit of work within a step.
type PipelineTask struct {
	Name     string     `json:"name"`
	Phase    string     `json:"phase"`
	Progress Progress   `json:"progress"`
	Error    *StepError `json:"error"`
}

// MapDoc is a NetworkMap or StorageMap document, consumed for identity only.
type MapDoc struct {
	metav1.TypeMeta `json:",inline"`
	Metadata        metav1.ObjectMeta `json:"metadata"`
}
