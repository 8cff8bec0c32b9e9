package yamlconv

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/domain"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/pkg/logger"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/store"
)

// docSniff is the minimal header decoded from every document to classify it.
type docSniff struct {
	APIVersion string      `yaml:"apiVersion"`
	Kind       string      `yaml:"kind"`
	Items      []yaml.Node `yaml:"items"`
}

// Parse converts one or more YAML documents (including List wrappers) into
// a normalized result. Documents outside the platform API group are ignored;
// an input that decodes to nothing yields an empty result, not an error.
func Parse(content string) (*domain.Result, error) {
	st := store.New()
	conv := &converter{store: st, log: logger.L().Named("yamlconv")}

	dec := yaml.NewDecoder(strings.NewReader(content))
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode yaml document: %w", err)
		}
		if err := conv.consume(&node); err != nil {
			return nil, err
		}
	}

	r := st.Result()
	r.NetworkMaps = conv.networkMaps
	r.StorageMaps = conv.storageMaps
	return r, nil
}

type converter struct {
	store       *store.Store
	log         *zap.Logger
	networkMaps []domain.MapResource
	storageMaps []domain.MapResource
}

// consume classifies one document node and fans List wrappers back in.
func (c *converter) consume(node *yaml.Node) error {
	var sniff docSniff
	if err := node.Decode(&sniff); err != nil {
		return fmt.Errorf("decode document header: %w", err)
	}
	if strings.HasSuffix(sniff.Kind, "List") && len(sniff.Items) > 0 {
		for i := range sniff.Items {
			if err := c.consume(&sniff.Items[i]); err != nil {
				return err
			}
		}
		return nil
	}
	if !strings.Contains(sniff.APIVersion, APIGroup) {
		return nil
	}
	switch sniff.Kind {
	case "Plan":
		return c.convertPlan(node)
	case "NetworkMap", "StorageMap":
		return c.collectMap(node, sniff.Kind)
	default:
		c.log.Debug("ignoring document", zap.String("kind", sniff.Kind))
		return nil
	}
}

// typedDecode re-encodes a node and unmarshals it through the JSON-tag
// aware YAML codec, so CRD structs share tags with the wire format.
func typedDecode(node *yaml.Node, out interface{}) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Errorf("re-encode document: %w", err)
	}
	if err := sigsyaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode typed document: %w", err)
	}
	return nil
}

func (c *converter) collectMap(node *yaml.Node, kind string) error {
	var doc MapDoc
	if err := typedDecode(node, &doc); err != nil {
		return err
	}
	res := domain.MapResource{
		Kind:      kind,
		Namespace: doc.Metadata.Namespace,
		Name:      doc.Metadata.Name,
	}
	if kind == "NetworkMap" {
		c.networkMaps = appendMap(c.networkMaps, res)
	} else {
		c.storageMaps = appendMap(c.storageMaps, res)
	}
	return nil
}

// appendMap deduplicates by (namespace, name), first occurrence wins.
func appendMap(list []domain.MapResource, res domain.MapResource) []domain.MapResource {
	for _, m := range list {
		if m.Namespace == res.Namespace && m.Name == res.Name {
			return list
		}
	}
	return append(list, res)
}

func (c *converter) convertPlan(node *yaml.Node) error {
	var doc PlanDoc
	if err := typedDecode(node, &doc); err != nil {
		return err
	}
	if doc.Metadata.Name == "" {
		return nil
	}

	plan := c.store.Plan(doc.Metadata.Namespace, doc.Metadata.Name)
	plan.Spec = &domain.PlanSpecInfo{
		Description:     doc.Spec.Description,
		TargetNamespace: doc.Spec.TargetNamespace,
		Warm:            doc.Spec.Warm,
		NetworkMap:      doc.Spec.Map.Network.Name,
		StorageMap:      doc.Spec.Map.Storage.Name,
	}
	if doc.Spec.Archived {
		plan.Archived = true
	}

	for _, cond := range doc.Status.Conditions {
		plan.Conditions = append(plan.Conditions, domain.Condition{
			Type:      cond.Type,
			Status:    cond.Status,
			Category:  cond.Category,
			Reason:    cond.Reason,
			Message:   cond.Message,
			Durable:   cond.Durable,
			Timestamp: cond.LastTransitionTime,
		})
		if cond.Type == "Archived" && cond.Status == "True" {
			plan.Archived = true
		}
	}

	// Spec VMs first, so VMs absent from the status block still exist.
	for _, ref := range doc.Spec.VMs {
		vm := plan.VM(ref.ID)
		vm.Source = domain.SourceYAML
		if ref.Name != "" {
			vm.Name = ref.Name
		}
	}

	if doc.Status.Migration != nil {
		if ts := doc.Status.Migration.Started; ts != "" {
			c.store.AddEvent(domain.Event{
				Timestamp:   ts,
				Type:        domain.EventMigrationStarted,
				Plan:        plan.Key(),
				Description: "migration started",
			})
		}
		for i := range doc.Status.Migration.VMs {
			c.convertVM(plan, doc.Spec.Warm, &doc.Status.Migration.VMs[i])
		}
		if ts := doc.Status.Migration.Completed; ts != "" {
			c.store.AddEvent(domain.Event{
				Timestamp:   ts,
				Type:        domain.EventMigrationDone,
				Plan:        plan.Key(),
				Description: "migration completed",
			})
		}
	}

	plan.Status = resolveStatus(&doc)
	return nil
}

func (c *converter) convertVM(plan *domain.Plan, warm bool, vs *VMStatus) {
	vm := plan.VM(vs.ID)
	vm.Source = domain.SourceYAML
	if vs.Name != "" {
		vm.Name = vs.Name
	}
	vm.CurrentPhase = vs.Phase
	vm.Started = vs.Started
	vm.Completed = vs.Completed
	if warm {
		vm.MigrationType = domain.MigrationTypeWarm
	} else {
		vm.MigrationType = domain.MigrationTypeCold
	}

	for i := range vs.Pipeline {
		step := &vs.Pipeline[i]
		if step.Pending() {
			// Never ran; it has no place in the phase history.
			continue
		}
		vm.PhaseHistory = append(vm.PhaseHistory, &domain.PhaseInfo{
			Phase:     step.Name,
			StartedAt: step.Started,
			EndedAt:   step.Completed,
		})
		c.synthesizeStepLogs(vm, step, vs.Warm)
	}

	if vs.Warm != nil {
		precopies := make([]domain.PrecopyInfo, 0, len(vs.Warm.Precopies))
		for _, pc := range vs.Warm.Precopies {
			precopies = append(precopies, domain.PrecopyInfo{
				Snapshot: pc.Snapshot,
				Start:    pc.Start,
				End:      pc.End,
				Disks:    pc.Disks,
			})
		}
		vm.Warm = domain.BuildWarmInfo(precopies)
		vm.Warm.NextPrecopyAt = vs.Warm.NextPrecopyAt
		if vm.MigrationType == domain.MigrationTypeUnknown {
			vm.MigrationType = domain.MigrationTypeWarm
		}
	}

	if vs.Error != nil {
		for _, reason := range vs.Error.Reasons {
			plan.Errors = append(plan.Errors, &domain.ErrorEntry{
				Message:   fmt.Sprintf("VM %s failed in phase %s", vs.Name, vs.Error.Phase),
				Error:     reason,
				Count:     1,
				FirstSeen: vs.Completed,
				LastSeen:  vs.Completed,
			})
		}
	}
}

// synthesizeStepLogs generates the log entries the controller would have
// written for a step, so grouping and summary code needs no YAML branch.
func (c *converter) synthesizeStepLogs(vm *domain.VM, step *PipelineStep, warm *WarmStatus) {
	add := func(level, msg, ts string) {
		if vm.PhaseLogs == nil {
			vm.PhaseLogs = make(map[string][]domain.RawLogEntry)
		}
		vm.PhaseLogs[step.Name] = append(vm.PhaseLogs[step.Name], domain.RawLogEntry{
			Timestamp: ts,
			Level:     level,
			Message:   msg,
		})
	}

	desc := step.Description
	if desc == "" {
		desc = step.Name
	}
	add("info", fmt.Sprintf("%s [%s]", desc, step.Phase), step.Started)

	if step.Progress.Total > 0 {
		pct := step.Progress.Completed * 100 / step.Progress.Total
		add("info", fmt.Sprintf("progress %d/%d (%d%%)",
			step.Progress.Completed, step.Progress.Total, pct), step.Started)
	}
	for _, task := range step.Tasks {
		add("info", fmt.Sprintf("task %s: %s %d/%d",
			task.Name, task.Phase, task.Progress.Completed, task.Progress.Total), step.Started)
	}
	if step.Error != nil {
		ts := step.Completed
		if ts == "" {
			ts = step.Started
		}
		for _, reason := range step.Error.Reasons {
			add("error", fmt.Sprintf("step failed: %s", reason), ts)
		}
	}

	// Disk transfer under warm migration gets one entry per precopy cycle
	// plus a summary, mirroring the checkpoint records the log path sees.
	if step.Name == "DiskTransfer" && warm != nil && len(warm.Precopies) > 0 {
		for i, pc := range warm.Precopies {
			state := "in progress"
			if pc.End != "" {
				state = "finished " + pc.End
			}
			add("info", fmt.Sprintf("precopy %d snapshot %s: started %s, %s",
				i+1, pc.Snapshot, pc.Start, state), pc.Start)
		}
		successes := 0
		for _, pc := range warm.Precopies {
			if pc.End != "" {
				successes++
			}
		}
		add("info", fmt.Sprintf("precopy summary: %d/%d completed",
			successes, len(warm.Precopies)), step.Started)
	}
}

// resolveStatus derives plan status from conditions, falling back to
// inference over VM errors and completion stamps.
func resolveStatus(doc *PlanDoc) domain.PlanStatus {
	ready := false
	for _, cond := range doc.Status.Conditions {
		if cond.Status != "True" {
			continue
		}
		switch cond.Type {
		case "Succeeded":
			return domain.PlanStatusSucceeded
		case "Failed":
			return domain.PlanStatusFailed
		case "Executing":
			return domain.PlanStatusRunning
		case "Ready":
			ready = true
		}
	}

	if mig := doc.Status.Migration; mig != nil && len(mig.VMs) > 0 {
		anyError := false
		anyStarted := false
		allCompleted := true
		for _, vm := range mig.VMs {
			if vm.Error != nil {
				anyError = true
			}
			if vm.Started != "" {
				anyStarted = true
			}
			if vm.Completed == "" {
				allCompleted = false
			}
		}
		switch {
		case anyError:
			return domain.PlanStatusFailed
		case allCompleted:
			return domain.PlanStatusSucceeded
		case anyStarted:
			return domain.PlanStatusRunning
		}
	}

	if ready {
		return domain.PlanStatusReady
	}
	return domain.PlanStatusPending
}
