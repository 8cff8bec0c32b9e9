package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/domain"
)

func TestStorePlanLazyCreation(t *testing.T) {
	s := New()
	p := s.Plan("ns", "p")
	require.Equal(t, domain.PlanStatusPending, p.Status)
	require.Same(t, p, s.Plan("ns", "p"))
	require.Len(t, s.Plans(), 1)
}

func TestStorePlansFirstReferenceOrder(t *testing.T) {
	s := New()
	s.Plan("ns", "b")
	s.Plan("ns", "a")
	s.Plan("other", "b")
	s.Plan("ns", "b")

	plans := s.Plans()
	require.Len(t, plans, 3)
	require.Equal(t, "ns/b", plans[0].Key())
	require.Equal(t, "ns/a", plans[1].Key())
	require.Equal(t, "other/b", plans[2].Key())
}

func TestStoreLastTouched(t *testing.T) {
	s := New()
	require.Nil(t, s.LastTouched())

	a := s.Plan("ns", "a")
	b := s.Plan("ns", "b")
	require.Same(t, b, s.LastTouched())

	s.Touch(a)
	require.Same(t, a, s.LastTouched())
}

func TestStoreMarkDuplicate(t *testing.T) {
	s := New()
	require.False(t, s.MarkDuplicate("line one"))
	require.True(t, s.MarkDuplicate("line one"))
	require.False(t, s.MarkDuplicate("line two"))

	// A fresh store carries no memory of earlier invocations.
	require.False(t, New().MarkDuplicate("line one"))
}

func TestStoreAddEventAssignsID(t *testing.T) {
	s := New()
	s.AddEvent(domain.Event{Type: domain.EventPlanCreated, Timestamp: "t2"})
	s.AddEvent(domain.Event{ID: "fixed", Type: domain.EventPhaseChanged, Timestamp: "t1"})

	r := s.Result()
	require.Len(t, r.Events, 2)
	require.Equal(t, "fixed", r.Events[0].ID)
	require.NotEmpty(t, r.Events[1].ID)
}

func TestStoreResultSnapshot(t *testing.T) {
	s := New()
	p := s.Plan("ns", "p")
	p.Status = domain.PlanStatusRunning
	p.VM("vm-1")
	s.CountTotal()
	s.CountParsed()

	r := s.Result()
	require.Equal(t, 1, r.Summary.Total)
	require.Equal(t, 1, r.Summary.Running)
	require.Equal(t, 1, r.Stats.PlansFound)
	require.Equal(t, 1, r.Stats.VMsFound)
	require.Equal(t, 1, r.Stats.TotalLines)
	require.Equal(t, 1, r.Stats.ParsedLines)
}
