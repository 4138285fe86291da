package plugin

import (
	"context"
	"log/slog"
	"testing"

	"github.com/praetorhq/praetor/audit"
)

// testPlugin implements Plugin + DecisionMade + AccessRecorded.
type testPlugin struct {
	decisionCalled bool
	recordCalled   bool
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnDecisionMade(_ context.Context, _ any, _ string, _ any) error {
	t.decisionCalled = true
	return nil
}

func (t *testPlugin) OnAccessRecorded(_ context.Context, _ *audit.Entry) error {
	t.recordCalled = true
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	// Should dispatch DecisionMade to testPlugin only.
	reg.EmitDecisionMade(ctx, nil, "reports.read", nil)
	if !tp.decisionCalled {
		t.Fatal("OnDecisionMade was not called")
	}

	// Should dispatch AccessRecorded.
	reg.EmitAccessRecorded(ctx, &audit.Entry{Action: "reports.generate"})
	if !tp.recordCalled {
		t.Fatal("OnAccessRecorded was not called")
	}

	// Should not panic on hooks with no listeners.
	reg.EmitSessionResolved(ctx, nil)
	reg.EmitShutdown(ctx)
}
