package monolith

import (
	"context"
	"errors"
	"testing"

	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/internal/logger"
)

type fakeModule struct {
	startErr error
	started  bool
}

func (m *fakeModule) RegisterServices(di.Container) error { return nil }

func (m *fakeModule) Startup(context.Context, Monolith) error {
	m.started = true
	return m.startErr
}

func TestModuleName(t *testing.T) {
	if got := ModuleName(&fakeModule{}); got != "monolith" {
		t.Errorf("ModuleName = %q, want monolith", got)
	}
}

func TestStartModules_ReportsProgressAndStops(t *testing.T) {
	a := &app{logger: logger.NewNop(), container: di.NewContainer()}

	var events []string
	a.OnProgress(func(module string, err error) {
		if err != nil {
			module += ":failed"
		}
		events = append(events, module)
	})

	first := &fakeModule{}
	broken := &fakeModule{startErr: errors.New("boom")}
	never := &fakeModule{}

	err := a.StartModules(context.Background(), first, broken, never)
	if err == nil || !errors.Is(err, broken.startErr) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if never.started {
		t.Error("module after the failure was started")
	}
	want := []string{"monolith", "monolith:failed"}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Errorf("events = %v, want %v", events, want)
	}
}
