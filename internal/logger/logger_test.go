package logger

import "testing"

func TestGet(t *testing.T) {
	if Get() == nil {
		t.Fatal("expected a logger")
	}
	if Get() != Get() {
		t.Error("expected the same global logger")
	}
}

func TestNamed(t *testing.T) {
	log := Named("scheduler")
	if log == nil {
		t.Fatal("expected a named logger")
	}
	if log.Desugar().Name() != "scheduler" {
		t.Errorf("expected name scheduler, got %q", log.Desugar().Name())
	}
	Sync()
}
