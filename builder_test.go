package coflow

import (
	"context"
	"testing"
	"time"

	"github.com/huoxudong125/coflow/pkg/api"
)

func drainNames(t *testing.T, seq Sequence) []string {
	t.Helper()

	var names []string
	for {
		step, ok, err := seq.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if !ok {
			return names
		}
		names = append(names, api.StepName(step))
	}
}

func TestSequenceBuilder_BuildsNamedSteps(t *testing.T) {
	b := NewSequence("checkout").
		Step("reserve", func(ctx context.Context, rc *RunContext) Outcome {
			return Success()
		}).
		Delay("settle", time.Millisecond).
		Do("persist", func(ctx context.Context, rc *RunContext) error {
			return nil
		}).
		Go("notify", func(ctx context.Context) (any, error) {
			return nil, nil
		})

	if b.Name() != "checkout" {
		t.Fatalf("expected builder name checkout, got %q", b.Name())
	}
	if b.Len() != 4 {
		t.Fatalf("expected 4 steps, got %d", b.Len())
	}

	names := drainNames(t, b.Build())
	want := []string{"reserve", "settle", "persist", "notify"}
	if len(names) != len(want) {
		t.Fatalf("expected %d steps, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("step %d: expected name %q, got %q", i, want[i], names[i])
		}
	}
}

func TestSequenceBuilder_BuildReturnsIndependentSequences(t *testing.T) {
	b := NewSequence("twice").
		Step("only", func(ctx context.Context, rc *RunContext) Outcome {
			return Success()
		})

	first := b.Build()
	second := b.Build()

	if got := drainNames(t, first); len(got) != 1 {
		t.Fatalf("expected 1 step from first build, got %v", got)
	}
	// first is exhausted; second must still yield the step.
	if got := drainNames(t, second); len(got) != 1 {
		t.Fatalf("expected 1 step from second build, got %v", got)
	}
}

func TestSequenceBuilder_RunsEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := NewSequencer()

	var order []string
	seq := NewSequence("pipeline").
		Do("first", func(ctx context.Context, rc *RunContext) error {
			order = append(order, "first")
			return nil
		}).
		Step("second", func(ctx context.Context, rc *RunContext) Outcome {
			order = append(order, "second")
			return SuccessValue("done")
		}).
		Build()

	v, err := RunAndWait(ctx, s, seq, nil)
	if err != nil {
		t.Fatalf("RunAndWait failed: %v", err)
	}
	if v != "done" {
		t.Fatalf("expected run value \"done\", got %v", v)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected execution order: %v", order)
	}
}

func TestSequenceBuilder_SubSplicesNestedSequence(t *testing.T) {
	ctx := context.Background()
	s := NewSequencer()

	var order []string
	mark := func(name string) func(ctx context.Context, rc *RunContext) error {
		return func(ctx context.Context, rc *RunContext) error {
			order = append(order, name)
			return nil
		}
	}

	nested := NewSequence("nested").
		Do("n1", mark("n1")).
		Do("n2", mark("n2")).
		Build()

	seq := NewSequence("outer").
		Do("a", mark("a")).
		Sub("nested", nested).
		Do("b", mark("b")).
		Build()

	if _, err := RunAndWait(ctx, s, seq, nil); err != nil {
		t.Fatalf("RunAndWait failed: %v", err)
	}
	want := []string{"a", "n1", "n2", "b"}
	if len(order) != len(want) {
		t.Fatalf("expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestSequenceBuilder_PanicsOnInvalidSteps(t *testing.T) {
	assertPanics := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		fn()
	}

	assertPanics("empty name", func() {
		NewSequence("x").Add("", Value(1))
	})
	assertPanics("nil step", func() {
		NewSequence("x").Add("s", nil)
	})
	assertPanics("nil function", func() {
		NewSequence("x").Step("s", nil)
	})
	assertPanics("nil awaitable", func() {
		NewSequence("x").Await("s", nil)
	})
	assertPanics("nil sequence", func() {
		NewSequence("x").Sub("s", nil)
	})
}
