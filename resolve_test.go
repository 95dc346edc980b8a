package scoped

import (
	"context"
	"errors"
	"testing"
)

func TestResolve_DefaultOutsideBinding(t *testing.T) {
	reg := NewRegistry()
	ch := Create(reg, 42, WithName("answer"))

	tr := reg.NewTraversal()
	if got := Resolve(tr, ch); got != 42 {
		t.Errorf("expected default 42, got %d", got)
	}

	if got := Resolve(nil, ch); got != 42 {
		t.Errorf("expected default 42 from nil traversal, got %d", got)
	}

	if _, ok := Lookup(tr, ch); ok {
		t.Error("expected no active binding")
	}
}

func TestResolve_BoundValue(t *testing.T) {
	reg := NewRegistry()
	ch := Create(reg, "gold")
	tr := reg.NewTraversal()

	got, err := Bind(tr, ch, "diamond", func() (string, error) {
		return Resolve(tr, ch), nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "diamond" {
		t.Errorf("expected diamond, got %s", got)
	}

	if after := Resolve(tr, ch); after != "gold" {
		t.Errorf("expected default after scope ended, got %s", after)
	}
}

func TestResolve_NestedShadowing(t *testing.T) {
	reg := NewRegistry()
	ch := Create(reg, 0)
	tr := reg.NewTraversal()

	var inner, afterInner int
	var innerDepth, outerDepth int

	err := Provide(tr, ch, 1, func() error {
		if err := Provide(tr, ch, 2, func() error {
			inner = Resolve(tr, ch)
			innerDepth = Depth(tr, ch)
			return nil
		}); err != nil {
			return err
		}
		afterInner = Resolve(tr, ch)
		outerDepth = Depth(tr, ch)
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if inner != 2 {
		t.Errorf("expected inner value 2, got %d", inner)
	}
	if afterInner != 1 {
		t.Errorf("expected outer value 1 after inner scope, got %d", afterInner)
	}
	if innerDepth != 2 || outerDepth != 1 {
		t.Errorf("expected depths 2 and 1, got %d and %d", innerDepth, outerDepth)
	}
	if d := Depth(tr, ch); d != 0 {
		t.Errorf("expected empty stack at the end, got depth %d", d)
	}
}

func TestResolve_SiblingsDoNotObserveEachOther(t *testing.T) {
	reg := NewRegistry()
	ch := Create(reg, "none")
	tr := reg.NewTraversal()

	seen := map[string]string{}
	err := Run(tr, "root", func() error {
		if err := Provide(tr, ch, "left", func() error {
			seen["left"] = Resolve(tr, ch)
			return nil
		}); err != nil {
			return err
		}
		if err := Run(tr, "middle", func() error {
			seen["middle"] = Resolve(tr, ch)
			return nil
		}); err != nil {
			return err
		}
		return Provide(tr, ch, "right", func() error {
			seen["right"] = Resolve(tr, ch)
			return nil
		})
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := map[string]string{"left": "left", "middle": "none", "right": "right"}
	for k, v := range want {
		if seen[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, seen[k])
		}
	}
}

func TestResolve_ChannelsAreIndependent(t *testing.T) {
	reg := NewRegistry()
	a := Create(reg, 1)
	b := Create(reg, 1)
	tr := reg.NewTraversal()

	if a.ID() == b.ID() {
		t.Fatal("expected distinct channel identities")
	}

	err := Provide(tr, a, 99, func() error {
		if got := Resolve(tr, b); got != 1 {
			t.Errorf("binding a changed b: got %d", got)
		}
		if d := Depth(tr, b); d != 0 {
			t.Errorf("expected b to stay empty, got depth %d", d)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestResolve_BindingReleasedOnError(t *testing.T) {
	reg := NewRegistry()
	ch := Create(reg, 0)
	tr := reg.NewTraversal()
	boom := errors.New("boom")

	err := Provide(tr, ch, 5, func() error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if d := Depth(tr, ch); d != 0 {
		t.Errorf("expected binding released, got depth %d", d)
	}
}

func TestResolve_BindingReleasedOnPanic(t *testing.T) {
	reg := NewRegistry()
	ch := Create(reg, 0)
	tr := reg.NewTraversal()

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("expected panic boom to propagate, got %v", r)
			}
		}()
		_ = Provide(tr, ch, 5, func() error {
			panic("boom")
		})
	}()

	if d := Depth(tr, ch); d != 0 {
		t.Errorf("expected binding released after panic, got depth %d", d)
	}
	if got := Resolve(tr, ch); got != 0 {
		t.Errorf("expected default after panic, got %d", got)
	}
	if pos := tr.Position(); len(pos) != 0 {
		t.Errorf("expected no open frames, got %v", pos)
	}
}

func TestResolve_BindingReleasedOnTeardownPanic(t *testing.T) {
	reg := NewRegistry()
	ch := Create(reg, 0)
	tr := reg.NewTraversal()

	err := Run(tr, "outer", func() error {
		func() {
			defer func() {
				if r := recover(); r != "teardown" {
					t.Errorf("expected teardown panic to propagate, got %v", r)
				}
			}()
			_ = Provide(tr, ch, 1, func() error {
				tr.OnTeardown(func() error { panic("teardown") })
				return nil
			})
		}()

		if d := Depth(tr, ch); d != 0 {
			t.Errorf("expected binding released, got depth %d", d)
		}
		if got := Resolve(tr, ch); got != 0 {
			t.Errorf("expected default after teardown panic, got %d", got)
		}
		if pos := tr.Position(); len(pos) != 1 || pos[0] != "outer" {
			t.Errorf("expected only the outer frame open, got %v", pos)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected enclosing frame to close cleanly, got %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("expected close to succeed, got %v", err)
	}
}

func TestResolveContext(t *testing.T) {
	reg := NewRegistry()
	ch := Create(reg, "default")
	tr := reg.NewTraversal()

	if got := ResolveContext(context.Background(), ch); got != "default" {
		t.Errorf("expected default without traversal, got %s", got)
	}

	err := Provide(tr, ch, "bound", func() error {
		ctx := WithTraversal(context.Background(), tr)
		if got := ResolveContext(ctx, ch); got != "bound" {
			t.Errorf("expected bound through context, got %s", got)
		}
		if h := UseContext(ctx, ch); !h.Bound() {
			t.Error("expected handle to be bound")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestEnter_ReturnsSubtreeResult(t *testing.T) {
	reg := NewRegistry()
	tr := reg.NewTraversal()

	got, err := Enter(tr, "leaf", func() ([]string, error) {
		return tr.Position(), nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 || got[0] != "leaf" {
		t.Errorf("expected position [leaf], got %v", got)
	}
}
