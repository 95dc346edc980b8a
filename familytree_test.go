package scoped

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type family struct {
	reg   *Registry
	money *Channel[int]
	asset *Channel[string]
}

func newFamily() *family {
	reg := NewRegistry()
	return &family{
		reg:   reg,
		money: Create(reg, 1000, WithName("money")),
		asset: Create(reg, "gold", WithName("asset")),
	}
}

func TestFamilyTree_MoneyUpdatedDeepInTree(t *testing.T) {
	f := newFamily()
	tr := f.reg.NewTraversal()
	cell := NewCell(1000)

	got := map[string]int{}
	err := Run(tr, "Grandpa", func() error {
		return ProvideCell(tr, f.money, cell, func() error {
			if err := Run(tr, "Father", func() error {
				return Run(tr, "Cousin", func() error {
					got["Cousin.before"] = Resolve(tr, f.money)
					return Use(tr, f.money).Set(2000)
				})
			}); err != nil {
				return err
			}
			return Run(tr, "Uncle", func() error {
				got["Uncle"] = Resolve(tr, f.money)
				return nil
			})
		})
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// A subtree outside the money binding sees the default.
	err = Run(tr, "Neighbour", func() error {
		got["Neighbour"] = Resolve(tr, f.money)
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := map[string]int{
		"Cousin.before": 1000,
		"Uncle":         2000,
		"Neighbour":     1000,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resolved money mismatch (-want +got):\n%s", diff)
	}
}

func TestFamilyTree_AssetDoesNotLeakAcrossBranches(t *testing.T) {
	f := newFamily()
	tr := f.reg.NewTraversal()

	got := map[string]string{}
	err := Run(tr, "Grandpa", func() error {
		if err := Provide(tr, f.asset, "diamond", func() error {
			return Run(tr, "Father", func() error {
				got["Father"] = Resolve(tr, f.asset)
				return Run(tr, "Cousin", func() error {
					got["Cousin"] = Resolve(tr, f.asset)
					return nil
				})
			})
		}); err != nil {
			return err
		}
		return Run(tr, "Aunti", func() error {
			got["Aunti"] = Resolve(tr, f.asset)
			return nil
		})
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := map[string]string{
		"Father": "diamond",
		"Cousin": "diamond",
		"Aunti":  "gold",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resolved asset mismatch (-want +got):\n%s", diff)
	}
}

func TestFamilyTree_TraceRecordsPositions(t *testing.T) {
	f := newFamily()
	tr := f.reg.NewTraversal()

	err := Run(tr, "Grandpa", func() error {
		return ProvideCell(tr, f.money, NewCell(1000), func() error {
			if err := Provide(tr, f.asset, "diamond", func() error {
				return Run(tr, "Father", func() error {
					return Run(tr, "Cousin", func() error { return nil })
				})
			}); err != nil {
				return err
			}
			if err := Run(tr, "Uncle", func() error { return nil }); err != nil {
				return err
			}
			return Run(tr, "Aunti", func() error { return nil })
		})
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	roots := f.reg.Trace().GetRoots()
	if len(roots) != 1 {
		t.Fatalf("expected one root, got %d", len(roots))
	}

	var walked []string
	f.reg.Trace().Walk(roots[0].ID, func(n *Node) bool {
		walked = append(walked, n.Name)
		return true
	})

	want := []string{"Grandpa", "money", "asset", "Father", "Cousin", "Uncle", "Aunti"}
	if diff := cmp.Diff(want, walked); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}

	bound := f.reg.Trace().Filter(func(n *Node) bool { return n.Kind == OpBind })
	if len(bound) != 2 {
		t.Errorf("expected two binding frames, got %d", len(bound))
	}
}
