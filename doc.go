// Package scoped provides typed value channels that are bound at a subtree
// root and resolved by any descendant, without passing the value down
// explicitly.
//
// # Overview
//
// Scoped organizes code around three concepts:
//
//  1. Channels: typed slots with a default value, created by a Registry
//  2. Bindings: a value (or a mutable Cell) attached to a channel for the
//     extent of a subtree
//  3. Traversals: one walk over a tree, holding a binding stack per channel
//
// # Basic Usage
//
//	reg := scoped.NewRegistry()
//	money := scoped.Create(reg, 1000, scoped.WithName("money"))
//	asset := scoped.Create(reg, "gold", scoped.WithName("asset"))
//
//	tr := reg.NewTraversal()
//	err := scoped.Provide(tr, asset, "diamond", func() error {
//	    fmt.Println(scoped.Resolve(tr, asset)) // diamond
//	    return nil
//	})
//	fmt.Println(scoped.Resolve(tr, asset)) // gold
//
// Resolution is O(1): it reads the top of the channel's stack. Nested
// bindings of the same channel shadow outer ones only inside the nested
// subtree; bindings of different channels never interact.
//
// # Read/Write Bindings
//
// Binding a Cell gives consumers the update capability as well:
//
//	cell := scoped.NewCell(1000)
//	_ = scoped.ProvideCell(tr, money, cell, func() error {
//	    h := scoped.Use(tr, money)
//	    _ = h.Set(2000)
//	    fmt.Println(scoped.Resolve(tr, money)) // 2000
//	    return nil
//	})
//
// Setting a value through a plain binding returns ErrReadOnly. Watch
// subscribes to the nearest cell so consumers know when to resolve again.
//
// # Tree Positions
//
// Enter and Run open named frames that bind nothing. OnTeardown registers
// callbacks on the innermost frame; they run in reverse order when it exits.
// Every closed frame is recorded in the registry's Trace.
//
// # Extensions
//
// Extensions observe and wrap bind, enter and update operations and observe
// resolutions:
//
//	reg := scoped.NewRegistry(
//	    scoped.WithExtension(extensions.NewLoggingExtension(logger)),
//	)
//
// # Thread Safety
//
// A Traversal belongs to one goroutine. Concurrent branches use Fork, which
// copies the active bindings into an independent traversal. Cells and
// registries are safe for concurrent use; a Cell update happens-before any
// later read of it.
//
// # Errors
//
// Broken bind/unbind pairing panics with *ConsistencyError. The type-erased
// API (BindAny, SetAny) reports *TypeMismatchError; the generic API rules
// mismatches out at compile time.
package scoped
