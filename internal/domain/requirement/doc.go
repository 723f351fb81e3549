// Package requirement implements named boolean preconditions for
// activities.
//
// A Core is the provider-owned authoritative cell for one requirement name
// and comparison value: (name, currentValue, isMet). A Requirement is the
// per-activity binding onto a Core; the provider that owns the Core keeps a
// list of live bindings and broadcasts Met, Unmet, and Updated transitions
// to them in commit order. The Manager is the registry mapping requirement
// names to the providers that can instantiate them.
//
// All methods in this package must be invoked on the control-plane loop;
// see the eventloop package.
package requirement
