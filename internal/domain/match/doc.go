// Package match compiles and evaluates declarative where clauses over
// JSON-shaped payloads.
//
// A clause is one of:
//   - {"and": clauses}: conjunction
//   - {"or": clauses}: disjunction
//   - {"prop": key, "op": op, "val": value}: comparison
//
// where clauses is a single clause or an array of clauses, key is a property
// name or an array of property names descending into the payload, and op is
// one of <, <=, =, !=, >=, > and where. The where op evaluates val as a
// nested clause against the matched subtree.
//
// Evaluation is tri-valued: Matched, NotMatched, or NoProperty when the
// referenced property does not exist. Descending into an array fans the
// check out over the elements: all must hold in and-mode, at least one in
// or-mode, recursively.
package match
