// Package types provides shared data structures for the activity manager.
//
// This package defines core types used across all components, keeping the
// domain packages free of cross-imports.
//
// Core Types:
//   - BusID: Caller identity on the message bus (named or anonymous)
//   - ActivityDefinition: Declarative description of a unit of work
//   - TriggerDef, ScheduleDef, FlagsDef, CallbackDef: Definition fragments
//   - Result: Standard command result envelope
//
// Error Handling:
//   - ErrorCode: Stable error codes surfaced to bus callers
//   - Error: Structured error carrying a code and description
package types
