package types

// ActivityDefinition is the declarative payload submitted by external
// callers to create an activity.
type ActivityDefinition struct {
	Name         string                 `json:"name" yaml:"name"`
	Creator      BusID                  `json:"creator" yaml:"creator"`
	Description  string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Requirements map[string]interface{} `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Trigger      *TriggerDef            `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Schedule     *ScheduleDef           `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Flags        FlagsDef               `json:"flags,omitempty" yaml:"flags,omitempty"`
	Callback     *CallbackDef           `json:"callback,omitempty" yaml:"callback,omitempty"`
}

// TriggerDef binds an activity to a provider update stream filtered through
// a where clause.
type TriggerDef struct {
	Method string                 `json:"method" yaml:"method"`
	Params map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
	Where  interface{}            `json:"where,omitempty" yaml:"where,omitempty"`
}

// ScheduleDef describes when an activity becomes eligible to run. Start is
// an absolute RFC 3339 moment; Relative is a duration from creation.
// Interval, if set, re-schedules the activity after each completion.
type ScheduleDef struct {
	Start    string `json:"start,omitempty" yaml:"start,omitempty"`
	Relative string `json:"relative,omitempty" yaml:"relative,omitempty"`
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// FlagsDef carries the activity behavior flags.
type FlagsDef struct {
	Immediate     bool `json:"immediate,omitempty" yaml:"immediate,omitempty"`
	UserInitiated bool `json:"userInitiated,omitempty" yaml:"userInitiated,omitempty"`
	Persistent    bool `json:"persistent,omitempty" yaml:"persistent,omitempty"`
	Explicit      bool `json:"explicit,omitempty" yaml:"explicit,omitempty"`
	Continuous    bool `json:"continuous,omitempty" yaml:"continuous,omitempty"`
}

// CallbackDef names the bus method invoked when the activity runs.
type CallbackDef struct {
	Method string                 `json:"method" yaml:"method"`
	Params map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
}

// Result is the envelope returned by every bus command.
type Result struct {
	OK        bool        `json:"ok"`
	ErrorCode ErrorCode   `json:"errorCode,omitempty"`
	ErrorText string      `json:"errorText,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// OKResult returns a success envelope with an optional payload.
func OKResult(payload interface{}) Result {
	return Result{OK: true, Payload: payload}
}

// ErrResult returns a failure envelope for err.
func ErrResult(err error) Result {
	return Result{OK: false, ErrorCode: CodeOf(err), ErrorText: err.Error()}
}
