package statemachine

// Kind names a durable command type. Only two are ever appended to the
// log (spec §4.4); derived fields such as schema ids and version
// numbers are never part of a command — they are recomputed on replay.
type Kind string

const (
	KindRegisterSchema Kind = "RegisterSchema"
	KindSetConfig      Kind = "SetConfig"
)

// Command is the on-disk shape of a log record's payload. Scope is
// empty for the global configuration target and a subject name
// otherwise; it is only meaningful for KindSetConfig.
type Command struct {
	Kind          Kind   `json:"kind"`
	Subject       string `json:"subject,omitempty"`
	CanonicalText string `json:"canonical_text,omitempty"`
	Scope         string `json:"scope,omitempty"`
	Policy        string `json:"policy,omitempty"`
}
