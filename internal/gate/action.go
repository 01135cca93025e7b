package gate

// Action describes the kind of operation a subject wants to perform.
type Action string

const (
	ActionView     Action = "view"
	ActionList     Action = "list"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionFinalize Action = "finalize"
	ActionCancel   Action = "cancel"
	ActionRecord   Action = "record"
	ActionReverse  Action = "reverse"
	ActionQuote    Action = "quote"
)
