package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldAccountID = "account_id"
	FieldExpenseID = "expense_id"
	FieldContactID = "contact_id"
	FieldAmount    = "amount"
	FieldCurrency  = "currency"
	FieldSplitMode = "split_mode"
	FieldOperation = "operation"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldSuccess   = "success"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCommit  = "commit"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentKafka   = "kafka"
	ComponentCache   = "cache"
	ComponentWorker  = "worker"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpSave      = "save"
	OpRemove    = "remove"
	OpOpen      = "open"
	OpBalances  = "balances"
	OpAudit     = "audit"
	OpNotify    = "notify"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
	OpReconcile = "reconcile"
)
