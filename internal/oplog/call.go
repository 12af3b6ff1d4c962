package oplog

// Operation names as recorded in the op column.
const (
	OpInit     = "init"
	OpShutdown = "shutdown"
	OpMake     = "make"
	OpMod      = "mod"
	OpBind     = "bind"
	OpRemove   = "remove"
	OpGetType  = "get_type"
	OpGetValue = "get_value"
)

// Call is one recorded boundary call. Request fields identify the call
// (they feed the digest); Status and Output record its outcome. Fields
// an operation does not use stay at their zero values.
type Call struct {
	ID      string
	Session string
	Seq     int64
	Op      string
	Name    string
	Access  string
	TypeTag string
	Literal string

	// Capacity is the call's numeric argument: the caller buffer size
	// for get_value, the ledger cap for init (0 = unlimited).
	Capacity int64

	Status int64
	Output string
}
