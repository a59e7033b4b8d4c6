package query

// Kind is the categorical code the intent parser assigns to a user turn.
// The codes match the module numbering the parser's instruction teaches
// the model: 1 is a financial-record lookup, 6 is anything else.
type Kind int

const (
	KindUnknown         Kind = 0
	KindFinancialLookup Kind = 1
	KindChitChat        Kind = 6
)

func (k Kind) Structured() bool {
	return k == KindFinancialLookup
}

func (k Kind) String() string {
	switch k {
	case KindFinancialLookup:
		return "financial_lookup"
	case KindChitChat:
		return "chit_chat"
	default:
		return "unknown"
	}
}

// Field names a monetary column of a sales record.
type Field string

const (
	FieldAmount      Field = "amount"
	FieldReceived    Field = "total_received"
	FieldRemaining   Field = "remaining_amount"
	defaultQueryField      = FieldAmount
)

func (f Field) Valid() bool {
	switch f {
	case FieldAmount, FieldReceived, FieldRemaining:
		return true
	}
	return false
}

// OrDefault resolves an unset or unrecognized field to the gross amount.
func (f Field) OrDefault() Field {
	if !f.Valid() {
		return defaultQueryField
	}
	return f
}

// Query is a structured extraction of user intent: what to look up and
// for whom. Immutable once produced by the parser.
type Query struct {
	Kind   Kind
	Entity string
	Field  Field
}

// Params renders the extracted parameters the way they are persisted
// alongside the triggering message.
func (q *Query) Params() map[string]string {
	return map[string]string{
		"entity": q.Entity,
		"field":  string(q.Field.OrDefault()),
	}
}
