package verification

// Kind classifies a verification failure so the HTTP boundary can map it
// to a status code without string matching.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindNotFound
	KindInvalidCode
	KindExpired
	KindSessionExpired
	KindRateLimited
	KindDelivery
	KindMismatch
)

// Error is a user-correctable verification failure. Collaborator faults
// (db errors, hash failures) are returned as plain errors instead and map
// to a generic internal error at the boundary.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func failure(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}
