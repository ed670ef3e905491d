package domain

// Identity is the resolved caller, produced by the auth middleware from a
// verified token. Domain operations only ever see this pair.
type Identity struct {
	ID          string
	AccountType string
}
