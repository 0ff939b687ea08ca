package member

import "errors"

var ErrNotFound = errors.New("member: not found")

// Member is a loyalty identity looked up by card number.
type Member struct {
	ID           string
	CardNo       string
	FirstName    string
	LastName     string
	PointBalance int64
}
