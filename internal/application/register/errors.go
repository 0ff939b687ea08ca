package register

import (
	"errors"

	"github.com/Zhima-Mochi/coffee-register/internal/domain/cart"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/member"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/session"
)

var (
	ErrSessionNotFound    = session.ErrNotFound
	ErrProductNotFound    = catalog.ErrNotFound
	ErrMemberNotFound     = member.ErrNotFound
	ErrLineNotFound       = cart.ErrLineNotFound
	ErrCheckoutInProgress = errors.New("register: checkout already in progress")
	ErrOrderUnreconciled  = errors.New("register: previous checkout left the order in an unknown state; reset the order first")
	ErrOrderCreateFailed  = errors.New("register: create order failed")
	ErrInvalidProduct     = errors.New("register: product id must be positive")
	ErrInvalidCardNo      = errors.New("register: card number is required")
	ErrCheckoutPanicked   = errors.New("register: checkout aborted unexpectedly; reset the order first")
)
