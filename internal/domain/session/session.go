package session

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/coffee-register/internal/domain/cart"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/member"
)

var (
	ErrNotFound = errors.New("session: not found")
	ErrConflict = errors.New("session: already exists")
)

// Failure records a checkout that aborted after reaching the upstream order.
// The remote order may hold added items or be confirmed but unpaid.
type Failure struct {
	OrderID    int64
	Step       string
	Reason     string
	OccurredAt time.Time
}

// Session is the state of one register till: the open order, the cart and the attached member.
type Session struct {
	ID           string
	OrderID      *int64
	Cart         *cart.Cart
	Member       *member.Member
	InCheckout   bool
	Unreconciled *Failure
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Cart:      cart.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StartOrder attaches a fresh upstream order and clears the cart, member and any recorded failure.
func (s *Session) StartOrder(orderID int64) {
	s.OrderID = &orderID
	s.Cart = cart.New()
	s.Member = nil
	s.Unreconciled = nil
	s.Touch()
}

// DropOrder forgets the open order, e.g. when a replacement order could not be created.
func (s *Session) DropOrder() {
	s.OrderID = nil
	s.Cart = cart.New()
	s.Member = nil
	s.Touch()
}

func (s *Session) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	if s.OrderID != nil {
		id := *s.OrderID
		clone.OrderID = &id
	}
	if s.Cart != nil {
		clone.Cart = s.Cart.Clone()
	} else {
		clone.Cart = cart.New()
	}
	if s.Member != nil {
		m := *s.Member
		clone.Member = &m
	}
	if s.Unreconciled != nil {
		f := *s.Unreconciled
		clone.Unreconciled = &f
	}
	return &clone
}

type Repository interface {
	Insert(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
}
