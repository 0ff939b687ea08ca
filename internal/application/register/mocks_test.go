package register

import (
	"context"
	"fmt"
	"sync"

	"github.com/Zhima-Mochi/coffee-register/internal/application/checkout"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/member"
	domoutbox "github.com/Zhima-Mochi/coffee-register/internal/domain/outbox"
)

// MockOrderCreator hands out sequential order ids starting at 1000.
type MockOrderCreator struct {
	mu     sync.Mutex
	next   int64
	FailAt int // 1-based call that fails; 0 means never
	Err    error
	Calls  int
}

func (m *MockOrderCreator) Create(_ context.Context, _ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.FailAt != 0 && m.Calls == m.FailAt {
		return 0, m.Err
	}
	if m.next == 0 {
		m.next = 1000
	}
	id := m.next
	m.next++
	return id, nil
}

type MockMemberFinder struct {
	Members map[string]*member.Member
	Err     error
}

func (m *MockMemberFinder) FindByCardNo(_ context.Context, cardNo string) (*member.Member, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	mem, ok := m.Members[cardNo]
	if !ok {
		return nil, member.ErrNotFound
	}
	return mem, nil
}

type MockProductFinder struct {
	Products map[int64]catalog.Product
}

func (m *MockProductFinder) Product(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := m.Products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

// MockCheckout records the input and returns the configured result. Block, when set, is closed
// by the test to let a running checkout finish.
type MockCheckout struct {
	Result  *checkout.Result
	Err     error
	Block   chan struct{}
	Started chan struct{}
	Panic   any
	Inputs  []checkout.Input
}

func (m *MockCheckout) Execute(_ context.Context, in checkout.Input) (*checkout.Result, error) {
	m.Inputs = append(m.Inputs, in)
	if m.Started != nil {
		close(m.Started)
	}
	if m.Block != nil {
		<-m.Block
	}
	if m.Panic != nil {
		panic(m.Panic)
	}
	res := m.Result
	if res == nil {
		res = &checkout.Result{}
	}
	if in.OrderID != nil {
		res.OrderID = *in.OrderID
	}
	return res, m.Err
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []domoutbox.Event
	Err    error
}

func (m *MockPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, e)
	return nil
}

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("session-%d", s.n)
}
