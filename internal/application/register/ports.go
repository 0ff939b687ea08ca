package register

import (
	"context"

	"github.com/Zhima-Mochi/coffee-register/internal/application/checkout"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/member"
)

type IDGenerator interface {
	NewID() string
}

// OrderCreator opens an empty IN_ORDER order upstream. An empty card number means no member.
type OrderCreator interface {
	Create(ctx context.Context, memberCardNo string) (int64, error)
}

type MemberFinder interface {
	FindByCardNo(ctx context.Context, cardNo string) (*member.Member, error)
}

type ProductFinder interface {
	Product(ctx context.Context, id int64) (*catalog.Product, error)
}

type Checkout interface {
	Execute(ctx context.Context, in checkout.Input) (*checkout.Result, error)
}
