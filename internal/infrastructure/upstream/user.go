package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Zhima-Mochi/coffee-register/internal/domain/member"
)

const peerUser = "user-service"

type UserClient struct {
	c *Client
}

func NewUserClient(c *Client) *UserClient { return &UserClient{c: c} }

type userDTO struct {
	UserID       int64  `json:"userId"`
	LastName     string `json:"lastName"`
	FirstName    string `json:"firstName"`
	CardNo       string `json:"cardNo"`
	Email        string `json:"email"`
	PointBalance int64  `json:"pointBalance"`
	IsDeleted    bool   `json:"isDeleted"`
}

type userResponse struct {
	User *userDTO `json:"user"`
}

// FindByCardNo returns member.ErrNotFound for unknown or deleted cards.
func (u *UserClient) FindByCardNo(ctx context.Context, cardNo string) (*member.Member, error) {
	var out userResponse
	err := u.c.do(ctx, call{
		peer:     peerUser,
		endpoint: "GET /api/v1/users/{cardNo}",
		method:   http.MethodGet,
		path:     "/api/v1/users/" + url.PathEscape(cardNo),
		out:      &out,
	})
	if IsStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("%w: %s", member.ErrNotFound, cardNo)
	}
	if err != nil {
		return nil, err
	}
	if out.User == nil || out.User.IsDeleted {
		return nil, fmt.Errorf("%w: %s", member.ErrNotFound, cardNo)
	}
	return &member.Member{
		ID:           strconv.FormatInt(out.User.UserID, 10),
		CardNo:       out.User.CardNo,
		FirstName:    out.User.FirstName,
		LastName:     out.User.LastName,
		PointBalance: out.User.PointBalance,
	}, nil
}
