package mockbackend

import (
	"github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/member"
	"github.com/shopspring/decimal"
)

const (
	firstOrderID  = 1000
	initialStock  = 100
	categoryDrink = 1
	categoryFood  = 2
	categorySweet = 3
)

func fixtureCategories() []catalog.Category {
	return []catalog.Category{
		{ID: categoryDrink, Name: "Drinks", DisplayOrder: 1},
		{ID: categoryFood, Name: "Food", DisplayOrder: 2},
		{ID: categorySweet, Name: "Desserts", DisplayOrder: 3},
	}
}

func fixtureProducts() []catalog.Product {
	p := func(id int64, name string, price int64, categoryID int64, categoryName string) catalog.Product {
		return catalog.Product{
			ID:           id,
			Name:         name,
			Price:        decimal.NewFromInt(price),
			CategoryID:   categoryID,
			CategoryName: categoryName,
			Active:       true,
		}
	}
	latteL := p(4, "Cafe latte (L)", 700, categoryDrink, "Drinks")
	latteL.IsCampaign = true
	latteL.CampaignDiscountPercent = decimal.NewFromInt(14)

	return []catalog.Product{
		p(1, "Hot coffee (M)", 300, categoryDrink, "Drinks"),
		p(2, "Hot coffee (L)", 500, categoryDrink, "Drinks"),
		p(3, "Cafe latte (M)", 500, categoryDrink, "Drinks"),
		latteL,
		p(5, "Iced coffee (M)", 350, categoryDrink, "Drinks"),
		p(6, "Iced coffee (L)", 550, categoryDrink, "Drinks"),
		p(7, "Sandwich", 450, categoryFood, "Food"),
		p(8, "Bagel", 350, categoryFood, "Food"),
		p(9, "Croissant", 300, categoryFood, "Food"),
		p(10, "Cheesecake", 500, categorySweet, "Desserts"),
		p(11, "Chocolate cake", 550, categorySweet, "Desserts"),
		p(12, "Apple pie", 450, categorySweet, "Desserts"),
	}
}

func fixtureMembers() []member.Member {
	return []member.Member{
		{ID: "1", CardNo: "1234567890", FirstName: "Taro", LastName: "Yamada", PointBalance: 1500},
		{ID: "2", CardNo: "0987654321", FirstName: "Hanako", LastName: "Sato", PointBalance: 2300},
		{ID: "3", CardNo: "1111111111", FirstName: "Jiro", LastName: "Suzuki", PointBalance: 500},
	}
}
