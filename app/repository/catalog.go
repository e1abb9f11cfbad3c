package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
)

var ErrUnsupportedItemType = errors.New("unsupported item type")

// CatalogRepository reads lesson and course pricing owned by the content admin.
type CatalogRepository struct {
	db DBTX
}

func NewCatalogRepository(db DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) FindItem(ctx context.Context, itemType entity.ItemType, id uint64) (*entity.CatalogItem, error) {
	item := &entity.CatalogItem{Type: itemType}

	var err error
	switch itemType {
	case entity.ItemTypeLesson:
		err = r.db.QueryRowContext(ctx,
			`SELECT id, title, price, is_active FROM lessons WHERE id = ?`, id,
		).Scan(&item.ID, &item.Title, &item.Price, &item.Active)
	case entity.ItemTypeCourse:
		var discountPrice sql.NullInt64
		var totalPrice int64
		err = r.db.QueryRowContext(ctx,
			`SELECT id, title, total_price, discount_price, is_active FROM courses WHERE id = ?`, id,
		).Scan(&item.ID, &item.Title, &totalPrice, &discountPrice, &item.Active)
		item.Price = totalPrice
		if discountPrice.Valid && discountPrice.Int64 > 0 {
			item.Price = discountPrice.Int64
		}
	default:
		return nil, ErrUnsupportedItemType
	}

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}
