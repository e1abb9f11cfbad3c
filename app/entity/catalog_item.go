package entity

type CatalogItem struct {
	ID     uint64
	Type   ItemType
	Title  string
	Price  int64
	Active bool
}
