package core

// Category is a key of the fixed category registry.
type Category string

const (
	CategoryAll           Category = "all" // wildcard, never stored on a transaction
	CategoryFood          Category = "food"
	CategoryTravel        Category = "travel"
	CategoryShopping      Category = "shopping"
	CategoryEntertainment Category = "entertainment"
	CategoryHealth        Category = "health"
	CategoryEducation     Category = "education"
	CategoryBills         Category = "bills"
	CategoryOther         Category = "other"
)

// DefaultCategory is used when a new transaction names no category.
const DefaultCategory = CategoryFood

// CategoryMeta is the display metadata for one category.
type CategoryMeta struct {
	Key  Category `json:"key"`
	Name string   `json:"name"`
	Tag  string   `json:"tag"`
	Icon string   `json:"icon"`
}

var (
	allMeta = CategoryMeta{Key: CategoryAll, Name: "Tất cả", Tag: "text-slate-400", Icon: "layout-grid"}

	// registry is ordered; Categories relies on it.
	registry = []CategoryMeta{
		{Key: CategoryFood, Name: "Ăn uống", Tag: "text-orange-400", Icon: "utensils"},
		{Key: CategoryTravel, Name: "Đi lại", Tag: "text-blue-400", Icon: "car"},
		{Key: CategoryShopping, Name: "Mua sắm", Tag: "text-pink-400", Icon: "shopping-bag"},
		{Key: CategoryEntertainment, Name: "Giải trí", Tag: "text-purple-400", Icon: "gamepad-2"},
		{Key: CategoryHealth, Name: "Sức khỏe", Tag: "text-red-400", Icon: "heart-pulse"},
		{Key: CategoryEducation, Name: "Giáo dục", Tag: "text-emerald-400", Icon: "graduation-cap"},
		{Key: CategoryBills, Name: "Hóa đơn", Tag: "text-yellow-400", Icon: "receipt"},
		{Key: CategoryOther, Name: "Khác", Tag: "text-slate-400", Icon: "package"},
	}

	byKey = func() map[Category]CategoryMeta {
		m := make(map[Category]CategoryMeta, len(registry)+1)
		for _, c := range registry {
			m[c.Key] = c
		}
		m[CategoryAll] = allMeta
		return m
	}()
)

// Resolve returns the metadata for key. Unknown or empty keys resolve to "other".
func Resolve(key string) CategoryMeta {
	if meta, ok := byKey[Category(key)]; ok {
		return meta
	}
	return byKey[CategoryOther]
}

// Categories lists the selectable categories in display order, without the "all" wildcard.
func Categories() []CategoryMeta {
	out := make([]CategoryMeta, len(registry))
	copy(out, registry)
	return out
}

// CategoryKeys returns the keys of Categories as strings, ready for GroupByCategory.
func CategoryKeys() []string {
	keys := make([]string, len(registry))
	for i, c := range registry {
		keys[i] = string(c.Key)
	}
	return keys
}

// IsWildcard reports whether key selects every category.
func IsWildcard(key string) bool {
	return key == "" || Category(key) == CategoryAll
}

// IsKnown reports whether key names a selectable category.
func IsKnown(key string) bool {
	_, ok := byKey[Category(key)]
	return ok && Category(key) != CategoryAll
}
