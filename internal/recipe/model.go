package recipe

import (
	"strconv"
	"strings"
)

// Recipe is a fully hydrated recipe record. Recipes are owned by the ingestion
// pipeline and read-only here.
type Recipe struct {
	URL            string         `json:"url" db:"url"`
	Title          string         `json:"title" db:"title"`
	Description    string         `json:"description" db:"description"`
	CookTime       string         `json:"cook_time" db:"cook_time"`
	Yields         string         `json:"yields" db:"yields"`
	WhyThisWorks   string         `json:"why_this_works" db:"why_this_works"`
	Headnote       string         `json:"headnote" db:"headnote"`
	Equipment      string         `json:"equipment" db:"equipment"`
	SourceDomain   string         `json:"source_domain" db:"source_domain"`
	ProcessedAt    string         `json:"processed_at" db:"processed_at"`
	Course         string         `json:"course" db:"course"`
	MainIngredient string         `json:"main_ingredient" db:"main_ingredient"`
	Ingredients    []Ingredient   `json:"ingredients"`
	Instructions   []Instruction  `json:"instructions"`
	Simplified     map[string]any `json:"simplified_data"`
}

// Ingredient is one ingredient line of a recipe.
type Ingredient struct {
	Ingredient string `json:"ingredient" db:"ingredient"`
	Normalized string `json:"normalized_ingredient" db:"normalized_ingredient"`
	Canonical  string `json:"canonical_ingredient" db:"canonical_ingredient"`
}

// Instruction is one step of a recipe. Step is the stored step label; Number
// is its numeric value, or -1 when the label is missing or not a number.
type Instruction struct {
	Step   string `json:"step_number"`
	Number int    `json:"-"`
	Text   string `json:"instruction"`
}

// ParseStep converts a stored step label into a sortable number.
func ParseStep(step string) int {
	n, err := strconv.Atoi(strings.TrimSpace(step))
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// less orders numbered steps ascending and puts unnumbered steps last.
func (i Instruction) less(o Instruction) bool {
	switch {
	case i.Number < 0:
		return false
	case o.Number < 0:
		return true
	default:
		return i.Number < o.Number
	}
}

// Candidate is a recipe that survived the candidate filter, with the number of
// user ingredients it contains verbatim.
type Candidate struct {
	URL          string `json:"url" db:"url"`
	MatchedCount int    `json:"matched_count" db:"matched_count"`
}

// TagCategory is one of the fixed tag groupings.
type TagCategory string

const (
	CategoryCourse         TagCategory = "course"
	CategoryMainIngredient TagCategory = "main_ingredient"
	CategoryDishType       TagCategory = "dish_type"
	CategoryRecipeType     TagCategory = "recipe_type"
	CategoryCuisine        TagCategory = "cuisine"
	CategoryHoliday        TagCategory = "holiday"
)

// Categories lists every tag category in display order.
var Categories = []TagCategory{
	CategoryCourse,
	CategoryMainIngredient,
	CategoryDishType,
	CategoryRecipeType,
	CategoryCuisine,
	CategoryHoliday,
}

// Valid reports whether c is a known category.
func (c TagCategory) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Tag is a (category, title) pair attached to a recipe.
type Tag struct {
	Category TagCategory `json:"category" db:"category"`
	Title    string      `json:"title" db:"title"`
}

// TagFilterMode says how included tag categories combine.
type TagFilterMode string

const (
	// MatchAll requires a match in every requested category.
	MatchAll TagFilterMode = "AND"
	// MatchAny requires a match in at least one requested category.
	MatchAny TagFilterMode = "OR"
)

// Valid reports whether m is a known mode. The empty mode is treated as MatchAny.
func (m TagFilterMode) Valid() bool {
	return m == "" || m == MatchAll || m == MatchAny
}

// KnownTags are the tag titles the recipe collection uses for each category.
// Titles are free text in the store; this list feeds pickers and validation hints.
var KnownTags = map[TagCategory][]string{
	CategoryCourse: {
		"Appetizers", "Desserts or Baked Goods", "Main Courses", "Side Dishes",
	},
	CategoryMainIngredient: {
		"Beans", "Beef", "Cheese", "Chicken", "Chocolate", "Duck", "Eggs", "Eggs & Dairy",
		"Fish & Seafood", "Fruit", "Fruits & Vegetables", "Game Birds", "Grains", "Lamb", "Meat",
		"Pasta", "Pasta, Grains, Rice & Beans", "Pork", "Potatoes", "Poultry", "Rice", "Turkey",
		"Vegetables",
	},
	CategoryDishType: {
		"Beverages", "Breads", "Breakfast & Brunch", "Brownies & Bars", "Cakes", "Candy",
		"Casseroles", "Condiments", "Cookies", "Dessert Pies", "Frozen Desserts", "Fruit Desserts",
		"Marinades", "Pizza", "Puddings, Custards, Gelatins, & Souffles", "Quick Breads", "Roasts",
		"Rubs", "Salads", "Sandwiches", "Sauces", "Savory Pies & Tarts", "Snacks", "Soups", "Stews",
		"Tarts",
	},
	CategoryRecipeType: {
		"Cast-Iron Skillet", "Dairy-Free", "For Two", "Gluten Free", "Grilling & Barbecue", "Light",
		"Make Ahead", "Pressure Cooker", "Quick", "Reduced Sugar", "Slow Cooker", "Vegan",
		"Vegetarian", "Weeknight",
	},
	CategoryCuisine: {
		"Africa & Middle-East", "African", "American", "Asia", "Asian", "California", "Caribbean",
		"Central & South American", "Chinese", "Creole & Cajun", "Eastern European & German",
		"Europe", "French", "Great Britain", "Greek", "Indian", "Indonesian", "Irish", "Italian",
		"Japanese", "Korean", "Latin America & Caribbean", "Mexican", "Mid-Atlantic",
		"Middle Eastern", "Midwest", "New England", "Pacific Northwest", "Southern",
		"Southwest (Tex-Mex)", "Spanish & Portuguese", "Thai", "US & Canada", "Vietnamese",
	},
	CategoryHoliday: {
		"4th of July", "Easter", "Hanukkah", "Holiday", "Passover", "Super Bowl", "Thanksgiving",
		"Valentines Day",
	},
}
