package classify

import "github.com/mrcode/glucose-insights/internal/models"

// Rule maps a list of keywords to a category
type Rule struct {
	Category models.Category
	Keywords []string
}

// DefaultRules is the primary keyword table, checked high before medium before low.
// Some foods (mango, pineapple) appear in more than one list; the earlier list wins.
var DefaultRules = []Rule{
	{
		Category: models.CategoryHigh,
		Keywords: []string{
			"white rice", "bread", "potato", "cereal", "sugar", "candy", "soda", "juice",
			"cake", "cookie", "donut", "bagel", "crackers", "chips", "corn flakes",
			"white pasta", "white flour", "honey", "maple syrup", "jam", "jelly",
			"watermelon", "pineapple", "mango", "pretzels", "rice cake", "popcorn",
			"waffle", "pancake", "biscuit", "croissant", "cornbread", "muffin",
			"instant rice", "instant oats", "instant potato", "doughnut",
		},
	},
	{
		Category: models.CategoryMedium,
		Keywords: []string{
			"apple", "orange", "banana", "grape", "kiwi", "pear", "peach", "plum",
			"mango", "pineapple", "oatmeal", "sweet potato", "corn", "whole grain",
			"brown rice", "wild rice", "quinoa", "whole wheat pasta", "whole wheat bread",
			"pita", "tortilla", "basmati rice", "jasmine rice", "rice noodle",
			"yogurt", "ice cream", "milk", "cottage cheese", "baked beans",
			"hummus", "chickpea", "lentil", "black bean", "kidney bean",
			"rye bread", "pumpernickel", "couscous", "bulgur", "muesli",
		},
	},
	{
		Category: models.CategoryLow,
		Keywords: []string{
			"broccoli", "vegetable", "salad", "spinach", "kale", "cabbage", "cauliflower",
			"asparagus", "brussels sprout", "cucumber", "celery", "lettuce", "zucchini",
			"bell pepper", "eggplant", "tomato", "carrot", "onion", "garlic",
			"nuts", "almond", "walnut", "pecan", "cashew", "peanut", "seeds",
			"meat", "beef", "chicken", "turkey", "pork", "lamb", "fish", "salmon",
			"tuna", "shrimp", "egg", "avocado", "olive oil", "coconut oil", "butter",
			"cheese", "greek yogurt", "tofu", "tempeh", "seitan", "shellfish",
			"artichoke", "mushroom", "radish", "green bean", "okra", "sprouts",
		},
	},
}

// Term is one entry of the secondary substring map
type Term struct {
	Keyword  string
	Category models.Category
}

// DefaultSecondaryTerms is the broader substring map applied to foods the primary table left unknown.
// First matching term wins.
var DefaultSecondaryTerms = []Term{
	{"rice", models.CategoryHigh},
	{"bread", models.CategoryHigh},
	{"pasta", models.CategoryHigh},
	{"cereal", models.CategoryHigh},
	{"cookie", models.CategoryHigh},
	{"cake", models.CategoryHigh},
	{"smoothie", models.CategoryHigh},
	{"juice", models.CategoryHigh},
	{"soda", models.CategoryHigh},
	{"popcorn", models.CategoryHigh},
	{"frosted", models.CategoryHigh},
	{"sugar", models.CategoryHigh},
	{"honey", models.CategoryHigh},
	{"maple", models.CategoryHigh},
	{"bagel", models.CategoryHigh},
	{"candy", models.CategoryHigh},
	{"chocolate", models.CategoryHigh},
	{"ice cream", models.CategoryHigh},

	{"apple", models.CategoryMedium},
	{"banana", models.CategoryMedium},
	{"oatmeal", models.CategoryMedium},
	{"yogurt", models.CategoryMedium},
	{"milk", models.CategoryMedium},
	{"orange", models.CategoryMedium},
	{"pear", models.CategoryMedium},
	{"sweet potato", models.CategoryMedium},
	{"beans", models.CategoryMedium},
	{"fruit", models.CategoryMedium},
	{"trail mix", models.CategoryMedium},

	{"broccoli", models.CategoryLow},
	{"spinach", models.CategoryLow},
	{"salad", models.CategoryLow},
	{"vegetable", models.CategoryLow},
	{"asparagus", models.CategoryLow},
	{"egg", models.CategoryLow},
	{"meat", models.CategoryLow},
	{"chicken", models.CategoryLow},
	{"beef", models.CategoryLow},
	{"fish", models.CategoryLow},
	{"shrimp", models.CategoryLow},
	{"seafood", models.CategoryLow},
	{"cheese", models.CategoryLow},
	{"cabbage", models.CategoryLow},
	{"nuts", models.CategoryLow},
}
