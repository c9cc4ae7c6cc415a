package rules

// builtinCategories assembles the full built-in taxonomy in declaration
// order: the SQL-injection and XSS tables first (they back the specialized
// detectors), then the general catalogue.
func builtinCategories() []Category {
	out := make([]Category, 0, 2+len(generalCategories()))
	out = append(out, sqlInjectionCategory(), xssCategory())
	out = append(out, generalCategories()...)
	return out
}

// CategorySQLInjection and CategoryXSS name the two specialized tables.
const (
	CategorySQLInjection = "sql_injection"
	CategoryXSS          = "xss"
)

// GeneralCategoryNames lists the general catalogue in declaration order.
func GeneralCategoryNames() []string {
	cats := generalCategories()
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names
}
