package core

import "strings"

// DBOrdering is one `ORDER BY` term. Repositories only honor the fields they allow.
type DBOrdering struct {
	Field     string
	Ascending bool
}

// ParseOrdering reads a comma separated list of fields, "-" prefixed for descending: "email,-date_joined".
func ParseOrdering(val string) []DBOrdering {
	var ordering []DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		ord := DBOrdering{Field: strings.TrimPrefix(field, "-"), Ascending: !strings.HasPrefix(field, "-")}
		if ord.Field != "" {
			ordering = append(ordering, ord)
		}
	}
	return ordering
}

func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field + " ASC"
	}
	return ord.Field + " DESC"
}
