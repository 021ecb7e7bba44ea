package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSort = errors.New("invalid sort")

const defaultSort = "createdAt.desc"

var sortColumns = map[string]string{
	"createdAt": "p.created_at",
	"price":     "p.price",
	"name":      "p.name",
	"rating":    "p.rating",
}

// orderBy turns a "column.direction" key into a SQL ORDER BY clause. Only
// keys from sortColumns are accepted.
func orderBy(sort string) (string, error) {
	if sort == "" {
		sort = defaultSort
	}

	key, dir, ok := strings.Cut(sort, ".")
	if !ok {
		dir = "asc"
	}

	col, ok := sortColumns[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown column %q", ErrInvalidSort, key)
	}

	switch dir {
	case "asc", "desc":
	default:
		return "", fmt.Errorf("%w: unknown direction %q", ErrInvalidSort, dir)
	}

	return fmt.Sprintf("ORDER BY %s %s, p.product_id ASC", col, strings.ToUpper(dir)), nil
}
