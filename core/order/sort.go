package order

import (
	"fmt"
	"strings"
)

const defaultSort = "createdAt.desc"

var sortColumns = map[string]string{
	"id":        "order_id",
	"createdAt": "created_at",
	"amount":    "amount",
	"quantity":  "quantity",
	"name":      "name",
	"email":     "email",
	"status":    "status",
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

	return fmt.Sprintf("ORDER BY %s %s, order_id ASC", col, strings.ToUpper(dir)), nil
}
