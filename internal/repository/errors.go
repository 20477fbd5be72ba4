package repository

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-kivik/kivik/v4"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// queryLimit lifts Mango's default page size of 25; listings are not paginated.
const queryLimit = 10000

// translate maps kivik status errors onto the package sentinels so callers can
// tell "no row" apart from "query failed".
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	switch kivik.HTTPStatus(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func docID(prefix, id string) string {
	return prefix + ":" + id
}

// kindRange selects every document id under prefix.
func kindRange(prefix string) map[string]interface{} {
	return map[string]interface{}{
		"$gt": prefix + ":",
		"$lt": prefix + ":\ufff0",
	}
}
