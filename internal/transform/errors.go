package transform

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
)

// MismatchError reports a value that fits none of its schema's types.
type MismatchError struct {
	// Path locates the value, e.g. "participants[0].created_time".
	Path string

	// Want lists the types the schema allows.
	Want domain.SchemaType

	// Got describes the value found.
	Got string
}

func (e *MismatchError) Error() string {
	path := e.Path
	if path == "" {
		path = "<record>"
	}
	return fmt.Sprintf("schema mismatch at %s: want %s, got %s", path, strings.Join(e.Want, "|"), e.Got)
}

// Is matches domain.ErrSchemaMismatch.
func (e *MismatchError) Is(target error) bool {
	return target == domain.ErrSchemaMismatch
}
