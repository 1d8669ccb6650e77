package repository

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The column lists are shared constants spliced into several queries;
// the FROM clause must stay whitespace-separated from the last column.
func TestLookupQueriesAreWellFormed(t *testing.T) {
	separated := regexp.MustCompile(`updated_at\s+FROM`)

	assert.Regexp(t, separated, eventByIDQuery)
	assert.Regexp(t, separated, registrationByIDQuery)

	assert.Regexp(t, `SELECT\s`, eventByIDQuery)
	assert.Regexp(t, `SELECT\s`, registrationByIDQuery)
}
