package repository

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// The open-slot index is the DB-level backstop against concurrent duplicate
// subscriptions. Its WHERE clause contains a comma, which must be escaped in
// the tag or GORM truncates the clause and the migration emits invalid SQL.
func TestSubscriptionModel_OpenSlotIndex(t *testing.T) {
	s, err := schema.Parse(&SubscriptionModel{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	var idx *schema.Index
	for _, parsed := range s.ParseIndexes() {
		if parsed.Name == "ux_subscriptions_user_open" {
			idx = parsed
		}
	}
	require.NotNil(t, idx, "open-slot index not parsed from the model")

	assert.Equal(t, "UNIQUE", idx.Class)
	assert.Equal(t, "status IN ('pending','active')", idx.Where)
	require.Len(t, idx.Fields, 1)
	assert.Equal(t, "user_id", idx.Fields[0].DBName)
}
