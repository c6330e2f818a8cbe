package communication

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"project-comms/internal/models"
)

func TestInsertByIDDoesNotShareBackingArray(t *testing.T) {
	base := make([]models.Message, 1, 8)
	base[0] = models.Message{ID: "a"}

	first, ok := insertByID(base, models.Message{ID: "b"}, messageID, false)
	assert.True(t, ok)
	second, ok := insertByID(base, models.Message{ID: "c"}, messageID, false)
	assert.True(t, ok)

	assert.Equal(t, "b", first[1].ID)
	assert.Equal(t, "c", second[1].ID)
}

func TestInsertByIDPrependAndDuplicate(t *testing.T) {
	items := []models.Notification{{ID: "a"}}
	items, ok := insertByID(items, models.Notification{ID: "b"}, notificationID, true)
	assert.True(t, ok)
	assert.Equal(t, "b", items[0].ID)

	same, ok := insertByID(items, models.Notification{ID: "a"}, notificationID, true)
	assert.False(t, ok)
	assert.Len(t, same, 2)
}

func TestUpdateAndRemoveByIDCopy(t *testing.T) {
	items := []models.Message{{ID: "a", Content: "old"}, {ID: "b"}}

	updated, ok := updateByID(items, "a", messageID, func(m *models.Message) { m.Content = "new" })
	assert.True(t, ok)
	assert.Equal(t, "new", updated[0].Content)
	assert.Equal(t, "old", items[0].Content)

	removed, ok := removeByID(items, "a", messageID)
	assert.True(t, ok)
	assert.Len(t, removed, 1)
	assert.Len(t, items, 2)

	_, ok = removeByID(items, "zz", messageID)
	assert.False(t, ok)
}
