package events_test

import (
	"testing"
	"time"

	"github.com/Marwan-Gama/Storify-sub001/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestShareAccessEvent(t *testing.T) {
	input := events.ShareAccessEvent{
		Event: events.Event{
			ID:      uuid.NewString(),
			Version: 1,
		},
		ShareID:    "share-1",
		ItemID:     "item-1",
		ItemType:   "file",
		UserID:     "user-1",
		Permission: "view",
		Public:     true,
		AccessTime: time.Now().Unix(),
	}

	data, err := input.Marshal()
	assert.Nil(t, err)

	output := events.ShareAccessEvent{}
	err = output.Unmarshal(data)
	assert.Nil(t, err)

	assert.Equal(t, input, output)
}

func TestShareChangedEvent(t *testing.T) {
	input := events.ShareChangedEvent{
		Event: events.Event{
			ID:      uuid.NewString(),
			Version: 1,
		},
		ShareID:   "share-2",
		Owner:     "user-2",
		Operation: "DELETE",
	}

	data, err := input.Marshal()
	assert.Nil(t, err)

	output := events.ShareChangedEvent{}
	err = output.Unmarshal(data)
	assert.Nil(t, err)

	assert.Equal(t, input, output)
}
