package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedEvent_MapRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	event := NewPostPublishedEvent("p1", "u1", at)

	values, err := event.ToMap()
	require.NoError(t, err)
	assert.Equal(t, EventPostPublished, values["type"])

	parsed, err := ParseFeedEvent(values)
	require.NoError(t, err)
	assert.Equal(t, event, parsed)
	assert.Equal(t, at.Unix(), parsed.Score())
}

func TestFeedEvent_ScoreFallsBackToTimestamp(t *testing.T) {
	event := NewPostDeletedEvent("p1", "u1")
	assert.Equal(t, event.Timestamp, event.Score())
}

func TestParseFeedEvent_Malformed(t *testing.T) {
	_, err := ParseFeedEvent(map[string]interface{}{"type": EventPostDeleted})
	assert.Error(t, err)

	_, err = ParseFeedEvent(map[string]interface{}{"data": "{not json"})
	assert.Error(t, err)
}
