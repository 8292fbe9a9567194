package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncidentLogAppendAndList(t *testing.T) {
	ctx := context.Background()
	logDB, err := OpenIncidentLog(":memory:")
	require.NoError(t, err)
	defer logDB.Close()

	before := testGameState("t1")
	after := before.Clone()
	after.Round = 9

	inc, err := logDB.Record(ctx, "t1", "phase-transition", "p1", "betting -> finished", before, after)
	require.NoError(t, err)
	assert.NotEmpty(t, inc.ID)

	_, err = logDB.Record(ctx, "t2", "deck-conservation", "", "deck grew", before, after)
	require.NoError(t, err)

	incidents, err := logDB.ListByGame(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "phase-transition", incidents[0].ViolatedRule)
	assert.Equal(t, "p1", incidents[0].PlayerID)
	assert.JSONEq(t, string(inc.Before), string(incidents[0].Before))

	count, err := logDB.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIncidentLogEmptyGame(t *testing.T) {
	ctx := context.Background()
	logDB, err := OpenIncidentLog(":memory:")
	require.NoError(t, err)
	defer logDB.Close()

	incidents, err := logDB.ListByGame(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, incidents)
}
