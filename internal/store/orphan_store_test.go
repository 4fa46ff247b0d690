package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrphanStoreRecordListDelete(t *testing.T) {
	s := NewOrphanStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "/media/properties/1_a.jpg", "upload aborted"))
	require.NoError(t, s.Record(ctx, "/media/properties/2_b.jpg", "write failed"))
	require.NoError(t, s.Record(ctx, "/media/properties/1_a.jpg", "write failed"))

	orphans, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orphans, 2)
	assert.Equal(t, "/media/properties/1_a.jpg", orphans[0].URL)
	assert.Equal(t, "write failed", orphans[0].Reason)

	require.NoError(t, s.Delete(ctx, "/media/properties/1_a.jpg"))
	orphans, err = s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "/media/properties/2_b.jpg", orphans[0].URL)
}

func TestOrphanStoreListLimit(t *testing.T) {
	s := NewOrphanStore(openTestDB(t))
	ctx := context.Background()

	for _, u := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, u, "r"))
	}
	orphans, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, orphans, 2)
}
