package service

import (
	"context"
	"testing"

	"onebatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func followFixture() (*fixture, *FollowService, *models.User, *models.User) {
	alice := &models.User{ID: 1, Name: "alice"}
	bob := &models.User{ID: 2, Name: "bob"}
	f := newFixture()
	f.withUsers(alice, bob, &models.User{ID: 3, Name: "carol@example.com"})
	return f, NewFollowService(f.tx, f.repos()), alice, bob
}

func TestFollowService_Follow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, svc, alice, bob := followFixture()

	require.NoError(t, svc.Follow(ctx, alice, "Bob"))
	assert.True(t, f.follows.has(edge{"alice", "bob", false}))

	err := svc.Follow(ctx, alice, "bob")
	assert.True(t, models.IsCode(err, models.CodeConflict))

	err = svc.Follow(ctx, alice, "alice")
	assert.True(t, models.IsCode(err, models.CodeValidation))

	err = svc.Follow(ctx, alice, "nobody")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	err = svc.Follow(ctx, alice, "carol@example.com")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	rel, err := svc.Relation(ctx, bob, alice)
	require.NoError(t, err)
	assert.True(t, rel.OwnerFollowsViewer)
	assert.False(t, rel.ViewerFollowsOwner)
}

func TestFollowService_FollowBlocked(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, svc, alice, bob := followFixture()
	f.follows.edges = append(f.follows.edges, edge{"alice", "bob", true})

	err := svc.Follow(ctx, alice, "bob")
	assert.True(t, models.IsCode(err, models.CodeForbidden))
	err = svc.Follow(ctx, bob, "alice")
	assert.True(t, models.IsCode(err, models.CodeForbidden))
}

func TestFollowService_Unfollow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, svc, alice, _ := followFixture()

	err := svc.Unfollow(ctx, alice, "bob")
	assert.True(t, models.IsCode(err, models.CodeInvalidState))

	f.follows.edges = append(f.follows.edges, edge{"alice", "bob", false})
	require.NoError(t, svc.Unfollow(ctx, alice, "bob"))
	assert.Empty(t, f.follows.edges)
}

func TestFollowService_Block(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, svc, alice, bob := followFixture()
	f.withImages(&models.Image{ID: 7, UserID: "alice"}, &models.Image{ID: 8, UserID: "bob"})
	f.follows.edges = append(f.follows.edges, edge{"alice", "bob", false}, edge{"bob", "alice", false})

	var removedFor string
	f.comments.deleteByAuthorFn = func(_ context.Context, imageID uint, author string) (int64, error) {
		assert.Equal(t, uint(7), imageID)
		removedFor = author
		return 2, nil
	}

	imageID := uint(7)
	require.NoError(t, svc.Block(ctx, alice, "bob", &imageID))
	assert.Equal(t, []edge{{"bob", "alice", true}}, f.follows.edges)
	assert.Equal(t, "bob", removedFor)
	assert.Equal(t, 1, f.tx.calls)

	rel, err := svc.Relation(ctx, bob, alice)
	require.NoError(t, err)
	assert.True(t, rel.ViewerBlockedByOwner)
	assert.True(t, rel.Blocked())
	assert.False(t, rel.Follows())

	err = svc.Block(ctx, alice, "bob", nil)
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestFollowService_BlockRejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, svc, alice, _ := followFixture()
	f.withImages(&models.Image{ID: 8, UserID: "bob"})

	err := svc.Block(ctx, alice, "alice", nil)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	foreign := uint(8)
	err = svc.Block(ctx, alice, "bob", &foreign)
	assert.True(t, models.IsCode(err, models.CodeForbidden))
	assert.Empty(t, f.follows.edges)
	assert.Zero(t, f.tx.calls)
}

func TestFollowService_Unblock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, svc, alice, _ := followFixture()

	err := svc.Unblock(ctx, alice, "bob")
	assert.True(t, models.IsCode(err, models.CodeInvalidState))

	f.follows.edges = append(f.follows.edges, edge{"bob", "alice", true})
	require.NoError(t, svc.Unblock(ctx, alice, "bob"))
	assert.Empty(t, f.follows.edges)
}

func TestFollowService_RelationAnonymous(t *testing.T) {
	t.Parallel()
	_, svc, alice, _ := followFixture()
	rel, err := svc.Relation(context.Background(), nil, alice)
	require.NoError(t, err)
	assert.False(t, rel.Blocked())
	assert.False(t, rel.Follows())
}
