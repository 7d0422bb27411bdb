package workflow

import (
	"testing"
	"time"

	"onebatch/internal/models"

	"github.com/stretchr/testify/assert"
)

func at(t time.Time) *time.Time { return &t }

func TestStateOf(t *testing.T) {
	t.Parallel()
	now := time.Now()

	assert.Equal(t, Picking, StateOf(&models.User{}))
	assert.Equal(t, Published, StateOf(&models.User{Posted: at(now)}))
	assert.Equal(t, Republishable, StateOf(&models.User{Posted: at(now), Republish: true}))
	assert.Equal(t, "republishable", Republishable.String())
}

func TestCheckPick(t *testing.T) {
	t.Parallel()
	now := time.Now()
	own := &models.Image{UserID: "ana"}
	other := &models.Image{UserID: "bo"}

	assert.NoError(t, CheckPick(&models.User{Name: "ana"}, own))
	assert.NoError(t, CheckPick(&models.User{Name: "ana", Posted: at(now), Republish: true}, own))

	err := CheckPick(&models.User{Name: "ana", Posted: at(now)}, own)
	assert.True(t, models.IsCode(err, models.CodeInvalidState))
	assert.EqualError(t, err, MsgAlreadyPosted)

	err = CheckPick(&models.User{Name: "ana"}, other)
	assert.True(t, models.IsCode(err, models.CodeForbidden))
}

func TestCheckPublish(t *testing.T) {
	t.Parallel()
	picking := &models.User{Name: "ana"}

	tests := []struct {
		name     string
		user     *models.User
		pickable int64
		wantMsg  string
	}{
		{"zero picked", picking, 0, MsgNoPicked},
		{"one picked", picking, 1, ""},
		{"eight picked", picking, MaxPicked, ""},
		{"nine picked", picking, MaxPicked + 1, MsgTooManyPicked},
		{"already posted", &models.User{Posted: at(time.Now())}, 3, MsgAlreadyPosted},
		{"republish allowed", &models.User{Posted: at(time.Now()), Republish: true}, 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPublish(tt.user, tt.pickable)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, models.IsCode(err, models.CodeInvalidState))
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestCheckUnpublish(t *testing.T) {
	t.Parallel()
	published := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u := &models.User{Name: "ana", Posted: at(published)}

	assert.NoError(t, CheckUnpublish(u, published.Add(59*time.Minute+59*time.Second)))
	assert.NoError(t, CheckUnpublish(u, published.Add(UnpublishWindow)), "exactly at the window edge")

	err := CheckUnpublish(u, published.Add(60*time.Minute+time.Second))
	assert.EqualError(t, err, MsgWindowExpired)

	err = CheckUnpublish(&models.User{Name: "ana"}, published)
	assert.EqualError(t, err, MsgNotPosted)
}

func TestNeedsRepublish(t *testing.T) {
	t.Parallel()
	now := time.Now()

	assert.False(t, NeedsRepublish(&models.User{}, now))
	assert.False(t, NeedsRepublish(&models.User{Posted: at(now.Add(-RepublishAfter + time.Hour))}, now))
	assert.True(t, NeedsRepublish(&models.User{Posted: at(now.Add(-RepublishAfter - time.Hour))}, now))
	assert.False(t, NeedsRepublish(&models.User{Posted: at(now.Add(-RepublishAfter - time.Hour)), Republish: true}, now))
}

func TestIsFinal(t *testing.T) {
	t.Parallel()
	now := time.Now()
	assert.False(t, IsFinal(nil, now))
	assert.False(t, IsFinal(at(now.Add(-30*time.Minute)), now))
	assert.True(t, IsFinal(at(now.Add(-2*time.Hour)), now))
}

func TestSplitOwn(t *testing.T) {
	t.Parallel()
	images := []models.Image{
		{ID: 1},
		{ID: 2, Picked: true},
		{ID: 3, Published: true, Picked: true},
		{ID: 4},
		{ID: 5, Picked: true},
	}

	published, saved := SplitOwn(&models.User{}, images)
	assert.Len(t, published, 1)
	ids := make([]uint, 0, len(saved))
	for _, img := range saved {
		ids = append(ids, img.ID)
	}
	assert.Equal(t, []uint{2, 5, 1, 4}, ids)

	published, saved = SplitOwn(&models.User{Posted: at(time.Now())}, images)
	assert.Len(t, published, 1)
	assert.Empty(t, saved, "saved is cleared while the batch is live")

	_, saved = SplitOwn(&models.User{Posted: at(time.Now()), Republish: true}, images)
	assert.Len(t, saved, 4)
}
