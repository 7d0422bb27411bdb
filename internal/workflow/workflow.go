// Package workflow holds the publish-cycle rules: when a user may pick,
// publish, unpublish, or re-enter picking after an old batch.
package workflow

import (
	"sort"
	"time"

	"onebatch/internal/models"
)

const (
	// MaxPicked is the largest batch that can be published.
	MaxPicked = 8
	// UnpublishWindow is how long after publishing a batch may be withdrawn.
	UnpublishWindow = 60 * time.Minute
	// RepublishAfter is the batch age after which picking reopens.
	RepublishAfter = 180 * 24 * time.Hour
)

// User-facing rejection messages.
const (
	MsgAlreadyPosted  = "you already posted"
	MsgNotYourImage   = "that isn't your image"
	MsgNoPicked       = "you have no picked images"
	MsgTooManyPicked  = "you have too many picked images"
	MsgNotPosted      = "you have not posted"
	MsgWindowExpired  = "too much time has passed. you can remove images but not re-publish"
	MsgChooseUsername = "choose a username"
)

// Clock returns the current time.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// State is a user's position in the publish cycle.
type State int

const (
	Picking State = iota
	Published
	Republishable
)

func (s State) String() string {
	switch s {
	case Picking:
		return "picking"
	case Published:
		return "published"
	case Republishable:
		return "republishable"
	default:
		return "unknown"
	}
}

// StateOf derives the cycle state from the user record.
func StateOf(u *models.User) State {
	switch {
	case u.Posted == nil:
		return Picking
	case u.Republish:
		return Republishable
	default:
		return Published
	}
}

// PickingOpen reports whether the user may change picks or publish.
func PickingOpen(u *models.User) bool {
	return StateOf(u) != Published
}

// CheckPick validates a pick toggle by actor on img.
func CheckPick(actor *models.User, img *models.Image) error {
	if !PickingOpen(actor) {
		return models.NewInvalidStateError(MsgAlreadyPosted)
	}
	if img.UserID != actor.Name {
		return models.NewForbiddenError(MsgNotYourImage)
	}
	return nil
}

// CheckPublish validates publishing a batch of pickable images.
func CheckPublish(actor *models.User, pickable int64) error {
	if !PickingOpen(actor) {
		return models.NewInvalidStateError(MsgAlreadyPosted)
	}
	if pickable == 0 {
		return models.NewInvalidStateError(MsgNoPicked)
	}
	if pickable > MaxPicked {
		return models.NewInvalidStateError(MsgTooManyPicked)
	}
	return nil
}

// CheckUnpublish validates withdrawing the current batch at now.
// A batch exactly UnpublishWindow old can still be withdrawn.
func CheckUnpublish(actor *models.User, now time.Time) error {
	if actor.Posted == nil {
		return models.NewInvalidStateError(MsgNotPosted)
	}
	if now.Sub(*actor.Posted) > UnpublishWindow {
		return models.NewInvalidStateError(MsgWindowExpired)
	}
	return nil
}

// NeedsRepublish reports whether picking should reopen for u at now.
func NeedsRepublish(u *models.User, now time.Time) bool {
	return u.Posted != nil && !u.Republish && now.Sub(*u.Posted) > RepublishAfter
}

// IsFinal reports whether a batch published at posted can no longer be withdrawn.
func IsFinal(posted *time.Time, now time.Time) bool {
	return posted != nil && now.Sub(*posted) > UnpublishWindow
}

// SplitOwn separates the owner's images into the published gallery and the
// saved (unpublished) set. Saved is empty while the cycle is locked and is
// ordered with picked images first, otherwise keeping input order.
func SplitOwn(u *models.User, images []models.Image) (published, saved []models.Image) {
	published = make([]models.Image, 0, len(images))
	saved = make([]models.Image, 0, len(images))
	for _, img := range images {
		if img.Published {
			published = append(published, img)
		} else {
			saved = append(saved, img)
		}
	}
	if !PickingOpen(u) {
		saved = saved[:0]
	}
	SortPickedFirst(saved)
	return published, saved
}

// SortPickedFirst orders picked images before unpicked ones, stably.
func SortPickedFirst(images []models.Image) {
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].Picked && !images[j].Picked
	})
}
