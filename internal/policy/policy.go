// Package policy decides who may see images and profiles and who may comment.
// All inputs are explicit values; nothing here touches storage.
package policy

import "onebatch/internal/models"

// View selects how an image is being looked at.
type View int

const (
	// ViewGallery is a published listing or a visitor's direct link.
	ViewGallery View = iota
	// ViewManage is the owner's own management view.
	ViewManage
)

// Relation holds the follow-ledger facts between a viewer and an owner.
type Relation struct {
	ViewerFollowsOwner   bool
	OwnerFollowsViewer   bool
	ViewerBlockedByOwner bool
	OwnerBlockedByViewer bool
}

// Blocked reports whether a block exists in either direction.
func (r Relation) Blocked() bool {
	return r.ViewerBlockedByOwner || r.OwnerBlockedByViewer
}

// Follows reports whether a plain follow exists in either direction.
func (r Relation) Follows() bool {
	return r.ViewerFollowsOwner || r.OwnerFollowsViewer
}

// ProfileAccess is the outcome of CanViewProfile.
type ProfileAccess struct {
	Visible bool
}

func isOwner(viewer, owner *models.User) bool {
	return viewer != nil && owner != nil && viewer.Name == owner.Name
}

// CanSeeImage reports whether viewer may see img owned by owner. A nil viewer is anonymous.
func CanSeeImage(viewer, owner *models.User, img *models.Image, rel Relation, view View) bool {
	if owner == nil || img == nil {
		return false
	}
	if view == ViewManage && isOwner(viewer, owner) {
		return true
	}
	if rel.Blocked() {
		return false
	}
	if img.Hidden || !img.Published {
		return false
	}
	return owner.Posted != nil
}

// CanViewProfile hides a profile from viewers the owner has blocked.
func CanViewProfile(viewer, owner *models.User, rel Relation) ProfileAccess {
	if owner == nil {
		return ProfileAccess{}
	}
	if viewer != nil && !isOwner(viewer, owner) && rel.ViewerBlockedByOwner {
		return ProfileAccess{}
	}
	return ProfileAccess{Visible: true}
}

// CanComment allows the owner and anyone with a follow edge in either direction, unless blocked.
func CanComment(viewer, owner *models.User, rel Relation) bool {
	if viewer == nil || owner == nil {
		return false
	}
	if rel.Blocked() {
		return false
	}
	if isOwner(viewer, owner) {
		return true
	}
	return rel.Follows()
}

// FilterGallery keeps the images viewer may see in a published listing.
func FilterGallery(viewer, owner *models.User, images []models.Image, rel Relation) []models.Image {
	out := make([]models.Image, 0, len(images))
	for i := range images {
		if CanSeeImage(viewer, owner, &images[i], rel, ViewGallery) {
			out = append(out, images[i])
		}
	}
	return out
}
