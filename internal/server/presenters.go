package server

import (
	"time"

	"onebatch/internal/media"
	"onebatch/internal/models"
	"onebatch/internal/service"

	"github.com/dustin/go-humanize"
)

type userPayload struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Provisional bool       `json:"provisional"`
	Posted      *time.Time `json:"posted,omitempty"`
	PostedAgo   string     `json:"postedAgo,omitempty"`
	Republish   bool       `json:"republish"`
}

type commentPayload struct {
	ID     uint   `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
	Ago    string `json:"ago"`
}

type imagePayload struct {
	ID        uint             `json:"id"`
	Owner     string           `json:"owner"`
	Caption   string           `json:"caption"`
	Picked    bool             `json:"picked"`
	Published bool             `json:"published"`
	Hidden    bool             `json:"hidden"`
	Sources   media.Sources    `json:"sources"`
	Uploaded  string           `json:"uploaded"`
	Comments  []commentPayload `json:"comments,omitempty"`
}

type profilePayload struct {
	User      userPayload    `json:"user"`
	Own       bool           `json:"own"`
	State     string         `json:"state"`
	Final     bool           `json:"final"`
	Following bool           `json:"following"`
	Images    []imagePayload `json:"images"`
	Saved     []imagePayload `json:"saved,omitempty"`
}

type photoPayload struct {
	User       userPayload  `json:"user"`
	Image      imagePayload `json:"image"`
	Own        bool         `json:"own"`
	CanComment bool         `json:"canComment"`
}

type feedPayload struct {
	Following  []string      `json:"following"`
	Publishers []userPayload `json:"publishers"`
}

// presenter maps domain records to response payloads with URLs and relative times.
type presenter struct {
	urls *media.URLBuilder
	now  time.Time
}

func (s *Server) presenter() presenter {
	return presenter{urls: s.urls, now: s.now()}
}

func (p presenter) ago(t time.Time) string {
	return humanize.RelTime(t, p.now, "ago", "from now")
}

func (p presenter) user(u *models.User) userPayload {
	out := userPayload{
		ID:          u.ID,
		Name:        u.Name,
		Provisional: u.IsProvisional(),
		Posted:      u.Posted,
		Republish:   u.Republish,
	}
	if u.Posted != nil {
		out.PostedAgo = p.ago(*u.Posted)
	}
	return out
}

func (p presenter) image(img *models.Image, big bool) imagePayload {
	out := imagePayload{
		ID:        img.ID,
		Owner:     img.UserID,
		Caption:   img.Caption,
		Picked:    img.Picked,
		Published: img.Published,
		Hidden:    img.Hidden,
		Sources:   p.urls.Sources(img.Src, big),
		Uploaded:  p.ago(img.CreatedAt),
	}
	for _, cm := range img.Comments {
		out.Comments = append(out.Comments, commentPayload{
			ID:     cm.ID,
			Author: cm.Author,
			Text:   cm.Text,
			Ago:    p.ago(cm.CreatedAt),
		})
	}
	return out
}

func (p presenter) images(images []models.Image) []imagePayload {
	out := make([]imagePayload, 0, len(images))
	for i := range images {
		out = append(out, p.image(&images[i], false))
	}
	return out
}

func (p presenter) profile(v *service.ProfileView) profilePayload {
	out := profilePayload{
		User:      p.user(v.Owner),
		Own:       v.Own,
		State:     v.State.String(),
		Final:     v.Final,
		Following: v.Following,
		Images:    p.images(v.Images),
	}
	if v.Own {
		out.Saved = p.images(v.Saved)
	}
	return out
}

func (p presenter) photo(v *service.ImageView) photoPayload {
	return photoPayload{
		User:       p.user(v.Owner),
		Image:      p.image(v.Image, true),
		Own:        v.Own,
		CanComment: v.CanComment,
	}
}

func (p presenter) feed(f *service.Feed) feedPayload {
	out := feedPayload{
		Following:  f.Following,
		Publishers: make([]userPayload, 0, len(f.Publishers)),
	}
	if out.Following == nil {
		out.Following = []string{}
	}
	for i := range f.Publishers {
		out.Publishers = append(out.Publishers, p.user(&f.Publishers[i]))
	}
	return out
}
