package models

type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// Surface decides whether prices may be shown.
type Surface string

const (
	SurfaceDM      Surface = "dm"
	SurfaceComment Surface = "comment"
)

const (
	ATTACHMENT_IMAGE = "image"
	ATTACHMENT_AUDIO = "audio"
	ATTACHMENT_SHARE = "share"
)

// InboundEvent is one message or comment extracted from a webhook delivery.
type InboundEvent struct {
	Platform       Platform
	Surface        Surface
	SenderID       string
	RecipientID    string // page or IG account that received it
	MessageID      string
	CommentID      string
	Text           string
	AttachmentType string
	AttachmentURL  string
	SharedPost     *SharedPost
	Standby        bool
}

// SharedPost is what could be recovered from a shared post attachment.
type SharedPost struct {
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	AssetID      string `json:"asset_id,omitempty"`
	Permalink    string `json:"permalink,omitempty"`
	Caption      string `json:"caption,omitempty"`
	Username     string `json:"username,omitempty"`
}

func (p *SharedPost) Empty() bool {
	return p == nil || (p.ThumbnailURL == "" && p.AssetID == "" && p.Permalink == "" && p.Caption == "" && p.Username == "")
}
