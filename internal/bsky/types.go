package bsky

import "time"

// PostRef identifies one published revision of a post.
type PostRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// Valid reports whether both halves of the reference are set.
func (r PostRef) Valid() bool { return r.URI != "" && r.CID != "" }

// ReplyLink threads a post under Root, directly answering Parent.
type ReplyLink struct {
	Root   PostRef `json:"root"`
	Parent PostRef `json:"parent"`
}

// Tag is a hashtag annotation; offsets are UTF-8 byte offsets into Post.Text.
type Tag struct {
	Tag       string
	ByteStart int
	ByteEnd   int
}

// Post is the payload handed to Service.CreatePost.
type Post struct {
	Text      string
	Tags      []Tag
	Reply     *ReplyLink
	Langs     []string
	CreatedAt time.Time
}
