package model

// Artist identifies the author of a post in the external archive
// repository.
type Artist struct {
	Name       string `json:"name"`
	OtherNames string `json:"other_names,omitempty"`
	GroupName  string `json:"group_name,omitempty"`
	URLString  string `json:"url_string,omitempty"`
}

// SourceDescription carries the source fields attached to every post
// created in the archive repository.
type SourceDescription struct {
	SourceURL       string `json:"source_url"`
	CommentaryTitle string `json:"commentary_title,omitempty"`
	CommentaryDesc  string `json:"commentary_desc,omitempty"`
}

// ArchiveMeta is the optional metadata required to archive a Content into
// the external tag-based repository. When absent, the archive stage is a
// no-op.
type ArchiveMeta struct {
	Artist Artist            `json:"artist"`
	TagStr string            `json:"tag_str"`
	Tags   []string          `json:"tags,omitempty"`
	Source SourceDescription `json:"source"`
}

// TagSet returns the full tag set for an archive session: the artist name,
// the site tag string and any source-specific tags.
func (a *ArchiveMeta) TagSet() []string {
	tags := make([]string, 0, len(a.Tags)+2)
	tags = append(tags, a.Artist.Name, a.TagStr)
	tags = append(tags, a.Tags...)
	return tags
}
