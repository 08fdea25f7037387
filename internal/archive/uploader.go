package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fhuszti/media-pipeline-go/internal/logger"
	"github.com/fhuszti/media-pipeline-go/internal/model"
)

// ErrUploadFailed means an archive session exhausted its retries; it wraps
// the last error seen.
var ErrUploadFailed = errors.New("archive: upload failed")

// sessionAttempts bounds the post-creation step of one archive session.
const sessionAttempts = 3

// clientAPI is the protocol surface the uploader needs from the archive
// client.
type clientAPI interface {
	CreateUpload(ctx context.Context, files []string) (int64, error)
	GetUpload(ctx context.Context, uploadID int64) ([]UploadMediaAsset, error)
	CreateArtist(ctx context.Context, a ArtistParams) error
	CreatePost(ctx context.Context, p PostParams) (int64, error)
}

// Uploader orchestrates the multi-step archive protocol on top of the
// client: upload batch, per-asset post creation, parent/child linking and
// duplicate/retry handling. The remote API is not idempotent; callers must
// not re-invoke Upload after a reported success.
type Uploader struct {
	client clientAPI
}

// NewUploader builds an Uploader over the given client.
func NewUploader(client clientAPI) *Uploader {
	return &Uploader{client: client}
}

// Upload archives a Content into the external repository. It is a no-op
// when the record carries no archive metadata.
func (u *Uploader) Upload(ctx context.Context, content *model.Content) error {
	meta := content.Archive
	if meta == nil {
		return nil
	}

	// Artist registration is best-effort: "already exists" and any
	// other failure must not abort the session.
	if err := u.client.CreateArtist(ctx, ArtistParams{
		Name:       meta.Artist.Name,
		OtherNames: meta.Artist.OtherNames,
		GroupName:  meta.Artist.GroupName,
		URLString:  meta.Artist.URLString,
	}); err != nil {
		logger.Infof(ctx, "unable to create artist %q: %v", meta.Artist.Name, err)
	}

	files := content.LocalFiles()
	if len(files) == 0 {
		return fmt.Errorf("%w: no local files to upload", ErrUploadFailed)
	}

	uploadID, err := u.client.CreateUpload(ctx, files)
	if err != nil {
		return fmt.Errorf("%w: creating upload: %v", ErrUploadFailed, err)
	}

	assets, err := u.client.GetUpload(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("%w: reading upload %d: %v", ErrUploadFailed, uploadID, err)
	}

	return u.createPosts(ctx, meta, assets)
}

// createPosts runs the per-asset post creation step. The first created
// post becomes the parent of every subsequent one, grouping the whole
// record as one logical unit. The step is retried as a session, not per
// asset; a duplicate-post result on any attempt is a success that stops
// retrying.
func (u *Uploader) createPosts(ctx context.Context, meta *model.ArchiveMeta, assets []UploadMediaAsset) error {
	tagString := strings.Join(meta.TagSet(), " ")

	var parentID int64
	created := make(map[int64]bool, len(assets))

	var lastErr error
	for attempt := 1; attempt <= sessionAttempts; attempt++ {
		lastErr = nil
		for _, asset := range assets {
			if created[asset.ID] {
				continue
			}

			postID, err := u.client.CreatePost(ctx, PostParams{
				MediaAssetID:       asset.MediaAssetID,
				UploadMediaAssetID: asset.ID,
				TagString:          tagString,
				Source:             meta.Source.SourceURL,
				CommentaryTitle:    meta.Source.CommentaryTitle,
				CommentaryDesc:     meta.Source.CommentaryDesc,
				ParentID:           parentID,
			})
			if errors.Is(err, ErrDuplicatePost) {
				logger.Infof(ctx, "duplicate post for media asset %d, treating as archived", asset.MediaAssetID)
				return nil
			}
			if err != nil {
				logger.Warnf(ctx, "creating post for media asset %d failed (attempt %d/%d): %v",
					asset.MediaAssetID, attempt, sessionAttempts, err)
				lastErr = err
				break
			}

			created[asset.ID] = true
			if parentID == 0 {
				parentID = postID
			}
		}
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %v", ErrUploadFailed, lastErr)
}
