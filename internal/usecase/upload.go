package usecase

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
	"github.com/forPelevin/reelcut/internal/workarea"
)

// Upload downloads a published artifact and inserts it on YouTube as a
// private video. With a video id the row is marked uploaded, or marked as a
// failed upload.
func (u Usecase) Upload(ctx context.Context, req types.UploadRequest) (types.UploadResult, error) {
	log := u.d.Log.With().Str("video_id", req.VideoID).Logger()
	if err := req.Validate(u.o.AllowInsecureAssets); err != nil {
		return types.UploadResult{}, stageErr(StageValidate, err)
	}
	if u.d.Uploader == nil {
		return types.UploadResult{}, stageErr(StageUpload, errors.New("uploader is not configured"))
	}

	var res types.UploadResult
	err := workarea.Run(ctx, u.o.WorkRoot, log, func(ctx context.Context, area *workarea.Area) error {
		videos, err := u.d.Fetcher.Fetch(ctx, ports.AssetVideo, []string{req.VideoURL}, area.Dir())
		if err != nil {
			return stageErr(StageFetch, err)
		}
		meta := ports.UploadMetadata{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			VideoType:   req.VideoType,
		}
		if req.Thumbnail != "" {
			thumbs, err := u.d.Fetcher.Fetch(ctx, ports.AssetImage, []string{req.Thumbnail}, area.Dir())
			if err != nil {
				log.Warn().Err(err).Msg("thumbnail fetch failed")
			} else {
				meta.Thumbnail = thumbs[0]
			}
		}

		id, url, err := u.d.Uploader.Upload(ctx, videos[0], meta)
		if err != nil {
			return stageErr(StageUpload, err)
		}
		log.Info().Str("youtube_id", id).Str("file", filepath.Base(videos[0])).Msg("video uploaded")
		res = types.UploadResult{YouTubeID: id, YouTubeURL: url}

		if req.VideoID != "" && u.d.Videos != nil {
			if err := u.d.Videos.MarkUploaded(ctx, req.VideoID, url); err != nil {
				return stageErr(StagePersist, err)
			}
		}
		return nil
	})
	if err != nil {
		err = stageErr(StageWorkarea, err)
		log.Error().Err(err).Msg("upload failed")
		if req.VideoID != "" && u.d.Videos != nil {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
			defer cancel()
			if merr := u.d.Videos.MarkUploadFailed(ctx, req.VideoID, err.Error()); merr != nil {
				log.Warn().Err(merr).Msg("mark upload failed")
			}
		}
		return types.UploadResult{}, err
	}
	return res, nil
}
