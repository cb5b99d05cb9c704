package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sarvcast-next/internal/cache"
	"github.com/sarvcast-next/internal/constants"
	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/models"
	"github.com/sarvcast-next/internal/repository"
	"github.com/sarvcast-next/internal/timeline"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultTimelineCacheTTL = time.Hour

// TimelineSaveOptions 保存时间轴的可选行为
type TimelineSaveOptions struct {
	Optimize bool
}

// TimelineServiceOptions 时间轴服务依赖
type TimelineServiceOptions struct {
	Validator          *timeline.Validator
	Store              cache.Store
	TTL                time.Duration
	OptimizeBeforeSave bool
	Clock              Clock
}

// TimelineService 图片时间轴服务
type TimelineService struct {
	episodeRepo  repository.EpisodeRepository
	timelineRepo repository.TimelineRepository
	validator    *timeline.Validator
	store        cache.Store
	ttl          time.Duration
	optimize     bool
	clock        Clock
}

// NewTimelineService 创建时间轴服务
func NewTimelineService(episodeRepo repository.EpisodeRepository, timelineRepo repository.TimelineRepository, opts TimelineServiceOptions) *TimelineService {
	v := opts.Validator
	if v == nil {
		v = timeline.NewValidator(timeline.DefaultRules())
	}
	store := opts.Store
	if store == nil {
		store = cache.NewMemoryStore()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTimelineCacheTTL
	}
	return &TimelineService{
		episodeRepo:  episodeRepo,
		timelineRepo: timelineRepo,
		validator:    v,
		store:        store,
		ttl:          ttl,
		optimize:     opts.OptimizeBeforeSave,
		clock:        opts.Clock,
	}
}

// ValidateTimeline 仅校验，不落库
func (s *TimelineService) ValidateTimeline(ctx context.Context, episodeID uint, segments []timeline.Segment) (*timeline.Result, error) {
	episode, err := s.loadEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	return s.validator.Validate(segments, float64(episode.Duration)), nil
}

// SaveTimeline 校验并整体替换单集时间轴
// 校验失败时返回 TimelineValidationError，数据库不做任何修改。
func (s *TimelineService) SaveTimeline(ctx context.Context, episodeID uint, segments []timeline.Segment, opts TimelineSaveOptions) (*timeline.Result, error) {
	log := logger.FromContext(ctx)
	episode, err := s.loadEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	duration := float64(episode.Duration)

	result := s.validator.Validate(segments, duration)
	if !result.Valid {
		return result, &TimelineValidationError{Result: result}
	}

	if opts.Optimize || s.optimize {
		optimized := timeline.Optimize(segments)
		// 合并后可能超出单段时长上限，此时保留原始片段
		if merged := s.validator.Validate(optimized, duration); merged.Valid {
			segments, result = optimized, merged
		} else {
			log.Debugw("timeline_optimize_skipped", "episode_id", episodeID, "errors", merged.ErrorMessages())
		}
	}

	rows := buildTimelineRows(episodeID, segments)
	now := s.clock.now()
	err = s.timelineRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.timelineRepo.WithTx(tx).ReplaceForEpisode(episodeID, rows); err != nil {
			return err
		}
		return s.episodeRepo.WithTx(tx).SetUsesImageTimeline(episodeID, true, now)
	})
	if err != nil {
		log.Errorw("timeline_save_failed", "episode_id", episodeID, "segments", len(rows), "error", err)
		return nil, internalError(err)
	}
	s.invalidate(ctx, episodeID)
	log.Infow("timeline_saved", "episode_id", episodeID, "segments", len(rows), "warnings", len(result.Warnings))
	return result, nil
}

// DeleteTimeline 删除单集时间轴，已为空时同样成功
func (s *TimelineService) DeleteTimeline(ctx context.Context, episodeID uint) error {
	log := logger.FromContext(ctx)
	if _, err := s.loadEpisode(ctx, episodeID); err != nil {
		return err
	}
	now := s.clock.now()
	var removed int64
	err := s.timelineRepo.Transaction(func(tx *gorm.DB) error {
		count, err := s.timelineRepo.WithTx(tx).DeleteByEpisode(episodeID)
		if err != nil {
			return err
		}
		removed = count
		return s.episodeRepo.WithTx(tx).SetUsesImageTimeline(episodeID, false, now)
	})
	if err != nil {
		log.Errorw("timeline_delete_failed", "episode_id", episodeID, "error", err)
		return internalError(err)
	}
	s.invalidate(ctx, episodeID)
	log.Infow("timeline_deleted", "episode_id", episodeID, "removed", removed)
	return nil
}

// GetTimeline 获取完整时间轴（按片段顺序）
func (s *TimelineService) GetTimeline(ctx context.Context, episodeID uint) ([]models.TimelineSegment, error) {
	return s.readSegments(ctx, episodeID, s.cacheKey(ctx, episodeID, "all"), repository.TimelineSegmentFilter{})
}

// GetKeyFrames 获取关键帧片段
func (s *TimelineService) GetKeyFrames(ctx context.Context, episodeID uint) ([]models.TimelineSegment, error) {
	return s.readSegments(ctx, episodeID, s.cacheKey(ctx, episodeID, "keyframes"), repository.TimelineSegmentFilter{KeyFramesOnly: true})
}

// GetByTransitionType 按转场类型筛选
func (s *TimelineService) GetByTransitionType(ctx context.Context, episodeID uint, transitionType string) ([]models.TimelineSegment, error) {
	normalized := timeline.NormalizeTransition(transitionType)
	if normalized == "" {
		return nil, ErrInvalidInput
	}
	key := s.cacheKey(ctx, episodeID, "transition:"+normalized)
	return s.readSegments(ctx, episodeID, key, repository.TimelineSegmentFilter{TransitionType: normalized})
}

// GetByVoiceActor 按配音演员筛选
func (s *TimelineService) GetByVoiceActor(ctx context.Context, episodeID, voiceActorID uint) ([]models.TimelineSegment, error) {
	if voiceActorID == 0 {
		return nil, ErrInvalidInput
	}
	key := s.cacheKey(ctx, episodeID, fmt.Sprintf("voice:%d", voiceActorID))
	return s.readSegments(ctx, episodeID, key, repository.TimelineSegmentFilter{VoiceActorID: &voiceActorID})
}

// GetImageAt 查询某一时刻显示的片段，落在空隙中时返回 nil
func (s *TimelineService) GetImageAt(ctx context.Context, episodeID uint, at float64) (*models.TimelineSegment, error) {
	rows, err := s.GetTimeline(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if at < 0 || len(rows) == 0 {
		return nil, nil
	}
	item, ok := timeline.NewIntervalSet(toTimelineSegments(rows)).Find(at)
	if !ok {
		return nil, nil
	}
	found := rows[item.Index]
	return &found, nil
}

// GetStatistics 已保存时间轴的统计信息
func (s *TimelineService) GetStatistics(ctx context.Context, episodeID uint) (*timeline.Statistics, error) {
	key := s.cacheKey(ctx, episodeID, "stats")
	var cached timeline.Statistics
	if hit, err := s.store.GetJSON(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	} else if err != nil {
		logger.FromContext(ctx).Warnw("timeline_cache_get_failed", "key", key, "error", err)
	}

	episode, err := s.loadEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	rows, err := s.GetTimeline(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	stats := timeline.ComputeStatistics(toTimelineSegments(rows), float64(episode.Duration))
	if stats == nil {
		stats = &timeline.Statistics{}
	}
	s.remember(ctx, key, stats)
	return stats, nil
}

func (s *TimelineService) readSegments(ctx context.Context, episodeID uint, key string, filter repository.TimelineSegmentFilter) ([]models.TimelineSegment, error) {
	var cached []models.TimelineSegment
	hit, err := s.store.GetJSON(ctx, key, &cached)
	if err != nil {
		logger.FromContext(ctx).Warnw("timeline_cache_get_failed", "key", key, "error", err)
	}
	if hit {
		return cached, nil
	}

	if _, err := s.loadEpisode(ctx, episodeID); err != nil {
		return nil, err
	}
	rows, err := s.timelineRepo.ListByEpisode(episodeID, filter)
	if err != nil {
		logger.FromContext(ctx).Errorw("timeline_list_failed", "episode_id", episodeID, "error", err)
		return nil, internalError(err)
	}
	if rows == nil {
		rows = []models.TimelineSegment{}
	}
	s.remember(ctx, key, rows)
	return rows, nil
}

// remember 写入当前代次下的缓存
func (s *TimelineService) remember(ctx context.Context, key string, value interface{}) {
	if err := s.store.SetJSON(ctx, key, value, s.ttl); err != nil {
		logger.FromContext(ctx).Warnw("timeline_cache_set_failed", "key", key, "error", err)
	}
}

// generation 返回单集缓存代次；缺失时生成新代次
// 读缓存的 key 都带代次，写操作换代后旧条目不可达，等 TTL 自然过期。
func (s *TimelineService) generation(ctx context.Context, episodeID uint) string {
	key := timelineGenerationKey(episodeID)
	var gen string
	hit, err := s.store.GetJSON(ctx, key, &gen)
	if err != nil {
		logger.FromContext(ctx).Warnw("timeline_cache_generation_read_failed", "key", key, "error", err)
	}
	if hit && gen != "" {
		return gen
	}
	return s.bumpGeneration(ctx, episodeID)
}

func (s *TimelineService) bumpGeneration(ctx context.Context, episodeID uint) string {
	gen := uuid.NewString()
	key := timelineGenerationKey(episodeID)
	if err := s.store.SetJSON(ctx, key, gen, 0); err != nil {
		logger.FromContext(ctx).Warnw("timeline_cache_generation_write_failed", "key", key, "error", err)
	}
	return gen
}

// invalidate 换代使该单集的全部缓存失效；换代失败时删除代次键，下次读取重新生成
func (s *TimelineService) invalidate(ctx context.Context, episodeID uint) {
	key := timelineGenerationKey(episodeID)
	if err := s.store.SetJSON(ctx, key, uuid.NewString(), 0); err != nil {
		log := logger.FromContext(ctx)
		log.Warnw("timeline_cache_invalidate_failed", "episode_id", episodeID, "error", err)
		if err := s.store.Del(ctx, key); err != nil {
			log.Errorw("timeline_cache_generation_drop_failed", "episode_id", episodeID, "error", err)
		}
	}
}

func (s *TimelineService) loadEpisode(ctx context.Context, episodeID uint) (*models.Episode, error) {
	if episodeID == 0 {
		return nil, ErrEpisodeNotFound
	}
	episode, err := s.episodeRepo.GetByID(episodeID)
	if err != nil {
		logger.FromContext(ctx).Errorw("episode_fetch_failed", "episode_id", episodeID, "error", err)
		return nil, internalError(err)
	}
	if episode == nil {
		return nil, ErrEpisodeNotFound
	}
	return episode, nil
}

func (s *TimelineService) cacheKey(ctx context.Context, episodeID uint, variant string) string {
	return fmt.Sprintf("timeline:%d:%s:%s", episodeID, s.generation(ctx, episodeID), variant)
}

func timelineGenerationKey(episodeID uint) string {
	return fmt.Sprintf("timeline:%d:gen", episodeID)
}

// buildTimelineRows 按起始时间排序后从 1 编号
func buildTimelineRows(episodeID uint, segments []timeline.Segment) []models.TimelineSegment {
	items := timeline.NewIntervalSet(segments).Items()
	rows := make([]models.TimelineSegment, 0, len(items))
	for pos, item := range items {
		seg := segments[item.Index]
		transition := timeline.NormalizeTransition(seg.TransitionType)
		if transition == "" {
			transition = constants.TransitionFade
		}
		var voiceActorID *uint
		if seg.VoiceActorID != nil {
			id := *seg.VoiceActorID
			voiceActorID = &id
		}
		rows = append(rows, models.TimelineSegment{
			EpisodeID:        episodeID,
			VoiceActorID:     voiceActorID,
			StartTime:        item.Start,
			EndTime:          item.End,
			ImageURL:         strings.TrimSpace(seg.ImageURL),
			SceneDescription: strings.TrimSpace(seg.SceneDescription),
			TransitionType:   transition,
			IsKeyFrame:       seg.IsKeyFrame,
			SegmentOrder:     pos + 1,
		})
	}
	return rows
}

func toTimelineSegments(rows []models.TimelineSegment) []timeline.Segment {
	segments := make([]timeline.Segment, 0, len(rows))
	for _, row := range rows {
		seg := timeline.NewSegment(row.StartTime, row.EndTime, row.ImageURL)
		seg.VoiceActorID = row.VoiceActorID
		seg.SceneDescription = row.SceneDescription
		seg.TransitionType = row.TransitionType
		seg.IsKeyFrame = row.IsKeyFrame
		seg.Order = row.SegmentOrder
		segments = append(segments, seg)
	}
	return segments
}
