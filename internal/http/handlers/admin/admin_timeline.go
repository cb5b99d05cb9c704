package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/sarvcast-next/internal/http/handlers/shared"
	"github.com/sarvcast-next/internal/http/response"
	"github.com/sarvcast-next/internal/service"
	"github.com/sarvcast-next/internal/timeline"

	"github.com/gin-gonic/gin"
)

// TimelineRequest 提交图片时间轴
type TimelineRequest struct {
	Segments []timeline.Segment `json:"segments"`
	Optimize bool               `json:"optimize"`
}

// ValidateTimeline 仅校验不保存
func (h *Handler) ValidateTimeline(c *gin.Context) {
	episodeID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req TimelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	result, err := h.TimelineService.ValidateTimeline(c.Request.Context(), episodeID, req.Segments)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// SaveTimeline 校验并整体替换时间轴
func (h *Handler) SaveTimeline(c *gin.Context) {
	episodeID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req TimelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	result, err := h.TimelineService.SaveTimeline(c.Request.Context(), episodeID, req.Segments, service.TimelineSaveOptions{
		Optimize: req.Optimize,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteTimeline 删除时间轴
func (h *Handler) DeleteTimeline(c *gin.Context) {
	episodeID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.TimelineService.DeleteTimeline(c.Request.Context(), episodeID); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// GetTimeline 查询时间轴，支持按转场类型或配音演员筛选
func (h *Handler) GetTimeline(c *gin.Context) {
	episodeID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	voiceActorID, ok := handlershared.ParseUintQuery(c, "voice_actor_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	transition := strings.TrimSpace(c.Query("transition_type"))

	var (
		rows interface{}
		err  error
	)
	switch {
	case transition != "":
		rows, err = h.TimelineService.GetByTransitionType(ctx, episodeID, transition)
	case voiceActorID != 0:
		rows, err = h.TimelineService.GetByVoiceActor(ctx, episodeID, voiceActorID)
	default:
		rows, err = h.TimelineService.GetTimeline(ctx, episodeID)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, rows)
}

// GetKeyFrames 关键帧列表
func (h *Handler) GetKeyFrames(c *gin.Context) {
	episodeID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	rows, err := h.TimelineService.GetKeyFrames(c.Request.Context(), episodeID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, rows)
}

// GetImageAt 查询某一时刻显示的图片
func (h *Handler) GetImageAt(c *gin.Context) {
	episodeID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	at, err := strconv.ParseFloat(strings.TrimSpace(c.Query("t")), 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid t", nil)
		return
	}
	row, err := h.TimelineService.GetImageAt(c.Request.Context(), episodeID, at)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	// 空隙或越界时 data 为 null
	response.Success(c, row)
}

// GetTimelineStatistics 时间轴统计
func (h *Handler) GetTimelineStatistics(c *gin.Context) {
	episodeID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.TimelineService.GetStatistics(c.Request.Context(), episodeID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stats)
}
