package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/db"
	"github.com/showcase/internal/service"
)

// ListBlogPosts 公开的文章列表，只包含已发布文章。
func (a *API) ListBlogPosts(c *gin.Context) {
	filter := service.PostFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Status:   db.PostStatusPublished,
		Category: strings.TrimSpace(c.Query("category")),
		Tag:      strings.TrimSpace(c.Query("tag")),
		Page:     parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		PerPage:  parsePositiveInt(c.DefaultQuery("perPage", "9"), 9),
	}

	result, err := a.posts.List(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章列表失败")
		return
	}

	items := make([]gin.H, 0, len(result.Posts))
	for _, post := range result.Posts {
		items = append(items, postSummaryPayload(post))
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":      items,
		"total":      result.Total,
		"page":       result.Page,
		"perPage":    result.PerPage,
		"totalPages": result.TotalPages,
	})
}

// GetBlogPost 按 slug 返回已发布文章及渲染后的 HTML。
func (a *API) GetBlogPost(c *gin.Context) {
	post, err := a.posts.GetPublishedBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "文章不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取文章失败")
		return
	}

	htmlContent, err := renderMarkdown(post.Content)
	if err != nil {
		log.Error().Stack().Err(err).Str("slug", post.Slug).Msg("render post markdown")
		respondError(c, http.StatusInternalServerError, "渲染内容失败")
		return
	}

	payload := postSummaryPayload(*post)
	payload["content"] = post.Content
	payload["html"] = string(htmlContent)
	c.JSON(http.StatusOK, gin.H{"post": payload})
}

func (a *API) ListBlogCategories(c *gin.Context) {
	categories, err := a.posts.Categories()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取分类失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (a *API) ListBlogTags(c *gin.Context) {
	tags, err := a.posts.Tags()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取标签失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func postSummaryPayload(post db.Post) gin.H {
	return gin.H{
		"id":          post.ID,
		"slug":        post.Slug,
		"title":       post.Title,
		"summary":     post.Summary,
		"coverUrl":    post.CoverURL,
		"category":    post.Category,
		"tags":        post.TagList(),
		"readingTime": post.ReadingTime,
		"publishedAt": post.PublishedAt,
	}
}

// ListAdminPosts 后台文章列表，包含草稿。
func (a *API) ListAdminPosts(c *gin.Context) {
	filter := service.PostFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Status:   strings.TrimSpace(c.Query("status")),
		Category: strings.TrimSpace(c.Query("category")),
		Tag:      strings.TrimSpace(c.Query("tag")),
		Page:     parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		PerPage:  parsePositiveInt(c.DefaultQuery("perPage", "20"), 20),
	}

	result, err := a.posts.List(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章列表失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":          result.Posts,
		"total":          result.Total,
		"publishedCount": result.PublishedCount,
		"draftCount":     result.DraftCount,
		"page":           result.Page,
		"totalPages":     result.TotalPages,
	})
}

func (a *API) GetAdminPost(c *gin.Context) {
	id, ok := requireID(c, "无效的文章ID")
	if !ok {
		return
	}
	post, err := a.posts.Get(id)
	if err != nil {
		handlePostError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (a *API) CreatePost(c *gin.Context) {
	var payload service.PostInput
	if !bindJSON(c, &payload, "文章内容格式不正确") {
		return
	}
	post, err := a.posts.Create(payload)
	if err != nil {
		handlePostError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "文章创建成功", "post": post})
}

func (a *API) UpdatePost(c *gin.Context) {
	id, ok := requireID(c, "无效的文章ID")
	if !ok {
		return
	}
	var payload service.PostInput
	if !bindJSON(c, &payload, "文章内容格式不正确") {
		return
	}
	post, err := a.posts.Update(id, payload)
	if err != nil {
		handlePostError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "文章更新成功", "post": post})
}

func (a *API) DeletePost(c *gin.Context) {
	id, ok := requireID(c, "无效的文章ID")
	if !ok {
		return
	}
	if err := a.posts.Delete(id); err != nil {
		handlePostError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "文章删除成功"})
}

func handlePostError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "文章不存在")
	case errors.Is(err, service.ErrPostTitleMissing):
		respondError(c, http.StatusBadRequest, "请填写文章标题")
	case errors.Is(err, service.ErrSlugInvalid):
		respondError(c, http.StatusBadRequest, "文章标识只能包含小写字母、数字和短横线")
	case errors.Is(err, service.ErrPostSlugExists):
		respondError(c, http.StatusConflict, "文章标识已存在")
	case errors.Is(err, service.ErrPostStatusInvalid):
		respondError(c, http.StatusBadRequest, "文章状态不正确")
	default:
		respondError(c, http.StatusInternalServerError, "保存文章失败")
	}
}
