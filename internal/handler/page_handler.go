package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/db"
	"github.com/showcase/internal/service"
)

const resolvedPageContextKey = "__resolved_page"

type pageResolution struct {
	slug     string
	language string
	page     *service.ResolvedPage
	err      error
}

// resolvePage 在同一请求内只解析一次页面，元信息与正文共用结果。
func (a *API) resolvePage(c *gin.Context, slug string) (*service.ResolvedPage, error) {
	language := requestLanguage(c)
	slug = strings.ToLower(strings.TrimSpace(slug))

	if cached, exists := c.Get(resolvedPageContextKey); exists {
		if res, ok := cached.(pageResolution); ok && res.slug == slug && res.language == language {
			return res.page, res.err
		}
	}

	page, err := a.resolver.Resolve(c.Request.Context(), slug, language)
	c.Set(resolvedPageContextKey, pageResolution{slug: slug, language: language, page: page, err: err})
	return page, err
}

func (a *API) pageMeta(c *gin.Context, slug string) (service.PageMeta, error) {
	page, err := a.resolvePage(c, slug)
	if err != nil {
		return service.PageMeta{}, err
	}
	return page.Meta, nil
}

func (a *API) pageBody(c *gin.Context, slug string) (*service.ResolvedPage, error) {
	return a.resolvePage(c, slug)
}

func respondPageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSlugRequired):
		respondError(c, http.StatusBadRequest, "缺少页面标识")
	case errors.Is(err, service.ErrPageNotFound):
		respondError(c, http.StatusNotFound, "页面不存在")
	default:
		respondError(c, http.StatusInternalServerError, "加载页面失败")
	}
}

// GetPage returns the resolved page with rendered HTML.
func (a *API) GetPage(c *gin.Context) {
	slug := c.Param("slug")
	meta, err := a.pageMeta(c, slug)
	if err != nil {
		respondPageError(c, err)
		return
	}
	page, err := a.pageBody(c, slug)
	if err != nil {
		respondPageError(c, err)
		return
	}

	body, err := renderBlocks(page.Blocks)
	if err != nil {
		log.Error().Stack().Err(err).Str("slug", page.Slug).Msg("render page blocks")
		respondError(c, http.StatusInternalServerError, "渲染页面失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":   page,
		"meta":   meta,
		"html":   string(body),
		"source": page.Source,
	})
}

// GetPageMeta returns only the SEO fields of a page.
func (a *API) GetPageMeta(c *gin.Context) {
	slug := c.Param("slug")
	meta, err := a.pageMeta(c, slug)
	if err != nil {
		respondPageError(c, err)
		return
	}
	page, _ := a.resolvePage(c, slug)
	c.JSON(http.StatusOK, gin.H{"slug": page.Slug, "meta": meta, "source": page.Source})
}

// ShowPage 渲染公开页面的 HTML 版本。
func (a *API) ShowPage(c *gin.Context) {
	slug := c.Param("slug")
	meta, err := a.pageMeta(c, slug)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrPageNotFound) || errors.Is(err, service.ErrSlugRequired) {
			status = http.StatusNotFound
		}
		c.String(status, http.StatusText(status))
		return
	}
	page, _ := a.pageBody(c, slug)

	body, err := renderBlocks(page.Blocks)
	if err != nil {
		log.Error().Stack().Err(err).Str("slug", page.Slug).Msg("render page blocks")
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	view := pageView{
		Language:  page.Language,
		Title:     page.Title,
		ShowTitle: !hasTopHeading(page.Blocks),
		SiteName:  trimmedOr(a.siteSettings(c).SiteName, "Showcase"),
		Body:      body,
	}
	view.Meta.Title = meta.Title
	view.Meta.Description = meta.Description
	view.Meta.Keywords = meta.Keywords

	c.Render(http.StatusOK, render.HTML{Template: pageTemplate, Name: "page", Data: view})
}

type pageRequest struct {
	Slug            string            `json:"slug"`
	Language        string            `json:"language"`
	Title           string            `json:"title"`
	MetaTitle       string            `json:"metaTitle"`
	MetaDescription string            `json:"metaDescription"`
	MetaKeywords    string            `json:"metaKeywords"`
	Blocks          []db.ContentBlock `json:"blocks"`
	Active          bool              `json:"active"`
}

func (r pageRequest) toInput() service.PageInput {
	return service.PageInput{
		Slug:            r.Slug,
		Language:        r.Language,
		Title:           r.Title,
		MetaTitle:       r.MetaTitle,
		MetaDescription: r.MetaDescription,
		MetaKeywords:    r.MetaKeywords,
		Blocks:          r.Blocks,
		Active:          r.Active,
	}
}

// ListPages 列出后台全部页面。
func (a *API) ListPages(c *gin.Context) {
	pages, err := a.pages.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取页面列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages})
}

func (a *API) GetAdminPage(c *gin.Context) {
	id, ok := requireID(c, "无效的页面ID")
	if !ok {
		return
	}
	page, err := a.pages.Get(id)
	if err != nil {
		handlePageServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page})
}

func (a *API) CreatePage(c *gin.Context) {
	var payload pageRequest
	if !bindJSON(c, &payload, "页面内容格式不正确") {
		return
	}
	page, err := a.pages.Create(payload.toInput())
	if err != nil {
		handlePageServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "页面已创建", "page": page})
}

func (a *API) UpdatePage(c *gin.Context) {
	id, ok := requireID(c, "无效的页面ID")
	if !ok {
		return
	}
	var payload pageRequest
	if !bindJSON(c, &payload, "页面内容格式不正确") {
		return
	}
	page, err := a.pages.Update(id, payload.toInput())
	if err != nil {
		handlePageServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "页面已更新", "page": page})
}

// DeletePage 默认仅下线页面（active=false），?hard=true 时删除记录。
func (a *API) DeletePage(c *gin.Context) {
	id, ok := requireID(c, "无效的页面ID")
	if !ok {
		return
	}

	if parseBoolQuery(c, "hard") {
		if err := a.pages.Delete(id); err != nil {
			handlePageServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "页面已删除"})
		return
	}

	page, err := a.pages.SetActive(id, false)
	if err != nil {
		handlePageServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "页面已下线", "page": page})
}

func handlePageServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPageNotFound):
		respondError(c, http.StatusNotFound, "页面不存在")
	case errors.Is(err, service.ErrPageTitleMissing):
		respondError(c, http.StatusBadRequest, "请填写页面标题")
	case errors.Is(err, service.ErrSlugInvalid):
		respondError(c, http.StatusBadRequest, "页面标识只能包含小写字母、数字和短横线")
	case errors.Is(err, service.ErrPageSlugExists):
		respondError(c, http.StatusConflict, "该语言下页面标识已存在")
	case errors.Is(err, service.ErrPageBlockInvalid):
		respondError(c, http.StatusBadRequest, "页面内容块格式不正确")
	default:
		respondError(c, http.StatusInternalServerError, "保存页面失败")
	}
}
