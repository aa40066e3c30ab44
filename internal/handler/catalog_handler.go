package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/showcase/internal/service"
)

// ListDemos 公开的作品演示列表。
func (a *API) ListDemos(c *gin.Context) {
	result, err := a.demos.List(service.DemoFilter{
		Category:   strings.TrimSpace(c.Query("category")),
		ActiveOnly: true,
		Page:       parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		PerPage:    parsePositiveInt(c.DefaultQuery("perPage", "12"), 12),
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取作品列表失败")
		return
	}
	categories, err := a.demos.Categories()
	if err != nil {
		c.Error(err)
	}

	c.JSON(http.StatusOK, gin.H{
		"demos":      result.Items,
		"categories": categories,
		"total":      result.Total,
		"page":       result.Page,
		"totalPages": result.TotalPages,
	})
}

func (a *API) ListAdminDemos(c *gin.Context) {
	result, err := a.demos.List(service.DemoFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Page:     parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		PerPage:  parsePositiveInt(c.DefaultQuery("perPage", "50"), 50),
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取作品列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"demos": result.Items, "total": result.Total, "page": result.Page, "totalPages": result.TotalPages})
}

func (a *API) CreateDemo(c *gin.Context) {
	var payload service.DemoInput
	if !bindJSON(c, &payload, "作品信息格式不正确") {
		return
	}
	demo, err := a.demos.Create(payload)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "作品已创建", "demo": demo})
}

func (a *API) UpdateDemo(c *gin.Context) {
	id, ok := requireID(c, "无效的作品ID")
	if !ok {
		return
	}
	var payload service.DemoInput
	if !bindJSON(c, &payload, "作品信息格式不正确") {
		return
	}
	demo, err := a.demos.Update(id, payload)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "作品已更新", "demo": demo})
}

func (a *API) DeleteDemo(c *gin.Context) {
	id, ok := requireID(c, "无效的作品ID")
	if !ok {
		return
	}
	if err := a.demos.Delete(id); err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "作品已删除"})
}

// ListPackages 返回上架的服务套餐（缓存）。
func (a *API) ListPackages(c *gin.Context) {
	packages, err := a.packages.ListActive()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取套餐失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": packages})
}

func (a *API) ListAdminPackages(c *gin.Context) {
	packages, err := a.packages.ListAll()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取套餐失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": packages})
}

func (a *API) CreatePackage(c *gin.Context) {
	var payload service.PackageInput
	if !bindJSON(c, &payload, "套餐信息格式不正确") {
		return
	}
	item, err := a.packages.Create(payload)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "套餐已创建", "package": item})
}

func (a *API) UpdatePackage(c *gin.Context) {
	id, ok := requireID(c, "无效的套餐ID")
	if !ok {
		return
	}
	var payload service.PackageInput
	if !bindJSON(c, &payload, "套餐信息格式不正确") {
		return
	}
	item, err := a.packages.Update(id, payload)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "套餐已更新", "package": item})
}

func (a *API) DeletePackage(c *gin.Context) {
	id, ok := requireID(c, "无效的套餐ID")
	if !ok {
		return
	}
	if err := a.packages.Delete(id); err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "套餐已删除"})
}

// ListActivePopups 返回当前对 ?path 生效的弹窗。
func (a *API) ListActivePopups(c *gin.Context) {
	path := strings.TrimSpace(c.DefaultQuery("path", "/"))
	popups, err := a.popups.ActiveFor(path, time.Now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取弹窗失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"popups": popups})
}

func (a *API) ListAdminPopups(c *gin.Context) {
	popups, err := a.popups.ListAll()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取弹窗失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"popups": popups})
}

func (a *API) CreatePopup(c *gin.Context) {
	var payload service.PopupInput
	if !bindJSON(c, &payload, "弹窗信息格式不正确") {
		return
	}
	popup, err := a.popups.Create(payload)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "弹窗已创建", "popup": popup})
}

func (a *API) UpdatePopup(c *gin.Context) {
	id, ok := requireID(c, "无效的弹窗ID")
	if !ok {
		return
	}
	var payload service.PopupInput
	if !bindJSON(c, &payload, "弹窗信息格式不正确") {
		return
	}
	popup, err := a.popups.Update(id, payload)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "弹窗已更新", "popup": popup})
}

func (a *API) DeletePopup(c *gin.Context) {
	id, ok := requireID(c, "无效的弹窗ID")
	if !ok {
		return
	}
	if err := a.popups.Delete(id); err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "弹窗已删除"})
}

// GetMenu 返回 header/footer 菜单树（缓存）。
func (a *API) GetMenu(c *gin.Context) {
	tree, err := a.menus.Tree(c.Param("menu"))
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"menu": c.Param("menu"), "items": tree})
}

func (a *API) ListMenuItems(c *gin.Context) {
	items, err := a.menus.ListAll(c.Query("menu"))
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (a *API) CreateMenuItem(c *gin.Context) {
	var payload service.MenuItemInput
	if !bindJSON(c, &payload, "菜单信息格式不正确") {
		return
	}
	item, err := a.menus.Create(payload)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "菜单项已创建", "item": item})
}

func (a *API) UpdateMenuItem(c *gin.Context) {
	id, ok := requireID(c, "无效的菜单ID")
	if !ok {
		return
	}
	var payload service.MenuItemInput
	if !bindJSON(c, &payload, "菜单信息格式不正确") {
		return
	}
	item, err := a.menus.Update(id, payload)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "菜单项已更新", "item": item})
}

func (a *API) DeleteMenuItem(c *gin.Context) {
	id, ok := requireID(c, "无效的菜单ID")
	if !ok {
		return
	}
	if err := a.menus.Delete(id); err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "菜单项已删除"})
}

type menuReorderRequest struct {
	Menu string `json:"menu"`
	IDs  []uint `json:"ids"`
}

// ReorderMenuItems 按给定顺序重排同级菜单项。
func (a *API) ReorderMenuItems(c *gin.Context) {
	var payload menuReorderRequest
	if !bindJSON(c, &payload, "排序数据格式不正确") {
		return
	}
	if err := a.menus.Reorder(payload.Menu, parseUintSlice(payload.IDs)); err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "菜单顺序已更新"})
}

func handleCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDemoNotFound),
		errors.Is(err, service.ErrPackageNotFound),
		errors.Is(err, service.ErrPopupNotFound),
		errors.Is(err, service.ErrMenuItemNotFound):
		respondError(c, http.StatusNotFound, "记录不存在")
	case errors.Is(err, service.ErrDemoSlugExists), errors.Is(err, service.ErrPackageSlugExists):
		respondError(c, http.StatusConflict, "标识已存在")
	case errors.Is(err, service.ErrDemoTitleMissing),
		errors.Is(err, service.ErrPopupTitleMissing):
		respondError(c, http.StatusBadRequest, "请填写标题")
	case errors.Is(err, service.ErrPackageNameMissing), errors.Is(err, service.ErrMenuLabelMissing):
		respondError(c, http.StatusBadRequest, "请填写名称")
	case errors.Is(err, service.ErrSlugInvalid):
		respondError(c, http.StatusBadRequest, "标识只能包含小写字母、数字和短横线")
	case errors.Is(err, service.ErrPackagePriceInvalid):
		respondError(c, http.StatusBadRequest, "价格或币种不正确")
	case errors.Is(err, service.ErrPackageIntervalInvalid):
		respondError(c, http.StatusBadRequest, "计费周期不正确")
	case errors.Is(err, service.ErrPopupWindowInvalid):
		respondError(c, http.StatusBadRequest, "结束时间必须晚于开始时间")
	case errors.Is(err, service.ErrMenuInvalid):
		respondError(c, http.StatusBadRequest, "菜单只能是 header 或 footer")
	case errors.Is(err, service.ErrMenuParentLoop):
		respondError(c, http.StatusBadRequest, "上级菜单不正确")
	case errors.Is(err, service.ErrMenuOrder):
		respondError(c, http.StatusBadRequest, "排序数据不完整")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败，请稍后重试")
	}
}
