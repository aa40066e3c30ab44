package handler

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/service"
	_ "golang.org/x/image/webp"
)

const maxUploadBytes = 10 << 20

var allowedImageFormats = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"webp": ".webp",
}

type imageSearcher interface {
	Search(ctx context.Context, query string, perPage int) ([]service.ImageResult, error)
}

// UploadImage 处理图片上传请求，只接受 jpeg/png/webp，并返回图片尺寸。
func (a *API) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传的图片", "success": 0})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "图片不能超过 10MB", "success": 0})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "只允许上传图片文件", "success": 0})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取图片失败", "success": 0})
		return
	}
	config, format, err := image.DecodeConfig(src)
	src.Close()
	ext, supported := allowedImageFormats[format]
	if err != nil || !supported {
		c.JSON(http.StatusBadRequest, gin.H{"error": "仅支持 JPG、PNG 或 WebP 图片", "success": 0})
		return
	}

	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		log.Error().Stack().Err(err).Str("dir", a.uploadDir).Msg("create upload dir")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建上传目录失败", "success": 0})
		return
	}

	newFilename := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	if err := c.SaveUploadedFile(file, filepath.Join(a.uploadDir, newFilename)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败", "success": 0})
		return
	}

	fileURL := path.Join("/", a.uploadURL, newFilename)
	c.JSON(http.StatusOK, gin.H{
		"success": 1,
		"message": "上传成功",
		"data": gin.H{
			"url":    fileURL,
			"width":  config.Width,
			"height": config.Height,
			"format": format,
		},
	})
}

// SearchImages 代理图片搜索，未配置密钥时返回 503。
func (a *API) SearchImages(c *gin.Context) {
	results, err := a.images.Search(c.Request.Context(), c.Query("q"), parsePositiveInt(c.Query("perPage"), 0))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImageQueryRequired):
			respondError(c, http.StatusBadRequest, "请输入搜索关键词")
		case service.IsNotConfigured(err):
			respondError(c, http.StatusServiceUnavailable, "图片搜索未配置")
		default:
			log.Warn().Err(err).Str("component", "image_search").Msg("image search failed")
			respondError(c, http.StatusBadGateway, "图片搜索暂时不可用")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
