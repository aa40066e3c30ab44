package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/morikuni/failure"
)

const (
	defaultUnsplashBaseURL = "https://api.unsplash.com"
	defaultImageSearchSize = 12
)

var ErrImageQueryRequired = errors.New("image search query is required")

// ImageResult 是一条图片搜索结果。
type ImageResult struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Thumb  string `json:"thumb"`
	Author string `json:"author"`
}

type unsplashSearchResponse struct {
	Results []struct {
		ID   string `json:"id"`
		URLs struct {
			Regular string `json:"regular"`
			Thumb   string `json:"thumb"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"results"`
}

// UnsplashClient 代理后台的图片搜索请求。
type UnsplashClient struct {
	http      httpDoer
	baseURL   string
	accessKey string
}

func NewUnsplashClient(accessKey string) *UnsplashClient {
	return &UnsplashClient{
		http:      &http.Client{Timeout: 10 * time.Second},
		baseURL:   defaultUnsplashBaseURL,
		accessKey: strings.TrimSpace(accessKey),
	}
}

func (c *UnsplashClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
		return
	}
	c.http = client
}

func (c *UnsplashClient) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
}

// Search 按关键词搜索图片，perPage 取值 1~30。
func (c *UnsplashClient) Search(ctx context.Context, query string, perPage int) ([]ImageResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrImageQueryRequired
	}
	if c.accessKey == "" {
		return nil, failure.New(ErrNotConfigured, failure.Message("未配置 Unsplash Access Key"))
	}
	if perPage <= 0 {
		perPage = defaultImageSearchSize
	}
	if perPage > 30 {
		perPage = 30
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprint(perPage))

	base := c.baseURL
	if base == "" {
		base = defaultUnsplashBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return nil, failure.Translate(err, ErrUpstream)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := doUpstream(c.http, req, "Unsplash")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload unsplashSearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&payload); err != nil {
		return nil, failure.Translate(err, ErrUpstream, failure.Message("解析 Unsplash 响应失败"))
	}

	results := make([]ImageResult, 0, len(payload.Results))
	for _, item := range payload.Results {
		if item.URLs.Regular == "" {
			continue
		}
		results = append(results, ImageResult{
			ID:     item.ID,
			URL:    item.URLs.Regular,
			Thumb:  item.URLs.Thumb,
			Author: item.User.Name,
		})
	}
	return results, nil
}
