package service

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/morikuni/failure"
)

// 第三方依赖（日历、短信、邮件、图片搜索）统一使用的错误码。
const (
	ErrUpstream      failure.StringCode = "Upstream"
	ErrNotConfigured failure.StringCode = "NotConfigured"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// IsNotConfigured 判断错误是否源于缺少第三方配置。
func IsNotConfigured(err error) bool {
	return failure.Is(err, ErrNotConfigured)
}

// doUpstream 发送请求，非 2xx 响应转换为 ErrUpstream。调用方负责关闭响应体。
func doUpstream(client httpDoer, req *http.Request, label string) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, failure.Translate(err, ErrUpstream, failure.Messagef("请求 %s 接口失败", label))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return nil, failure.New(ErrUpstream,
			failure.Messagef("%s 返回错误：%s", label, msg),
			failure.Context{"status": fmt.Sprint(resp.StatusCode)},
		)
	}

	return resp, nil
}
