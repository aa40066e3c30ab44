package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/showcase/internal/db"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

func renderMarkdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	safe := sanitizer.SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil
}

// renderBlocks 将结构化内容块渲染为净化后的 HTML。
// 段落与引用支持 Markdown 行内语法，未知类型的块被忽略。
func renderBlocks(blocks []db.ContentBlock) (template.HTML, error) {
	var buf bytes.Buffer
	for _, block := range blocks {
		switch block.Type {
		case db.BlockHeading:
			level := block.Level
			if level < 1 || level > 6 {
				level = 2
			}
			fmt.Fprintf(&buf, "<h%d>%s</h%d>\n", level, template.HTMLEscapeString(block.Text), level)
		case db.BlockParagraph:
			if err := markdownEngine.Convert([]byte(block.Text), &buf); err != nil {
				return "", err
			}
		case db.BlockList:
			buf.WriteString("<ul>\n")
			for _, item := range block.Items {
				fmt.Fprintf(&buf, "<li>%s</li>\n", template.HTMLEscapeString(item))
			}
			buf.WriteString("</ul>\n")
		case db.BlockImage:
			fmt.Fprintf(&buf, "<figure><img src=\"%s\" alt=\"%s\"/></figure>\n",
				template.HTMLEscapeString(block.URL), template.HTMLEscapeString(block.Alt))
		case db.BlockQuote:
			buf.WriteString("<blockquote>\n")
			if err := markdownEngine.Convert([]byte(block.Text), &buf); err != nil {
				return "", err
			}
			buf.WriteString("</blockquote>\n")
		}
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())), nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Language}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Meta.Title}} | {{.SiteName}}</title>
<meta name="description" content="{{.Meta.Description}}">
{{- if .Meta.Keywords}}
<meta name="keywords" content="{{.Meta.Keywords}}">
{{- end}}
</head>
<body>
<main>
{{- if .ShowTitle}}
<h1>{{.Title}}</h1>
{{- end}}
{{.Body}}
</main>
</body>
</html>
`))

type pageView struct {
	Language  string
	Title     string
	ShowTitle bool
	SiteName  string
	Meta     struct {
		Title       string
		Description string
		Keywords    string
	}
	Body template.HTML
}

func trimmedOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

// hasTopHeading 判断内容块是否自带一级标题。
func hasTopHeading(blocks []db.ContentBlock) bool {
	for _, block := range blocks {
		if block.Type == db.BlockHeading && block.Level == 1 {
			return true
		}
	}
	return false
}
