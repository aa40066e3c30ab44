package service

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// ErrSlugInvalid 表示 slug 为空或包含非法字符
	ErrSlugInvalid = errors.New("slug must contain lowercase letters, digits or dashes")
	// ErrEmailInvalid 表示邮箱格式不正确
	ErrEmailInvalid = errors.New("email address is invalid")
)

var (
	slugPattern      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugReplacePunct = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeSlug 校验并返回小写 slug。
func NormalizeSlug(raw string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(raw))
	if !slugPattern.MatchString(slug) {
		return "", ErrSlugInvalid
	}
	return slug, nil
}

// Slugify 将标题转换为 slug，无法转换时返回空串。
func Slugify(title string) string {
	slug := slugReplacePunct.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
	return strings.Trim(slug, "-")
}

// slugOrTitle 优先使用显式 slug，否则由标题生成。
func slugOrTitle(slug, title string) (string, error) {
	if strings.TrimSpace(slug) == "" {
		slug = Slugify(title)
	}
	return NormalizeSlug(slug)
}

// NormalizeEmail 校验邮箱格式并统一为小写。
func NormalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmailInvalid
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", ErrEmailInvalid
	}
	return strings.ToLower(addr.Address), nil
}

func summarizeText(text string, limit int) string {
	replacer := strings.NewReplacer(
		"#", " ",
		"*", " ",
		"`", " ",
		"_", " ",
		">", " ",
		"[", " ",
		"]", " ",
		"(", " ",
		")", " ",
	)
	plain := strings.Join(strings.Fields(replacer.Replace(text)), " ")
	if plain == "" {
		return ""
	}

	if utf8.RuneCountInString(plain) <= limit {
		return plain
	}

	runes := []rune(plain)
	return string(runes[:limit]) + "…"
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizePerPage(perPage, fallback int) int {
	if perPage <= 0 {
		return fallback
	}
	if perPage > 100 {
		return 100
	}
	return perPage
}

func calculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	if total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
