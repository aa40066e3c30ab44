package locale

import "strings"

const (
	LanguageEnglish = "en"
	LanguageChinese = "zh"

	// DefaultLanguage 是页面未提供对应语言版本时的回退语言。
	DefaultLanguage = LanguageEnglish
)

// NormalizeLanguage 将 zh-CN、en_US 等写法归一为受支持的语言代码，不支持时返回空串。
func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "zh") || trimmed == "cn" {
		return LanguageChinese
	}
	if strings.HasPrefix(trimmed, "en") {
		return LanguageEnglish
	}
	return ""
}

// LanguageFromAcceptLanguage 按请求头中的先后顺序挑选第一个受支持的语言。
func LanguageFromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := part
		if idx := strings.Index(tag, ";"); idx >= 0 {
			tag = tag[:idx]
		}
		if lang := NormalizeLanguage(tag); lang != "" {
			return lang
		}
	}
	return ""
}

// Resolve 依次使用显式参数、Accept-Language，最后回退到默认语言。
func Resolve(explicit, acceptLanguage string) string {
	if lang := NormalizeLanguage(explicit); lang != "" {
		return lang
	}
	if lang := LanguageFromAcceptLanguage(acceptLanguage); lang != "" {
		return lang
	}
	return DefaultLanguage
}
