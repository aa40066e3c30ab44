package locale

import "testing"

func TestNormalizeLanguage(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{input: "zh", want: LanguageChinese},
		{input: "zh-CN", want: LanguageChinese},
		{input: "ZH_hans", want: LanguageChinese},
		{input: "en", want: LanguageEnglish},
		{input: "en-US", want: LanguageEnglish},
		{input: "fr", want: ""},
		{input: "", want: ""},
	}

	for _, tc := range cases {
		if got := NormalizeLanguage(tc.input); got != tc.want {
			t.Fatalf("NormalizeLanguage(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestLanguageFromAcceptLanguage(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{input: "zh-CN,zh;q=0.9", want: LanguageChinese},
		{input: "en-US,en;q=0.9", want: LanguageEnglish},
		{input: "fr-FR,fr;q=0.9,zh;q=0.5", want: LanguageChinese},
		{input: "de", want: ""},
		{input: "", want: ""},
	}

	for _, tc := range cases {
		if got := LanguageFromAcceptLanguage(tc.input); got != tc.want {
			t.Fatalf("LanguageFromAcceptLanguage(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestResolvePrefersExplicitLanguage(t *testing.T) {
	if got := Resolve("zh", "en-US"); got != LanguageChinese {
		t.Fatalf("expected explicit language to win, got %q", got)
	}
	if got := Resolve("", "zh-TW"); got != LanguageChinese {
		t.Fatalf("expected header language, got %q", got)
	}
	if got := Resolve("xx", "de"); got != DefaultLanguage {
		t.Fatalf("expected default language, got %q", got)
	}
}
