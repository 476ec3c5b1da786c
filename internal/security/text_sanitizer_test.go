package security

import "testing"

func TestSanitize_RemovesScriptTags(t *testing.T) {
	s := NewTextSanitizer()

	got := s.Sanitize(`カレーのレシピ<script>alert("xss")</script>`)
	want := "カレーのレシピ"
	if got != want {
		t.Errorf("Sanitize() = %q, want %q", got, want)
	}
}

func TestSanitize_StripsAllMarkup(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text passes through", "玉ねぎを炒める", "玉ねぎを炒める"},
		{"bold tags removed", "<strong>強火</strong>で炒める", "強火で炒める"},
		{"anchor removed but text kept", `<a href="https://example.com">リンク</a>`, "リンク"},
		{"iframe removed", `<iframe src="https://evil.example"></iframe>残り`, "残り"},
		{"empty input", "", ""},
		{"event handler removed", `<img src=x onerror="alert(1)">説明`, "説明"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	s := NewTextSanitizer()

	input := `<p>手順1</p> 手順2`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("Sanitize is not idempotent: %q vs %q", once, twice)
	}
}
