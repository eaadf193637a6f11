package langmeta

import "testing"

func TestResolveExact(t *testing.T) {
	m := Resolve("zh")
	if m.Name != "Chinese" {
		t.Errorf("Name = %q, want Chinese", m.Name)
	}
	if m.Native != "中文" {
		t.Errorf("Native = %q, want 中文", m.Native)
	}
}

func TestResolveVariants(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"pt_BR", "Brazilian Portuguese"},
		{"pt-br", "Brazilian Portuguese"},
		{"ZH", "Chinese"},
		{"de_AT", "German"}, // unknown variant falls back to base
		{" fr ", "French"},
	}
	for _, c := range cases {
		if got := Resolve(c.in).Name; got != c.want {
			t.Errorf("Resolve(%q).Name = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	m := Resolve("tlh")
	if m.Name != "tlh" {
		t.Errorf("unknown code should echo back, got %q", m.Name)
	}
}

func TestPromptName(t *testing.T) {
	if got := PromptName("ja"); got != "Japanese" {
		t.Errorf("PromptName(ja) = %q, want Japanese", got)
	}
}
