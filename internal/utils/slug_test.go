package utils_test

import (
	"testing"

	"github.com/belajaryuk/roadmap-api/internal/utils"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Belajar Next.js", "belajar-next-js"},
		{"Belajar Golang", "belajar-golang"},
		{"  Machine   Learning!  ", "machine-learning"},
		{"C++ for Beginners", "c-for-beginners"},
		{"データサイエンス", ""},
		{"", ""},
		{"already-a-slug", "already-a-slug"},
	}

	for _, c := range cases {
		if got := utils.Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
