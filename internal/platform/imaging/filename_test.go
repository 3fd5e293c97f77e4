package imaging

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple", input: "Ziggy", want: "ziggy"},
		{name: "spaces collapse", input: "Sir  Biscuit III", want: "sir-biscuit-iii"},
		{name: "punctuation", input: "Coco (the 2nd)!", want: "coco-the-2nd"},
		{name: "leading and trailing junk", input: "  --Luna--  ", want: "luna"},
		{name: "non-ascii dropped", input: "Pépper", want: "p-pper"},
		{name: "empty", input: "   ", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Slugify(tc.input); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestBuildImageFileName(t *testing.T) {
	got, err := BuildImageFileName("AP00007", "Sir Biscuit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "AP00007-sir-biscuit.jpg" {
		t.Fatalf("expected AP00007-sir-biscuit.jpg, got %s", got)
	}

	got, err = BuildImageFileName("AP00008", "!!!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "AP00008.jpg" {
		t.Fatalf("expected AP00008.jpg for empty slug, got %s", got)
	}

	if _, err := BuildImageFileName("", "Ziggy"); err == nil {
		t.Fatalf("expected error for empty product id")
	}
	if _, err := BuildImageFileName("../etc", "Ziggy"); err == nil {
		t.Fatalf("expected error for traversal in product id")
	}
}

func TestValidateFileName(t *testing.T) {
	if _, err := ValidateFileName("AP00001-ziggy.jpg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "  ", "a/b.jpg", "a\\b.jpg", "..", "a..jpg"} {
		if _, err := ValidateFileName(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
