package backend

import "testing"

func TestRewriteRootLinks(t *testing.T) {
	const base = "https://docs.example.com"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "root relative link",
			in:   "See the [install guide](/getting-started/install).",
			want: "See the [install guide](https://docs.example.com/getting-started/install).",
		},
		{
			name: "absolute link untouched",
			in:   "See [here](https://other.example.com/page).",
			want: "See [here](https://other.example.com/page).",
		},
		{
			name: "protocol relative untouched",
			in:   "See [cdn](//cdn.example.com/lib.js).",
			want: "See [cdn](//cdn.example.com/lib.js).",
		},
		{
			name: "image link rewritten",
			in:   "![diagram](/img/arch.png)",
			want: "![diagram](https://docs.example.com/img/arch.png)",
		},
		{
			name: "multiple links in one text",
			in:   "[a](/one) and [b](/two)",
			want: "[a](https://docs.example.com/one) and [b](https://docs.example.com/two)",
		},
		{
			name: "plain text untouched",
			in:   "no links here, just a /path mention",
			want: "no links here, just a /path mention",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewriteRootLinks(tt.in, base); got != tt.want {
				t.Errorf("rewriteRootLinks() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRewriteRootLinksEmptyBase(t *testing.T) {
	in := "See [install](/install)."
	if got := rewriteRootLinks(in, ""); got != in {
		t.Errorf("rewriteRootLinks() with empty base = %q, want unchanged", got)
	}
}

func TestRewriteRootLinksTrailingSlashBase(t *testing.T) {
	got := rewriteRootLinks("[a](/one)", "https://docs.example.com/")
	want := "[a](https://docs.example.com/one)"
	if got != want {
		t.Errorf("rewriteRootLinks() = %q, want %q", got, want)
	}
}
