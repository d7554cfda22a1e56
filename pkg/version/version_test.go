package version

import "testing"

func TestStringPrefersTag(t *testing.T) {
	oldTag, oldCommit := tag, commit
	t.Cleanup(func() { tag, commit = oldTag, oldCommit })

	tag, commit = "v1.2.3", "abc1234"
	if got := String(); got != "v1.2.3" {
		t.Errorf("String() = %q, want tag", got)
	}
	tag = ""
	if got := String(); got != "abc1234" {
		t.Errorf("String() = %q, want commit", got)
	}
	if got := Banner("quizline-server"); got != "quizline-server abc1234" {
		t.Errorf("Banner = %q", got)
	}
	if got := UserAgent(); got != "quizline/abc1234" {
		t.Errorf("UserAgent = %q", got)
	}
}
