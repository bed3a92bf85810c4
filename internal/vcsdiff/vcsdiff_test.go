package vcsdiff

import "testing"

func TestFakeSourceSatisfiesInterface(t *testing.T) {
	f := &FakeSource{
		MergeBaseRef: "abc123",
		DiffText:     "diff --git a/x b/x\n",
		ChangedFiles: []string{"x"},
		FilesAtRef:   map[string]string{"x": "old content"},
	}

	var s Source = f

	base, err := s.MergeBase("main")
	if err != nil || base != "abc123" {
		t.Fatalf("MergeBase = %q, %v", base, err)
	}
	diffText, err := s.DiffSince("abc123")
	if err != nil || diffText != f.DiffText {
		t.Fatalf("DiffSince = %q, %v", diffText, err)
	}
	files, err := s.ChangedFilesSince("abc123")
	if err != nil || len(files) != 1 || files[0] != "x" {
		t.Fatalf("ChangedFilesSince = %v, %v", files, err)
	}
	content, err := s.ShowFile("abc123", "x")
	if err != nil || content != "old content" {
		t.Fatalf("ShowFile = %q, %v", content, err)
	}
}

func TestGitDirConstruction(t *testing.T) {
	g := New("/tmp/repo")
	if g.Dir != "/tmp/repo" {
		t.Fatalf("Dir = %q, want /tmp/repo", g.Dir)
	}
}
