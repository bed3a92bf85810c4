package vcsdiff

// FakeSource is a hand-rolled Source implementation for tests that need to
// drive the orchestrator without a real git checkout.
type FakeSource struct {
	MergeBaseRef    string
	DiffText        string
	ChangedFiles    []string
	FilesAtRef      map[string]string
	MergeBaseErr    error
	DiffErr         error
	ChangedFilesErr error
}

func (f *FakeSource) MergeBase(branch string) (string, error) {
	return f.MergeBaseRef, f.MergeBaseErr
}

func (f *FakeSource) DiffSince(ref string) (string, error) {
	return f.DiffText, f.DiffErr
}

func (f *FakeSource) ChangedFilesSince(ref string) ([]string, error) {
	return f.ChangedFiles, f.ChangedFilesErr
}

func (f *FakeSource) ShowFile(ref, path string) (string, error) {
	if f.FilesAtRef == nil {
		return "", nil
	}
	return f.FilesAtRef[path], nil
}

var _ Source = (*FakeSource)(nil)
