package lineMap

import (
	"os"
	"testing"
)

func withTrackStubs(t *testing.T, content string) {
	t.Helper()
	origStat, origRead := osStat, osReadFile
	osStat = func(string) (os.FileInfo, error) { return &stubFileInfo{}, nil }
	osReadFile = func(string) ([]byte, error) { return []byte(content), nil }
	t.Cleanup(func() {
		osStat, osReadFile = origStat, origRead
	})
}

func TestTrack(t *testing.T) {
	withTrackStubs(t, "mov eax, 1\nret")

	tracker, err := Track("file.kasm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracker.Source() != "mov eax, 1\nret" {
		t.Errorf("expected initial Source() to equal file content, got %q", tracker.Source())
	}
	if tracker.FilePath() != "file.kasm" {
		t.Errorf("expected FilePath() to equal %q, got %q", "file.kasm", tracker.FilePath())
	}
}

func TestTrack_PropagatesLoadError(t *testing.T) {
	if _, err := Track("file.txt"); err == nil {
		t.Fatal("expected Track to propagate LoadSource's extension error")
	}
}

func TestTracker_SnapshotAndOrigin(t *testing.T) {
	withTrackStubs(t, "a\nb")

	tracker, err := Track("file.kasm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tracker.Snapshot("a\nb\nc")

	if got := tracker.Origin(0); got != 0 {
		t.Errorf("expected line 0 to trace to origin 0, got %d", got)
	}
	if got := tracker.Origin(2); got != -1 {
		t.Errorf("expected inserted line 2 to have no origin, got %d", got)
	}
}

func TestTracker_History(t *testing.T) {
	withTrackStubs(t, "a")

	tracker, err := Track("file.kasm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tracker.Snapshot("a\nb")

	hist := tracker.History(1)
	if len(hist) != 1 {
		t.Fatalf("expected 1 history entry for inserted line 1, got %d", len(hist))
	}
}

func TestTracker_ReadAccess(t *testing.T) {
	withTrackStubs(t, "x\ny\nz")

	tracker, err := Track("file.kasm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tracker.Lines()) != 3 {
		t.Errorf("expected 3 lines, got %d", len(tracker.Lines()))
	}
}
