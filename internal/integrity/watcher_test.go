package integrity_test

import (
	"context"
	"testing"
	"time"

	"github.com/pders01/modelkeep/internal/integrity"
	"github.com/pders01/modelkeep/internal/models"
)

func TestTamperWatcherRestores(t *testing.T) {
	v, st, dir := newTestVerifier(t, nil)
	ctx := context.Background()

	dir.WriteBundled(models.TextGenerator, "weights-v1")
	dir.WriteInstalled(models.TextGenerator, "weights-v1")

	tw, err := integrity.NewTamperWatcher(v, st, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	tw.SetDebounceForTest(50 * time.Millisecond)

	if err := tw.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer tw.Stop()

	dir.CorruptInstalled(models.TextGenerator, []byte("overwritten by attacker"))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if v.Verify(ctx, models.TextGenerator, st.InstalledPath(models.TextGenerator)) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatal("watcher did not restore the tampered artifact in time")
}

func TestTamperWatcherStartStop(t *testing.T) {
	v, st, _ := newTestVerifier(t, nil)

	tw, err := integrity.NewTamperWatcher(v, st, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	if err := tw.Start(context.Background()); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}

	// Second start is a no-op
	if err := tw.Start(context.Background()); err != nil {
		t.Errorf("restart should be a no-op, got %v", err)
	}

	tw.Stop()
	// Second stop is a no-op
	tw.Stop()
}
