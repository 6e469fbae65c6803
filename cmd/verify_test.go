package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/pders01/modelkeep/internal/models"
)

func TestVerifyNoArtifacts(t *testing.T) {
	setupTestEnv(t)
	verifyCmd.SetContext(context.Background())

	if err := runVerify(verifyCmd, nil); err != nil {
		t.Fatalf("verify command failed: %v", err)
	}
}

func TestVerifyRestoresTampered(t *testing.T) {
	dir := setupTestEnv(t)
	verifyCmd.SetContext(context.Background())

	dir.WriteBundled(models.TextGenerator, "weights")
	dir.CorruptInstalled(models.TextGenerator, []byte("tampered"))

	if err := runVerify(verifyCmd, []string{"text-generator"}); err != nil {
		t.Fatalf("verify command failed: %v", err)
	}

	installed := dir.ReadFile(dir.InstalledPath(models.TextGenerator))
	if bytes.Contains(installed, []byte("tampered")) {
		t.Error("tampered artifact should have been restored")
	}
}

func TestVerifyUnknownIdentity(t *testing.T) {
	setupTestEnv(t)
	verifyCmd.SetContext(context.Background())

	if err := runVerify(verifyCmd, []string{"bogus"}); err == nil {
		t.Error("expected error for unknown identity")
	}
}
