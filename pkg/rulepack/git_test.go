package rulepack

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"mercator-hq/mailguard/pkg/config"
)

// newOrigin creates a local repository on master with one pack committed.
func newOrigin(t *testing.T) (string, *gogit.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	commitFile(t, repo, dir, "packs/invoice.yaml", invoicePack)
	return dir, repo
}

func commitFile(t *testing.T, repo *gogit.Repository, dir, rel, content string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, rel), content)
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add(rel); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	_, err = wt.Commit("add "+rel, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Rule Bot", Email: "rules@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
}

func TestGitSource_SyncAndPull(t *testing.T) {
	originDir, origin := newOrigin(t)

	src, err := NewGitSource(config.GitConfig{
		Repository: originDir,
		Branch:     "master",
		Path:       "packs",
		LocalPath:  filepath.Join(t.TempDir(), "clone"),
		Timeout:    10 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}

	changed, err := src.Sync(context.Background())
	if err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	if !changed || src.Head() == "" {
		t.Fatalf("first Sync() changed = %v, head = %q", changed, src.Head())
	}
	packs, err := Load(src.PackPath())
	if err != nil || len(packs) != 1 {
		t.Fatalf("Load(clone) = %v, %v", packs, err)
	}

	changed, err = src.Sync(context.Background())
	if err != nil || changed {
		t.Fatalf("idle Sync() = %v, %v", changed, err)
	}

	first := src.Head()
	commitFile(t, origin, originDir, "packs/gift.yaml", giftCardPack)

	changed, err = src.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() after commit error = %v", err)
	}
	if !changed || src.Head() == first {
		t.Errorf("Sync() after commit changed = %v, head unchanged = %v", changed, src.Head() == first)
	}
	if _, err := os.Stat(filepath.Join(src.PackPath(), "gift.yaml")); err != nil {
		t.Errorf("pulled file missing: %v", err)
	}
}

func TestGitSource_ReopensExistingClone(t *testing.T) {
	originDir, _ := newOrigin(t)
	cfg := config.GitConfig{
		Repository: originDir,
		Branch:     "master",
		LocalPath:  filepath.Join(t.TempDir(), "clone"),
		Timeout:    10 * time.Second,
	}

	first, _ := NewGitSource(cfg, nil)
	if _, err := first.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	second, _ := NewGitSource(cfg, nil)
	changed, err := second.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() on existing clone error = %v", err)
	}
	if !changed || second.Head() != first.Head() {
		t.Errorf("changed = %v, head = %q, want %q", changed, second.Head(), first.Head())
	}
}

func TestNewGitSource_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.GitConfig
	}{
		{"no repository", config.GitConfig{}},
		{"token without token", config.GitConfig{Repository: "https://x", Auth: config.GitAuthConfig{Type: "token"}}},
		{"ssh without key", config.GitConfig{Repository: "git@x:y", Auth: config.GitAuthConfig{Type: "ssh"}}},
		{"unknown auth", config.GitConfig{Repository: "https://x", Auth: config.GitAuthConfig{Type: "kerberos"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGitSource(tt.cfg, nil); err == nil {
				t.Error("NewGitSource() error = nil")
			}
		})
	}
}

func TestGitAuth_SSHKeyPermissions(t *testing.T) {
	key := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(key, []byte("not a key"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := gitAuth(config.GitAuthConfig{Type: "ssh", SSHKeyPath: key})
	if err == nil {
		t.Fatal("gitAuth() error = nil for world-readable key")
	}
}
