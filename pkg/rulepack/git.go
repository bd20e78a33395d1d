package rulepack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"mercator-hq/mailguard/pkg/config"
)

// GitSource keeps a local clone of a rule pack repository up to date.
type GitSource struct {
	cfg       config.GitConfig
	localPath string
	logger    *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
	head string
}

// NewGitSource validates cfg. Nothing is fetched until Sync.
func NewGitSource(cfg config.GitConfig, logger *slog.Logger) (*GitSource, error) {
	if cfg.Repository == "" {
		return nil, errors.New("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		cfg.Branch = config.DefaultGitBranch
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultGitTimeout
	}
	if _, err := gitAuth(cfg.Auth); err != nil {
		return nil, fmt.Errorf("failed to configure git auth: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	localPath := cfg.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), "mailguard-rule-packs")
	}

	return &GitSource{
		cfg:       cfg,
		localPath: localPath,
		logger:    logger.With("component", "rulepack.git", "repository", cfg.Repository),
	}, nil
}

// PackPath is the directory inside the clone that holds the packs.
func (g *GitSource) PackPath() string {
	return filepath.Join(g.localPath, g.cfg.Path)
}

// Head returns the commit SHA of the last successful sync.
func (g *GitSource) Head() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.head
}

// Sync clones the repository on first use (or opens an existing clone)
// and pulls afterwards. It reports whether HEAD moved.
func (g *GitSource) Sync(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	auth, err := gitAuth(g.cfg.Auth)
	if err != nil {
		return false, err
	}

	cloned := false
	if g.repo == nil {
		if cloned, err = g.open(ctx, auth); err != nil {
			return false, err
		}
	}
	if !cloned {
		if err := g.pull(ctx, auth); err != nil {
			return false, err
		}
	}

	ref, err := g.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get HEAD: %w", err)
	}
	head := ref.Hash().String()
	changed := head != g.head
	if changed {
		g.logger.Info("rule pack repository updated", "from", shortSHA(g.head), "to", shortSHA(head))
	}
	g.head = head
	return changed, nil
}

// open opens an existing clone or clones the repository, reporting whether
// a fresh clone was made.
func (g *GitSource) open(ctx context.Context, auth transport.AuthMethod) (bool, error) {
	if _, err := os.Stat(filepath.Join(g.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(g.localPath)
		if err != nil {
			return false, fmt.Errorf("failed to open existing clone: %w", err)
		}
		g.repo = repo
		return false, nil
	}

	if err := os.MkdirAll(g.localPath, 0o755); err != nil {
		return false, fmt.Errorf("failed to create clone directory: %w", err)
	}
	repo, err := gogit.PlainCloneContext(ctx, g.localPath, false, &gogit.CloneOptions{
		URL:           g.cfg.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(g.cfg.Branch),
		SingleBranch:  true,
		Depth:         g.cfg.Depth,
		Auth:          auth,
	})
	if err != nil {
		return false, fmt.Errorf("failed to clone repository: %w", err)
	}
	g.repo = repo
	return true, nil
}

func (g *GitSource) pull(ctx context.Context, auth transport.AuthMethod) error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	err = wt.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(g.cfg.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull: %w", err)
	}
	return nil
}

// Poll syncs every PollInterval until ctx is cancelled, calling onChange
// with the pack path and new HEAD whenever HEAD moves. Sync and callback
// errors are logged and polling continues.
func (g *GitSource) Poll(ctx context.Context, onChange func(path, version string) error) {
	if g.cfg.PollInterval <= 0 {
		return
	}
	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := g.Sync(ctx)
			if err != nil {
				g.logger.Error("rule pack repository sync failed", "error", err)
				continue
			}
			if !changed {
				continue
			}
			if err := onChange(g.PackPath(), g.Head()); err != nil {
				g.logger.Error("rule pack reload after sync failed", "error", err)
			}
		}
	}
}

func gitAuth(cfg config.GitAuthConfig) (transport.AuthMethod, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "token":
		if cfg.Token == "" {
			return nil, errors.New("token auth requires non-empty token")
		}
		return &githttp.BasicAuth{Username: "git", Password: cfg.Token}, nil
	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, errors.New("ssh auth requires ssh_key_path")
		}
		info, err := os.Stat(cfg.SSHKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to access SSH key file: %w", err)
		}
		if mode := info.Mode().Perm(); mode&0o077 != 0 {
			return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
		}
		auth, err := ssh.NewPublicKeysFromFile("git", cfg.SSHKeyPath, cfg.SSHKeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key: %w", err)
		}
		return auth, nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", cfg.Type)
	}
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
