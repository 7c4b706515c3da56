// Package git keeps manifest repositories cloned and current.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/log"
)

// Repository is a local clone of a configured manifest repository. The clone
// lives under the repository directory, named after the configuration entry.
type Repository struct {
	config.Repository
	Path string

	repo   *git.Repository
	logger log.Logger
}

// NewRepository returns a repository rooted under repositoryDir. Nothing
// touches the filesystem until Sync is called.
func NewRepository(cfg config.Repository, repositoryDir string, logger log.Logger) *Repository {
	return &Repository{
		Repository: cfg,
		Path:       filepath.Join(repositoryDir, cfg.Name),
		logger:     logger,
	}
}

// ManifestPath returns the directory manifests are loaded from after a sync,
// honoring the configured manifest subdirectory.
func (r *Repository) ManifestPath() string {
	if r.ManifestDir != "" {
		return filepath.Join(r.Path, r.ManifestDir)
	}
	return r.Path
}

// Sync clones the remote repository to the local path if it doesn't exist,
// or opens the existing clone and pulls the latest changes. When a reference
// is configured it is checked out afterwards.
func (r *Repository) Sync(ctx context.Context) error {
	r.logger.Info("Syncing repository", "path", r.Path, "url", r.URL)

	repo, err := git.PlainCloneContext(ctx, r.Path, false, &git.CloneOptions{
		URL:      r.URL,
		Progress: os.Stdout,
	})
	switch {
	case err == nil:
		r.repo = repo
	case errors.Is(err, git.ErrRepositoryAlreadyExists):
		r.logger.Debug("Repository already exists, opening", "path", r.Path)
		repo, err = git.PlainOpen(r.Path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", r.Path, err)
		}
		r.repo = repo
		if err := r.pull(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cloning %s: %w", r.URL, err)
	}

	if r.Reference != "" {
		return r.checkout()
	}
	return nil
}

// checkout resolves the configured reference as a commit hash, then a
// branch, then a tag.
func (r *Repository) checkout() error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return err
	}

	if hash := plumbing.NewHash(r.Reference); !hash.IsZero() {
		r.logger.Debug("Checking out reference as commit", "hash", r.Reference)
		if err := worktree.Checkout(&git.CheckoutOptions{Hash: hash}); err == nil {
			return nil
		}
	}

	r.logger.Debug("Checking out reference as branch", "ref", r.Reference)
	if err := worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(r.Reference),
	}); err == nil {
		return nil
	}

	r.logger.Debug("Checking out reference as tag", "ref", r.Reference)
	if err := worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewTagReferenceName(r.Reference),
	}); err != nil {
		return fmt.Errorf("checking out %q: %w", r.Reference, err)
	}
	return nil
}

// pull fast-forwards the clone from origin. An already up-to-date clone is
// not an error.
func (r *Repository) pull(ctx context.Context) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return err
	}

	err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		r.logger.Debug("Repository is already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("pulling %s: %w", r.URL, err)
	}
	return nil
}
