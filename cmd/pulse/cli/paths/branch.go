package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const branchRefPrefix = "ref: refs/heads/"

// BranchForDir returns the branch checked out in the nearest enclosing git
// working tree, walking upward from dir. Returns "" when no repository is
// found, when HEAD is detached, or when the metadata cannot be read. Branch
// detection is best-effort telemetry metadata: every failure resolves to ""
// rather than an error.
//
// The walk stops at the first level where .git metadata exists. If branch
// extraction fails at that level the result is "", not a retry higher up.
func BranchForDir(dir string) string {
	dir = filepath.Clean(dir)
	for {
		gitPath := filepath.Join(dir, ".git")
		if fi, err := os.Stat(gitPath); err == nil {
			return branchFromGitPath(gitPath, dir, fi.IsDir())
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// branchFromGitPath reads the checked-out branch from a .git directory, or
// follows a linked-worktree "gitdir:" redirect file to the real metadata.
func branchFromGitPath(gitPath, worktreeDir string, isDir bool) string {
	headPath := filepath.Join(gitPath, "HEAD")
	if !isDir {
		// Linked worktree: .git is a file containing "gitdir: <path>"
		data, err := os.ReadFile(gitPath)
		if err != nil {
			return ""
		}
		content := strings.TrimSpace(string(data))
		if !strings.HasPrefix(content, "gitdir: ") {
			return ""
		}
		gitdir := strings.TrimPrefix(content, "gitdir: ")
		if !filepath.IsAbs(gitdir) {
			gitdir = filepath.Join(worktreeDir, gitdir)
		}
		headPath = filepath.Join(gitdir, "HEAD")
	}

	data, err := os.ReadFile(headPath)
	if err != nil {
		return ""
	}

	ref := strings.TrimSpace(string(data))
	if strings.HasPrefix(ref, branchRefPrefix) {
		return strings.TrimPrefix(ref, branchRefPrefix)
	}

	// Detached HEAD or other ref type
	return ""
}
