package anchor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

// GitBackend anchors roots as empty commits on a dedicated branch; the
// commit hash serves as a tamper-evident timestamp.
type GitBackend struct {
	repoPath string
	branch   string
}

// NewGitBackend constructs a Git anchor backend against an existing
// repository at repoPath, anchoring on branch.
func NewGitBackend(repoPath, branch string) *GitBackend {
	if branch == "" {
		branch = "vex-anchors"
	}
	return &GitBackend{repoPath: repoPath, branch: branch}
}

// sanitizeGitMessage restricts commit message content to alphanumerics,
// spaces, and the punctuation set `-_:.@/()[]{}`, strips control characters, and caps
// length at 1000 to prevent log injection and git hook exploitation via
// attacker-controlled metadata.
func sanitizeGitMessage(s string) string {
	const allowedPunct = " -_:.@/()[]{}"
	var b strings.Builder
	for _, r := range s {
		if b.Len() >= 1000 {
			break
		}
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(allowedPunct, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (b *GitBackend) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = b.repoPath
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", newErr(CategoryGit, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out))))
	}
	return strings.TrimSpace(string(out)), nil
}

func (b *GitBackend) ensureBranch(ctx context.Context) error {
	branches, err := b.git(ctx, "branch", "--list", b.branch)
	if err != nil {
		return err
	}
	if branches == "" {
		if _, err := b.git(ctx, "checkout", "--orphan", b.branch); err != nil {
			return err
		}
		_, err := b.git(ctx, "commit", "--allow-empty", "-m", "VEX Anchor Chain Initialized")
		return err
	}
	_, err = b.git(ctx, "checkout", b.branch)
	return err
}

func (b *GitBackend) Name() string { return "git" }

func (b *GitBackend) Anchor(ctx context.Context, root vexhash.Hash, metadata Metadata) (Receipt, error) {
	if err := b.ensureBranch(ctx); err != nil {
		return Receipt{}, err
	}

	safeTenant := sanitizeGitMessage(metadata.TenantID)
	safeDescription := sanitizeGitMessage(metadata.Description)
	if safeDescription == "" {
		safeDescription = "N/A"
	}

	message := fmt.Sprintf(
		"VEX Anchor: %s\n\nRoot: %s\nTenant: %s\nEvents: %d\nTimestamp: %s\nDescription: %s",
		root.Hex()[:16], root.Hex(), safeTenant, metadata.EventCount,
		metadata.Timestamp.Format(time.RFC3339), safeDescription,
	)

	if _, err := b.git(ctx, "commit", "--allow-empty", "-m", message); err != nil {
		return Receipt{}, err
	}

	commitHash, err := b.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return Receipt{}, err
	}

	proof := fmt.Sprintf("git:%s:%s", b.branch, commitHash)
	return Receipt{
		Backend:    b.Name(),
		RootHash:   root.Hex(),
		AnchorID:   commitHash,
		AnchoredAt: time.Now().UTC(),
		Proof:      &proof,
		Metadata:   metadata,
	}, nil
}

func (b *GitBackend) Verify(ctx context.Context, receipt Receipt) (bool, error) {
	_, _ = b.git(ctx, "checkout", b.branch)

	if _, err := b.git(ctx, "cat-file", "-t", receipt.AnchorID); err != nil {
		return false, nil
	}

	message, err := b.git(ctx, "log", "-1", "--format=%B", receipt.AnchorID)
	if err != nil {
		return false, err
	}
	return strings.Contains(message, receipt.RootHash), nil
}

func (b *GitBackend) IsHealthy(ctx context.Context) bool {
	_, err := b.git(ctx, "status")
	return err == nil
}
