package risk

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/panbanda/arrears/pkg/models"
)

// fixKeywords mark commits that repaired defects; files they touch
// carry elevated risk.
var fixKeywords = []string{"fix", "bug", "patch", "hotfix", "regression"}

// GitAnalyzer derives contextual risk from commit history: files with
// heavy recent churn or repeated bug fixes score higher.
type GitAnalyzer struct {
	commits map[string]int // path -> commits in window
	fixes   map[string]int // path -> fix commits in window
	maxSeen int
}

// NewGitAnalyzer walks the repository history once, bounded by the
// given window in days, and precomputes per-file churn.
func NewGitAnalyzer(repoPath string, days int) (*GitAnalyzer, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	since := time.Now().AddDate(0, 0, -days)
	iter, err := repo.Log(&git.LogOptions{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	a := &GitAnalyzer{
		commits: make(map[string]int),
		fixes:   make(map[string]int),
	}

	err = iter.ForEach(func(c *object.Commit) error {
		isFix := isFixMessage(c.Message)
		stats, err := c.Stats()
		if err != nil {
			return nil // merge commits and similar are skipped
		}
		for _, stat := range stats {
			path := filepath.ToSlash(stat.Name)
			a.commits[path]++
			if isFix {
				a.fixes[path]++
			}
			if a.commits[path] > a.maxSeen {
				a.maxSeen = a.commits[path]
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func isFixMessage(message string) bool {
	subject := strings.ToLower(message)
	if i := strings.IndexByte(subject, '\n'); i >= 0 {
		subject = subject[:i]
	}
	for _, kw := range fixKeywords {
		if strings.Contains(subject, kw) {
			return true
		}
	}
	return false
}

// FileRisk implements Analyzer. The score combines normalized churn
// with a fix-commit penalty, on a 0-10 scale.
func (a *GitAnalyzer) FileRisk(path string) *models.ContextualRisk {
	path = filepath.ToSlash(strings.TrimPrefix(path, "./"))
	commits := a.commits[path]
	if commits == 0 {
		return nil
	}

	churn := float64(commits)
	if a.maxSeen > 0 {
		churn = churn / float64(a.maxSeen)
	}
	fixes := a.fixes[path]

	score := churn*5 + math.Min(5, float64(fixes)*1.5)

	var factors []string
	if commits >= 3 {
		factors = append(factors, fmt.Sprintf("%d commits in window", commits))
	}
	if fixes > 0 {
		factors = append(factors, fmt.Sprintf("%d bug-fix commits", fixes))
	}
	return &models.ContextualRisk{
		RiskScore: models.RoundScore(score),
		Factors:   factors,
	}
}

// FunctionRisk implements Analyzer. Git history resolves to files, so
// functions inherit their file's risk.
func (a *GitAnalyzer) FunctionRisk(path, function string) *models.ContextualRisk {
	return a.FileRisk(path)
}

// Close implements Analyzer.
func (a *GitAnalyzer) Close() {}
