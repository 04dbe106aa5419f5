// Package obsidian reads and writes notes in an Obsidian vault on disk.
//
// Daily notes live at <vault>/Daily/YYYY-MM-DD.md and are created from a fixed
// template. Captured entries are inserted newest-first under "## Captured".
package obsidian

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harun/ctx/pkg/svcerr"
	"github.com/rs/zerolog"
)

const (
	dailyDir       = "Daily"
	capturedMarker = "## Captured\n"

	// DefaultSearchLimit caps the number of matches returned by Search
	DefaultSearchLimit = 20
)

// Match is a single search hit
type Match struct {
	Path string // path relative to the vault root
	Line int    // 1-based line number
	Text string
}

// Vault is an Obsidian vault rooted at a directory
type Vault struct {
	root   string
	now    func() time.Time
	logger zerolog.Logger

	// serializes read-modify-write of the daily note
	mu sync.Mutex
}

// Option configures a Vault
type Option func(*Vault)

// WithClock overrides the clock used to pick the daily note
func WithClock(now func() time.Time) Option {
	return func(v *Vault) {
		v.now = now
	}
}

// WithLogger sets the vault logger
func WithLogger(logger zerolog.Logger) Option {
	return func(v *Vault) {
		v.logger = logger.With().Str("component", "obsidian").Logger()
	}
}

// New creates a vault handle. The directory must exist.
func New(root string, opts ...Option) (*Vault, error) {
	if root == "" {
		return nil, fmt.Errorf("vault path is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault path %s is not a directory", root)
	}

	v := &Vault{
		root:   root,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Root returns the vault root directory
func (v *Vault) Root() string {
	return v.root
}

// DailyNotePath returns the path of today's daily note
func (v *Vault) DailyNotePath() string {
	return filepath.Join(v.root, dailyDir, v.now().Format("2006-01-02")+".md")
}

func dailyTemplate(date string) string {
	return fmt.Sprintf("# %s\n\n## Captured\n\n## Tasks Created\n\n## Notes\n", date)
}

// formatEntryTime renders the time as "2:47pm"
func formatEntryTime(t time.Time) string {
	return t.Format("3:04pm")
}

// EnsureDaily creates today's daily note from the template if it does not exist
func (v *Vault) EnsureDaily(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", svcerr.Wrap(svcerr.CodeWrite, "Write operation cancelled", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	path := v.DailyNotePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", svcerr.Wrap(svcerr.CodeWrite, err.Error(), err)
	}

	_, err := os.Stat(path)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", svcerr.Wrap(svcerr.CodeRead, err.Error(), err)
	}

	if err := os.WriteFile(path, []byte(dailyTemplate(v.now().Format("2006-01-02"))), 0644); err != nil {
		return "", svcerr.Wrap(svcerr.CodeWrite, err.Error(), err)
	}
	v.logger.Info().Str("path", path).Msg("Daily note created")
	return path, nil
}

// AppendToDaily inserts a timestamped entry at the top of the Captured
// section of today's daily note, creating the note when needed.
func (v *Vault) AppendToDaily(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return svcerr.Wrap(svcerr.CodeWrite, "Write operation cancelled", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	path := v.DailyNotePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return svcerr.Wrap(svcerr.CodeWrite, err.Error(), err)
	}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		content = []byte(dailyTemplate(now.Format("2006-01-02")))
	case err != nil:
		return svcerr.Wrap(svcerr.CodeWrite, err.Error(), err)
	}

	entry := fmt.Sprintf("- %s — %s\n", formatEntryTime(now), strings.TrimSpace(text))
	updated := insertEntry(string(content), entry)

	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		return svcerr.Wrap(svcerr.CodeWrite, err.Error(), err)
	}

	v.logger.Debug().Str("path", path).Msg("Entry appended to daily note")
	return nil
}

// insertEntry places entry right after the Captured marker. A note without the
// marker gets a new Captured section appended.
func insertEntry(content, entry string) string {
	idx := strings.Index(content, capturedMarker)
	if idx < 0 {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		return content + "\n" + capturedMarker + entry
	}
	insertAt := idx + len(capturedMarker)
	return content[:insertAt] + entry + content[insertAt:]
}

// ReadDaily returns the content of today's daily note
func (v *Vault) ReadDaily(ctx context.Context) (string, error) {
	return v.ReadNote(ctx, v.DailyNotePath())
}

// ReadNote returns the content of a note
func (v *Vault) ReadNote(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", svcerr.Wrap(svcerr.CodeRead, "Read operation cancelled", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", svcerr.Wrap(svcerr.CodeRead, err.Error(), err)
	}
	return string(data), nil
}

// CreateNote writes a note, replacing any existing content
func (v *Vault) CreateNote(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return svcerr.Wrap(svcerr.CodeWrite, "Write operation cancelled", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return svcerr.Wrap(svcerr.CodeWrite, err.Error(), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return svcerr.Wrap(svcerr.CodeWrite, err.Error(), err)
	}
	return nil
}

// Search finds lines containing query (case-insensitive) in the vault's
// markdown files. Hidden directories such as .obsidian are skipped.
func (v *Vault) Search(ctx context.Context, query string) ([]Match, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, svcerr.New(svcerr.CodeValidation, "search query is empty")
	}

	matches := []Match{}
	errLimit := errors.New("limit reached")

	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != v.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}

		found, err := searchFile(path, needle)
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(v.root, path)
		if relErr != nil {
			rel = path
		}
		for _, m := range found {
			m.Path = filepath.ToSlash(rel)
			matches = append(matches, m)
			if len(matches) >= DefaultSearchLimit {
				return errLimit
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, svcerr.Wrap(svcerr.CodeRead, err.Error(), err)
	}

	v.logger.Debug().Str("query", query).Int("matches", len(matches)).Msg("Vault searched")
	return matches, nil
}

func searchFile(path, needle string) ([]Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var matches []Match
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.Contains(strings.ToLower(text), needle) {
			matches = append(matches, Match{Line: line, Text: strings.TrimSpace(text)})
		}
	}
	return matches, scanner.Err()
}
