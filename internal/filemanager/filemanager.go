// Package filemanager enforces path safety, filename sanitization, output
// template expansion, and public URL composition for every artifact the
// core writes to disk. It delegates scheduled deletion to the scheduler
// package rather than owning a timer itself.
package filemanager

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"downcore/internal/apperr"
	"downcore/internal/scheduler"
	"downcore/internal/validate"
)

// Manager resolves and guards all file paths under a single storage root.
type Manager struct {
	storageRoot   string
	publicBaseURL string
	scheduler     *scheduler.Scheduler
}

// New returns a Manager rooted at storageRoot, creating the directory if
// necessary.
func New(storageRoot, publicBaseURL string, sched *scheduler.Scheduler) (*Manager, error) {
	if err := os.MkdirAll(storageRoot, 0755); err != nil {
		return nil, apperr.Wrap("filemanager.New", apperr.KindStorageError, err)
	}
	resolved, err := filepath.EvalSymlinks(storageRoot)
	if err != nil {
		return nil, apperr.Wrap("filemanager.New", apperr.KindStorageError, err)
	}
	return &Manager{
		storageRoot:   resolved,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		scheduler:     sched,
	}, nil
}

// SanitizeFilename delegates to validate.Filename, the single
// implementation of the character-stripping/truncation rules shared with
// option validation.
func (m *Manager) SanitizeFilename(raw string) string {
	return validate.Filename(raw)
}

// ValidatePath resolves candidate (relative to the storage root) to an
// absolute path and fails with KindStorageError if the result escapes the
// storage root or traverses a symlink anywhere along the way.
func (m *Manager) ValidatePath(candidate string) (string, error) {
	const op = "filemanager.ValidatePath"

	if filepath.IsAbs(candidate) {
		return "", apperr.NewWithMessage(op, apperr.KindStorageError, "candidate path must be relative to the storage root")
	}

	joined := filepath.Join(m.storageRoot, candidate)

	// filepath.Join already collapses ".." segments against storageRoot
	// lexically; EvalSymlinks on top guards against symlink escapes,
	// including the case where /var (or similar) is itself a symlink.
	resolvedRoot, err := filepath.EvalSymlinks(m.storageRoot)
	if err != nil {
		return "", apperr.Wrap(op, apperr.KindStorageError, err)
	}

	resolved, err := resolveExistingPrefix(joined)
	if err != nil {
		return "", apperr.Wrap(op, apperr.KindStorageError, err)
	}

	rel, err := filepath.Rel(resolvedRoot, resolved)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", apperr.NewWithMessage(op, apperr.KindStorageError, "path escapes storage root: "+candidate)
	}

	// m.storageRoot is already symlink-resolved, so any difference between
	// the lexical and the resolved path means a symlink was traversed.
	if resolved != joined {
		return "", apperr.NewWithMessage(op, apperr.KindStorageError, "path traverses a symlink: "+candidate)
	}

	return resolved, nil
}

// resolveExistingPrefix resolves symlinks along the longest existing
// prefix of path, then rejoins the remaining (not-yet-created) suffix
// lexically. This lets ValidatePath accept a path whose leaf file does
// not exist yet while still catching symlink escapes anywhere along an
// existing directory prefix.
func resolveExistingPrefix(path string) (string, error) {
	cur := path
	var suffix []string
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			full := resolved
			for i := len(suffix) - 1; i >= 0; i-- {
				full = filepath.Join(full, suffix[i])
			}
			return full, nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("no existing prefix for %s", path)
		}
		suffix = append(suffix, filepath.Base(cur))
		cur = parent
	}
}

// TemplateMetadata supplies the values substitutable into an output
// template via ExpandTemplate.
type TemplateMetadata struct {
	ID            string
	Title         string
	Ext           string
	Uploader      string
	UploadDate    string
	Playlist      string
	PlaylistIndex string
	Channel       string
	BatchID       string
}

// ExpandTemplate substitutes recognized tokens in template with values
// from meta, leaving unknown tokens literal. {safe_title} and {random}
// are derived rather than taken directly from meta.
func (m *Manager) ExpandTemplate(template string, meta TemplateMetadata) string {
	replacer := strings.NewReplacer(
		"{id}", meta.ID,
		"{title}", meta.Title,
		"{safe_title}", validate.Filename(meta.Title),
		"{ext}", meta.Ext,
		"{uploader}", meta.Uploader,
		"{upload_date}", meta.UploadDate,
		"{random}", randomToken(),
		"{playlist}", meta.Playlist,
		"{playlist_index}", meta.PlaylistIndex,
		"{channel}", meta.Channel,
		"{batch_id}", meta.BatchID,
	)
	return replacer.Replace(template)
}

func randomToken() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// ScheduleDeletion schedules absolutePath for removal after retentionHours
// have elapsed, delegating to the deletion scheduler.
func (m *Manager) ScheduleDeletion(absolutePath string, retentionHours float64) scheduler.TaskID {
	delay := time.Duration(retentionHours * float64(time.Hour))
	id, _ := m.scheduler.Schedule(absolutePath, delay)
	return id
}

// CancelDeletion cancels a previously scheduled deletion.
func (m *Manager) CancelDeletion(id scheduler.TaskID) bool {
	return m.scheduler.Cancel(id)
}

// PublicURL composes the public URL for a path relative to the storage
// root: base + "/files/" + URL-escaped relative path.
func (m *Manager) PublicURL(relativePath string) string {
	escaped := (&url.URL{Path: relativePath}).EscapedPath()
	return m.publicBaseURL + "/files/" + escaped
}

// RemoveSubtree deletes path and everything under it, used to clean up a
// cancelled job's partial output immediately rather than scheduling a
// delayed deletion.
func (m *Manager) RemoveSubtree(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return apperr.Wrap("filemanager.RemoveSubtree", apperr.KindStorageError, err)
	}
	return nil
}
