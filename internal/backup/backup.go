// Package backup snapshots the database into timestamped tar.gz archives
// and manages the archive directory: listing, retention pruning, restore.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"controlcenter/internal/config"
	"controlcenter/internal/storage"
	logx "controlcenter/pkg/logx"
)

const (
	archivePrefix = "controlcenter-backup-"
	archiveSuffix = ".tar.gz"
	stampLayout   = "20060102-150405"
	memberName    = "controlcenter.db"
)

var ErrNotFound = errors.New("backup archive not found")

type Archive struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	db  *storage.DB
	dir string
	cfg config.BackupConfig
	log logx.Logger

	now func() time.Time
}

func NewService(db *storage.DB, cfg config.BackupConfig, log logx.Logger) *Service {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		dir = "./backups"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{db: db, dir: dir, cfg: cfg, log: log, now: time.Now}
}

func (s *Service) Dir() string { return s.dir }

// CronSpec maps the configured frequency to a cron expression for the
// scheduler. Hour is ignored for hourly backups; weekly runs on Sunday.
func (s *Service) CronSpec() string {
	switch strings.ToLower(strings.TrimSpace(s.cfg.Frequency)) {
	case "hourly":
		return fmt.Sprintf("%d * * * *", s.cfg.Minute)
	case "weekly":
		return fmt.Sprintf("%d %d * * 0", s.cfg.Minute, s.cfg.Hour)
	default: // daily
		return fmt.Sprintf("%d %d * * *", s.cfg.Minute, s.cfg.Hour)
	}
}

// Create snapshots the live database and wraps it in a tar.gz archive.
// The intermediate snapshot is removed on the way out.
func (s *Service) Create(ctx context.Context) (*Archive, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	stamp := s.now().UTC().Format(stampLayout)
	snapPath := filepath.Join(s.dir, archivePrefix+stamp+".db.tmp")
	defer os.Remove(snapPath)

	if err := s.db.Snapshot(ctx, snapPath); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	name := archivePrefix + stamp + archiveSuffix
	dst := filepath.Join(s.dir, name)
	if err := writeArchive(dst, snapPath); err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("write archive: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return nil, err
	}
	s.log.Info("backup created", logx.String("archive", name), logx.Int64("bytes", info.Size()))
	return &Archive{Name: name, Size: info.Size(), CreatedAt: info.ModTime().UTC()}, nil
}

func writeArchive(dst, snapPath string) error {
	src, err := os.Open(snapPath)
	if err != nil {
		return err
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	hdr := &tar.Header{
		Name:    memberName,
		Mode:    0o644,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := io.Copy(tw, src); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}

// List returns archives newest first.
func (s *Service) List() ([]Archive, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Archive{}, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Archive
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		created := info.ModTime().UTC()
		// Prefer the embedded timestamp; mtime survives neither copies nor restores.
		raw := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
		if ts, err := time.Parse(stampLayout, raw); err == nil {
			created = ts
		}
		out = append(out, Archive{Name: name, Size: info.Size(), CreatedAt: created})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Prune removes archives beyond the retention count. Retention 0 keeps
// everything.
func (s *Service) Prune() (int, error) {
	if s.cfg.Retention <= 0 {
		return 0, nil
	}
	archives, err := s.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, a := range archives[min(s.cfg.Retention, len(archives)):] {
		if err := os.Remove(filepath.Join(s.dir, a.Name)); err != nil {
			s.log.Error("failed to prune backup", logx.String("archive", a.Name), logx.Err(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("pruned backups", logx.Int("removed", removed))
	}
	return removed, nil
}

// Run is the scheduled job body: create a fresh archive, then prune.
func (s *Service) Run(ctx context.Context) error {
	if _, err := s.Create(ctx); err != nil {
		return err
	}
	_, err := s.Prune()
	return err
}

// Restore extracts the database file from the named archive to dstPath.
// It refuses to overwrite; swapping the extracted file in for the live
// database is a deliberate manual step done with the application stopped.
func (s *Service) Restore(name, dstPath string) error {
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid archive name: %s", name)
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := os.Stat(dstPath); err == nil {
		return fmt.Errorf("restore target already exists: %s", dstPath)
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
		if hdr.Name != memberName {
			continue
		}
		out, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			os.Remove(dstPath)
			return err
		}
		return out.Close()
	}
	return fmt.Errorf("archive %s has no database member", name)
}
