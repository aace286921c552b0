// Package disk is a media host that writes assets below a local directory.
// The HTTP router serves that directory at BaseURL.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pranathisri21/frame-vault/internal/mediahost"
)

// Host stores media as files named <kind>/<uuid><ext> under Dir.
type Host struct {
	dir     string
	baseURL string
}

// New creates the directory layout and returns a Host. baseURL is the
// public prefix assets are served under, such as "/media" or a CDN origin.
func New(dir, baseURL string) (*Host, error) {
	if dir == "" {
		return nil, fmt.Errorf("disk: directory must not be empty")
	}
	for _, kind := range []mediahost.Kind{mediahost.KindImage, mediahost.KindVideo} {
		if err := os.MkdirAll(filepath.Join(dir, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("disk: ensure directory: %w", err)
		}
	}
	return &Host{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the root directory, for mounting a static file server.
func (h *Host) Dir() string {
	return h.dir
}

func (h *Host) Upload(ctx context.Context, obj mediahost.Object) (mediahost.Asset, error) {
	if err := ctx.Err(); err != nil {
		return mediahost.Asset{}, err
	}
	if len(obj.Data) == 0 {
		return mediahost.Asset{}, mediahost.ErrEmptyObject
	}

	kind := obj.Kind
	if kind != mediahost.KindVideo {
		kind = mediahost.KindImage
	}

	publicID := path.Join(string(kind), uuid.NewString()+extension(obj.Name))
	target := filepath.Join(h.dir, filepath.FromSlash(publicID))

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return mediahost.Asset{}, fmt.Errorf("disk: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(obj.Data); err != nil {
		tmp.Close()
		return mediahost.Asset{}, fmt.Errorf("disk: write %s: %w", publicID, err)
	}
	if err := tmp.Close(); err != nil {
		return mediahost.Asset{}, fmt.Errorf("disk: close %s: %w", publicID, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return mediahost.Asset{}, fmt.Errorf("disk: store %s: %w", publicID, err)
	}

	return mediahost.Asset{
		URL:      h.baseURL + "/" + publicID,
		PublicID: publicID,
		Kind:     kind,
	}, nil
}

func (h *Host) Remove(ctx context.Context, publicID string, _ mediahost.Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rel := filepath.FromSlash(publicID)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("disk: invalid public id %q", publicID)
	}

	err := os.Remove(filepath.Join(h.dir, rel))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("disk: remove %s: %w", publicID, err)
	}
	return nil
}

// extension keeps a short, lower-case extension from the original filename.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

var _ mediahost.Host = (*Host)(nil)
