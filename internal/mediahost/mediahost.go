// Package mediahost uploads binary media to a host that serves it at a
// stable URL, and removes it again by public id.
package mediahost

import (
	"context"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind tells the host how to store and serve an asset.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// ErrEmptyObject is returned when an upload carries no bytes.
var ErrEmptyObject = errors.New("mediahost: empty object")

// Object is a file ready to be uploaded.
type Object struct {
	Name        string
	ContentType string
	Kind        Kind
	Data        []byte
}

// Asset is what a host returns after a successful upload. PublicID is the
// handle needed to remove the asset later.
type Asset struct {
	URL      string
	PublicID string
	Kind     Kind
}

// Host stores and removes media. Removing an asset that no longer exists is
// not an error.
type Host interface {
	Upload(ctx context.Context, obj Object) (Asset, error)
	Remove(ctx context.Context, publicID string, kind Kind) error
}

// DetectKind sniffs the content of data. Anything whose MIME type is
// video/* is a video; everything else is treated as an image. The detected
// MIME type and its usual file extension are returned alongside.
func DetectKind(data []byte) (Kind, string, string) {
	mime := mimetype.Detect(data)
	kind := KindImage
	if strings.HasPrefix(mime.String(), "video/") {
		kind = KindVideo
	}
	return kind, mime.String(), mime.Extension()
}
