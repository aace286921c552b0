package gallery

import (
	"path"
	"slices"
	"strings"

	"github.com/pranathisri21/frame-vault/internal/storage"
)

const untitled = "Untitled"

// SortSets orders sets newest first, breaking createdAt ties by id
// descending. The sort is stable.
func SortSets(sets []storage.Set) {
	slices.SortStableFunc(sets, func(a, b storage.Set) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}

// SortItems orders items newest first, breaking createdAt ties by id
// descending. The sort is stable.
func SortItems(items []storage.Item) {
	slices.SortStableFunc(items, func(a, b storage.Item) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}

// DeriveTitle turns an uploaded filename into a default title: the base name
// up to its first dot. "beach.day.jpg" becomes "beach".
func DeriveTitle(filename string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if base == "." || base == "/" {
		return untitled
	}

	title, _, _ := strings.Cut(base, ".")
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(strings.TrimLeft(base, "."))
	}
	if title == "" {
		return untitled
	}
	return title
}

func filterPublic(items []storage.Item) []storage.Item {
	public := items[:0]
	for _, item := range items {
		if !item.IsPrivate {
			public = append(public, item)
		}
	}
	return public
}
