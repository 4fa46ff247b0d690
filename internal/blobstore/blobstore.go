package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"
)

// Prefix is the folder every listing image is stored under.
const Prefix = "properties"

// ErrNotFound is returned by Delete when the blob is already gone.
var ErrNotFound = errors.New("blob not found")

// BlobStore stores listing images and hands back a URL the browser can load.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (url string, err error)
	Delete(ctx context.Context, url string) error
}

// Namer builds object keys of the form properties/<token>_<filename> where
// token is unix milliseconds, bumped so that no two keys share a token.
type Namer struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewNamer() *Namer {
	return &Namer{now: time.Now}
}

func (n *Namer) Key(filename string) string {
	n.mu.Lock()
	token := n.now().UnixMilli()
	if token <= n.last {
		token = n.last + 1
	}
	n.last = token
	n.mu.Unlock()

	return fmt.Sprintf("%s/%d_%s", Prefix, token, cleanFilename(filename))
}

// cleanFilename keeps the original name but strips any directory part and
// characters that would break a URL path segment.
func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '?' || r == '#' || r == '%':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		case r == ' ':
			return '_'
		default:
			return r
		}
	}, name)
}
