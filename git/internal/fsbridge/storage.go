// Package fsbridge builds go-git object storage on billy filesystems.
package fsbridge

import (
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// MinCacheMiB is used when a non-positive cache size is requested.
const MinCacheMiB = 8

// NewStorage creates git storage rooted at fs with an LRU object cache of
// cacheMiB mebibytes.
func NewStorage(fs billy.Filesystem, cacheMiB int) *filesystem.Storage {
	if cacheMiB <= 0 {
		cacheMiB = MinCacheMiB
	}

	objCache := cache.NewObjectLRU(cache.FileSize(cacheMiB) * cache.MiByte)
	return filesystem.NewStorage(fs, objCache)
}
