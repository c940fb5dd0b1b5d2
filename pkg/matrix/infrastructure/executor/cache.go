package executor

import (
	"path/filepath"

	"github.com/docker/docker/api/types/mount"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
)

var DefaultCaches = []model.CacheMount{
	{Name: "cargo-registry", ContainerPath: "/usr/local/cargo/registry"},
	{Name: "cargo-git", ContainerPath: "/usr/local/cargo/git"},
	{Name: "yarn", ContainerPath: "/usr/local/share/.cache/yarn"},
}

// CacheDir partitions host caches by target so parallel jobs never share a directory.
func CacheDir(cacheRoot string, target model.TargetName, cache model.CacheMount) string {
	return filepath.Join(cacheRoot, target, cache.Name)
}

func cacheMounts(cacheRoot string, target model.TargetName, caches []model.CacheMount) []mount.Mount {
	mounts := make([]mount.Mount, 0, len(caches))
	for _, cache := range caches {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: CacheDir(cacheRoot, target, cache),
			Target: cache.ContainerPath,
		})
	}
	return mounts
}
