package datastores

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/DeveloperOl/lespas/common/config"
	"github.com/DeveloperOl/lespas/types"
	"github.com/pkg/errors"
)

func BasePath(cfg config.StorageConfig, kind Kind) string {
	if kind == CacheKind {
		return cfg.CacheDir
	}
	return cfg.LocalRoot
}

// Locate joins fileName below the folder of kind. Names that would escape
// the folder are refused.
func Locate(cfg config.StorageConfig, kind Kind, fileName string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(fileName))
	if clean == "/" || strings.Contains(clean, "/../") {
		return "", errors.New("invalid file name: " + fileName)
	}
	return filepath.Join(BasePath(cfg, kind), filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// LocalFile is where the device copy of ref lives: its own LocalPath when
// set, otherwise its name in the local media folder.
func LocalFile(cfg config.StorageConfig, ref types.MediaReference) (string, error) {
	if ref.LocalPath != "" {
		if filepath.IsAbs(ref.LocalPath) {
			return ref.LocalPath, nil
		}
		return Locate(cfg, LocalMediaKind, ref.LocalPath)
	}
	if ref.Name == "" {
		return "", errors.New("media " + ref.Id + " has no local name")
	}
	return Locate(cfg, LocalMediaKind, ref.Name)
}
