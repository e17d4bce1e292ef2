package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// FileMD5 returns the hex-encoded MD5 of the file's contents along with
// its modification time in milliseconds since epoch, the two facts the
// upload authorization endpoint requires.
func FileMD5(path string) (md5sum string, mtimeMillis int64, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", path, err)
	}

	hash := md5.New()
	if _, err = io.Copy(hash, file); err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(hash.Sum(nil)), info.ModTime().UnixMilli(), nil
}
