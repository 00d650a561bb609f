package storage

import (
	"errors"
	"io/fs"
)

// IsNotExist 判断错误是否明确表示对象不存在。
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
