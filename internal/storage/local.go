package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Client 封装本地文件系统存储，管理上传的简历与生成的文档。
// 所有对象键都是相对 base 目录的斜杠分隔路径，禁止逃逸到目录之外。
type Client struct {
	base string
}

// FileMeta 描述存储目录中文件的关键信息。
type FileMeta struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// NewClient 确保 base 目录存在并返回存储客户端。
func NewClient(base string) (*Client, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("storage base dir is empty")
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir %q: %w", base, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %q: %w", abs, err)
	}
	return &Client{base: abs}, nil
}

// BaseDir 返回存储根目录的绝对路径。
func (c *Client) BaseDir() string { return c.base }

// Path 返回对象键对应的绝对路径，不要求文件已存在。
func (c *Client) Path(key string) (string, error) {
	return c.resolve(key)
}

// ValidKey 校验对象键：必须是合法 UTF-8、相对路径、不含回退与反斜杠。
func ValidKey(key string) bool {
	if key == "" || len(key) > 200 || !utf8.ValidString(key) {
		return false
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	if key != filepath.ToSlash(filepath.Clean(key)) || strings.HasPrefix(key, "..") {
		return false
	}
	return true
}

func (c *Client) resolve(key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(c.base, filepath.FromSlash(key)), nil
}

// SaveFile 将内容写入对象键指向的文件，必要时创建父目录。
// 返回写入的字节数。
func (c *Client) SaveFile(key string, reader io.Reader) (int64, error) {
	path, err := c.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create parent dir for %q: %w", key, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %q: %w", key, err)
	}
	n, err := io.Copy(f, reader)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %q: %w", key, err)
	}
	return n, nil
}

// Open 打开对象键指向的文件，调用方负责关闭。
func (c *Client) Open(key string) (*os.File, error) {
	path, err := c.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", key, err)
	}
	return f, nil
}

// Stat 返回对象的元数据。
func (c *Client) Stat(key string) (*FileMeta, error) {
	path, err := c.resolve(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", key, err)
	}
	return &FileMeta{Key: key, Size: info.Size(), LastModified: info.ModTime()}, nil
}

// List 列出指定前缀下的文件元数据，按键排序。
func (c *Client) List(prefix string, limit int) ([]FileMeta, error) {
	if limit <= 0 {
		limit = 50
	}

	result := make([]FileMeta, 0, limit)
	err := filepath.WalkDir(c.base, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(c.base, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		result = append(result, FileMeta{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files under %q: %w", prefix, err)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Delete 删除指定对象。
// 若对象不存在会被视为成功（幂等）。
func (c *Client) Delete(key string) error {
	path, err := c.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}
