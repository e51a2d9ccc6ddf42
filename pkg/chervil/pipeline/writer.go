package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	cherrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
)

// WriteResult writes transformed source to its output locator, creating
// parent directories as needed. Outputs ending in .gz are gzip-compressed.
func WriteResult(locator, content string) *cherrors.Error {
	if dir := filepath.Dir(locator); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return cherrors.NewWrite("WRITE-0001", locator, err)
		}
	}

	if strings.HasSuffix(locator, ".gz") {
		return writeGzip(locator, content)
	}

	if err := os.WriteFile(locator, []byte(content), 0o644); err != nil {
		return cherrors.NewWrite("WRITE-0002", locator, err)
	}
	return nil
}

func writeGzip(locator, content string) *cherrors.Error {
	f, err := os.Create(locator)
	if err != nil {
		return cherrors.NewWrite("WRITE-0002", locator, err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(content)); err != nil {
		zw.Close()
		return cherrors.NewWrite("WRITE-0002", locator, err)
	}
	if err := zw.Close(); err != nil {
		return cherrors.NewWrite("WRITE-0002", locator, err)
	}
	return nil
}
