package pipeline

import (
	"io"
	"os"

	cherrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
)

// ReadSource loads the source text for a job input. The locator "-" reads
// from standard input.
func ReadSource(locator string) (string, *cherrors.Error) {
	if locator == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", cherrors.NewRead("<stdin>", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(locator)
	if err != nil {
		return "", cherrors.NewRead(locator, err)
	}
	return string(data), nil
}
