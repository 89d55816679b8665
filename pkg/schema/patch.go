package schema

import (
	"bytes"
	"fmt"
	"os"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// ApplyPatch applies the unified diff in patchFile to src.
func ApplyPatch(src []byte, patchFile string) ([]byte, error) {
	f, err := os.Open(patchFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open patch file: %w", err)
	}
	defer f.Close()

	files, _, err := gitdiff.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse patch file %s: %w", patchFile, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("patch file %s contains no changes", patchFile)
	}

	out := src
	for _, file := range files {
		var buf bytes.Buffer
		if err := gitdiff.Apply(&buf, bytes.NewReader(out), file); err != nil {
			return nil, fmt.Errorf("failed to apply patch file %s: %w", patchFile, err)
		}
		out = buf.Bytes()
	}
	return out, nil
}
