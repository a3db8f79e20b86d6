package checkpointer

import (
	"fmt"
	"path/filepath"
)

// fileEnumerator enumerates filenames
type fileEnumerator struct {
	i         int
	name      string
	extension string
}

// filename returns the name of the next consecutive enumerated file
func (f *fileEnumerator) filename() string {
	f.i++
	return fmt.Sprintf("%v%v%v", f.name, f.i, f.extension)
}

// FilenameEnumerator returns a function which will return filenames
// with a counter integer suffix. Each time the returned function is
// called, the filename counter suffix will be one higher than on the
// previous call, starting at start + 1. The filename parameter is the
// full filename with its path, while the extension parameter determines
// the file extension.
func FilenameEnumerator(start int, filename, extension string) func() string {
	enum := fileEnumerator{i: start, name: filename, extension: extension}

	return enum.filename
}

// Latest returns the filename and number of the most recent checkpoint
// saved under filename and extension by an enumerator, or "" and 0 if
// there is none
func Latest(filename, extension string) (string, int, error) {
	matches, err := filepath.Glob(filename + "*" + extension)
	if err != nil {
		return "", 0, fmt.Errorf("latest: %v", err)
	}

	latest, best := "", 0
	for _, m := range matches {
		var i int
		n, _ := fmt.Sscanf(m[len(filename):len(m)-len(extension)], "%d", &i)
		if n == 1 && i > best {
			latest, best = m, i
		}
	}
	return latest, best, nil
}
