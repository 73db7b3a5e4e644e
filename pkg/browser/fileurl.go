package browser

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// FileURL turns a local document path into a file:// URL. Relative paths are
// resolved against the process working directory. The document must exist.
func FileURL(path string) (string, error) {
	if path == "" {
		return "", &NavigationError{Target: path, Err: fmt.Errorf("document path is empty")}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &NavigationError{Target: path, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &NavigationError{Target: abs, Err: err}
	}
	if info.IsDir() {
		return "", &NavigationError{Target: abs, Err: fmt.Errorf("%s is a directory", abs)}
	}

	p := filepath.ToSlash(abs)
	if p[0] != '/' {
		// drive-letter paths
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String(), nil
}
