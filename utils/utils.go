// Package utils provides helpers shared by the commands.
package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ExpandPath expands tilde and all environment variables from the given path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	s, err := homedir.Expand(path)
	if err == nil {
		return os.ExpandEnv(s)
	}
	return os.ExpandEnv(path)
}

// IsRemote reports whether source is fetched over HTTP.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// AbsSource makes local paths absolute so file watching and reloads keep
// working after the working directory changes. Remote sources and "-"
// are returned unchanged.
func AbsSource(source string) string {
	if source == "-" || IsRemote(source) {
		return source
	}
	if abs, err := filepath.Abs(ExpandPath(source)); err == nil {
		return abs
	}
	return source
}
