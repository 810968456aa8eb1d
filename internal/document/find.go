package document

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/muesli/gitcha"
)

// Patterns matches the files FindDocuments looks for.
var Patterns = []string{
	"*.md", "*.mdown", "*.mkdn", "*.mkd", "*.markdown",
	"*.txt", "*.text", "*.pdf",
}

// Found is a document located on disk.
type Found struct {
	Path    string
	Kind    Kind
	Size    int64
	ModTime time.Time
}

// FindDocuments lists readable documents below dir, honouring .gitignore
// unless all is set. Results are sorted by path.
func FindDocuments(ctx context.Context, dir string, all bool, ignore []string) ([]Found, error) {
	var (
		ch  chan gitcha.SearchResult
		err error
	)
	if all {
		ch, err = gitcha.FindAllFilesExcept(dir, Patterns, nil)
	} else {
		ch, err = gitcha.FindFilesExcept(dir, Patterns, ignore)
	}
	if err != nil {
		return nil, err
	}

	var found []Found
	for {
		select {
		case <-ctx.Done():
			go func() {
				for range ch {
				}
			}()
			return nil, ctx.Err()
		case res, ok := <-ch:
			if !ok {
				sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
				return found, nil
			}
			if res.Info == nil || res.Info.IsDir() {
				continue
			}
			found = append(found, Found{
				Path:    filepath.Clean(res.Path),
				Kind:    Detect(res.Path),
				Size:    res.Info.Size(),
				ModTime: res.Info.ModTime(),
			})
		}
	}
}
