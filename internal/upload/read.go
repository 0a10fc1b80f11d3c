package upload

import (
	"fmt"
	"os"
	"path/filepath"
)

// ReadResult is the single outcome of an asynchronous file read.
type ReadResult struct {
	Name string
	Size int64
	Data []byte // nil for StatAsync
	Err  error
}

// ReadAsync reads path on its own goroutine. The returned channel yields
// exactly one result and is then closed. A started read cannot be cancelled;
// callers that no longer care simply ignore the result.
func ReadAsync(path string) <-chan ReadResult {
	return run(path, true)
}

// StatAsync is ReadAsync without loading the contents, used for audio files
// the media host streams itself.
func StatAsync(path string) <-chan ReadResult {
	return run(path, false)
}

func run(path string, load bool) <-chan ReadResult {
	ch := make(chan ReadResult, 1)
	go func() {
		defer close(ch)
		res := ReadResult{Name: filepath.Base(path)}
		info, err := os.Stat(path)
		if err != nil {
			res.Err = fmt.Errorf("reading %s: %w", path, err)
			ch <- res
			return
		}
		if info.IsDir() {
			res.Err = fmt.Errorf("reading %s: is a directory", path)
			ch <- res
			return
		}
		res.Size = info.Size()
		if load {
			data, err := os.ReadFile(path)
			if err != nil {
				res.Err = fmt.Errorf("reading %s: %w", path, err)
				ch <- res
				return
			}
			res.Data = data
			res.Size = int64(len(data))
		}
		ch <- res
	}()
	return ch
}

// OpenAudio stats path asynchronously and, when it is an accepted audio
// file, returns its description. mimeType may be empty, in which case it is
// inferred from the extension.
func OpenAudio(path, mimeType string) (Audio, error) {
	name := filepath.Base(path)
	if mimeType == "" {
		mimeType = DetectMIMEType(name)
	}
	if err := AcceptAudio(name, mimeType); err != nil {
		return Audio{}, err
	}
	res := <-StatAsync(path)
	if res.Err != nil {
		return Audio{}, res.Err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Audio{Name: name, MIMEType: mimeType, Size: res.Size, Path: abs}, nil
}
