package chat

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"chatwave/module/chat/model"
	"chatwave/tools/ids"

	"github.com/pkg/errors"
)

// Uploader stores a message image somewhere public. The cloud image host is
// an external collaborator; this interface is its whole surface here.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (model.Image, error)
}

// LocalUploader keeps uploads on local disk and serves them under baseURL.
type LocalUploader struct {
	Dir     string
	BaseURL string
}

func (u *LocalUploader) Upload(_ context.Context, filename string, r io.Reader) (model.Image, error) {
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return model.Image{}, errors.Wrap(err, "create upload dir")
	}
	id := ids.GenerateString()
	name := id + filepath.Ext(filename)

	f, err := os.Create(filepath.Join(u.Dir, name))
	if err != nil {
		return model.Image{}, errors.Wrap(err, "create upload file")
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return model.Image{}, errors.Wrap(err, "write upload")
	}
	return model.Image{URL: u.BaseURL + "/" + name, PublicID: id}, nil
}
