package sync

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	appDataFolder = "appDataFolder"
	sqliteMIME    = "application/x-sqlite3"
	fileFields    = "id, name, modifiedTime, size"
)

// DriveRemote stores files in the application's private Google Drive folder.
type DriveRemote struct {
	svc *drive.Service
}

// NewDriveRemote creates a Drive client. Pass option.WithHTTPClient with an authorized client.
func NewDriveRemote(ctx context.Context, opts ...option.ClientOption) (*DriveRemote, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &DriveRemote{svc: svc}, nil
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// nameQuery builds the Drive search for a non-trashed file called name.
func nameQuery(name string) string {
	return fmt.Sprintf("name='%s' and trashed = false", queryEscaper.Replace(name))
}

func (d *DriveRemote) Find(ctx context.Context, name string) (*RemoteFile, error) {
	q := nameQuery(name)
	res, err := d.svc.Files.List().
		Spaces(appDataFolder).
		Q(q).
		Fields(googleapi.Field("files(" + fileFields + ")")).
		Context(ctx).
		Do()
	if err != nil {
		log.Error("failed to list drive files", "name", name, "error", err)
		return nil, fmt.Errorf("failed to list drive files: %w", err)
	}
	if len(res.Files) == 0 {
		return nil, nil
	}
	return toRemoteFile(res.Files[0]), nil
}

func (d *DriveRemote) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := d.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		log.Error("failed to download drive file", "id", id, "error", err)
		return nil, fmt.Errorf("failed to download drive file: %w", err)
	}
	return resp.Body, nil
}

func (d *DriveRemote) Upload(ctx context.Context, name, id string, content io.Reader) (*RemoteFile, error) {
	media := googleapi.ContentType(sqliteMIME)

	var (
		f   *drive.File
		err error
	)
	if id != "" {
		f, err = d.svc.Files.Update(id, &drive.File{}).
			Media(content, media).
			Fields(fileFields).
			Context(ctx).
			Do()
	} else {
		f, err = d.svc.Files.Create(&drive.File{Name: name, Parents: []string{appDataFolder}}).
			Media(content, media).
			Fields(fileFields).
			Context(ctx).
			Do()
	}
	if err != nil {
		log.Error("failed to upload drive file", "name", name, "id", id, "error", err)
		return nil, fmt.Errorf("failed to upload drive file: %w", err)
	}
	return toRemoteFile(f), nil
}

func toRemoteFile(f *drive.File) *RemoteFile {
	rf := &RemoteFile{ID: f.Id, Name: f.Name, Size: f.Size}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		rf.ModifiedTime = t
	}
	return rf
}
