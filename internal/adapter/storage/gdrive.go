package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/semmidev/dbwarden/internal/config"
)

// GDriveStorage keeps artifacts as files in a single Drive folder.
type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(ctx context.Context, cfg *config.UploadTarget) (*GDriveStorage, error) {
	auth := option.WithCredentialsFile(cfg.CredentialsFile)
	if cfg.RefreshToken != "" {
		oauthCfg, err := GoogleOAuthConfig(cfg.ClientSecretFile)
		if err != nil {
			return nil, err
		}
		auth = option.WithTokenSource(oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}))
	}

	service, err := drive.NewService(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveStorage{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

func (g *GDriveStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileMetadata := &drive.File{
		Name:    remoteName,
		Parents: []string{g.folderID},
	}

	_, err = g.service.Files.Create(fileMetadata).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return nil
}

func (g *GDriveStorage) List(ctx context.Context) ([]string, error) {
	files, err := g.find(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names, nil
}

// Delete removes every file in the folder with the given name; Drive allows
// duplicates.
func (g *GDriveStorage) Delete(ctx context.Context, remoteName string) error {
	files, err := g.find(ctx, remoteName)
	if err != nil {
		return fmt.Errorf("failed to find file: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("file not found: %s", remoteName)
	}

	for _, f := range files {
		if err := g.service.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
	}

	return nil
}

func (g *GDriveStorage) find(ctx context.Context, name string) ([]*drive.File, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(g.folderID))
	if name != "" {
		query += fmt.Sprintf(" and name='%s'", escapeQuery(name))
	}

	var files []*drive.File
	err := g.service.Files.List().
		Q(query).
		Fields("nextPageToken, files(id, name)").
		PageSize(1000).
		Pages(ctx, func(page *drive.FileList) error {
			files = append(files, page.Files...)
			return nil
		})
	return files, err
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// GoogleOAuthConfig reads an OAuth client secret downloaded from the Google
// Cloud console, scoped to files the app creates.
func GoogleOAuthConfig(clientSecretPath string) (*oauth2.Config, error) {
	if clientSecretPath == "" {
		return nil, errors.New("client secret path cannot be empty")
	}

	b, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret: %w", err)
	}
	return cfg, nil
}
