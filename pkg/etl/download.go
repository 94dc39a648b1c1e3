package etl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/traintrack/fdcsync/pkg/errors"
)

// fetchArchive downloads one bulk archive into the work directory, from the
// S3 mirror when configured, otherwise from the public HTTPS endpoint.
func (p *Pipeline) fetchArchive(ctx context.Context, work, file string) (string, error) {
	dest := filepath.Join(work, file)

	if p.mirror != nil {
		result, err := p.mirror.Download(ctx, file, dest)
		if err != nil {
			return "", err
		}
		return result.LocalPath, nil
	}

	url := p.cfg.BaseURL + "/" + file
	slog.Info("etl_download_start", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to download %s", file)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %d", file, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", errors.Wrap(err, "failed to create archive file")
	}
	defer f.Close()

	size, err := io.Copy(f, resp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "failed to save %s", file)
	}

	slog.Info("etl_download_complete", "archive", file, "size_mb", size/1024/1024)
	return dest, nil
}
