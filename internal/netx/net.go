// Package netx holds HTTP transfer helpers used by the client.
package netx

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/bookdrive/internal/filex"
)

// DownloadToFile performs req and streams a 200 response body into dst. The
// body is written to dst+".part" first and renamed on success, so dst never
// holds a partial file.
func DownloadToFile(client *http.Client, req *http.Request, dst string) (int64, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	tmp := dst + ".part"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp, dst)
	}
	if err != nil {
		_ = filex.RemoveIfExists(tmp)
		return 0, err
	}
	return n, nil
}
