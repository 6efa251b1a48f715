package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/bookdrive/internal/client/models"
	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/dmitrijs2005/bookdrive/internal/filex"
	"github.com/dmitrijs2005/bookdrive/internal/netx"
)

func bookPath(id string) string {
	return "/api/books/" + url.PathEscape(id)
}

func (c *Client) ListMine(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := c.doJSON(ctx, http.MethodGet, "/api/books/my-books", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) ListPublic(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := c.doJSON(ctx, http.MethodGet, "/api/books/public", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) Get(ctx context.Context, id string) (*models.Book, error) {
	var b models.Book
	if err := c.doJSON(ctx, http.MethodGet, bookPath(id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create uploads a new book. The file part is streamed from disk.
func (c *Client) Create(ctx context.Context, nb models.NewBook) (*models.Book, error) {
	fields := map[string]string{
		"title":       nb.Title,
		"author":      nb.Author,
		"description": nb.Description,
		"isPublic":    strconv.FormatBool(nb.IsPublic),
	}
	var b models.Book
	if err := c.sendMultipart(ctx, http.MethodPost, "/api/books", fields, nb.Path, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Update applies a metadata patch.
func (c *Client) Update(ctx context.Context, id string, patch models.BookPatch) (*models.Book, error) {
	var b models.Book
	if err := c.doJSON(ctx, http.MethodPut, bookPath(id), patch, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ReplaceFile attaches a new file to an existing book.
func (c *Client) ReplaceFile(ctx context.Context, id, path string) (*models.Book, error) {
	var b models.Book
	if err := c.sendMultipart(ctx, http.MethodPut, bookPath(id), nil, path, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, bookPath(id), nil, nil)
}

// Download saves the book's file into dir under its original name and
// returns the written path.
func (c *Client) Download(ctx context.Context, id, dir string) (string, error) {
	b, err := c.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if b.FileName == "" {
		return "", fmt.Errorf("%w: book has no file", common.ErrorNotFound)
	}

	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(abs, filepath.Base(filepath.Clean("/"+b.FileName)))

	req, err := c.newRequest(ctx, http.MethodGet, bookPath(id)+"/download", nil, "")
	if err != nil {
		return "", err
	}
	if _, err := netx.DownloadToFile(c.http, req, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (c *Client) sendMultipart(ctx context.Context, method, path string, fields map[string]string, filePath string, out any) error {
	if filePath != "" {
		if _, err := os.Stat(filePath); err != nil {
			return err
		}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, fields, filePath))
	}()

	req, err := c.newRequest(ctx, method, path, pr, mw.FormDataContentType())
	if err != nil {
		pr.Close()
		return err
	}
	return c.do(req, out)
}

func writeForm(mw *multipart.Writer, fields map[string]string, filePath string) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return err
		}
		defer f.Close()

		part, err := mw.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f); err != nil {
			return err
		}
	}
	return mw.Close()
}
