package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/dmitrijs2005/bookdrive/internal/server/models"
	"github.com/dmitrijs2005/bookdrive/internal/server/services"
	"github.com/dmitrijs2005/bookdrive/internal/server/staging"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the file size for form fields and
// part headers.
const multipartOverhead = 1 << 20

type createBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

type updateBookRequest struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

func (r updateBookRequest) patch() models.BookPatch {
	return models.BookPatch{Title: r.Title, Author: r.Author, Description: r.Description, IsPublic: r.IsPublic}
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == "multipart/form-data"
}

func (s *Server) listPublic(c *gin.Context) {
	books, err := s.books.ListPublic(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (s *Server) listMine(c *gin.Context) {
	books, err := s.books.ListMine(c.Request.Context(), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (s *Server) getBook(c *gin.Context) {
	book, err := s.books.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *Server) downloadBook(c *gin.Context) {
	url, err := s.books.Download(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (s *Server) createBook(c *gin.Context) {
	var (
		in  services.CreateBookInput
		err error
	)

	if isMultipart(c) {
		if err = s.parseMultipart(c); err != nil {
			s.writeError(c, err)
			return
		}
		in.Title = c.PostForm("title")
		in.Author = c.PostForm("author")
		in.Description = c.PostForm("description")
		if v, ok := c.GetPostForm("isPublic"); ok {
			if in.IsPublic, err = parseBool(v); err != nil {
				s.writeError(c, err)
				return
			}
		}
		if in.File, err = s.stageUpload(c); err != nil {
			s.writeError(c, err)
			return
		}
	} else {
		var req createBookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.writeError(c, fmt.Errorf("%w: invalid request body", common.ErrBadRequest))
			return
		}
		in = services.CreateBookInput{
			Title:       req.Title,
			Author:      req.Author,
			Description: req.Description,
			IsPublic:    req.IsPublic,
		}
	}

	book, err := s.books.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (s *Server) updateBook(c *gin.Context) {
	var (
		patch models.BookPatch
		file  *staging.File
		err   error
	)

	if isMultipart(c) {
		if err = s.parseMultipart(c); err != nil {
			s.writeError(c, err)
			return
		}
		if v, ok := c.GetPostForm("title"); ok {
			patch.Title = &v
		}
		if v, ok := c.GetPostForm("author"); ok {
			patch.Author = &v
		}
		if v, ok := c.GetPostForm("description"); ok {
			patch.Description = &v
		}
		if v, ok := c.GetPostForm("isPublic"); ok {
			b, err := parseBool(v)
			if err != nil {
				s.writeError(c, err)
				return
			}
			patch.IsPublic = &b
		}
		if file, err = s.stageUpload(c); err != nil {
			s.writeError(c, err)
			return
		}
	} else {
		var req updateBookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.writeError(c, fmt.Errorf("%w: invalid request body", common.ErrBadRequest))
			return
		}
		patch = req.patch()
	}

	book, err := s.books.Update(c.Request.Context(), currentUser(c), c.Param("id"), patch, file)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *Server) deleteBook(c *gin.Context) {
	if err := s.books.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseMultipart caps the request body and parses the form so fields and
// the file part are available.
func (s *Server) parseMultipart(c *gin.Context) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.stager.MaxSize()+multipartOverhead)

	_, err := c.MultipartForm()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: file exceeds %d bytes", common.ErrBadRequest, s.stager.MaxSize())
	}
	if err != nil {
		return fmt.Errorf("%w: invalid multipart form", common.ErrBadRequest)
	}
	return nil
}

// stageUpload stages the optional "file" part. It returns nil when the form
// has no file.
func (s *Server) stageUpload(c *gin.Context) (*staging.File, error) {
	header, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid multipart form", common.ErrBadRequest)
	}

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open multipart file: %w", err)
	}
	defer src.Close()

	return s.stager.Stage(c.Request.Context(), src, header.Filename)
}

func parseBool(v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: isPublic must be a boolean", common.ErrBadRequest)
	}
	return b, nil
}
