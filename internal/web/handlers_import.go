package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/TripLoader/internal/core"
	"github.com/JonMunkholm/TripLoader/internal/logging"
)

// importRequest names a file already on the server's filesystem.
type importRequest struct {
	Path string `json:"path"`
}

// handleImport runs one import. The CSV is either uploaded as the "file"
// part of a multipart form, or named by a JSON body {"path": "..."}.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		s.importUpload(w, r)
	case "application/json":
		s.importPath(w, r)
	default:
		respondBadRequest(w, r, "expected multipart/form-data or application/json")
	}
}

func (s *Server) importPath(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondBadRequest(w, r, "invalid JSON body")
		return
	}
	if req.Path == "" {
		respondBadRequest(w, r, "path is required")
		return
	}
	path, err := resolveImportPath(s.cfg.Import.AllowedDir, req.Path)
	if err != nil {
		respondForbidden(w, r, err.Error())
		return
	}

	result, err := s.service.Import(r.Context(), path)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

var (
	errPathImportsDisabled = errors.New("path imports are disabled; upload the file or set IMPORT_ALLOWED_DIR")
	errPathOutsideRoot     = errors.New("path is outside the import directory")
)

// resolveImportPath returns name as an absolute path inside root. Relative
// names are taken relative to root and symlinks are followed before the
// containment check. A file that does not exist is checked lexically and left
// for the import to report.
func resolveImportPath(root, name string) (string, error) {
	if root == "" {
		return "", errPathImportsDisabled
	}
	base, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("import directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	path = filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", errPathOutsideRoot
	}

	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errPathOutsideRoot
	}
	return path, nil
}

// importUpload streams the uploaded part to a temporary file so the
// pipeline can open it by path. The file is removed afterwards.
func (s *Server) importUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if limit := s.service.Options().MaxFileSize; limit > 0 {
		// Allow room for the multipart envelope; the service enforces the file limit.
		r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		respondBadRequest(w, r, "invalid multipart form")
		return
	}

	var tmpPath, fileName string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			respondError(w, r, fmt.Errorf("%w: read upload: %w", core.ErrInput, err), 0)
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		fileName = filepath.Base(part.FileName())
		tmpPath, err = spool(part)
		part.Close()
		if err != nil {
			respondError(w, r, fmt.Errorf("%w: store upload: %w", core.ErrInput, err), 0)
			return
		}
		break
	}
	if tmpPath == "" {
		respondBadRequest(w, r, "no file provided")
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			log.Warn("remove upload spool failed", "path", tmpPath, "error", err)
		}
	}()

	log.Info("upload received", "file", fileName)

	result, err := s.service.Import(r.Context(), tmpPath)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	if fileName != "" && fileName != "." {
		result.FileName = fileName
	}
	writeJSON(w, http.StatusCreated, result)
}

// spool copies src into a new temporary file and returns its path.
func spool(src io.Reader) (string, error) {
	f, err := os.CreateTemp("", "trips-upload-*.csv")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// handleImportHistory lists recent imports, newest first.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		respondBadRequest(w, r, "limit must be between 1 and 10000")
		return
	}

	history := s.service.History()
	if history == nil {
		writeJSON(w, http.StatusOK, newList[core.ImportRecord](nil))
		return
	}

	recs, err := history.RecentImports(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, newList(recs))
}
