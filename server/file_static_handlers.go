package server

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"sync"
)

//go:embed static/*
var staticFiles embed.FS

var (
	staticOnce sync.Once
	staticFS   fs.FS
)

// StaticFilesFS is the embedded static tree rooted at static/.
func StaticFilesFS() fs.FS {
	staticOnce.Do(func() {
		sub, err := fs.Sub(staticFiles, "static")
		if err != nil {
			panic("static: " + err.Error())
		}
		staticFS = sub
	})
	return staticFS
}

// StreamFile writes an embedded asset with a content hash ETag, answering
// 304 when the client already holds the same version.
func StreamFile(w http.ResponseWriter, r *http.Request, name string) error {
	data, err := fs.ReadFile(StaticFilesFS(), name)
	if err != nil {
		return fmt.Errorf("static %s: %w", name, err)
	}

	sum := sha256.Sum256(data)
	etag := `"` + hex.EncodeToString(sum[:8]) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ctype)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("static %s: write: %w", name, err)
	}
	return nil
}
