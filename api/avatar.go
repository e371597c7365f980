package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

const (
	maxAvatarBytes = 1_000_000
	avatarSize     = 250
)

// processAvatar re-encodes any accepted upload as a 250x250 PNG, so
// the stored bytes are uniform regardless of the submitted format.
func processAvatar(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New("uploaded file is not a valid image")
	}
	dst := image.NewRGBA(image.Rect(0, 0, avatarSize, avatarSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	err = png.Encode(&buf, dst)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (app *application) uploadAvatarHandler(w http.ResponseWriter, r *http.Request) {
	// Headroom over the avatar limit covers multipart framing; an
	// oversized file still gets the precise size error below.
	r.Body = http.MaxBytesReader(w, r.Body, 4*maxAvatarBytes)

	err := r.ParseMultipartForm(maxAvatarBytes)
	if err != nil {
		writeError(w, errors.New("could not parse multipart form"), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, errors.New(`an image must be provided in the "avatar" field`), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxAvatarBytes {
		writeError(w, fmt.Errorf("avatar must be at most %d bytes", maxAvatarBytes), http.StatusBadRequest)
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		writeError(w, errors.New("only images (jpg, jpeg, png) can be uploaded"), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeServerError(w, err)
		return
	}
	avatar, err := processAvatar(data)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	u := getUserFromRequest(r)
	err = app.store.setAvatar(u.ID, avatar)
	if err != nil {
		writeServerError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (app *application) deleteAvatarHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	err := app.store.clearAvatar(u.ID)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, map[string]string{"success": "avatar has been deleted"}, http.StatusOK)
}

func (app *application) getAvatarHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, errors.New("avatar not found"), http.StatusNotFound)
		return
	}
	avatar, err := app.store.getAvatar(id)
	if err != nil {
		writeServerError(w, err)
		return
	}
	if avatar == nil {
		writeError(w, errors.New("avatar not found"), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(avatar)
}
