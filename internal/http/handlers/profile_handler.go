// Profile HTTP handlers.
//
// This file exposes profile and contact endpoints:
//   - GET /me               (own profile)
//   - PUT /me/avatar        (upload a profile image)
//   - GET /users?search=    (contacts list / name-prefix search)
//
// Avatar uploads take the raw image bytes as the request body. The bytes
// go to the blob store first; only a successful upload updates the user
// document.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mexonis/quickchat-backend/internal/services"
)

// maxAvatarBytes caps avatar uploads at 5 MiB.
const maxAvatarBytes = 5 << 20

// AvatarResponse carries the public URL of an uploaded avatar.
type AvatarResponse struct {
	AvatarURL string `json:"profilePicLink"`
}

// Me returns the authenticated user's profile.
func (h *Handlers) Me(c *gin.Context) {
	u, err := h.users.Profile(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "profile lookup failed")
		return
	}
	ok(c, http.StatusOK, u)
}

// UploadAvatar stores the request body as the user's profile image and
// returns the resulting URL.
func (h *Handlers) UploadAvatar(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAvatarBytes+1))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable request body")
		return
	}
	if len(data) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "empty image body")
		return
	}
	if len(data) > maxAvatarBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "image exceeds 5 MiB")
		return
	}

	url, err := h.users.SetAvatar(c.Request.Context(), userID(c), data)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, "avatar upload failed")
		return
	}
	ok(c, http.StatusOK, AvatarResponse{AvatarURL: url})
}

// ListUsers returns all profiles, or only those whose name starts with the
// "search" query parameter when it is present.
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.users.Search(c.Request.Context(), c.Query("search"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "user listing failed")
		return
	}
	ok(c, http.StatusOK, users)
}
