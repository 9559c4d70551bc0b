package logout

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/ops"
	"github.com/cadetlink/cadetlink/internal/app/system/auditlog"
	"github.com/cadetlink/cadetlink/internal/app/system/auth"
)

type Handler struct {
	Sessions *auth.SessionManager
	Recorder *auditlog.Recorder
	Log      *zap.Logger
}

func NewHandler(sessions *auth.SessionManager, recorder *auditlog.Recorder, logger *zap.Logger) *Handler {
	return &Handler{Sessions: sessions, Recorder: recorder, Log: logger}
}

// HandleLogout clears the session and returns to the landing page.
// POST /logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.Recorder.Record(ops.Actor{UID: u.ID, Name: u.Name, Role: u.Role},
			auditlog.EventLogout, "")
	}
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Error("sign-out failed", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
