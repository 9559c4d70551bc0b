package auditlog

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"

	uierrors "github.com/cadetlink/cadetlink/internal/app/features/errors"
	auditstore "github.com/cadetlink/cadetlink/internal/app/store/audit"
	"github.com/cadetlink/cadetlink/internal/app/system/auditlog"
	"github.com/cadetlink/cadetlink/internal/app/system/authz"
	"github.com/cadetlink/cadetlink/internal/app/system/timeouts"
)

const pageSize = 50

const dateLayout = "2006-01-02"

// eventTypes drives the type filter dropdown.
var eventTypes = []string{
	auditlog.EventLogin,
	auditlog.EventLogout,
	auditlog.EventSignup,
	auditlog.EventProfileUpdated,
	auditlog.EventProfileDeleted,
	auditlog.EventCadetEnrolled,
	auditlog.EventCadetApproved,
	auditlog.EventCadetYearsUpdated,
	auditlog.EventCampCreated,
	auditlog.EventCampUpdated,
	auditlog.EventCampDeleted,
	auditlog.EventRegistrationCreated,
	auditlog.EventRegistrationAccepted,
	auditlog.EventRegistrationRejected,
}

type Handler struct {
	Audit *auditstore.Store
	Log   *zap.Logger
}

func NewHandler(auditStore *auditstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Audit: auditStore, Log: logger}
}

type pageData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string

	Entries    []auditstore.Entry
	EventTypes []string
	Type       string
	UserUID    string
	RoleFilter string
	Since      string
	Until      string
}

// ServeList renders recent audit entries with optional type, user, role,
// and date filters.
// GET /audit
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	role, name, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	q := r.URL.Query()
	filter := auditstore.QueryFilter{
		Type:    strings.TrimSpace(q.Get("type")),
		UserUID: strings.TrimSpace(q.Get("user")),
		Role:    strings.TrimSpace(q.Get("role")),
		Limit:   pageSize,
	}
	if since, err := time.Parse(dateLayout, q.Get("since")); err == nil {
		filter.Since = since
	}
	if until, err := time.Parse(dateLayout, q.Get("until")); err == nil {
		// Include the whole end day.
		filter.Until = until.AddDate(0, 0, 1)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	entries, err := h.Audit.Query(ctx, filter)
	if err != nil {
		h.Log.Error("query audit log failed", zap.Error(err))
		uierrors.RenderForbidden(w, r, "A database error occurred.", "/dashboard")
		return
	}

	templates.Render(w, r, "audit_list", pageData{
		Title:      "Audit Log",
		IsLoggedIn: true,
		Role:       role,
		UserName:   name,
		Entries:    entries,
		EventTypes: eventTypes,
		Type:       filter.Type,
		UserUID:    filter.UserUID,
		RoleFilter: filter.Role,
		Since:      q.Get("since"),
		Until:      q.Get("until"),
	})
}
