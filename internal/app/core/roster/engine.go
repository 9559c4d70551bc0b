// Package roster implements profile management: self-service edits,
// admin edits with the regimental-number clamp, batch year updates,
// enrollment, approval, and deletion.
package roster

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/ops"
	"github.com/cadetlink/cadetlink/internal/app/store/notifications"
	"github.com/cadetlink/cadetlink/internal/app/store/registrations"
	rosterstore "github.com/cadetlink/cadetlink/internal/app/store/roster"
	"github.com/cadetlink/cadetlink/internal/app/system/auditlog"
	"github.com/cadetlink/cadetlink/internal/app/system/identity"
	"github.com/cadetlink/cadetlink/internal/app/system/normalize"
	"github.com/cadetlink/cadetlink/internal/app/system/validation"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

// Engine coordinates profile mutations across the roster store, the
// identity gateway, and the stores holding per-user data.
type Engine struct {
	roster        *rosterstore.Store
	registrations *registrations.Store
	notifications *notifications.Store
	gateway       identity.Gateway
	recorder      *auditlog.Recorder
	log           *zap.Logger
}

func NewEngine(
	rosterStore *rosterstore.Store,
	regStore *registrations.Store,
	noteStore *notifications.Store,
	gateway identity.Gateway,
	recorder *auditlog.Recorder,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		roster:        rosterStore,
		registrations: regStore,
		notifications: noteStore,
		gateway:       gateway,
		recorder:      recorder,
		log:           logger,
	}
}

// OwnProfileEdits are the fields a user may change on their own record.
// Identifier fields are deliberately absent.
type OwnProfileEdits struct {
	Name     string
	Rank     string
	Unit     string
	Phone    string
	WhatsApp string
}

// UpdateOwnProfile applies edits to the acting user's own record. The
// target uid comes from the session, never from the request body.
func (e *Engine) UpdateOwnProfile(ctx context.Context, actor ops.Actor, edits OwnProfileEdits) ops.Result {
	f := validation.Fields{}
	f.Require("name", edits.Name)
	f.Require("rank", edits.Rank)
	f.Require("unit", edits.Unit)
	f.Require("phone", edits.Phone)
	f.Require("whatsapp", edits.WhatsApp)
	f.Phone("phone", normalize.Digits(edits.Phone))
	f.Phone("whatsapp", normalize.Digits(edits.WhatsApp))
	if !f.OK() {
		return ops.FromError(&ops.ValidationError{Fields: f})
	}

	fields := bson.M{
		"name":     normalize.Name(edits.Name),
		"rank":     normalize.Name(edits.Rank),
		"unit":     normalize.Name(edits.Unit),
		"phone":    normalize.Digits(edits.Phone),
		"whatsapp": normalize.Digits(edits.WhatsApp),
	}
	if err := e.roster.UpdateFields(ctx, actor.Role, actor.UID, fields); err != nil {
		if errors.Is(err, rosterstore.ErrNotFound) {
			return ops.FromError(&ops.NotFoundError{What: "profile"})
		}
		e.log.Error("update own profile failed", zap.Error(err))
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	e.recorder.Record(actor, auditlog.EventProfileUpdated, "self")
	return ops.OK("Profile updated.")
}

// CadetEdits are the fields an admin may change on a cadet.
type CadetEdits struct {
	Name             string
	Rank             string
	Year             int
	Phone            string
	RegimentalNumber string
}

// AdminUpdateCadet applies admin edits to a cadet record. A changed
// regimental number counts against the cadet's edit allowance; once two
// changes have been recorded, further changes are silently discarded and
// the stored value kept.
func (e *Engine) AdminUpdateCadet(ctx context.Context, actor ops.Actor, cadetUID string, edits CadetEdits) ops.Result {
	if actor.Role != models.RoleAdmin {
		return ops.FromError(&ops.PermissionError{Action: "edit cadet records"})
	}

	f := validation.Fields{}
	f.Require("name", edits.Name)
	f.Year("year", edits.Year)
	f.Phone("phone", normalize.Digits(edits.Phone))
	if !f.OK() {
		return ops.FromError(&ops.ValidationError{Fields: f})
	}

	cadet, err := e.roster.Get(ctx, models.RoleCadet, cadetUID)
	if err != nil {
		if errors.Is(err, rosterstore.ErrNotFound) {
			return ops.FromError(&ops.NotFoundError{What: "cadet"})
		}
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	fields := bson.M{
		"name":  normalize.Name(edits.Name),
		"rank":  normalize.Name(edits.Rank),
		"year":  edits.Year,
		"phone": normalize.Digits(edits.Phone),
	}

	var extra []bson.M
	newRN := normalize.RegimentalNumber(edits.RegimentalNumber)
	if newRN != cadet.RegimentalNumber {
		if cadet.RegimentalNumberEditCount < models.MaxRegimentalNumberEdits {
			fields["regimental_number"] = newRN
			extra = append(extra, bson.M{"$inc": bson.M{"regimental_number_edit_count": 1}})
		}
		// otherwise keep the stored value; the clamp is silent
	}

	if err := e.roster.UpdateFields(ctx, models.RoleCadet, cadetUID, fields, extra...); err != nil {
		e.log.Error("admin cadet update failed", zap.Error(err))
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	e.recorder.Record(actor, auditlog.EventProfileUpdated, cadet.Name)
	return ops.OK("Cadet updated.")
}

// UpdateCadetYears sets year on every listed cadet. Best-effort batch:
// each cadet is written independently, and any failures are reported as
// a partial result. One audit entry summarizes the whole batch.
func (e *Engine) UpdateCadetYears(ctx context.Context, actor ops.Actor, uids []string, targetYear int) ops.Result {
	if actor.Role != models.RoleAdmin {
		return ops.FromError(&ops.PermissionError{Action: "update cadet years"})
	}
	f := validation.Fields{}
	f.Year("year", targetYear)
	if !f.OK() {
		return ops.FromError(&ops.ValidationError{Fields: f})
	}
	if len(uids) == 0 {
		return ops.FromError(ops.Invalid("cadets", "Select at least one cadet."))
	}

	var stepErrs []string
	updated := 0
	for _, uid := range uids {
		err := e.roster.UpdateFields(ctx, models.RoleCadet, uid, bson.M{"year": targetYear})
		if err != nil {
			stepErrs = append(stepErrs, fmt.Sprintf("cadet %s: %v", uid, err))
			continue
		}
		updated++
	}

	e.recorder.Record(actor, auditlog.EventCadetYearsUpdated,
		fmt.Sprintf("%d cadet(s) set to year %d", updated, targetYear))

	if len(stepErrs) > 0 {
		return ops.PartialFailure(
			fmt.Sprintf("Updated %d of %d cadets.", updated, len(uids)), stepErrs)
	}
	return ops.OK(fmt.Sprintf("Updated %d cadet(s) to year %d.", updated, targetYear))
}

// EnrollInput carries the fields for enrolling a new user.
type EnrollInput struct {
	Email            string
	Password         string
	Name             string
	Role             string
	Rank             string
	Unit             string
	RegimentalNumber string
	StudentID        string
	Phone            string
	Year             int
	Approved         bool
}

// Enroll creates an identity at the gateway and a matching profile.
// Admin only. A cadet self-signup goes through the signup feature, which
// calls this with a pre-verified token instead.
func (e *Engine) Enroll(ctx context.Context, actor ops.Actor, in EnrollInput) ops.Result {
	if actor.Role != models.RoleAdmin {
		return ops.FromError(&ops.PermissionError{Action: "enroll users"})
	}
	return e.enroll(ctx, actor, in)
}

// EnrollInvited creates an account from a verified invite token. The
// role and email come from the token, not the form, and the account is
// active immediately.
func (e *Engine) EnrollInvited(ctx context.Context, in EnrollInput) ops.Result {
	in.Approved = true
	return e.enroll(ctx, ops.Actor{}, in)
}

// SelfSignup creates a cadet identity and an unapproved profile. The
// token check happened upstream; the role is forced to cadet here.
func (e *Engine) SelfSignup(ctx context.Context, in EnrollInput) ops.Result {
	in.Role = models.RoleCadet
	in.Approved = false
	actor := ops.Actor{UID: "", Name: in.Name, Role: models.RoleCadet}
	res := e.enroll(ctx, actor, in)
	return res
}

func (e *Engine) enroll(ctx context.Context, actor ops.Actor, in EnrollInput) ops.Result {
	f := validation.Fields{}
	f.Require("name", in.Name)
	f.Require("email", in.Email)
	f.Email("email", normalize.Email(in.Email))
	f.Phone("phone", normalize.Digits(in.Phone))
	if in.Role == models.RoleCadet {
		f.Year("year", in.Year)
	}
	if !models.ValidRole(in.Role) {
		f["role"] = "Unknown role."
	}
	if !f.OK() {
		return ops.FromError(&ops.ValidationError{Fields: f})
	}

	uid, err := e.gateway.CreateIdentity(ctx, in.Email, in.Password, in.Name, in.Role)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return ops.FromError(ops.Invalid("email", "This email is already registered."))
		}
		e.log.Error("create identity failed", zap.Error(err))
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	profile := &models.UserProfile{
		UID:              uid,
		Role:             in.Role,
		Name:             normalize.Name(in.Name),
		Email:            normalize.Email(in.Email),
		Rank:             normalize.Name(in.Rank),
		Unit:             normalize.Name(in.Unit),
		RegimentalNumber: normalize.RegimentalNumber(in.RegimentalNumber),
		StudentID:        in.StudentID,
		Phone:            normalize.Digits(in.Phone),
		Year:             in.Year,
		Approved:         in.Approved,
	}
	if err := e.roster.Insert(ctx, profile); err != nil {
		// profile insert failed after the identity was created; revoke
		// so a dangling login cannot reach an empty profile
		if rerr := e.gateway.RevokeIdentity(ctx, uid); rerr != nil {
			e.log.Error("revoke after failed enroll", zap.String("uid", uid), zap.Error(rerr))
		}
		e.log.Error("insert profile failed", zap.Error(err))
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	who := actor
	if who.UID == "" {
		who = ops.Actor{UID: uid, Name: profile.Name, Role: profile.Role}
		e.recorder.Record(who, auditlog.EventSignup, profile.Email)
	} else {
		e.recorder.Record(who, auditlog.EventCadetEnrolled, profile.Name)
	}
	return ops.Created(uid, "Account created.")
}

// SetApproved flips a cadet's approval gate. Admin only.
func (e *Engine) SetApproved(ctx context.Context, actor ops.Actor, cadetUID string, approved bool) ops.Result {
	if actor.Role != models.RoleAdmin {
		return ops.FromError(&ops.PermissionError{Action: "approve cadets"})
	}

	cadet, err := e.roster.Get(ctx, models.RoleCadet, cadetUID)
	if err != nil {
		if errors.Is(err, rosterstore.ErrNotFound) {
			return ops.FromError(&ops.NotFoundError{What: "cadet"})
		}
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	if err := e.roster.UpdateFields(ctx, models.RoleCadet, cadetUID, bson.M{"approved": approved}); err != nil {
		e.log.Error("set approved failed", zap.Error(err))
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	if approved {
		note := &models.AppNotification{
			UserUID: cadetUID,
			Message: "Your account has been approved. You may now register for camps.",
			Href:    "/camps",
		}
		if err := e.notifications.Insert(ctx, note); err != nil {
			e.log.Warn("approval notification failed", zap.Error(err))
		}
		e.recorder.Record(actor, auditlog.EventCadetApproved, cadet.Name)
	} else {
		e.recorder.Record(actor, auditlog.EventProfileUpdated, cadet.Name+" (approval revoked)")
	}
	return ops.OK("Approval updated.")
}

// DeleteProfile removes a user: registrations and notifications first,
// then the profile, then identity revocation. The profile delete is the
// point of no return; a failed revocation afterwards surfaces as a
// partial result, never as full success.
func (e *Engine) DeleteProfile(ctx context.Context, actor ops.Actor, role, uid string) ops.Result {
	switch role {
	case models.RoleCadet:
		if actor.Role != models.RoleAdmin {
			return ops.FromError(&ops.PermissionError{Action: "delete cadets"})
		}
	case models.RoleManager, models.RoleAdmin:
		if actor.Role != models.RoleAdmin {
			return ops.FromError(&ops.PermissionError{Action: "delete staff"})
		}
		if actor.UID == uid {
			return ops.FromError(ops.Invalid("uid", "You cannot delete your own account."))
		}
	default:
		return ops.FromError(ops.Invalid("role", "Unknown role."))
	}

	target, err := e.roster.Get(ctx, role, uid)
	if err != nil {
		if errors.Is(err, rosterstore.ErrNotFound) {
			return ops.FromError(&ops.NotFoundError{What: "profile"})
		}
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	var stepErrs []string

	if role == models.RoleCadet {
		if _, err := e.registrations.DeleteByCadet(ctx, uid); err != nil {
			stepErrs = append(stepErrs, fmt.Sprintf("delete registrations: %v", err))
		}
	}
	if _, err := e.notifications.DeleteForUser(ctx, uid); err != nil {
		stepErrs = append(stepErrs, fmt.Sprintf("delete notifications: %v", err))
	}

	if err := e.roster.Delete(ctx, role, uid); err != nil {
		e.log.Error("delete profile failed", zap.Error(err))
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	if err := e.gateway.RevokeIdentity(ctx, uid); err != nil {
		stepErrs = append(stepErrs, fmt.Sprintf("revoke identity: %v", err))
		e.log.Error("revoke identity after profile delete",
			zap.String("uid", uid), zap.Error(err))
	}

	e.recorder.Record(actor, auditlog.EventProfileDeleted,
		fmt.Sprintf("%s (%s)", target.Name, role))

	if len(stepErrs) > 0 {
		return ops.PartialFailure("Profile deleted, but some cleanup steps failed.", stepErrs)
	}
	return ops.OK("Profile deleted.")
}
