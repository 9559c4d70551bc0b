// Package registration implements the camp lifecycle: creating and
// deleting camps, cadets registering, and staff deciding registrations.
package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/ops"
	"github.com/cadetlink/cadetlink/internal/app/store/camps"
	"github.com/cadetlink/cadetlink/internal/app/store/notifications"
	"github.com/cadetlink/cadetlink/internal/app/store/registrations"
	rosterstore "github.com/cadetlink/cadetlink/internal/app/store/roster"
	"github.com/cadetlink/cadetlink/internal/app/system/auditlog"
	"github.com/cadetlink/cadetlink/internal/app/system/normalize"
	"github.com/cadetlink/cadetlink/internal/app/system/txn"
	"github.com/cadetlink/cadetlink/internal/app/system/validation"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

// Engine coordinates camps, registrations, and the notifications they
// produce.
type Engine struct {
	client        *mongo.Client
	camps         *camps.Store
	registrations *registrations.Store
	notifications *notifications.Store
	roster        *rosterstore.Store
	recorder      *auditlog.Recorder
	log           *zap.Logger
}

func NewEngine(
	client *mongo.Client,
	campStore *camps.Store,
	regStore *registrations.Store,
	noteStore *notifications.Store,
	rosterStore *rosterstore.Store,
	recorder *auditlog.Recorder,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		client:        client,
		camps:         campStore,
		registrations: regStore,
		notifications: noteStore,
		roster:        rosterStore,
		recorder:      recorder,
		log:           logger,
	}
}

// CampInput carries the fields for creating or updating a camp.
type CampInput struct {
	Name        string
	Description string
	Location    string
	StartDate   time.Time
	EndDate     time.Time
}

func (in *CampInput) validate() *ops.ValidationError {
	f := validation.Fields{}
	f.Require("name", in.Name)
	f.Require("description", in.Description)
	f.Require("location", in.Location)
	if in.StartDate.IsZero() {
		f["start_date"] = "Start date is required."
	}
	if in.EndDate.IsZero() {
		f["end_date"] = "End date is required."
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() {
		f.DateOrder("end_date", in.StartDate, in.EndDate)
	}
	f.MaxLen("description", in.Description, 4000)
	if f.OK() {
		return nil
	}
	return &ops.ValidationError{Fields: f}
}

// CreateCamp adds a camp. Admin only.
func (e *Engine) CreateCamp(ctx context.Context, actor ops.Actor, in CampInput) ops.Result {
	if actor.Role != models.RoleAdmin {
		return ops.FromError(&ops.PermissionError{Action: "create camp"})
	}
	if verr := in.validate(); verr != nil {
		return ops.FromError(verr)
	}

	camp := &models.Camp{
		Name:        normalize.Name(in.Name),
		Description: in.Description,
		Location:    normalize.Name(in.Location),
		StartDate:   in.StartDate.UTC(),
		EndDate:     in.EndDate.UTC(),
	}
	if err := e.camps.Insert(ctx, camp); err != nil {
		e.log.Error("create camp failed", zap.Error(err))
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	e.recorder.Record(actor, auditlog.EventCampCreated, camp.Name)
	return ops.Created(camp.ID.Hex(), "Camp created.")
}

// UpdateCamp edits a camp's details. Admin only.
func (e *Engine) UpdateCamp(ctx context.Context, actor ops.Actor, id primitive.ObjectID, in CampInput) ops.Result {
	if actor.Role != models.RoleAdmin {
		return ops.FromError(&ops.PermissionError{Action: "update camp"})
	}
	if verr := in.validate(); verr != nil {
		return ops.FromError(verr)
	}

	fields := bson.M{
		"name":        normalize.Name(in.Name),
		"description": in.Description,
		"location":    normalize.Name(in.Location),
		"start_date":  in.StartDate.UTC(),
		"end_date":    in.EndDate.UTC(),
		"status": (models.Camp{
			StartDate: in.StartDate.UTC(),
			EndDate:   in.EndDate.UTC(),
		}).DerivedStatus(time.Now().UTC()),
	}
	if err := e.camps.UpdateFields(ctx, id, fields); err != nil {
		if errors.Is(err, camps.ErrNotFound) {
			return ops.FromError(&ops.NotFoundError{What: "camp"})
		}
		e.log.Error("update camp failed", zap.Error(err))
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	e.recorder.Record(actor, auditlog.EventCampUpdated, in.Name)
	return ops.OK("Camp updated.")
}

// DeleteCamp removes a camp and everything hanging off it. The cascade
// is best-effort: each pending cadet gets a cancellation notification,
// registrations are dropped, then the camp itself. Failures along the
// way are collected rather than aborting, so a half-finished cascade is
// reported as partial instead of silently losing work.
func (e *Engine) DeleteCamp(ctx context.Context, actor ops.Actor, id primitive.ObjectID) ops.Result {
	if actor.Role != models.RoleAdmin {
		return ops.FromError(&ops.PermissionError{Action: "delete camp"})
	}

	camp, err := e.camps.Get(ctx, id)
	if err != nil {
		if errors.Is(err, camps.ErrNotFound) {
			return ops.FromError(&ops.NotFoundError{What: "camp"})
		}
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	var stepErrs []string

	regs, err := e.registrations.ListByCamp(ctx, id, "")
	if err != nil {
		stepErrs = append(stepErrs, fmt.Sprintf("list registrations: %v", err))
	}
	for _, reg := range regs {
		if models.TerminalStatus(reg.Status) && reg.Status == models.RegistrationRejected {
			continue
		}
		note := &models.AppNotification{
			UserUID: reg.CadetUID,
			Message: fmt.Sprintf("Camp %q has been cancelled.", camp.Name),
			Href:    "/camps",
		}
		if err := e.notifications.Insert(ctx, note); err != nil {
			stepErrs = append(stepErrs, fmt.Sprintf("notify cadet %s: %v", reg.CadetUID, err))
		}
	}

	if _, err := e.registrations.DeleteByCamp(ctx, id); err != nil {
		stepErrs = append(stepErrs, fmt.Sprintf("delete registrations: %v", err))
	}

	if err := e.camps.Delete(ctx, id); err != nil && !errors.Is(err, camps.ErrNotFound) {
		stepErrs = append(stepErrs, fmt.Sprintf("delete camp: %v", err))
	}

	e.recorder.Record(actor, auditlog.EventCampDeleted, camp.Name)

	if len(stepErrs) > 0 {
		e.log.Warn("camp delete finished with errors",
			zap.String("camp_id", id.Hex()),
			zap.Strings("errors", stepErrs))
		return ops.PartialFailure("Camp deleted, but some cleanup steps failed.", stepErrs)
	}
	return ops.OK("Camp and its registrations deleted.")
}

// Register signs the acting cadet up for a camp. The cadet must be
// approved and the camp must not be completed. The denormalized cadet
// snapshot is taken at registration time.
func (e *Engine) Register(ctx context.Context, actor ops.Actor, campID primitive.ObjectID) ops.Result {
	if actor.Role != models.RoleCadet {
		return ops.FromError(&ops.PermissionError{Action: "register for camp"})
	}

	cadet, err := e.roster.Get(ctx, models.RoleCadet, actor.UID)
	if err != nil {
		if errors.Is(err, rosterstore.ErrNotFound) {
			return ops.FromError(&ops.NotFoundError{What: "cadet profile"})
		}
		return ops.FromError(&ops.UnavailableError{Err: err})
	}
	if !cadet.Approved {
		return ops.FromError(&ops.PermissionError{Action: "register before approval"})
	}

	camp, err := e.camps.Get(ctx, campID)
	if err != nil {
		if errors.Is(err, camps.ErrNotFound) {
			return ops.FromError(&ops.NotFoundError{What: "camp"})
		}
		return ops.FromError(&ops.UnavailableError{Err: err})
	}
	if camp.DerivedStatus(time.Now().UTC()) == models.CampCompleted {
		return ops.FromError(ops.Invalid("camp", "This camp has already ended."))
	}

	reg := &models.CampRegistration{
		CampID:                campID,
		CadetUID:              cadet.UID,
		CadetName:             cadet.Name,
		CadetYear:             cadet.Year,
		CadetRegimentalNumber: cadet.RegimentalNumber,
		Status:                models.RegistrationPending,
	}
	if err := e.registrations.Insert(ctx, reg); err != nil {
		if errors.Is(err, registrations.ErrDuplicate) {
			return ops.FromError(ops.Invalid("camp", "You are already registered for this camp."))
		}
		e.log.Error("register failed", zap.Error(err))
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	e.recorder.Record(actor, auditlog.EventRegistrationCreated, camp.Name)
	return ops.Created(reg.ID.Hex(), "Registration submitted.")
}

// UpdateStatus moves a pending registration to accepted or rejected and
// notifies the cadet. The two writes run in one transaction where the
// deployment supports them; standalone servers fall back to sequential
// writes. Decided registrations are terminal.
func (e *Engine) UpdateStatus(ctx context.Context, actor ops.Actor, regID primitive.ObjectID, newStatus string) ops.Result {
	if actor.Role != models.RoleAdmin {
		return ops.FromError(&ops.PermissionError{Action: "decide registration"})
	}
	if newStatus != models.RegistrationAccepted && newStatus != models.RegistrationRejected {
		return ops.FromError(ops.Invalid("status", "Status must be accepted or rejected."))
	}

	reg, err := e.registrations.Get(ctx, regID)
	if err != nil {
		if errors.Is(err, registrations.ErrNotFound) {
			return ops.FromError(&ops.NotFoundError{What: "registration"})
		}
		return ops.FromError(&ops.UnavailableError{Err: err})
	}
	if models.TerminalStatus(reg.Status) {
		return ops.FromError(&ops.InvalidStateError{From: reg.Status, To: newStatus})
	}

	camp, err := e.camps.Get(ctx, reg.CampID)
	campName := "the camp"
	if err == nil {
		campName = camp.Name
	}

	message := fmt.Sprintf("Congratulations! You have been selected for the %s.", campName)
	if newStatus == models.RegistrationRejected {
		message = fmt.Sprintf("We are sorry; your registration for the %s was not accepted this time.", campName)
	}
	note := &models.AppNotification{
		UserUID: reg.CadetUID,
		Message: message,
		Href:    "/registrations",
	}

	apply := func(ctx context.Context) error {
		if err := e.registrations.SetStatus(ctx, regID, models.RegistrationPending, newStatus); err != nil {
			return err
		}
		return e.notifications.Insert(ctx, note)
	}

	err = txn.WithTransaction(ctx, e.client, func(sc mongo.SessionContext) error {
		return apply(sc)
	})
	if err != nil && txn.IsNotSupported(err) {
		e.log.Debug("transactions unsupported, applying sequentially")
		err = apply(ctx)
	}
	if err != nil {
		if errors.Is(err, registrations.ErrNotFound) {
			// lost the race to another reviewer
			return ops.FromError(&ops.InvalidStateError{From: "decided", To: newStatus})
		}
		e.log.Error("update registration status failed", zap.Error(err))
		return ops.FromError(&ops.UnavailableError{Err: err})
	}

	event := auditlog.EventRegistrationAccepted
	if newStatus == models.RegistrationRejected {
		event = auditlog.EventRegistrationRejected
	}
	e.recorder.Record(actor, event, fmt.Sprintf("%s: %s", campName, reg.CadetName))

	return ops.OK(fmt.Sprintf("Registration %s.", newStatus))
}
