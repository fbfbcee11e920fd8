package v1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/policy"
	"github.com/theforge/forge/pkg/utils"
)

// CreateReport files a report against a mod, addon, comment, or user.
// Reporting the same entity twice is refused before it ever reaches the
// unique index.
func (h *Handlers) CreateReport(c *fiber.Ctx) error {
	actor := viewer(c)

	type ReportInput struct {
		ReportableType string `json:"reportable_type" validate:"required,oneof=mod addon comment user"`
		ReportableID   string `json:"reportable_id" validate:"required,max=64"`
		Reason         string `json:"reason" validate:"required,max=100"`
		Context        string `json:"context" validate:"omitempty,max=2000"`
	}
	in := new(ReportInput)
	if err := utils.StrictBodyParser(c, in); err != nil {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}

	target, cerr := h.findReportable(c, in.ReportableType, in.ReportableID)
	if cerr != nil {
		return utils.SendError(c, cerr)
	}

	already := false
	if actor != nil {
		var err error
		already, err = models.HasReported(c.UserContext(), h.DB, actor.ID, target)
		if err != nil {
			return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to check existing reports"))
		}
	}
	if err := policyError(actor, (policy.ReportPolicy{}).Report(actor, already)); err != nil {
		return utils.SendError(c, err)
	}

	report := &models.Report{
		ReporterID:     actor.ID,
		ReportableType: target.ReportableType(),
		ReportableID:   target.ReportableID(),
		Reason:         in.Reason,
		Context:        in.Context,
	}
	if err := h.DB.WithContext(c.UserContext()).Create(report).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to file report"))
	}

	h.Log.Info(c.UserContext()).WithFields("report_id", report.ID.String(), "reporter", actor.ID.String()).Logs("Report filed")
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithData(fiber.Map{"id": report.ID, "status": report.Status}).
		Send()
}

// ResolveReport closes a report as resolved or dismissed. Staff only.
func (h *Handlers) ResolveReport(c *fiber.Ctx) error {
	actor := viewer(c)
	if err := policyError(actor, (policy.ReportPolicy{}).Resolve(actor)); err != nil {
		return utils.SendError(c, err)
	}

	id, cerr := parseUUID(c, "report")
	if cerr != nil {
		return utils.SendError(c, cerr)
	}

	type ResolveInput struct {
		Status string `json:"status" validate:"required,oneof=resolved dismissed"`
	}
	in := new(ResolveInput)
	if err := utils.StrictBodyParser(c, in); err != nil {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}

	res := h.DB.WithContext(c.UserContext()).Model(&models.Report{}).
		Where("id = ? AND status = ?", id, models.ReportPending).
		Update("status", in.Status)
	if res.Error != nil {
		return utils.SendError(c, utils.WrapError(res.Error, utils.ErrInternalServerError.Status, "Failed to resolve report"))
	}
	if res.RowsAffected == 0 {
		return utils.SendError(c, utils.NewError(fiber.StatusNotFound, "Report not found"))
	}

	h.Log.Info(c.UserContext()).WithFields("report_id", id.String(), "status", in.Status).Logs("Report closed")
	return utils.Success(c).WithMessage("Report " + in.Status).Send()
}

// IndexReports lists open reports for staff review.
func (h *Handlers) IndexReports(c *fiber.Ctx) error {
	actor := viewer(c)
	if err := policyError(actor, (policy.ReportPolicy{}).Resolve(actor)); err != nil {
		return utils.SendError(c, err)
	}

	p := parsePage(c)
	q := h.DB.WithContext(c.UserContext()).Model(&models.Report{})
	if status := c.Query("filter[status]"); status != "" {
		q = q.Where("status = ?", status)
	} else {
		q = q.Where("status = ?", models.ReportPending)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to count reports"))
	}

	var reports []models.Report
	if err := p.apply(q).Order("created_at ASC").Find(&reports).Error; err != nil {
		return utils.SendError(c, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to list reports"))
	}

	return utils.Success(c).
		WithData(reports).
		WithMeta(pageMeta(p, total)).
		WithLinks(pageLinks(c, p, total)).
		Send()
}

// findReportable loads the reported entity, proving it exists before a
// report row is created against it.
func (h *Handlers) findReportable(c *fiber.Ctx, kind, id string) (models.Reportable, *utils.CustomError) {
	notFound := utils.NewError(fiber.StatusNotFound, "Reported entity not found")

	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, notFound
	}

	switch kind {
	case models.ReportableMod:
		var m models.Mod
		if err := h.DB.WithContext(c.UserContext()).First(&m, "id = ?", uid).Error; err != nil {
			return nil, notFound
		}
		return &m, nil
	case models.ReportableAddon:
		var a models.Addon
		if err := h.DB.WithContext(c.UserContext()).First(&a, "id = ?", uid).Error; err != nil {
			return nil, notFound
		}
		return &a, nil
	case models.ReportableComment:
		var cm models.Comment
		if err := h.DB.WithContext(c.UserContext()).First(&cm, "id = ?", uid).Error; err != nil {
			return nil, notFound
		}
		return &cm, nil
	case models.ReportableUser:
		var u models.User
		if err := h.DB.WithContext(c.UserContext()).First(&u, "id = ?", uid).Error; err != nil {
			return nil, notFound
		}
		return &u, nil
	}
	return nil, notFound
}
