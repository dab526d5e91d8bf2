package handler

import (
	"net/http"

	"examprep-billing/internal/catalog"
	"examprep-billing/internal/dto"
	"examprep-billing/internal/middleware"
	"examprep-billing/internal/progress"
	"examprep-billing/internal/repository"
	"examprep-billing/internal/service"

	"github.com/labstack/echo/v4"
)

// ContentHandler serves the gated endpoints. Every one of them asks the
// resolver first and turns a denial into a 403, never partial content.
type ContentHandler struct {
	entitlementService service.EntitlementService
	catalogCache       *catalog.Cache
	purchaseRepo       repository.PurchaseRepository
	userRepo           repository.UserRepository
	progressRepo       repository.ProgressRepository
}

func NewContentHandler(
	entitlementService service.EntitlementService,
	catalogCache *catalog.Cache,
	purchaseRepo repository.PurchaseRepository,
	userRepo repository.UserRepository,
	progressRepo repository.ProgressRepository,
) *ContentHandler {
	return &ContentHandler{
		entitlementService: entitlementService,
		catalogCache:       catalogCache,
		purchaseRepo:       purchaseRepo,
		userRepo:           userRepo,
		progressRepo:       progressRepo,
	}
}

func (h *ContentHandler) GetCatalog(c echo.Context) error {
	items, err := h.catalogCache.All(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ContentHandler) GetSubjectQuestions(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFrom(c)
	subjectID := c.Param("id")

	decision := h.entitlementService.CanAccessSubject(ctx, identity.UserID, subjectID)
	if !decision.Granted {
		return echo.NewHTTPError(http.StatusForbidden, "no active grant for this subject")
	}

	prog, err := h.progressRepo.Get(ctx, identity.UserID, subjectID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"subject_id": subjectID,
		"access": dto.DecisionResponse{
			Granted:   true,
			Source:    string(decision.Source),
			ExpiresAt: decision.ExpiresAt,
		},
		"progress": dto.ProgressResponse{
			SubjectID:       subjectID,
			CorrectAnswered: prog.CorrectAnswered,
			TotalAttempted:  prog.TotalAttempted,
			ProgressPercent: progress.Percent(prog.CorrectAnswered, prog.TotalAttempted),
		},
	})
}

func (h *ContentHandler) RecordAttempts(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFrom(c)
	subjectID := c.Param("id")

	decision := h.entitlementService.CanAccessSubject(ctx, identity.UserID, subjectID)
	if !decision.Granted {
		return echo.NewHTTPError(http.StatusForbidden, "no active grant for this subject")
	}

	var req dto.AttemptRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Answered < 0 || req.Correct < 0 || req.Correct > req.Answered {
		return echo.NewHTTPError(http.StatusBadRequest, "correct must be between 0 and answered")
	}

	if err := h.progressRepo.RecordAttempts(ctx, identity.UserID, subjectID, req.Answered, req.Correct); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *ContentHandler) PrintSubject(c echo.Context) error {
	return h.addonGate(c, service.AddonPrinting)
}

func (h *ContentHandler) SubjectInsights(c echo.Context) error {
	return h.addonGate(c, service.AddonAiInsights)
}

func (h *ContentHandler) addonGate(c echo.Context, addon service.Addon) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFrom(c)
	subjectID := c.Param("id")

	if !h.entitlementService.CanUseAddon(ctx, identity.UserID, subjectID, addon) {
		return echo.NewHTTPError(http.StatusForbidden, "addon not unlocked for this subject")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"subject_id": subjectID,
		"addon":      string(addon),
		"status":     "available",
	})
}

func (h *ContentHandler) PostInForum(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFrom(c)
	forumID := c.Param("id")

	if !h.entitlementService.CanPostInForum(ctx, identity, forumID) {
		return echo.NewHTTPError(http.StatusForbidden, "posting not allowed in this forum")
	}

	var post struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&post); err != nil || post.Body == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "post body required")
	}

	// Forum content storage lives elsewhere; this surface only decides access.
	return c.JSON(http.StatusAccepted, map[string]string{
		"forum_id": forumID,
		"status":   "accepted",
	})
}

func (h *ContentHandler) GetMyEntitlements(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFrom(c)

	purchases, err := h.purchaseRepo.FindByUser(ctx, identity.UserID)
	if err != nil {
		return err
	}

	resp := dto.EntitlementsResponse{Purchases: make([]dto.PurchaseResponse, 0, len(purchases))}
	for _, p := range purchases {
		resp.Purchases = append(resp.Purchases, dto.PurchaseResponse{
			ID:            p.ID,
			SubjectID:     p.SubjectID,
			Type:          string(p.Type),
			HasPrinting:   p.HasPrinting,
			HasAiInsights: p.HasAiInsights,
			ExpiresAt:     p.ExpiresAt,
		})
	}

	if user, err := h.userRepo.FindByID(ctx, identity.UserID); err == nil {
		resp.HasBundle = user.HasBundle
		resp.BundleExpiry = user.BundleExpiry
	}

	return c.JSON(http.StatusOK, resp)
}
