package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hitpoints/hitpoints-service/internal/core/domain"
	"github.com/hitpoints/hitpoints-service/internal/core/ports"
)

const idempotencyHeader = "Idempotency-Key"

// CharacterHandler serves the roster and the hit point commands.
type CharacterHandler struct {
	service ports.CharacterService
}

func NewCharacterHandler(service ports.CharacterService) *CharacterHandler {
	return &CharacterHandler{service: service}
}

// List handles GET /characters.
//
// @Summary      List all characters
// @Tags         characters
// @Produce      json
// @Success      200  {array}   characterResponse
// @Failure      500  {object}  errorResponse
// @Router       /characters [get]
func (h *CharacterHandler) List(c echo.Context) error {
	chars, err := h.service.GetAllCharacters(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]characterResponse, 0, len(chars))
	for _, ch := range chars {
		out = append(out, toCharacterResponse(ch))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /characters/:id.
//
// @Summary      Get a character
// @Tags         characters
// @Produce      json
// @Param        id   path      string  true  "Character id (seed file name)"
// @Success      200  {object}  characterResponse
// @Failure      404  {object}  errorResponse
// @Router       /characters/{id} [get]
func (h *CharacterHandler) Get(c echo.Context) error {
	ch, err := h.service.GetCharacter(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCharacterResponse(ch))
}

// DealDamage handles POST /characters/damage.
//
// @Summary      Deal typed damage to a character
// @Tags         characters
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string         false  "Repeated keys are acknowledged without re-applying"
// @Param        body             body      damageRequest  true   "Damage"
// @Success      200              {object}  mutationResponse
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Failure      503              {object}  errorResponse
// @Router       /characters/damage [post]
func (h *CharacterHandler) DealDamage(c echo.Context) error {
	var req damageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	kind, err := domain.ParseDamageKind(req.DamageType)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	res, err := h.service.DealDamage(c.Request().Context(), req.CharacterID, kind, req.Damage, idempotencyKey(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMutationResponse(res))
}

// Heal handles POST /characters/heal.
//
// @Summary      Heal a character
// @Tags         characters
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string       false  "Repeated keys are acknowledged without re-applying"
// @Param        body             body      healRequest  true   "Healing"
// @Success      200              {object}  mutationResponse
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Failure      503              {object}  errorResponse
// @Router       /characters/heal [post]
func (h *CharacterHandler) Heal(c echo.Context) error {
	var req healRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.Heal(c.Request().Context(), req.CharacterID, req.Amount, idempotencyKey(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMutationResponse(res))
}

// AddTemporaryHitPoints handles POST /characters/temporary-hit-points.
// A grant smaller than the current pool leaves it unchanged and still succeeds.
//
// @Summary      Grant temporary hit points
// @Tags         characters
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string                     false  "Repeated keys are acknowledged without re-applying"
// @Param        body             body      temporaryHitPointsRequest  true   "Grant"
// @Success      200              {object}  mutationResponse
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Failure      503              {object}  errorResponse
// @Router       /characters/temporary-hit-points [post]
func (h *CharacterHandler) AddTemporaryHitPoints(c echo.Context) error {
	var req temporaryHitPointsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.AddTemporaryHitPoints(c.Request().Context(), req.CharacterID, req.Amount, idempotencyKey(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMutationResponse(res))
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

func idempotencyKey(c echo.Context) string {
	return c.Request().Header.Get(idempotencyHeader)
}
