package catalogHandler

import (
	"time"

	"ButikChat/internal/api/catalog"
	contextPkg "ButikChat/pkg/context"
	"ButikChat/pkg/handlerUtil"
	"ButikChat/pkg/log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *CatalogHandler) UpsertProduct(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 15*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing product upsert request")

	var req catalog.UpsertProductRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}
	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	response, err := h.catalogService.UpsertProduct(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "upsert_product")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, response)
}

func (h *CatalogHandler) GetProduct(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	response, err := h.catalogService.GetProduct(c, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_product")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, response)
}

func (h *CatalogHandler) ListProducts(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	response, err := h.catalogService.ListProducts(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_products")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, response)
}

func (h *CatalogHandler) DeleteProduct(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	if err := h.catalogService.DeleteProduct(c, ctx.Params("id")); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "delete_product")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusNoContent, nil)
}

func (h *CatalogHandler) Reindex(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 60*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Info("Catalog reindex requested")

	response, err := h.catalogService.Reindex(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "reindex")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, response)
}
