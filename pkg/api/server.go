// Package api exposes the translation service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nguyenvanduocit/transcache/pkg/schema"
	"github.com/nguyenvanduocit/transcache/pkg/service"
)

// Translator is the operation behind POST /translate.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// LanguageLister reports the language tables provisioned so far.
type LanguageLister interface {
	List(ctx context.Context) ([]schema.Table, error)
}

type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type TranslateResponse struct {
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type LanguagesResponse struct {
	Languages []schema.Table `json:"languages"`
}

// New builds the fiber application. languages may be nil, in which case
// GET /languages is not registered.
func New(translator Translator, languages LanguageLister, logger *slog.Logger) *fiber.App {
	if logger == nil {
		logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "transcache",
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestLogger(logger))

	app.Post("/translate", handleTranslate(translator))
	app.Get("/health", handleHealth)
	if languages != nil {
		app.Get("/languages", handleLanguages(languages))
	}

	return app
}

func handleTranslate(translator Translator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req TranslateRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: "Invalid request body"})
		}

		translated, err := translator.Translate(c.UserContext(), req.Text, req.SourceLang, req.TargetLang)
		if err != nil {
			if service.KindOf(err) == service.KindInvalidInput {
				return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Detail: fmt.Sprintf("Translation failed: %s", err.Error()),
			})
		}

		return c.JSON(TranslateResponse{
			OriginalText:   req.Text,
			TranslatedText: translated,
		})
	}
}

func handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "healthy",
		Message: "Translation API is up and running",
	})
}

func handleLanguages(languages LanguageLister) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tables, err := languages.List(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Detail: err.Error()})
		}
		return c.JSON(LanguagesResponse{Languages: tables})
	}
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(ErrorResponse{Detail: err.Error()})
	}
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()
		logger.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(started),
		)
		return err
	}
}
