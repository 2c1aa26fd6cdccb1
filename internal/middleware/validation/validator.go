package validation

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/court-causelist/backend/internal/causelist"
	"github.com/court-causelist/backend/internal/scraper"
)

// LocalsFetchRequest is the fiber.Ctx key of a validated fetch request.
const LocalsFetchRequest = "fetch_request"

var (
	xssPattern      = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
	filenamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-.]+\.(pdf|zip)$`)
)

type Config struct {
	MaxFieldLength      int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func (cfg *Config) defaults() {
	if cfg.MaxFieldLength == 0 {
		cfg.MaxFieldLength = 200
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": msg})
}

// FetchRequest parses and checks the fetch-causelist body and stores the
// normalised request under LocalsFetchRequest.
func FetchRequest(cfg Config) fiber.Handler {
	cfg.defaults()

	return func(c *fiber.Ctx) error {
		contentType := c.Get(fiber.HeaderContentType)
		if contentType != "" && !allowedType(contentType, cfg.AllowedContentTypes) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"detail": "Unsupported content type",
			})
		}

		var req causelist.FetchRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		req.State = sanitizeString(req.State)
		req.District = sanitizeString(req.District)
		req.CourtComplex = sanitizeString(req.CourtComplex)
		req.CourtName = sanitizeString(req.CourtName)
		req.Date = sanitizeString(req.Date)
		req.CaseType = strings.ToLower(sanitizeString(req.CaseType))
		req.Site = strings.ToLower(sanitizeString(req.Site))

		required := []struct{ name, value string }{
			{"state", req.State},
			{"district", req.District},
			{"court_complex", req.CourtComplex},
			{"date", req.Date},
		}
		for _, f := range required {
			if f.value == "" {
				return badRequest(c, f.name+" is required")
			}
		}

		for _, v := range []string{req.State, req.District, req.CourtComplex, req.CourtName} {
			if msg := checkText(v, cfg.MaxFieldLength); msg != "" {
				if containsXSS(v) {
					cfg.Logger.Warn("Potential XSS attempt", zap.String("ip", c.IP()), zap.String("value", v))
				}
				return badRequest(c, msg)
			}
		}

		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			return badRequest(c, "date must be in YYYY-MM-DD format")
		}
		if req.CaseType == "" {
			req.CaseType = string(scraper.CaseBoth)
		}
		if _, err := scraper.ParseCaseType(req.CaseType); err != nil {
			return badRequest(c, "case_type must be one of civil, criminal, both")
		}

		c.Locals(LocalsFetchRequest, req)
		return c.Next()
	}
}

// PathParams checks the named route parameters of a lookup.
func PathParams(cfg Config, names ...string) fiber.Handler {
	cfg.defaults()

	return func(c *fiber.Ctx) error {
		for _, name := range names {
			v, err := url.PathUnescape(c.Params(name))
			if err != nil {
				return badRequest(c, "Invalid "+name)
			}
			v = sanitizeString(v)
			if v == "" {
				return badRequest(c, name+" is required")
			}
			if msg := checkText(v, cfg.MaxFieldLength); msg != "" {
				return badRequest(c, msg)
			}
		}
		return c.Next()
	}
}

// Filename rejects download names that could leave the output directory.
func Filename(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params(param)
		if !filenamePattern.MatchString(name) || strings.Contains(name, "..") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "File not found"})
		}
		return c.Next()
	}
}

func checkText(v string, maxLen int) string {
	if len(v) > maxLen {
		return "Field exceeds maximum length"
	}
	if containsXSS(v) {
		return "Invalid characters in request"
	}
	for _, r := range v {
		if unicode.IsControl(r) {
			return "Invalid characters in request"
		}
	}
	return ""
}

func allowedType(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}

func sanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
