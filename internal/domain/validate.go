package domain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single rejected field, keyed by its JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the full list of violations for one payload.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// movieMessages keeps one human message per movie field, whichever rule failed.
var movieMessages = map[string]string{
	"MovieRequest.Title":        "Title must be between 1 and 200 characters",
	"MovieRequest.Description":  "Description must be between 1 and 2000 characters",
	"MovieRequest.Category":     "Invalid category",
	"MovieRequest.Quality":      "Invalid quality",
	"MovieRequest.Size":         "Size must be between 1 and 50 characters",
	"MovieRequest.DownloadLink": "Download link must be a valid URL",
	"MovieRequest.Poster":       "Poster must be a valid URL",
}

// Validator wraps go-playground/validator with the catalog's custom rules.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the closed-set and URL rules. The same instance serves
// movie and account payloads.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("quality", func(fl validator.FieldLevel) bool {
		return Quality(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return IsHTTPURL(fl.Field().String())
	})

	return &Validator{validate: v}
}

// IsHTTPURL reports whether s is an absolute http or https URL with a host.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Struct validates s and converts failures into ValidationErrors.
func (v *Validator) Struct(ctx context.Context, s any) error {
	err := v.validate.StructCtx(ctx, s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate %T: %w", s, err)
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: messageFor(fe)})
	}
	return out
}

// Movie trims and validates a create or full-update payload. On success the
// normalised payload is returned; on failure the error is ValidationErrors and
// nothing should be written.
func (v *Validator) Movie(ctx context.Context, req MovieRequest) (MovieRequest, error) {
	req = req.Normalize()
	if err := v.Struct(ctx, req); err != nil {
		return MovieRequest{}, err
	}
	return req, nil
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := movieMessages[fe.StructNamespace()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
